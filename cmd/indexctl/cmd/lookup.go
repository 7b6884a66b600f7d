package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// lookupCmd represents the lookup command.
var lookupCmd = &cobra.Command{
	Use:   "lookup <key>",
	Short: "Build the configured engine over --keys and look up a single key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", args[0], err)
		}

		idx, _, err := loadAndBuild()
		if err != nil {
			return err
		}

		pos, found := idx.Lookup(key)
		if !found {
			fmt.Printf("%d: not found\n", key)
			return nil
		}
		fmt.Printf("%d: found at position %d\n", key, pos)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
