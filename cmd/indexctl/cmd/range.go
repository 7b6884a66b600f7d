package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// rangeCmd represents the range command.
var rangeCmd = &cobra.Command{
	Use:   "range <lo> <hi>",
	Short: "Build the configured engine over --keys and run a range query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lo, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid lo %q: %w", args[0], err)
		}
		hi, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid hi %q: %w", args[1], err)
		}

		idx, _, err := loadAndBuild()
		if err != nil {
			return err
		}

		results := idx.RangeQuery(lo, hi)
		fmt.Printf("%d keys in [%d, %d]\n", len(results), lo, hi)
		for _, k := range results {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rangeCmd)
}
