package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildCmd represents the build command.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the configured engine over --keys and report its footprint",
	Long: `Build the configured engine over the keys in --keys and print its
key count and estimated memory usage.

Example:
  indexctl build --engine=fitingtree --keys=./keys.txt --epsilon=16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, keys, err := loadAndBuild()
		if err != nil {
			return err
		}
		fmt.Printf("engine:       %s\n", idx.Kind())
		fmt.Printf("keys:         %d\n", len(keys))
		fmt.Printf("memory usage: %d bytes\n", idx.MemoryUsage())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
