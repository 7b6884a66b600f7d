package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/indexlab/learnedindex/pkg/fitingtree"
	"github.com/indexlab/learnedindex/pkg/index"
)

var (
	keysFile       string
	engineFlag     string
	btreeOrder     int
	bptreeOrder    int
	epsilon        int
	insertModeFlag string
	radixBits      int
	modelPath      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "indexctl",
	Short: "Build and query the in-memory ordered index engines",
	Long: `indexctl builds a B-Tree, B+-Tree, RMI, FITing-Tree, or RadixSpline
index over a file of newline-separated unsigned integer keys, then lets
you run ad hoc build/lookup/range operations against it, or start the
inspection HTTP server.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&keysFile, "keys", "", "path to a file of newline-separated uint64 keys (required)")
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "btree", "engine kind: btree, bptree, rmi, fitingtree, radixspline")
	rootCmd.PersistentFlags().IntVar(&btreeOrder, "btree-order", 5, "B-Tree node order")
	rootCmd.PersistentFlags().IntVar(&bptreeOrder, "bptree-order", 4, "B+-Tree node order")
	rootCmd.PersistentFlags().IntVar(&epsilon, "epsilon", fitingtree.DefaultEpsilon, "FITing-Tree error bound")
	rootCmd.PersistentFlags().StringVar(&insertModeFlag, "insert-mode", "in_place", "FITing-Tree insert mode: in_place or delta_buffered")
	rootCmd.PersistentFlags().IntVar(&radixBits, "radix-bits", 18, "RadixSpline radix table width in bits")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model-path", "", "RMI model artifact path (leave empty for an unloaded RMI)")
}

func resolveInsertMode() fitingtree.InsertMode {
	if insertModeFlag == "delta_buffered" {
		return fitingtree.DeltaBuffered
	}
	return fitingtree.InPlace
}

func buildParams() index.Params {
	return index.Params{
		BTreeOrder:           btreeOrder,
		BPlusTreeOrder:       bptreeOrder,
		FITingTreeEpsilon:    epsilon,
		FITingTreeInsertMode: resolveInsertMode(),
		RadixSplineRadixBits: radixBits,
		RMIModelPath:         modelPath,
	}
}

// readKeysFile reads one uint64 key per line, skipping blank lines.
func readKeysFile(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keys file: %w", err)
	}
	defer f.Close()

	var keys []uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		k, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing key %q: %w", line, err)
		}
		keys = append(keys, k)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keys file: %w", err)
	}
	return keys, nil
}

// loadAndBuild reads --keys and constructs+builds the configured engine.
func loadAndBuild() (index.Index[uint64], []uint64, error) {
	if keysFile == "" {
		return nil, nil, fmt.Errorf("--keys is required")
	}
	keys, err := readKeysFile(keysFile)
	if err != nil {
		return nil, nil, err
	}

	idx, err := index.New[uint64](index.Kind(engineFlag), buildParams())
	if err != nil {
		return nil, nil, fmt.Errorf("constructing engine: %w", err)
	}
	idx.Build(keys)
	return idx, keys, nil
}
