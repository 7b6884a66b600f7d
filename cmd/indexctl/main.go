// Command indexctl builds one of the five index engines over a file of
// newline-separated keys and lets a human issue ad hoc build/lookup/range
// operations against it, or start the inspection HTTP server.
package main

import "github.com/indexlab/learnedindex/cmd/indexctl/cmd"

func main() {
	cmd.Execute()
}
