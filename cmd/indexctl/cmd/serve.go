package cmd

import (
	"github.com/spf13/cobra"

	"github.com/indexlab/learnedindex/pkg/httpapi"
)

var (
	serveBind string
	servePort int
)

// serveCmd starts the inspection HTTP server with one fresh, empty engine
// instance per kind; build each one over HTTP via POST /api/v1/engines/{kind}/build.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection HTTP server",
	Long: `Start the inspection HTTP server with one instance of every
engine kind. Engines start empty; build each one over HTTP before
issuing lookups or range queries against it.

Example:
  indexctl serve --bind=127.0.0.1 --port=8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return httpapi.StartServer(buildParams(), httpapi.Config{Bind: serveBind, Port: servePort})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveBind, "bind", "127.0.0.1", "address to bind the inspection server to")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to bind the inspection server to")
}
