package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/satgraffin/satgraffin/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the question answering tools over MCP stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: ask, index_page, resolve, status.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.connectBackends(ctx, hostname()); err != nil {
			return err
		}

		w := newWorker(a)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()

		handlers := mcpadapter.NewHandlers(a.queryService(ctx), a.indexing, logger)
		return mcpadapter.Serve(ctx, handlers, version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
