package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PriceSim/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collect and simulate schedule and serve the read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withApp(ctx, func(ctx context.Context, app *server.App) error {
			return app.Serve(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
