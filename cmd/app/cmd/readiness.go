package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"PriceSim/pkg/server"
)

var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Print how many tracked assets have a full history window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
			r, err := app.Readiness(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		})
	},
}

func init() {
	rootCmd.AddCommand(readinessCmd)
}
