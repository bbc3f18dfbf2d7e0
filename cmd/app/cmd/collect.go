package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"PriceSim/pkg/server"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch one quote per tracked asset and update the rolling history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
			res, err := app.Collect(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
