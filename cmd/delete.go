package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/observability"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [numbers...]",
		Short: "Deletes the last sent message in each recipient's chat",
		Long: `Runs one delete batch synchronously: for each recipient, locates the most
recent self-authored message in the chat and deletes it for everyone.
Per-recipient outcomes are in the history log.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			comp := buildComponents(appConfig, logger)
			return comp.Runner.Run(cmd.Context(), schemas.ModeDelete, "", args)
		},
	}
}
