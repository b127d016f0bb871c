package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/config"
	"github.com/xkilldash9x/waflow/internal/observability"
)

func newSendCmd() *cobra.Command {
	var (
		message     string
		messageFile string
	)

	sendCmd := &cobra.Command{
		Use:   "send [numbers...]",
		Short: "Sends a message to each recipient, one batch",
		Long: `Runs one send batch synchronously against the listed recipients. When no
message is given, the persisted default message is used. The command exits
after the batch completes; per-recipient outcomes are in the history log.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("messaging.media_path", cmd.Flags().Lookup("media")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Re-resolve the config now that the command's flags are bound,
			// so flag overrides take precedence over file and env values.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			comp := buildComponents(cfg, logger)

			msg := message
			if messageFile != "" {
				data, err := os.ReadFile(messageFile)
				if err != nil {
					return fmt.Errorf("reading message file: %w", err)
				}
				msg = string(data)
			}
			if msg == "" {
				msg = comp.Files.DefaultMessage()
			}

			return comp.Runner.Run(cmd.Context(), schemas.ModeSend, msg, args)
		},
	}

	sendCmd.Flags().StringVarP(&message, "message", "m", "", "message text (default: persisted default message)")
	sendCmd.Flags().StringVar(&messageFile, "message-file", "", "read the message from a file")
	sendCmd.Flags().String("media", "", "attach this media file to every message")
	sendCmd.Flags().Bool("headless", false, "run the browser headless")
	return sendCmd
}
