package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/waflow/internal/history"
	"github.com/xkilldash9x/waflow/internal/observability"
)

func newHistoryCmd() *cobra.Command {
	var follow bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Shows per-recipient outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			hist := history.New(appConfig.Storage.HistoryFile, logger)

			if follow {
				return followHistory(cmd, hist.Path())
			}

			entries, err := hist.Entries()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s\n",
					e.Timestamp, e.Number, e.Status, e.Message)
			}
			return nil
		},
	}

	historyCmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new outcomes as they are appended")
	return historyCmd
}

// followHistory tails the outcome log, printing records as batches append
// them, until interrupted.
func followHistory(cmd *cobra.Command, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		ReOpen: true,
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
		Logger: tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tailing history file: %w", err)
	}
	defer t.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			if entry, ok := history.ParseLine(line.Text); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %s\n",
					entry.Timestamp, entry.Number, entry.Status, entry.Message)
			}
		}
	}
}
