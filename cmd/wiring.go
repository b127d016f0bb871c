package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/browser"
	"github.com/xkilldash9x/waflow/internal/config"
	"github.com/xkilldash9x/waflow/internal/contacts"
	"github.com/xkilldash9x/waflow/internal/history"
	"github.com/xkilldash9x/waflow/internal/runner"
	"github.com/xkilldash9x/waflow/internal/store"
)

// components holds the wired application graph shared by the subcommands.
type components struct {
	History  *history.Logger
	Contacts *contacts.Store
	Files    *store.FileStore
	Runner   *runner.Runner
}

// buildComponents wires the outcome log, side-file stores, automation client,
// and batch runner from the resolved configuration.
func buildComponents(cfg *config.Config, logger *zap.Logger) *components {
	hist := history.New(cfg.Storage.HistoryFile, logger)
	files := store.New(cfg.Storage.DefaultMessageFile, cfg.Messaging.MediaPath, logger)
	contactStore := contacts.NewStore(cfg.Storage.ContactsFile, logger)

	client := browser.NewClient(cfg.Browser, logger)
	startSession := func(ctx context.Context) (schemas.Automator, error) {
		session, err := client.Start(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	return &components{
		History:  hist,
		Contacts: contactStore,
		Files:    files,
		Runner:   runner.New(cfg, logger, startSession, files.MediaPath, hist),
	}
}
