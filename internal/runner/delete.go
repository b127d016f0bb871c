package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

// Per-step bounds for the delete workflow.
const (
	outgoingMsgTimeout = 15 * time.Second
	deleteStepTimeout  = 7 * time.Second
	cancelTimeout      = 3 * time.Second
)

// deleteStep is one bounded wait-then-click in the delete chain.
type deleteStep struct {
	stage    string
	selector string
}

// deleteRecipient locates the most recent self-authored message in the chat
// and walks the four-click delete-for-everyone chain. Any failing step
// records Delete Fail with the stage as detail, best-effort cancels out of
// the dialog, and leaves the batch running.
func (r *Runner) deleteRecipient(ctx context.Context, auto schemas.Automator, logger *zap.Logger, number string) {
	target := schemas.ChatTarget{CountryCode: r.cfg.Messaging.CountryCode, Number: number}
	if err := auto.Navigate(ctx, target.DeepLink()); err != nil {
		logger.Warn("Chat navigation failed", zap.Error(err))
		r.record(logger, number, schemas.StatusDeleteFail, "Chat Not Found")
		return
	}

	res, err := auto.WaitForAny(ctx, r.cfg.Messaging.ChatTimeout,
		schemas.WaitCondition{Tag: tagComposer, Selector: selComposer},
		schemas.WaitCondition{Tag: tagInvalidPopup, Selector: selInvalidPopup},
	)
	if err != nil || res.TimedOut || res.Tag == tagInvalidPopup {
		if res.Tag == tagInvalidPopup {
			if err := auto.Click(ctx, selInvalidPopup); err != nil {
				logger.Debug("Could not dismiss invalid-number popup", zap.Error(err))
			}
		}
		logger.Warn("Chat not available for delete", zap.Error(err))
		r.record(logger, number, schemas.StatusDeleteFail, "Chat Not Found")
		return
	}

	// At least one self-authored message must render before anything can be
	// selected; none within the bound means there is nothing to delete.
	if err := auto.WaitFor(ctx, present(selOutgoingMsg), outgoingMsgTimeout); err != nil {
		logger.Info("No self-authored messages in chat")
		r.record(logger, number, schemas.StatusNoSentMessages, "")
		return
	}

	// Last in DOM order is the most recent; hovering reveals its menu.
	if err := auto.HoverLast(ctx, selOutgoingMsg); err != nil {
		logger.Warn("Could not hover last message", zap.Error(err))
		r.record(logger, number, schemas.StatusDeleteFail, "hover")
		return
	}

	steps := []deleteStep{
		{stage: "menu", selector: selMsgMenu},
		{stage: "delete option", selector: selMenuDelete},
		{stage: "delete for everyone", selector: selDeleteForEveryone},
		{stage: "confirm", selector: selConfirmOK},
	}
	for _, step := range steps {
		if err := r.clickWhenReady(ctx, auto, step.selector); err != nil {
			logger.Warn("Delete step failed",
				zap.String("stage", step.stage), zap.Error(err))
			r.record(logger, number, schemas.StatusDeleteFail, step.stage)
			r.dismissDialog(ctx, auto, logger)
			return
		}
	}

	logger.Info("Last message deleted")
	r.record(logger, number, schemas.StatusDeleteSuccess, "Last message deleted")
}

// clickWhenReady gates the click on the target becoming interactable.
func (r *Runner) clickWhenReady(ctx context.Context, auto schemas.Automator, selector string) error {
	if err := auto.WaitFor(ctx, clickable(selector), deleteStepTimeout); err != nil {
		return err
	}
	return auto.Click(ctx, selector)
}

// dismissDialog best-effort clicks the cancel control so the UI is clean for
// the next recipient. Failure here is expected when no dialog is open.
func (r *Runner) dismissDialog(ctx context.Context, auto schemas.Automator, logger *zap.Logger) {
	if err := auto.WaitFor(ctx, clickable(selConfirmCancel), cancelTimeout); err != nil {
		logger.Debug("No cancel control to dismiss", zap.Error(err))
		return
	}
	if err := auto.Click(ctx, selConfirmCancel); err != nil {
		logger.Debug("Cancel click failed", zap.Error(err))
	}
}
