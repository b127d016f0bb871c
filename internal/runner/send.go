package runner

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

// Per-step bounds for the send workflow.
const (
	attachControlTimeout  = 10 * time.Second
	fileInputTimeout      = 10 * time.Second
	previewSendTimeout    = 20 * time.Second
	composerRefindTimeout = 10 * time.Second
)

// sendRecipient runs the send workflow for one recipient. Every branch ends
// in a named outcome; nothing here aborts the batch.
func (r *Runner) sendRecipient(ctx context.Context, auto schemas.Automator, logger *zap.Logger, number, message, mediaPath string) {
	target := schemas.ChatTarget{CountryCode: r.cfg.Messaging.CountryCode, Number: number}
	if err := auto.Navigate(ctx, target.DeepLink()); err != nil {
		logger.Warn("Chat navigation failed", zap.Error(err))
		r.record(logger, number, schemas.StatusChatNotReady, "navigation failed")
		return
	}

	// Race the composer against the invalid-number popup; probing them
	// sequentially would charge the popup's wait against valid chats.
	res, err := auto.WaitForAny(ctx, r.cfg.Messaging.ChatTimeout,
		schemas.WaitCondition{Tag: tagComposer, Selector: selComposer},
		schemas.WaitCondition{Tag: tagInvalidPopup, Selector: selInvalidPopup},
	)
	switch {
	case err != nil:
		logger.Warn("Chat readiness wait failed", zap.Error(err))
		r.record(logger, number, schemas.StatusChatNotReady, "wait error")
		return
	case res.TimedOut:
		logger.Warn("Chat not ready within bound",
			zap.Duration("timeout", r.cfg.Messaging.ChatTimeout))
		r.record(logger, number, schemas.StatusChatNotReady, "Timeout")
		return
	case res.Tag == tagInvalidPopup:
		logger.Warn("Number has no account on the platform")
		if err := auto.Click(ctx, selInvalidPopup); err != nil {
			logger.Debug("Could not dismiss invalid-number popup", zap.Error(err))
		}
		r.record(logger, number, schemas.StatusInvalidNumber, "")
		return
	}

	attached := false
	if mediaPath != "" {
		if err := r.attachMedia(ctx, auto, mediaPath); err != nil {
			// Attach failure degrades to a text-only send; the recipient gets
			// an upload-failure record plus the send attempt's own record.
			logger.Warn("Media attach failed, continuing text-only", zap.Error(err))
			r.record(logger, number, schemas.StatusImageUploadFail, "")
			if err := auto.Click(ctx, selAttachClose); err != nil {
				logger.Debug("Could not dismiss attach dialog", zap.Error(err))
			}
		} else {
			attached = true
		}
	}

	// Re-acquire the composer: attaching swaps the chat view for the media
	// preview, whose caption box matches the same selector.
	if err := auto.WaitFor(ctx, present(selComposer), composerRefindTimeout); err != nil {
		logger.Warn("Composer not available for typing", zap.Error(err))
		r.record(logger, number, schemas.StatusSendFail, "composer not found")
		return
	}
	if err := auto.TypeLines(ctx, selComposer, splitLines(message)); err != nil {
		logger.Warn("Typing failed", zap.Error(err))
		r.record(logger, number, schemas.StatusSendFail, "typing failed")
		return
	}

	if attached {
		// The preview's send control sits under animating overlays; Click
		// falls back to a forced click when intercepted.
		if err := auto.Click(ctx, selPreviewSend); err != nil {
			logger.Warn("Media send click failed", zap.Error(err))
			r.record(logger, number, schemas.StatusSendFail, "media send click failed")
			return
		}
	} else {
		if err := auto.PressEnter(ctx); err != nil {
			logger.Warn("Composer submit failed", zap.Error(err))
			r.record(logger, number, schemas.StatusSendFail, "submit failed")
			return
		}
	}

	logger.Info("Message sent")
	r.record(logger, number, schemas.StatusSuccess, message)
}

// attachMedia opens the attach control, feeds the native file input, and
// waits for the preview's send control. Any failing step aborts the attach;
// the caller degrades to a text-only send.
func (r *Runner) attachMedia(ctx context.Context, auto schemas.Automator, path string) error {
	if err := auto.WaitFor(ctx, clickable(selAttachButton), attachControlTimeout); err != nil {
		return err
	}
	if err := auto.Click(ctx, selAttachButton); err != nil {
		return err
	}
	if err := auto.WaitFor(ctx, present(selFileInput), fileInputTimeout); err != nil {
		return err
	}
	if err := auto.Upload(ctx, selFileInput, path); err != nil {
		return err
	}
	return auto.WaitFor(ctx, clickable(selPreviewSend), previewSendTimeout)
}

// splitLines normalizes line endings and splits the message for per-line
// typing with soft breaks.
func splitLines(message string) []string {
	return strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
}
