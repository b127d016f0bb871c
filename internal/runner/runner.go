// Package runner drives the per-recipient automation workflows against one
// live browser session per batch. Recipients are processed strictly
// sequentially; one recipient's failure never aborts the batch, and every
// processed recipient yields an outcome record.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/config"
)

// StartSessionFunc launches a browser session. Production wires this to the
// automation client; tests substitute a fake.
type StartSessionFunc func(ctx context.Context) (schemas.Automator, error)

// MediaFunc resolves the media attachment for a send batch; "" means
// text-only. Resolved once per batch so a file appearing mid-run does not
// change behavior between recipients.
type MediaFunc func() string

// Runner executes batches. Batches sharing a profile directory are admitted
// one at a time: two live browser sessions against the same persisted
// identity corrupt the authenticated profile.
type Runner struct {
	cfg          *config.Config
	logger       *zap.Logger
	startSession StartSessionFunc
	media        MediaFunc
	sink         schemas.OutcomeSink

	mu    sync.Mutex
	gates map[string]*semaphore.Weighted
}

// New constructs a Runner.
func New(cfg *config.Config, logger *zap.Logger, start StartSessionFunc, media MediaFunc, sink schemas.OutcomeSink) *Runner {
	if media == nil {
		media = func() string { return "" }
	}
	return &Runner{
		cfg:          cfg,
		logger:       logger.Named("runner"),
		startSession: start,
		media:        media,
		sink:         sink,
		gates:        make(map[string]*semaphore.Weighted),
	}
}

// StartSend launches a send batch on a background worker and returns its ID
// immediately. The caller never blocks on batch completion; outcomes land in
// the history log.
func (r *Runner) StartSend(message string, recipients []string) string {
	return r.startBatch(schemas.ModeSend, message, recipients)
}

// StartDelete launches a delete batch on a background worker and returns its
// ID immediately.
func (r *Runner) StartDelete(recipients []string) string {
	return r.startBatch(schemas.ModeDelete, "", recipients)
}

func (r *Runner) startBatch(mode schemas.BatchMode, message string, recipients []string) string {
	batchID := uuid.New().String()
	logger := r.logger.With(zap.String("batch_id", batchID), zap.String("mode", string(mode)))
	logger.Info("Batch accepted", zap.Int("recipients", len(recipients)))

	go func() {
		// Fire-and-forget: the trigger boundary already responded, so a
		// batch-level failure surfaces in operational logs only.
		if err := r.Run(context.Background(), mode, message, recipients); err != nil {
			logger.Error("Batch failed", zap.Error(err))
			return
		}
		logger.Info("Batch finished")
	}()
	return batchID
}

// Run executes one batch synchronously: admission gate, one browser session,
// sequential recipients with pacing in between, session closed on every exit
// path. A setup failure aborts with zero records written. A canceled context
// stops the batch after the in-flight recipient.
func (r *Runner) Run(ctx context.Context, mode schemas.BatchMode, message string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients provided")
	}
	if mode == schemas.ModeSend && message == "" {
		return fmt.Errorf("send batch requires a message")
	}

	logger := r.logger.With(zap.String("mode", string(mode)))
	start := time.Now()

	gate := r.gate(r.cfg.Browser.ProfileDir)
	if err := gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for session admission: %w", err)
	}
	defer gate.Release(1)

	auto, err := r.startSession(ctx)
	if err != nil {
		return fmt.Errorf("batch setup failed: %w", err)
	}
	defer func() {
		if err := auto.Close(context.Background()); err != nil {
			logger.Warn("Session close failed", zap.Error(err))
		}
	}()

	if err := auto.Navigate(ctx, BaseURL); err != nil {
		return fmt.Errorf("batch setup failed: %w", err)
	}
	logger.Info("Waiting for application to load",
		zap.Duration("timeout", r.cfg.Messaging.LoadTimeout))
	if err := auto.WaitFor(ctx, present(selChatsPane), r.cfg.Messaging.LoadTimeout); err != nil {
		return fmt.Errorf("batch setup failed: application never loaded: %w", err)
	}

	mediaPath := ""
	if mode == schemas.ModeSend {
		mediaPath = r.media()
		if mediaPath != "" {
			logger.Info("Media attachment enabled", zap.String("path", mediaPath))
		}
	}

	pacer := rate.NewLimiter(pacingLimit(r.cfg.Messaging.SendCooldown), 1)

	for _, raw := range recipients {
		// Cooperative cancellation checkpoint between recipients.
		if ctx.Err() != nil {
			logger.Warn("Batch canceled, stopping before next recipient", zap.Error(ctx.Err()))
			return ctx.Err()
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		number := schemas.NormalizeRecipient(raw)
		if number == "" {
			logger.Warn("Skipping recipient with no digits", zap.String("raw", raw))
			continue
		}

		recipientLogger := logger.With(zap.String("recipient", number))
		switch mode {
		case schemas.ModeSend:
			r.sendRecipient(ctx, auto, recipientLogger, number, message, mediaPath)
		case schemas.ModeDelete:
			r.deleteRecipient(ctx, auto, recipientLogger, number)
		}
	}

	logger.Info("Batch complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// gate returns the weight-1 admission semaphore for a profile directory.
func (r *Runner) gate(profileDir string) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[profileDir]
	if !ok {
		g = semaphore.NewWeighted(1)
		r.gates[profileDir] = g
	}
	return g
}

// record appends one outcome. A sink failure is reported to the operational
// log only; it never propagates and never aborts the batch.
func (r *Runner) record(logger *zap.Logger, number string, status schemas.Status, detail string) {
	rec := schemas.OutcomeRecord{
		Timestamp: time.Now(),
		Recipient: number,
		Status:    status,
		Detail:    detail,
	}
	if err := r.sink.Append(rec); err != nil {
		logger.Error("Failed to append outcome record",
			zap.String("status", string(status)), zap.Error(err))
		return
	}
	logger.Info("Recorded outcome", zap.String("status", string(status)))
}

func pacingLimit(cooldown time.Duration) rate.Limit {
	if cooldown <= 0 {
		return rate.Inf
	}
	return rate.Every(cooldown)
}
