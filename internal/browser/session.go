package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

// pollInterval is how often bounded waits re-probe the DOM.
const pollInterval = 200 * time.Millisecond

// Session is one live browser session. It implements schemas.Automator.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.Automator = (*Session)(nil)

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Close terminates the browser process. Idempotent; always invoked on batch
// completion or fatal error.
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true

	s.logger.Debug("Closing browser session.")
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Navigate loads a URL. It does not wait for application readiness; callers
// follow up with WaitFor/WaitForAny on the elements they need.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	if err := s.runActions(ctx, chromedp.Navigate(url)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitFor blocks until the condition is satisfied or the timeout elapses.
// Expiry is reported as an error wrapping schemas.ErrWaitTimeout.
func (s *Session) WaitFor(ctx context.Context, cond schemas.WaitCondition, timeout time.Duration) error {
	res, err := s.WaitForAny(ctx, timeout, cond)
	if err != nil {
		return err
	}
	if res.TimedOut {
		return fmt.Errorf("%w: %s after %s", schemas.ErrWaitTimeout, cond.Selector, timeout)
	}
	return nil
}

// WaitForAny polls until one of several conditions is satisfied or the
// timeout elapses. It races all conditions on every poll so a "valid chat"
// branch and an "invalid number popup" branch are probed simultaneously
// rather than sequentially.
func (s *Session) WaitForAny(ctx context.Context, timeout time.Duration, conds ...schemas.WaitCondition) (schemas.WaitResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for _, cond := range conds {
			matched, err := s.probe(waitCtx, cond)
			if err != nil {
				if waitCtx.Err() != nil {
					break // deadline or cancellation, handled below
				}
				// Probes can fail transiently mid-navigation; keep polling.
				s.logger.Debug("Probe failed, retrying",
					zap.String("selector", cond.Selector), zap.Error(err))
				continue
			}
			if matched {
				return schemas.WaitResult{Tag: cond.Tag}, nil
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				// The caller's context ended, not our bound.
				return schemas.WaitResult{}, ctx.Err()
			}
			return schemas.WaitResult{TimedOut: true}, nil
		case <-ticker.C:
		}
	}
}

// probe evaluates whether a single condition currently holds.
func (s *Session) probe(ctx context.Context, cond schemas.WaitCondition) (bool, error) {
	var matched bool
	err := s.runActions(ctx, chromedp.Evaluate(probeScript(cond.Selector, cond.Clickable), &matched))
	return matched, err
}

// Click clicks the first element matching the selector. When the direct click
// is intercepted by overlay or animation timing, it falls back to a
// script-level click.
func (s *Session) Click(ctx context.Context, selector string) error {
	clickCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.runActions(clickCtx, chromedp.Click(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Debug("Direct click failed, trying forced click",
		zap.String("selector", selector), zap.Error(err))

	var clicked bool
	if evalErr := s.runActions(ctx, chromedp.Evaluate(forcedClickScript(selector), &clicked)); evalErr != nil {
		return fmt.Errorf("forced click failed for %q: %w", selector, evalErr)
	}
	if !clicked {
		return fmt.Errorf("%w: %s", schemas.ErrElementMissing, selector)
	}
	return nil
}

// HoverLast dispatches pointer-over events to the last element matching the
// selector. The host UI reveals per-message controls only on hover.
func (s *Session) HoverLast(ctx context.Context, selector string) error {
	var hovered bool
	if err := s.runActions(ctx, chromedp.Evaluate(hoverLastScript(selector), &hovered)); err != nil {
		return fmt.Errorf("hover failed for %q: %w", selector, err)
	}
	if !hovered {
		return fmt.Errorf("%w: %s", schemas.ErrElementMissing, selector)
	}
	return nil
}

// TypeLines types the message into the element line by line, inserting a
// Shift+Enter soft break between lines. The target UI treats a bare Enter as
// submit, so lines are never sent as a single blob.
func (s *Session) TypeLines(ctx context.Context, selector string, lines []string) error {
	tasks := chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	}
	for i, line := range lines {
		if line != "" {
			tasks = append(tasks, chromedp.SendKeys(selector, line, chromedp.ByQuery))
		}
		if i < len(lines)-1 {
			tasks = append(tasks, chromedp.KeyEvent(kb.Enter, chromedp.KeyModifiers(input.ModifierShift)))
		}
	}

	// Typing time grows with message length.
	timeout := 15*time.Second + time.Duration(totalLen(lines)/20)*time.Second
	typeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.runActions(typeCtx, tasks); err != nil {
		return fmt.Errorf("typing into %q failed: %w", selector, err)
	}
	return nil
}

// PressEnter submits the focused composer with the hard-submit key.
func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.runActions(ctx, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("enter key dispatch failed: %w", err)
	}
	return nil
}

// Upload supplies a local file path to a native file input. The input is
// typically hidden; CDP sets its files without UI interaction.
func (s *Session) Upload(ctx context.Context, selector, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving upload path %q: %w", path, err)
	}
	if err := s.runActions(ctx, chromedp.SetUploadFiles(selector, []string{abs}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("upload to %q failed: %w", selector, err)
	}
	return nil
}

// runActions executes chromedp actions bounded by both the session lifetime
// and the caller's context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// combineContext derives a context from the session context that is also
// canceled when the operation context ends.
func combineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	stop := context.AfterFunc(op, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func totalLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	return n
}
