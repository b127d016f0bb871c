package schemas

import (
	"context"
	"time"
)

// WaitCondition describes one element condition raced inside WaitForAny.
// Tag names the branch so callers can dispatch on which condition won.
type WaitCondition struct {
	Tag       string
	Selector  string
	Clickable bool // require interactable, not just present
}

// WaitResult is the tagged outcome of a bounded wait. TimedOut and Tag are
// mutually exclusive: either one condition matched within the bound, or none
// did. Expected element absence is data, never an error.
type WaitResult struct {
	Tag      string
	TimedOut bool
}

// Automator is the browser-session contract the recipient workflow drives.
// Every operation is bounded by its context; implementations must never block
// indefinitely. The production implementation lives in internal/browser; tests
// substitute a scripted fake.
type Automator interface {
	// Navigate loads a URL. It does not wait for application readiness.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until the selector satisfies the condition or the
	// timeout elapses. Timeout is reported as an error wrapping
	// ErrWaitTimeout; transport failures are other errors.
	WaitFor(ctx context.Context, cond WaitCondition, timeout time.Duration) error

	// WaitForAny races several conditions and reports which matched first.
	WaitForAny(ctx context.Context, timeout time.Duration, conds ...WaitCondition) (WaitResult, error)

	// Click clicks the first match, falling back to a script-level click when
	// the direct click is intercepted by overlays or animation.
	Click(ctx context.Context, selector string) error

	// HoverLast dispatches pointer-over events to the last element matching
	// the selector (last in DOM order = most recent), revealing hover-only
	// controls such as a message's contextual menu.
	HoverLast(ctx context.Context, selector string) error

	// TypeLines types each line into the focused element identified by
	// selector, inserting a soft line break (Shift+Enter) between lines so the
	// target UI does not treat the break as a submit.
	TypeLines(ctx context.Context, selector string, lines []string) error

	// PressEnter submits the focused composer with the hard-submit key.
	PressEnter(ctx context.Context) error

	// Upload supplies a local file path to a native file input.
	Upload(ctx context.Context, selector, path string) error

	// Close tears the session down. Idempotent.
	Close(ctx context.Context) error
}

// OutcomeSink receives one record per processed recipient. Implementations
// must be safe for concurrent use; a sink failure must never abort a batch.
type OutcomeSink interface {
	Append(rec OutcomeRecord) error
}
