package schemas

import "errors"

// Sentinel errors shared between the automation client and its consumers.
// Wait expiry and missing elements are expected variance in a hostile UI and
// are matched with errors.Is rather than treated as fatal.
var (
	// ErrSessionStart means the browser process could not be created or never
	// became responsive. Fatal to the whole batch.
	ErrSessionStart = errors.New("browser session start failed")

	// ErrWaitTimeout means a bounded wait elapsed without the condition
	// being satisfied.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrElementMissing means an element expected to exist for an action
	// (click, type, upload) could not be found.
	ErrElementMissing = errors.New("element not found")
)
