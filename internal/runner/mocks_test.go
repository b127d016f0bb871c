package runner

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/waflow/api/schemas"
)

// Race outcomes a chat script can produce for the composer-vs-popup wait.
const (
	raceComposer = "composer"
	racePopup    = "popup"
	raceTimeout  = "timeout"
)

// chatScript describes how the fake UI behaves for one phone target
// (country code + number, as it appears in the deep link).
type chatScript struct {
	race        string
	hasOutgoing bool
	waitFails   map[string]bool // selectors whose WaitFor times out
	clickFails  map[string]bool
	hoverFails  bool
	typeFails   bool
	enterFails  bool
	uploadFails bool
}

// fakeAutomator is a scripted schemas.Automator. It records every call so
// tests can assert on the exact interaction sequence.
type fakeAutomator struct {
	mu sync.Mutex

	appLoaded bool
	chats     map[string]*chatScript
	current   *chatScript

	navigations []string
	clicks      []string
	typed       [][]string
	uploads     []string
	enterCount  int
	closeCount  int

	// navDelay slows Navigate down so concurrency tests can observe overlap.
	navDelay time.Duration
	onClose  func()
}

var _ schemas.Automator = (*fakeAutomator)(nil)

func newFakeAutomator() *fakeAutomator {
	return &fakeAutomator{
		appLoaded: true,
		chats:     make(map[string]*chatScript),
	}
}

// chat registers a script for a phone target keyed by country code + digits.
func (f *fakeAutomator) chat(phone string, script *chatScript) *chatScript {
	if script.waitFails == nil {
		script.waitFails = make(map[string]bool)
	}
	if script.clickFails == nil {
		script.clickFails = make(map[string]bool)
	}
	f.chats[phone] = script
	return script
}

func (f *fakeAutomator) Navigate(_ context.Context, rawURL string) error {
	if f.navDelay > 0 {
		time.Sleep(f.navDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, rawURL)

	f.current = nil
	if strings.Contains(rawURL, "phone=") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		phone := u.Query().Get("phone")
		script, ok := f.chats[phone]
		if !ok {
			return fmt.Errorf("no script for phone %q", phone)
		}
		f.current = script
	}
	return nil
}

func (f *fakeAutomator) WaitFor(_ context.Context, cond schemas.WaitCondition, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cond.Selector {
	case selChatsPane:
		if !f.appLoaded {
			return fmt.Errorf("%w: %s", schemas.ErrWaitTimeout, cond.Selector)
		}
		return nil
	case selOutgoingMsg:
		if f.current == nil || !f.current.hasOutgoing {
			return fmt.Errorf("%w: %s", schemas.ErrWaitTimeout, cond.Selector)
		}
		return nil
	}
	if f.current != nil && f.current.waitFails[cond.Selector] {
		return fmt.Errorf("%w: %s", schemas.ErrWaitTimeout, cond.Selector)
	}
	return nil
}

func (f *fakeAutomator) WaitForAny(_ context.Context, _ time.Duration, conds ...schemas.WaitCondition) (schemas.WaitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return schemas.WaitResult{TimedOut: true}, nil
	}
	switch f.current.race {
	case raceComposer:
		return schemas.WaitResult{Tag: tagComposer}, nil
	case racePopup:
		return schemas.WaitResult{Tag: tagInvalidPopup}, nil
	default:
		return schemas.WaitResult{TimedOut: true}, nil
	}
}

func (f *fakeAutomator) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	if f.current != nil && f.current.clickFails[selector] {
		return fmt.Errorf("%w: %s", schemas.ErrElementMissing, selector)
	}
	return nil
}

func (f *fakeAutomator) HoverLast(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil && f.current.hoverFails {
		return fmt.Errorf("%w: %s", schemas.ErrElementMissing, selector)
	}
	return nil
}

func (f *fakeAutomator) TypeLines(_ context.Context, _ string, lines []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, lines)
	if f.current != nil && f.current.typeFails {
		return fmt.Errorf("typing failed")
	}
	return nil
}

func (f *fakeAutomator) PressEnter(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterCount++
	if f.current != nil && f.current.enterFails {
		return fmt.Errorf("enter key dispatch failed")
	}
	return nil
}

func (f *fakeAutomator) Upload(_ context.Context, _, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	if f.current != nil && f.current.uploadFails {
		return fmt.Errorf("upload failed")
	}
	return nil
}

func (f *fakeAutomator) Close(_ context.Context) error {
	f.mu.Lock()
	f.closeCount++
	hook := f.onClose
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeAutomator) closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakeAutomator) navCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.navigations)
}

func (f *fakeAutomator) clickCount(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.clicks {
		if c == selector {
			n++
		}
	}
	return n
}

// memorySink collects records in memory; optionally fails every append or
// invokes a hook after each one.
type memorySink struct {
	mu        sync.Mutex
	records   []schemas.OutcomeRecord
	appendErr error
	onAppend  func(rec schemas.OutcomeRecord)
}

var _ schemas.OutcomeSink = (*memorySink)(nil)

func (m *memorySink) Append(rec schemas.OutcomeRecord) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	hook := m.onAppend
	err := m.appendErr
	m.mu.Unlock()
	if hook != nil {
		hook(rec)
	}
	return err
}

func (m *memorySink) all() []schemas.OutcomeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schemas.OutcomeRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *memorySink) statuses() []schemas.Status {
	var out []schemas.Status
	for _, r := range m.all() {
		out = append(out, r.Status)
	}
	return out
}
