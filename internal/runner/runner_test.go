package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Messaging.SendCooldown = 0
	return cfg
}

func newTestRunner(fake *fakeAutomator, sink *memorySink) *Runner {
	start := func(ctx context.Context) (schemas.Automator, error) { return fake, nil }
	return New(testConfig(), zap.NewNop(), start, nil, sink)
}

// phone builds the deep-link phone parameter for the default country code.
func phone(digits string) string { return "91" + digits }

func TestRunSend_Success(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"+1 (555) 010-0001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "15550100001", records[0].Recipient)
	assert.Equal(t, schemas.StatusSuccess, records[0].Status)
	assert.Equal(t, "hi", records[0].Detail)

	// Base load plus one chat navigation, composer submit, session closed.
	require.Equal(t, 2, fake.navCount())
	assert.Contains(t, fake.navigations[1], "phone=9115550100001")
	assert.Equal(t, 1, fake.enterCount)
	assert.Equal(t, [][]string{{"hi"}}, fake.typed)
	assert.Equal(t, 1, fake.closed())
}

func TestRunSend_MultilineMessageTypedPerLine(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "line one\r\nline two\nline three", []string{"15550100001"})
	require.NoError(t, err)

	require.Len(t, fake.typed, 1)
	assert.Equal(t, []string{"line one", "line two", "line three"}, fake.typed[0])
}

func TestRunSend_InvalidNumberContinuesBatch(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("10000000000"), &chatScript{race: racePopup})
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"10000000000", "15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 2)
	assert.Equal(t, schemas.StatusInvalidNumber, records[0].Status)
	assert.Empty(t, records[0].Detail)
	assert.Equal(t, schemas.StatusSuccess, records[1].Status)
	assert.Equal(t, 1, fake.clickCount(selInvalidPopup))
}

func TestRunSend_ChatNotReadyOnTimeout(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceTimeout})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusChatNotReady, records[0].Status)
	assert.Equal(t, "Timeout", records[0].Detail)
	assert.Zero(t, fake.enterCount)
}

func TestRunSend_NavigationFailure(t *testing.T) {
	fake := newFakeAutomator() // no chat script registered, Navigate fails
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusChatNotReady, records[0].Status)
	assert.Equal(t, "navigation failed", records[0].Detail)
}

func TestRunSend_MediaAttached(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	start := func(ctx context.Context) (schemas.Automator, error) { return fake, nil }
	r := New(testConfig(), zap.NewNop(), start, func() string { return "pic.png" }, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusSuccess, records[0].Status)

	// Attached sends go out through the preview control, not the composer.
	assert.Equal(t, []string{"pic.png"}, fake.uploads)
	assert.Equal(t, 1, fake.clickCount(selAttachButton))
	assert.Equal(t, 1, fake.clickCount(selPreviewSend))
	assert.Zero(t, fake.enterCount)
}

func TestRunSend_AttachFailureFallsBackToText(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{
		race:      raceComposer,
		waitFails: map[string]bool{selFileInput: true},
	})
	sink := &memorySink{}
	start := func(ctx context.Context) (schemas.Automator, error) { return fake, nil }
	r := New(testConfig(), zap.NewNop(), start, func() string { return "pic.png" }, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 2)
	assert.Equal(t, schemas.StatusImageUploadFail, records[0].Status)
	assert.Empty(t, records[0].Detail)
	assert.Equal(t, schemas.StatusSuccess, records[1].Status)
	assert.Equal(t, "hi", records[1].Detail)

	assert.Equal(t, 1, fake.clickCount(selAttachClose))
	assert.Equal(t, 1, fake.enterCount)
	assert.Empty(t, fake.uploads)
}

func TestRunSend_SubmitFailure(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer, enterFails: true})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusSendFail, records[0].Status)
	assert.Equal(t, "submit failed", records[0].Detail)
}

func TestRunSend_TypingFailure(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer, typeFails: true})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusSendFail, records[0].Status)
	assert.Equal(t, "typing failed", records[0].Detail)
	assert.Zero(t, fake.enterCount)
}

func TestRun_SkipsRecipientsWithoutDigits(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"---", "15550100001"})
	require.NoError(t, err)

	require.Len(t, sink.all(), 1)
	assert.Equal(t, 2, fake.navCount()) // base load plus one chat only
}

func TestRun_SetupFailureWritesNoRecords(t *testing.T) {
	sink := &memorySink{}
	start := func(ctx context.Context) (schemas.Automator, error) {
		return nil, schemas.ErrSessionStart
	}
	r := New(testConfig(), zap.NewNop(), start, nil, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrSessionStart)
	assert.Empty(t, sink.all())
}

func TestRun_AppLoadTimeoutClosesSession(t *testing.T) {
	fake := newFakeAutomator()
	fake.appLoaded = false
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrWaitTimeout)
	assert.Empty(t, sink.all())
	assert.Equal(t, 1, fake.closed())
}

func TestRun_ValidatesInput(t *testing.T) {
	r := newTestRunner(newFakeAutomator(), &memorySink{})

	t.Run("no recipients", func(t *testing.T) {
		err := r.Run(context.Background(), schemas.ModeSend, "hi", nil)
		require.Error(t, err)
	})
	t.Run("send without message", func(t *testing.T) {
		err := r.Run(context.Background(), schemas.ModeSend, "", []string{"15550100001"})
		require.Error(t, err)
	})
}

func TestRun_SinkFailureDoesNotAbortBatch(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	fake.chat(phone("15550100002"), &chatScript{race: raceComposer})
	sink := &memorySink{appendErr: errors.New("disk full")}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001", "15550100002"})
	require.NoError(t, err)

	// Both recipients were still attempted.
	assert.Equal(t, 3, fake.navCount())
}

func TestRun_CancellationStopsBetweenRecipients(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	fake.chat(phone("15550100002"), &chatScript{race: raceComposer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &memorySink{onAppend: func(schemas.OutcomeRecord) { cancel() }}
	r := newTestRunner(fake, sink)

	err := r.Run(ctx, schemas.ModeSend, "hi", []string{"15550100001", "15550100002"})
	require.ErrorIs(t, err, context.Canceled)

	// The in-flight recipient completed; the next never started.
	require.Len(t, sink.all(), 1)
	assert.Equal(t, "15550100001", sink.all()[0].Recipient)
	assert.Equal(t, 1, fake.closed())
}

func TestRun_SerializesBatchesPerProfile(t *testing.T) {
	var active, maxActive int32
	sink := &memorySink{}
	start := func(ctx context.Context) (schemas.Automator, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			seen := atomic.LoadInt32(&maxActive)
			if n <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, n) {
				break
			}
		}
		fake := newFakeAutomator()
		fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
		fake.navDelay = 20 * time.Millisecond
		fake.onClose = func() { atomic.AddInt32(&active, -1) }
		return fake, nil
	}
	r := New(testConfig(), zap.NewNop(), start, nil, sink)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Run(context.Background(), schemas.ModeSend, "hi", []string{"15550100001"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive),
		"batches sharing a profile dir must not hold concurrent sessions")
	assert.Len(t, sink.all(), 3)
}

func TestStartSend_ReturnsImmediately(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	batchID := r.StartSend("hi", []string{"15550100001"})
	require.NotEmpty(t, batchID)

	require.Eventually(t, func() bool {
		return fake.closed() == 1 && len(sink.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, schemas.StatusSuccess, sink.all()[0].Status)
}

func TestRunDelete_Success(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer, hasOutgoing: true})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeDelete, "", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusDeleteSuccess, records[0].Status)
	assert.Equal(t, "Last message deleted", records[0].Detail)

	for _, sel := range []string{selMsgMenu, selMenuDelete, selDeleteForEveryone, selConfirmOK} {
		assert.Equal(t, 1, fake.clickCount(sel), "expected one click on %s", sel)
	}
}

func TestRunDelete_NoSentMessages(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceComposer, hasOutgoing: false})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeDelete, "", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusNoSentMessages, records[0].Status)
	assert.Empty(t, records[0].Detail)
	assert.Zero(t, fake.clickCount(selMsgMenu))
}

func TestRunDelete_StepFailureRecordsStage(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{
		race:        raceComposer,
		hasOutgoing: true,
		waitFails:   map[string]bool{selDeleteForEveryone: true},
	})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeDelete, "", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusDeleteFail, records[0].Status)
	assert.Equal(t, "delete for everyone", records[0].Detail)

	// The open dialog is backed out of so the next recipient starts clean.
	assert.Equal(t, 1, fake.clickCount(selConfirmCancel))
	assert.Zero(t, fake.clickCount(selConfirmOK))
}

func TestRunDelete_ChatNotFound(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: raceTimeout})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeDelete, "", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusDeleteFail, records[0].Status)
	assert.Equal(t, "Chat Not Found", records[0].Detail)
}

func TestRunDelete_InvalidNumber(t *testing.T) {
	fake := newFakeAutomator()
	fake.chat(phone("15550100001"), &chatScript{race: racePopup})
	sink := &memorySink{}
	r := newTestRunner(fake, sink)

	err := r.Run(context.Background(), schemas.ModeDelete, "", []string{"15550100001"})
	require.NoError(t, err)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, schemas.StatusDeleteFail, records[0].Status)
	assert.Equal(t, "Chat Not Found", records[0].Detail)
	assert.Equal(t, 1, fake.clickCount(selInvalidPopup))
}

func TestPacingLimit(t *testing.T) {
	assert.Equal(t, rate.Inf, pacingLimit(0))
	assert.Equal(t, rate.Inf, pacingLimit(-time.Second))
	assert.Equal(t, rate.Every(5*time.Second), pacingLimit(5*time.Second))
}
