// Package browser implements the automation client: a Chrome instance driven
// over CDP, bound to a persisted profile directory so the authenticated
// session survives restarts. All primitives are context-bounded; expected
// element absence is reported as data, not failure.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
	"github.com/xkilldash9x/waflow/internal/config"
)

// startProbeTimeout bounds the about:blank responsiveness check at launch.
const startProbeTimeout = 30 * time.Second

// Client launches browser sessions bound to a persisted identity.
type Client struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewClient returns a Client for the given browser configuration.
func NewClient(cfg config.BrowserConfig, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, logger: logger.Named("browser")}
}

// Start launches a Chrome process bound to the configured profile directory
// and verifies it responds. The returned Session owns the process; callers
// must Close it on every exit path.
func (c *Client) Start(ctx context.Context) (*Session, error) {
	opts := c.buildAllocatorOptions()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancelAll := func() {
		browserCancel()
		allocCancel()
	}

	// Confirm the browser process is alive before handing the session out.
	probeCtx, probeCancel := context.WithTimeout(browserCtx, startProbeTimeout)
	defer probeCancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelAll()
		return nil, fmt.Errorf("%w: browser failed to start or respond: %v", schemas.ErrSessionStart, err)
	}

	sessionID := uuid.New().String()
	s := &Session{
		id:     sessionID,
		ctx:    browserCtx,
		cancel: cancelAll,
		logger: c.logger.With(zap.String("session_id", sessionID)),
	}
	s.logger.Info("Browser session started",
		zap.String("profile_dir", c.cfg.ProfileDir),
		zap.Bool("headless", c.cfg.Headless))
	return s, nil
}

// buildAllocatorOptions assembles launch flags: the persisted profile, the
// automation-concealing flags, and any extra args from configuration.
func (c *Client) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	// Later Flag options override the defaults; a false bool drops the flag
	// entirely, which is how the automation announcement is suppressed.
	opts = append(opts,
		chromedp.UserDataDir(c.cfg.ProfileDir),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", c.cfg.Headless),
	)

	// Extra arguments from configuration, "--name=value" or "--name" form.
	for _, arg := range c.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required when running inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	return opts
}
