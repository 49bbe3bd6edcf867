// Package browser owns the shared Chrome instance: launch, the single
// process-wide page, navigation with a failure taxonomy, accessibility
// tree retrieval, and script evaluation. Everything heavier (rendering,
// JS sandboxing) stays inside Chrome via Rod.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// HeadlessEnv toggles headless launch: "true" hides the browser
// window, anything else (or unset) shows it.
const HeadlessEnv = "PAGESCOPE_HEADLESS"

// networkIdleWindow bounds the post-load settle wait so pages with
// persistent connections (websockets, polling) never hang navigation.
const networkIdleWindow = 5 * time.Second

// Browser manages one Chrome process and one shared page. Connect is
// safe to call from concurrent tool invocations: the launch happens at
// most once and every caller observes the same page handle.
type Browser struct {
	mu   sync.Mutex
	once sync.Once
	log  *slog.Logger

	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	initErr error
	closed  bool
}

// New creates a Browser. Chrome is not launched until Connect.
func New(log *slog.Logger) *Browser {
	if log == nil {
		log = slog.Default()
	}
	return &Browser{log: log}
}

// Connect launches Chrome and opens the shared page. Idempotent; a
// failed launch is remembered and returned to every later caller.
func (b *Browser) Connect(ctx context.Context) error {
	b.once.Do(func() {
		b.initErr = b.launch(ctx)
	})
	return b.initErr
}

func (b *Browser) launch(ctx context.Context) error {
	headless := os.Getenv(HeadlessEnv) == "true"

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(headless)

	u, err := l.Launch()
	if err != nil {
		return &ConnectionError{Err: err}
	}

	br := rod.New().ControlURL(u)
	if err := br.Connect(); err != nil {
		l.Cleanup()
		return &ConnectionError{Err: err}
	}

	page, err := br.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		br.Close()
		l.Cleanup()
		return &ConnectionError{Err: err}
	}

	b.mu.Lock()
	b.lnch = l
	b.browser = br
	b.page = page
	b.mu.Unlock()

	b.log.Info("browser: launched", "headless", headless)
	return nil
}

// Page returns the shared page, or ErrNotConnected before Connect.
func (b *Browser) Page() (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil || b.closed {
		return nil, ErrNotConnected
	}
	return b.page, nil
}

// IsConnected reports whether the shared page is usable.
func (b *Browser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page != nil && !b.closed
}

// Close shuts Chrome down. Idempotent and safe before Connect.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.page != nil {
		_ = b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	b.log.Info("browser: closed")
	return nil
}

// Navigate loads rawURL in the shared page, waiting for the load event
// and a bounded network-idle window. Scheme and shape are validated
// before Chrome is asked to do anything.
func (b *Browser) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	page, err := b.Page()
	if err != nil {
		return err
	}
	if navErr := CheckTarget(rawURL); navErr != nil {
		return navErr
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := page.Context(navCtx).Navigate(rawURL); err != nil {
		return classifyNavError(rawURL, timeout, navCtx, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return classifyNavError(rawURL, timeout, navCtx, err)
	}

	// Settle wait; bounded so persistent connections can't stall us.
	page.Timeout(networkIdleWindow).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	b.log.Debug("browser: navigated", "url", rawURL, "took", time.Since(start))
	return nil
}

// CheckTarget validates a navigation target without touching the page.
// It returns nil when rawURL is a well-formed absolute http(s) URL.
func CheckTarget(rawURL string) *NavigationError {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &NavigationError{Kind: NavMalformedURL, URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &NavigationError{Kind: NavInvalidScheme, URL: rawURL, Scheme: u.Scheme}
	}
	if u.Host == "" {
		return &NavigationError{Kind: NavMalformedURL, URL: rawURL, Err: errors.New("missing host")}
	}
	return nil
}

func classifyNavError(rawURL string, timeout time.Duration, navCtx context.Context, err error) *NavigationError {
	if errors.Is(err, context.DeadlineExceeded) || navCtx.Err() != nil {
		return &NavigationError{Kind: NavTimeout, URL: rawURL, Timeout: timeout, Err: err}
	}
	// Chrome surfaces network problems as net::ERR_* codes.
	if strings.Contains(err.Error(), "net::ERR") {
		return &NavigationError{Kind: NavNetwork, URL: rawURL, Err: err}
	}
	return &NavigationError{Kind: NavFailed, URL: rawURL, Err: err}
}

// Eval runs script text in the page context and returns the result as
// a plain Go value. Page-side execution errors propagate unmodified.
func (b *Browser) Eval(ctx context.Context, script string) (any, error) {
	page, err := b.Page()
	if err != nil {
		return nil, err
	}
	res, err := page.Context(ctx).Eval(script)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}
	return res.Value.Val(), nil
}

// Screenshot captures the current viewport as PNG bytes.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	page, err := b.Page()
	if err != nil {
		return nil, err
	}
	return page.Context(ctx).Screenshot(false, nil)
}
