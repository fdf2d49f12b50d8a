package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
)

// Options configures the browser session
type Options struct {
	Headless bool
	// SlowMo is slept after every browser action
	SlowMo      time.Duration
	ExecPath    string
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// Session is a single browser tab driven by one logical flow at a time
type Session struct {
	opts          Options
	logger        *log.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession starts a browser and opens its first tab. The browser is
// started eagerly so a missing executable fails here and not halfway
// through a run. Close must be called on every exit path.
func NewSession(ctx context.Context, opts Options, logger *log.Logger) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Debugf))

	// The first Run launches the browser; it must not carry a timeout or the
	// browser would be torn down when the timeout fires.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Debug("browser started", "headless", opts.Headless, "slow_mo", opts.SlowMo)

	return &Session{
		opts:          opts,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down and releases the allocator
func (s *Session) Close() {
	if err := chromedp.Cancel(s.browserCtx); err != nil {
		s.logger.Debug("closing browser", "err", err)
	}
	s.browserCancel()
	s.allocCancel()
}

// tab derives a context bound to the session's tab from a caller context.
// Cancelling the caller still interrupts the action in flight.
func (s *Session) tab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tabCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tabCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.opts.SlowMo > 0 {
		actions = append(actions, chromedp.Sleep(s.opts.SlowMo))
	}
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url and waits for the document body
func (s *Session) Navigate(ctx context.Context, url string) error {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := s.run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitIdle lets the page settle: a short delay so a pending navigation can
// start, then a poll until the document reports it finished loading.
func (s *Session) WaitIdle(ctx context.Context) error {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	var complete bool
	if err := s.run(tabCtx,
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.Poll(`document.readyState === "complete"`, &complete, chromedp.WithPollingInterval(100*time.Millisecond)),
	); err != nil {
		return fmt.Errorf("wait for page to settle: %w", err)
	}
	return nil
}

// WaitReady waits up to timeout for selector to be present
func (s *Session) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	tabCtx, cancel := s.tab(ctx, timeout)
	defer cancel()

	if err := s.run(tabCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Fill replaces the value of the input matched by selector
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := s.run(tabCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matched by selector
func (s *Session) Click(ctx context.Context, selector string) error {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := s.run(tabCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// Reading through Evaluate instead of chromedp.Value/Text: those wait for the
// node to appear, which turns an absent optional field into a timeout.
const lookupJS = `(() => {
	const el = document.querySelector(%q);
	if (!el) return {found: false, value: ""};
	return {found: true, value: %s};
})()`

// Value reads the current value of the first element matched by selector
func (s *Session) Value(ctx context.Context, selector string) Lookup {
	return s.lookup(ctx, selector, `String(el.value ?? "")`)
}

// Text reads the trimmed rendered text of the first element matched by selector
func (s *Session) Text(ctx context.Context, selector string) Lookup {
	return s.lookup(ctx, selector, `(el.textContent || "").trim()`)
}

func (s *Session) lookup(ctx context.Context, selector, read string) Lookup {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	var res Lookup
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(fmt.Sprintf(lookupJS, selector, read), &res)); err != nil {
		s.logger.Debug("lookup failed", "selector", selector, "err", err)
		return Missing()
	}
	return res
}

// HTML returns the outer HTML of the current document
func (s *Session) HTML(ctx context.Context) (string, error) {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// Location returns the URL of the current document
func (s *Session) Location(ctx context.Context) (string, error) {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	var loc string
	if err := chromedp.Run(tabCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Screenshot captures the full page as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	tabCtx, cancel := s.tab(ctx, s.opts.NavTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(tabCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}
