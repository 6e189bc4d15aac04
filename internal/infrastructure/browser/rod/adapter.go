package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var (
	_ output.BrowserPort    = (*BrowserAdapter)(nil)
	_ output.SnapshotSource = (*BrowserAdapter)(nil)
	_ output.MutationSource = (*BrowserAdapter)(nil)
	_ output.Screenshotter  = (*BrowserAdapter)(nil)
)

const (
	defaultTimeout    = 10 * time.Second
	defaultSlowMotion = 0
	settleTimeout     = 2 * time.Second
)

var (
	ErrInvalidURL = fmt.Errorf("%w: invalid url", entity.ErrNavigation)
	ErrClosed     = fmt.Errorf("%w: browser closed", entity.ErrBackend)
)

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	logger   output.LoggerPort

	mu     sync.Mutex
	closed bool
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
	Logger     output.LoggerPort
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = output.NopLogger{}
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

func (b *BrowserAdapter) livePage(ctx context.Context) (*rod.Page, error) {
	if !b.IsReady() {
		return nil, ErrClosed
	}
	return b.page.Context(ctx), nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	switch u.Scheme {
	case "http", "https", "file", "about":
		return nil
	}
	return fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
}

func (b *BrowserAdapter) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page, err := b.livePage(ctx)
	if err != nil {
		return err
	}
	if err := page.Timeout(b.timeout).Navigate(rawURL); err != nil {
		return classify(fmt.Errorf("navigate to %s: %w", rawURL, err), entity.CategoryNavigation)
	}
	if err := page.Timeout(b.timeout).WaitLoad(); err != nil {
		return classify(fmt.Errorf("wait load: %w", err), entity.CategoryNavigation)
	}
	b.settle(page)
	return nil
}

// settle gives the page a short chance to go quiet after an action.
func (b *BrowserAdapter) settle(page *rod.Page) {
	_ = page.WaitIdle(settleTimeout)
}

func (b *BrowserAdapter) CurrentURL() string {
	info, err := b.pageInfo(context.Background())
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) pageInfo(ctx context.Context) (entity.PageInfo, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return entity.PageInfo{}, err
	}
	info, err := page.Info()
	if err != nil {
		return entity.PageInfo{}, fmt.Errorf("%w: page info: %v", entity.ErrBackend, err)
	}
	return entity.PageInfo{URL: info.URL, Title: info.Title}, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// classify maps rod and context errors onto the action error taxonomy.
// fallback is used when nothing more specific applies.
func classify(err error, fallback entity.ErrorCategory) error {
	var (
		covered   *rod.CoveredError
		invisible *rod.InvisibleShapeError
		notInter  *rod.NotInteractableError
		notFound  *rod.ElementNotFoundError
		navErr    *rod.NavigationError
		actionErr *entity.ActionError
	)
	switch {
	case errors.As(err, &actionErr):
		return err
	case errors.As(err, &covered), errors.As(err, &notInter):
		return &entity.ActionError{Category: entity.CategoryElementNotInteractable, Err: err}
	case errors.As(err, &invisible):
		return &entity.ActionError{Category: entity.CategoryElementNotVisible, Err: err}
	case errors.As(err, &notFound):
		return &entity.ActionError{Category: entity.CategoryElementNotFound, Err: err}
	case errors.As(err, &navErr):
		return &entity.ActionError{Category: entity.CategoryNavigation, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &entity.ActionError{Category: entity.CategoryTimeout, Err: err}
	}
	return &entity.ActionError{Category: fallback, Err: err}
}
