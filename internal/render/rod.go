package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures the go-rod driver
type RodConfig struct {
	// ChromePath overrides browser discovery; empty lets rod find or fetch one
	ChromePath string
	// NavigationTimeout bounds a single Navigate call
	NavigationTimeout time.Duration
}

// RodDriver launches one headless Chromium on first use and gives every
// session its own incognito context and page.
type RodDriver struct {
	config RodConfig
	logger *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodDriver creates a new go-rod backed driver. The browser is not
// started until the first session is requested.
func NewRodDriver(config RodConfig, logger *slog.Logger) *RodDriver {
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = 20 * time.Second
	}
	return &RodDriver{
		config: config,
		logger: logger,
	}
}

func (d *RodDriver) ensureBrowser() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if d.config.ChromePath != "" {
		l = l.Bin(d.config.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	d.launcher = l
	d.browser = browser
	d.logger.Info("Headless browser launched", "control_url", controlURL)

	return browser, nil
}

// NewSession opens an incognito context with a single page
func (d *RodDriver) NewSession(ctx context.Context, identity Identity) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := d.ensureBrowser()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      identity.UserAgent,
		AcceptLanguage: identity.AcceptLanguage,
	}); err != nil {
		page.Close()
		incognito.Close()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	return &rodSession{
		browser:    incognito,
		page:       page,
		navTimeout: d.config.NavigationTimeout,
	}, nil
}

// Close shuts down the browser process if one was started
func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser == nil {
		return nil
	}

	err := d.browser.Close()
	d.launcher.Kill()
	d.launcher.Cleanup()
	d.browser = nil
	d.launcher = nil

	d.logger.Info("Headless browser stopped")
	return err
}

type rodSession struct {
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	page := s.page.Context(navCtx)

	// Register the wait before navigating so the event is not missed
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	wait()

	if err := navCtx.Err(); err != nil {
		return fmt.Errorf("navigation did not reach DOMContentLoaded: %w", err)
	}
	return nil
}

func (s *rodSession) Attribute(ctx context.Context, selector, name string, wait time.Duration) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	el, err := s.page.Context(waitCtx).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
		}
		return "", fmt.Errorf("failed to find %s: %w", selector, err)
	}

	value, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s of %s: %w", name, selector, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (s *rodSession) Text(ctx context.Context, selector string) (string, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if !has {
		return "", nil
	}

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", selector, err)
	}
	return text, nil
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			s.closeErr = err
		}
		// Disposing the incognito context also discards its cookies and cache
		if err := s.browser.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
