// CLAUDE:SUMMARY Chrome lifecycle for live resolution: launch or remote-attach, stealth page creation, navigation.
// Package roddom implements dom.Provider against a live Chrome page driven
// by Rod, plus the action primitive performing real interactions. It is the
// production counterpart of memdom.
package roddom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures the browser Manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome. Empty = launch
	// a local one.
	RemoteURL string

	// Headful disables headless mode for local launches.
	Headful bool

	// Stealth applies the stealth evasions to new pages.
	Stealth bool

	// NavigateTimeout bounds Open's navigation and load wait. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome connection. Create with NewManager, Start, then
// Open pages; Close releases everything.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches (or attaches to) Chrome and connects.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		return nil
	}

	var controlURL string
	if m.cfg.RemoteURL != "" {
		u, err := launcher.ResolveURL(m.cfg.RemoteURL)
		if err != nil {
			return fmt.Errorf("roddom: resolve remote %s: %w", m.cfg.RemoteURL, err)
		}
		controlURL = u
	} else {
		m.lnch = launcher.New().Headless(!m.cfg.Headful)
		u, err := m.lnch.Launch()
		if err != nil {
			return fmt.Errorf("roddom: launch chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if m.lnch != nil {
			m.lnch.Cleanup()
		}
		return fmt.Errorf("roddom: connect: %w", err)
	}
	m.browser = b
	m.cfg.Logger.Info("browser connected", "remote", m.cfg.RemoteURL != "", "headful", m.cfg.Headful)
	return nil
}

// Open creates a page (stealth-wrapped when configured), navigates, and
// waits for load.
func (m *Manager) Open(ctx context.Context, pageURL string) (*rod.Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("roddom: manager not started")
	}

	var page *rod.Page
	var err error
	if m.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("roddom: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("roddom: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("wait load timed out", "url", pageURL, "error", err)
	}
	return page, nil
}

// Close disconnects and kills a locally launched Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	if m.lnch != nil {
		m.lnch.Cleanup()
	}
	m.browser = nil
	return err
}
