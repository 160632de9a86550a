// Package shell hosts the web client in a single desktop window.
package shell

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

//go:embed fallback.html
var fallbackHTML string

// ErrNoWindow is returned when an operation needs an open window.
var ErrNoWindow = errors.New("no window open")

// Window is one native application window.
type Window interface {
	Navigate(ctx context.Context, url string) error
	LoadHTML(html string) error
	// Closed is closed once the user or the platform closes the window.
	Closed() <-chan struct{}
	Close() error
}

// Launcher opens windows.
type Launcher interface {
	Open(ctx context.Context, opts WindowOptions) (Window, error)
}

// WindowOptions sizes a new window.
type WindowOptions struct {
	Title  string
	Width  int
	Height int
}

// Config describes what the shell loads.
type Config struct {
	URL         string
	Window      WindowOptions
	LoadTimeout time.Duration
}

// App owns at most one window for its whole lifetime.
type App struct {
	cfg      Config
	launcher Launcher
	logger   zerolog.Logger

	mu  sync.Mutex
	win Window
}

func New(cfg Config, launcher Launcher, logger zerolog.Logger) *App {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 15 * time.Second
	}
	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		cfg.Window.Width, cfg.Window.Height = 1280, 800
	}
	if cfg.Window.Title == "" {
		cfg.Window.Title = "Exam Proctor"
	}
	return &App{
		cfg:      cfg,
		launcher: launcher,
		logger:   logger.With().Str("component", "shell").Logger(),
	}
}

// Run opens the window and blocks until it is closed or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Activate(ctx); err != nil {
		return err
	}

	win := a.window()
	if win == nil {
		return ErrNoWindow
	}

	select {
	case <-win.Closed():
		a.logger.Info().Msg("window closed, exiting")
		a.release(win)
		return nil
	case <-ctx.Done():
		if err := a.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close window")
		}
		return ctx.Err()
	}
}

// Activate opens a window when none is open. It is a no-op otherwise.
func (a *App) Activate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.win != nil {
		select {
		case <-a.win.Closed():
			a.win = nil
		default:
			return nil
		}
	}

	win, err := a.launcher.Open(ctx, a.cfg.Window)
	if err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	a.win = win

	loadCtx, cancel := context.WithTimeout(ctx, a.cfg.LoadTimeout)
	defer cancel()
	if err := win.Navigate(loadCtx, a.cfg.URL); err != nil {
		a.logger.Warn().Err(err).Str("url", a.cfg.URL).Msg("failed to load exam client, showing fallback page")
		if ferr := win.LoadHTML(fallbackHTML); ferr != nil {
			a.win = nil
			if cerr := win.Close(); cerr != nil {
				a.logger.Warn().Err(cerr).Msg("failed to close window")
			}
			return fmt.Errorf("load fallback page: %w", ferr)
		}
		return nil
	}

	a.logger.Info().Str("url", a.cfg.URL).Msg("exam client loaded")
	return nil
}

// Close closes the window if one is open.
func (a *App) Close() error {
	a.mu.Lock()
	win := a.win
	a.win = nil
	a.mu.Unlock()

	if win == nil {
		return nil
	}
	return win.Close()
}

// HasWindow reports whether a window is currently open.
func (a *App) HasWindow() bool {
	return a.window() != nil
}

func (a *App) window() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.win
}

func (a *App) release(win Window) {
	a.mu.Lock()
	if a.win == win {
		a.win = nil
	}
	a.mu.Unlock()
	_ = win.Close()
}
