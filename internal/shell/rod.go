package shell

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher opens Chromium app-mode windows through the DevTools protocol.
type RodLauncher struct {
	// Bin is the browser binary. Empty lets rod find or download one.
	Bin      string
	Headless bool
}

func (l RodLauncher) Open(ctx context.Context, opts WindowOptions) (Window, error) {
	lch := launcher.New().
		Context(ctx).
		Headless(l.Headless).
		Set(flags.Flag("app"), "about:blank").
		Set(flags.Flag("window-size"), strconv.Itoa(opts.Width)+","+strconv.Itoa(opts.Height))
	if l.Bin != "" {
		lch = lch.Bin(l.Bin)
	}

	controlURL, err := lch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		lch.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := firstPage(browser)
	if err != nil {
		_ = browser.Close()
		lch.Kill()
		return nil, err
	}

	w := &rodWindow{
		browser:  browser,
		page:     page,
		launcher: lch,
		closed:   make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

func firstPage(browser *rod.Browser) (*rod.Page, error) {
	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		if info, err := p.Info(); err == nil && info.Type == proto.TargetTargetInfoTypePage {
			return p, nil
		}
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

type rodWindow struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher

	once   sync.Once
	closed chan struct{}
}

func (w *rodWindow) watch() {
	wait := w.browser.EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		return e.TargetID == w.page.TargetID
	})
	wait()
	w.markClosed()
}

func (w *rodWindow) markClosed() {
	w.once.Do(func() { close(w.closed) })
}

func (w *rodWindow) Navigate(ctx context.Context, url string) error {
	page := w.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (w *rodWindow) LoadHTML(html string) error {
	return w.page.SetDocumentContent(html)
}

func (w *rodWindow) Closed() <-chan struct{} {
	return w.closed
}

func (w *rodWindow) Close() error {
	err := w.browser.Close()
	w.launcher.Kill()
	w.launcher.Cleanup()
	w.markClosed()
	return err
}
