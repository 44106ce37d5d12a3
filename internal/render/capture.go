/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Default capture parameters for the timetable image.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1350
)

// readySelector marks a fully rendered document.
const readySelector = `[data-ready="true"]`

// Capturer turns an HTML document into PNG or PDF bytes.
type Capturer interface {
	Screenshot(ctx context.Context, html []byte, width, height int) ([]byte, error)
	PDF(ctx context.Context, html []byte) ([]byte, error)
	Close() error
}

// RodCapturer drives a single shared headless Chromium through go-rod. The
// browser is launched on first use.
type RodCapturer struct {
	bin    string
	logger zerolog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodCapturer returns a capturer for the browser at bin. An empty bin lets
// rod locate or download a browser.
func NewRodCapturer(bin string, logger zerolog.Logger) *RodCapturer {
	return &RodCapturer{
		bin:    bin,
		logger: logger.With().Str("component", "rod-capturer").Logger(),
	}
}

func (c *RodCapturer) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	if c.bin != "" {
		l = l.Bin(c.bin)
	}
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	c.logger.Info().Str("control_url", url).Msg("headless browser started")
	c.launcher = l
	c.browser = browser
	return browser, nil
}

// openPage loads html into a fresh tab and waits for the ready marker.
func (c *RodCapturer) openPage(ctx context.Context, html []byte) (*rod.Page, error) {
	browser, err := c.connect()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx)

	if err := page.SetDocumentContent(string(html)); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Element(readySelector); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait ready: %w", err)
	}
	return page, nil
}

// Screenshot captures a full-page PNG at the given viewport size.
func (c *RodCapturer) Screenshot(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	page, err := c.openPage(ctx, html)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 2,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	png, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

// PDF prints the document using its CSS page size.
func (c *RodCapturer) PDF(ctx context.Context, html []byte) ([]byte, error) {
	page, err := c.openPage(ctx, html)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// Close shuts the browser down.
func (c *RodCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.launcher != nil {
		c.launcher.Kill()
		c.launcher.Cleanup()
		c.launcher = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
