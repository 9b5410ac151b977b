// Package capture screenshots the calendar page with headless Chromium.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "evcal/internal/log"
)

// Default capture parameters. They match the desktop layout of /calendar.
const (
	DefaultWidth      = 1304
	DefaultHeight     = 984
	DefaultTimeoutSec = 30

	// ReadySelector is present once /calendar has finished rendering.
	ReadySelector = `[data-ready="true"]`
)

// Options defines viewport and timeout for a capture.
type Options struct {
	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the whole capture. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration

	// Settle is an extra delay after the page reports ready, for final paints.
	Settle time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	return o
}

// Target is a page to capture. Headers are sent with every request the
// page makes, e.g. Authorization for a server behind basic auth.
type Target struct {
	URL     string
	Headers map[string]string
}

// BasicAuth returns t with an Authorization header for username/password.
func (t Target) BasicAuth(username, password string) Target {
	h := make(map[string]string, len(t.Headers)+1)
	for k, v := range t.Headers {
		h[k] = v
	}
	h["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
	t.Headers = h
	return t
}

// Capturer takes PNG screenshots of calendar pages.
type Capturer struct {
	opts Options
}

// New returns a Capturer using opts (zero fields take defaults).
func New(opts Options) *Capturer {
	return &Capturer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (c *Capturer) Options() Options {
	return c.opts
}

// Capture navigates to target, waits for ReadySelector and returns a
// full-page PNG.
func (c *Capturer) Capture(parent context.Context, target Target) ([]byte, error) {
	if target.URL == "" {
		return nil, fmt.Errorf("capture: url is required")
	}

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(c.opts.Width), int64(c.opts.Height)),
	}
	if len(target.Headers) > 0 {
		headers := make(network.Headers, len(target.Headers))
		for k, v := range target.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	tasks = append(tasks,
		chromedp.Navigate(target.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
	)
	if c.opts.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(c.opts.Settle))
	}
	tasks = append(tasks, chromedp.FullScreenshot(&png, 100))

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	appLog.Debug("page captured", "url", target.URL, "bytes", len(png), "duration", time.Since(start))
	return png, nil
}

// CaptureToFile captures target and writes the PNG to path, replacing any
// previous file atomically so /preview.png never serves a partial image.
func (c *Capturer) CaptureToFile(ctx context.Context, target Target, path string) error {
	if path == "" {
		return fmt.Errorf("capture: output path is required")
	}
	png, err := c.Capture(ctx, target)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("snapshot written", "path", path, "bytes", len(png))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
