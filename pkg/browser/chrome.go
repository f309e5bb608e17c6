package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const pollInterval = 100 * time.Millisecond

// Chrome drives one headless Chrome tab through chromedp.
type Chrome struct {
	opts        Options
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	// networkIdle is flipped by lifecycle events: cleared on "init" of a new
	// document, set on "networkIdle". A click that only updates the current
	// document leaves it set.
	networkIdle atomic.Bool
}

var _ Session = (*Chrome)(nil)

// NewChrome starts a browser and opens a blank tab.
func NewChrome(parent context.Context, opts Options) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(ctx, c.onEvent)

	if err := chromedp.Run(ctx, page.Enable(), page.SetLifecycleEventsEnabled(true)); err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return c, nil
}

func (c *Chrome) onEvent(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	switch e.Name {
	case "init":
		c.networkIdle.Store(false)
	case "networkIdle":
		c.networkIdle.Store(true)
	}
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) eval(ctx context.Context, expr string, res interface{}) error {
	return c.run(ctx, c.opts.WaitTimeout, chromedp.Evaluate(expr, res))
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.networkIdle.Store(false)
	if err := c.run(ctx, c.opts.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) WaitStable(ctx context.Context) error {
	if err := c.waitFor(ctx, "network idle", func() (bool, error) {
		return c.networkIdle.Load(), nil
	}); err != nil {
		return err
	}

	if err := c.waitFor(ctx, "dom ready", func() (bool, error) {
		var state string
		if err := c.eval(ctx, "document.readyState", &state); err != nil {
			return false, err
		}
		return state != "loading", nil
	}); err != nil {
		return err
	}

	return c.run(ctx, c.opts.Settle+c.opts.WaitTimeout, chromedp.Sleep(c.opts.Settle))
}

func (c *Chrome) waitFor(ctx context.Context, what string, cond func() (bool, error)) error {
	deadline := time.Now().Add(c.opts.WaitTimeout)
	for {
		ok, err := cond()
		if err != nil {
			return fmt.Errorf("wait for %s: %w", what, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for %s: timed out after %s", what, c.opts.WaitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, c.opts.WaitTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture html: %w", err)
	}
	return html, nil
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var u string
	if err := c.run(ctx, c.opts.WaitTimeout, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (c *Chrome) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := c.eval(ctx, fmt.Sprintf("document.querySelectorAll(%s).length", jsString(selector)), &n); err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

func (c *Chrome) Text(ctx context.Context, selector string, idx int) (string, error) {
	var text *string
	expr := fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	return el ? el.textContent : null;
})()`, jsString(selector), idx)
	if err := c.eval(ctx, expr, &text); err != nil {
		return "", fmt.Errorf("text of %s[%d]: %w", selector, idx, err)
	}
	if text == nil {
		return "", fmt.Errorf("text of %s[%d]: %w", selector, idx, ErrNoElement)
	}
	return *text, nil
}

func (c *Chrome) Click(ctx context.Context, selector string, idx int) error {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return false;
	el.scrollIntoView({block: "center"});
	el.click();
	return true;
})()`, jsString(selector), idx)
	if err := c.eval(ctx, expr, &clicked); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, idx, err)
	}
	if !clicked {
		return fmt.Errorf("click %s[%d]: %w", selector, idx, ErrNoElement)
	}
	return nil
}

func (c *Chrome) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	expr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const st = window.getComputedStyle(el);
	if (st.display === "none" || st.visibility === "hidden") return false;
	return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`, jsString(selector))
	if err := c.eval(ctx, expr, &visible); err != nil {
		return false, fmt.Errorf("visibility of %s: %w", selector, err)
	}
	return visible, nil
}

func (c *Chrome) Enabled(ctx context.Context, selector string) (bool, error) {
	var enabled bool
	expr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return !!el && !el.disabled && el.getAttribute("aria-disabled") !== "true";
})()`, jsString(selector))
	if err := c.eval(ctx, expr, &enabled); err != nil {
		return false, fmt.Errorf("enabled state of %s: %w", selector, err)
	}
	return enabled, nil
}

// Close shuts the tab and the browser process.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ErrNoElement is returned when an indexed element does not exist.
var ErrNoElement = errors.New("no such element")

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
