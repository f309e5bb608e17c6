// Package browser defines the page-automation capability the traverser drives,
// and a headless Chrome implementation of it.
package browser

import (
	"context"
	"time"
)

// Session is a single browser tab in a single navigation state. Index
// arguments address the idx-th element matched by the CSS selector.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitStable blocks until the page has settled: network idle, DOM ready
	// and a short fixed delay. Each wait is individually bounded.
	WaitStable(ctx context.Context) error
	// HTML returns the serialized document as currently rendered.
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	Text(ctx context.Context, selector string, idx int) (string, error)
	Click(ctx context.Context, selector string, idx int) error
	Visible(ctx context.Context, selector string) (bool, error)
	Enabled(ctx context.Context, selector string) (bool, error)
	Close() error
}

// Options tunes the Chrome session.
type Options struct {
	Headless          bool
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	Settle            time.Duration
}

func DefaultOptions() Options {
	return Options{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		WaitTimeout:       30 * time.Second,
		Settle:            time.Second,
	}
}
