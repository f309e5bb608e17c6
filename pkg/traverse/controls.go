package traverse

import (
	"context"

	"github.com/slotwatch/slotwatch/pkg/browser"
)

// Control is one way a results page can offer "next page". Pages use one of
// two mutually exclusive widgets and never declare which.
type Control interface {
	Name() string
	HasNext(ctx context.Context, s browser.Session) (bool, error)
	Advance(ctx context.Context, s browser.Session) error
}

// FormNext is the wizard-style "Next" button. It can be shown but disabled.
type FormNext struct {
	Selector string
}

func (FormNext) Name() string { return "form next button" }

func (f FormNext) HasNext(ctx context.Context, s browser.Session) (bool, error) {
	visible, err := s.Visible(ctx, f.Selector)
	if err != nil || !visible {
		return false, err
	}
	return s.Enabled(ctx, f.Selector)
}

func (f FormNext) Advance(ctx context.Context, s browser.Session) error {
	return s.Click(ctx, f.Selector, 0)
}

// PaginationNext is the pager link under a result list.
type PaginationNext struct {
	Selector string
}

func (PaginationNext) Name() string { return "pagination next link" }

func (p PaginationNext) HasNext(ctx context.Context, s browser.Session) (bool, error) {
	return s.Visible(ctx, p.Selector)
}

func (p PaginationNext) Advance(ctx context.Context, s browser.Session) error {
	return s.Click(ctx, p.Selector, 0)
}

// DefaultControls returns the controls in the order they are tried.
func DefaultControls() []Control {
	return []Control{
		FormNext{Selector: "button.next-button"},
		PaginationNext{Selector: "div.pagination-label-wrapper[id$='_Next']"},
	}
}

// nextControl returns the first control offering a next page, or nil when
// none does.
func nextControl(ctx context.Context, s browser.Session, controls []Control) (Control, error) {
	for _, c := range controls {
		ok, err := c.HasNext(ctx, s)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}
	return nil, nil
}
