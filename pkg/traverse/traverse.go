// Package traverse walks every location of the booking site and every result
// page of each location, collecting raw slot records.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/slotwatch/slotwatch/internal/utils"
	"github.com/slotwatch/slotwatch/pkg/browser"
	"github.com/slotwatch/slotwatch/pkg/extract"
	"github.com/slotwatch/slotwatch/pkg/lists"
	"github.com/slotwatch/slotwatch/pkg/window"
)

// SelectorLocation matches the location buttons on the selection screen.
const SelectorLocation = "button.QflowObjectItem.form-control.ui-selectable"

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
	defaultMaxPages = 50
)

// ErrRecoveryFailed aborts a run: the session could not be brought back to
// the selection screen after a location failed.
var ErrRecoveryFailed = errors.New("could not return to location selection")

// RawPageRecord is what one visit to one result page produced. Complete is
// false when every extraction attempt failed.
type RawPageRecord struct {
	Location   string
	URL        string
	CapturedAt time.Time
	Dates      []extract.DateGroup
	Skipped    extract.SkippedRange
	Complete   bool
}

// LocationRecord holds the pages of one visited location, in visit order.
// Complete is set only when every page was extracted and the location was
// left without error.
type LocationRecord struct {
	Location string
	Pages    []RawPageRecord
	Complete bool
}

// Config holds everything Run needs. Session is owned by Run for the
// duration of the call.
type Config struct {
	Session    browser.Session
	EntryURL   string
	Exclusions lists.Set
	Window     window.Checker
	Reporter   extract.Reporter
	Log        logrus.FieldLogger // optional
	Out        io.Writer          // progress lines; nil = discard

	Attempts int           // extraction attempts per page, defaults to 3
	Backoff  time.Duration // pause between attempts, defaults to 1s
	MaxPages int           // per location, defaults to 50
	Controls []Control     // defaults to DefaultControls()

	// OnLocationDone is called after each visited location, including ones
	// that failed part way with partial pages.
	OnLocationDone func(LocationRecord)

	Now func() time.Time
}

// Result holds the outcome of a run.
type Result struct {
	Locations []LocationRecord
	Excluded  []string
	Errors    []error // non-fatal, one per failed location
}

// Visited lists the location names that were visited, in order.
func (r *Result) Visited() []string {
	out := make([]string, 0, len(r.Locations))
	for _, l := range r.Locations {
		out = append(out, l.Location)
	}
	return out
}

// FullyVisited lists the locations whose availability was read in full.
// Slots missing from a partial location may simply not have been seen.
func (r *Result) FullyVisited() []string {
	var out []string
	for _, l := range r.Locations {
		if l.Complete {
			out = append(out, l.Location)
		}
	}
	return out
}

type traverser struct {
	cfg Config
	s   browser.Session
	log logrus.FieldLogger
	out io.Writer
}

// Run visits every selectable location not in cfg.Exclusions. A failure
// inside a location is recorded in Result.Errors and followed by one attempt
// to return to the selection screen; if that fails the run stops with
// ErrRecoveryFailed. The partial Result is returned alongside any error.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Session == nil {
		return nil, errors.New("no browser session")
	}
	if cfg.EntryURL == "" {
		return nil, lists.ErrMissingTargetURL
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	} else if cfg.Backoff == 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.Controls == nil {
		cfg.Controls = DefaultControls()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = extract.Discard
	}
	if cfg.Exclusions == nil {
		cfg.Exclusions = lists.Set{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}

	t := &traverser{cfg: cfg, s: cfg.Session, log: utils.OrDiscard(cfg.Log), out: out}
	res := &Result{}

	if err := t.home(ctx); err != nil {
		return res, fmt.Errorf("open %s: %w", cfg.EntryURL, err)
	}
	total, err := t.s.Count(ctx, SelectorLocation)
	if err != nil {
		return res, fmt.Errorf("list locations: %w", err)
	}
	if total == 0 {
		t.log.Warnf("No locations found at %s", cfg.EntryURL)
	}

	for i := 0; i < total; i++ {
		rec, excluded, err := t.visit(ctx, i, total)
		if excluded != "" {
			res.Excluded = append(res.Excluded, excluded)
			continue
		}
		if rec != nil {
			res.Locations = append(res.Locations, *rec)
			if cfg.OnLocationDone != nil {
				cfg.OnLocationDone(*rec)
			}
		}
		if err == nil {
			continue
		}

		name := ""
		if rec != nil {
			name = " (" + rec.Location + ")"
		}
		err = fmt.Errorf("location %d/%d%s: %w", i+1, total, name, err)
		res.Errors = append(res.Errors, err)
		t.log.Errorf("Error processing %v", err)

		if herr := t.home(ctx); herr != nil {
			return res, fmt.Errorf("%w after %v: %v", ErrRecoveryFailed, err, herr)
		}
	}

	return res, nil
}

// home navigates to the selection screen and waits for it to settle.
func (t *traverser) home(ctx context.Context) error {
	if err := t.s.Navigate(ctx, t.cfg.EntryURL); err != nil {
		return err
	}
	return t.s.WaitStable(ctx)
}

// visit processes the idx-th location. It returns the excluded name instead
// of a record when the location is skipped.
func (t *traverser) visit(ctx context.Context, idx, total int) (*LocationRecord, string, error) {
	// The selection screen is re-read on every arrival, since navigating
	// may reorder it.
	n, err := t.s.Count(ctx, SelectorLocation)
	if err != nil {
		return nil, "", fmt.Errorf("list locations: %w", err)
	}
	if idx >= n {
		return nil, "", fmt.Errorf("only %d locations on the selection screen", n)
	}
	text, err := t.s.Text(ctx, SelectorLocation, idx)
	if err != nil {
		return nil, "", fmt.Errorf("read location name: %w", err)
	}
	name := strings.TrimSpace(text)

	if t.cfg.Exclusions.Has(name) {
		fmt.Fprintf(t.out, " Blacklist location %d/%d: %s\n", idx+1, total, name)
		return nil, name, nil
	}
	fmt.Fprintf(t.out, "Processing location %d/%d: %s\n", idx+1, total, name)

	rec := &LocationRecord{Location: name}
	if err := t.s.Click(ctx, SelectorLocation, idx); err != nil {
		return rec, "", fmt.Errorf("select location: %w", err)
	}

	truncated := false
	for page := 1; ; page++ {
		rec.Pages = append(rec.Pages, t.extractPage(ctx, name))

		ctrl, err := nextControl(ctx, t.s, t.cfg.Controls)
		if err != nil {
			return rec, "", fmt.Errorf("look for next page after page %d: %w", page, err)
		}
		if ctrl == nil {
			break
		}
		if page >= t.cfg.MaxPages {
			t.log.Warnf("%s: stopping after %d pages", name, page)
			truncated = true
			break
		}
		t.log.Debugf("%s: page %d, advancing via %s", name, page, ctrl.Name())
		if err := ctrl.Advance(ctx, t.s); err != nil {
			return rec, "", fmt.Errorf("advance to page %d via %s: %w", page+1, ctrl.Name(), err)
		}
	}

	if err := t.home(ctx); err != nil {
		return rec, "", fmt.Errorf("return to selection: %w", err)
	}
	rec.Complete = !truncated
	for _, p := range rec.Pages {
		if !p.Complete {
			rec.Complete = false
			break
		}
	}
	return rec, "", nil
}

// extractPage captures the current page, retrying transient failures. When
// every attempt fails the record is returned incomplete rather than failing
// the location.
func (t *traverser) extractPage(ctx context.Context, name string) RawPageRecord {
	rec := RawPageRecord{Location: name, CapturedAt: t.cfg.Now()}

	var lastErr error
	for attempt := 1; attempt <= t.cfg.Attempts; attempt++ {
		res, err := t.capture(ctx, name)
		if err == nil {
			rec.Dates = res.Dates
			rec.Skipped = res.Skipped
			rec.Complete = true
			if u, uerr := t.s.URL(ctx); uerr == nil {
				rec.URL = u
			}
			if !res.Skipped.Empty() {
				fmt.Fprintf(t.out, "There were appointments outside the time window: %s - %s\n", res.Skipped.First, res.Skipped.Last)
			}
			return rec
		}
		lastErr = err
		if attempt < t.cfg.Attempts {
			t.log.Warnf("%s: attempt %d failed: %v", name, attempt, err)
			if err := sleep(ctx, t.cfg.Backoff); err != nil {
				lastErr = err
				break
			}
		}
	}

	t.log.Warnf("%s: could not get page data after %d attempts: %v", name, t.cfg.Attempts, lastErr)
	return rec
}

func (t *traverser) capture(ctx context.Context, name string) (extract.Result, error) {
	if err := t.s.WaitStable(ctx); err != nil {
		return extract.Result{}, err
	}
	html, err := t.s.HTML(ctx)
	if err != nil {
		return extract.Result{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return extract.Result{}, fmt.Errorf("parse page: %w", err)
	}
	return extract.Extract(doc, name, t.cfg.Window, t.cfg.Reporter), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
