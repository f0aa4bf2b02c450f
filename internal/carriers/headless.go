package carriers

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessOptions configures the headless browser used for carriers whose
// tracking pages only exist after client-side rendering.
type HeadlessOptions struct {
	Headless       bool
	Timeout        time.Duration
	DisableImages  bool
	UserAgent      string
	ViewportWidth  int64
	ViewportHeight int64
}

// DefaultHeadlessOptions returns sensible defaults for headless browsing.
func DefaultHeadlessOptions() *HeadlessOptions {
	return &HeadlessOptions{
		Headless:       true,
		Timeout:        45 * time.Second,
		DisableImages:  true,
		UserAgent:      defaultUserAgent,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// PageFetcher is the boundary to the browser-automation collaborator. Given a
// URL and a wait selector it yields rendered page state; every wait is
// upper-bounded and an exceeded bound is a Timeout failure, never a hang.
type PageFetcher struct {
	carrier Carrier
	pool    *BrowserPool
	options *HeadlessOptions
}

// NewPageFetcher creates a page fetcher backed by a browser pool.
func NewPageFetcher(carrier Carrier, pool *BrowserPool, options *HeadlessOptions) *PageFetcher {
	if options == nil {
		options = DefaultHeadlessOptions()
	}
	return &PageFetcher{carrier: carrier, pool: pool, options: options}
}

// FetchRendered navigates to url, waits for waitSelector to become visible
// and returns the rendered document HTML.
func (f *PageFetcher) FetchRendered(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html),
	}
	if err := f.run(ctx, timeout, tasks); err != nil {
		return "", err
	}
	return html, nil
}

// EvaluateOnPage navigates to url, waits for waitSelector, runs the optional
// interaction sequence (dismiss overlays, trigger a search) and evaluates
// script in the page, unmarshaling its JSON result into out.
func (f *PageFetcher) EvaluateOnPage(ctx context.Context, url, waitSelector string, interact chromedp.Tasks, script string, out interface{}) error {
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
	}
	tasks = append(tasks, interact...)
	tasks = append(tasks, chromedp.Evaluate(script, out))
	return f.run(ctx, f.options.Timeout, tasks)
}

// ResolveAttribute returns an attribute of the first waitSelector match,
// typically used to discover embedded frame URLs before navigating into them.
func (f *PageFetcher) ResolveAttribute(ctx context.Context, url, waitSelector, attribute string) (string, error) {
	var value string
	var ok bool
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitVisible(waitSelector, chromedp.ByQuery),
		chromedp.AttributeValue(waitSelector, attribute, &value, &ok, chromedp.ByQuery),
	}
	if err := f.run(ctx, f.options.Timeout, tasks); err != nil {
		return "", err
	}
	if !ok {
		return "", &CarrierError{Carrier: f.carrier, Code: CodeParse, Message: "attribute " + attribute + " not present on " + waitSelector}
	}
	return value, nil
}

func (f *PageFetcher) run(ctx context.Context, timeout time.Duration, tasks chromedp.Tasks) error {
	if timeout <= 0 {
		timeout = f.options.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := f.pool.ExecuteWithBrowser(runCtx, func(browserCtx context.Context) error {
		return chromedp.Run(browserCtx, tasks)
	})
	if err != nil {
		return f.classify(err)
	}
	return nil
}

// classify converts chromedp failures into the carrier error taxonomy.
func (f *PageFetcher) classify(err error) error {
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &CarrierError{Carrier: f.carrier, Code: CodeTimeout, Message: "page did not render in time", Retryable: true}
	}
	return &CarrierError{Carrier: f.carrier, Code: CodeNavigation, Message: "browser navigation failed: " + err.Error(), Retryable: true}
}

// Close releases the underlying browser pool.
func (f *PageFetcher) Close() error {
	return f.pool.Close()
}
