package carriers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ScrapingClient provides the common functionality for HTTP-based carrier
// clients: a bounded client, browser-like headers and text extraction helpers.
type ScrapingClient struct {
	carrier   Carrier
	userAgent string
	client    *http.Client
}

// NewScrapingClient creates a new base scraping client.
func NewScrapingClient(carrier Carrier, userAgent string, timeout time.Duration) *ScrapingClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ScrapingClient{
		carrier:   carrier,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// CarrierName returns the carrier this client handles.
func (c *ScrapingClient) CarrierName() Carrier {
	return c.carrier
}

// fetch performs a bounded HTTP request and returns the raw body. Transport
// failures are classified into the carrier error taxonomy; no raw net errors
// escape.
func (c *ScrapingClient) fetch(ctx context.Context, method, rawURL string, form url.Values) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &CarrierError{
			Carrier:   c.carrier,
			Code:      CodeUpstream,
			Status:    resp.StatusCode,
			Message:   fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(raw), nil
}

// classifyTransportError maps net/http failures onto the error taxonomy.
func (c *ScrapingClient) classifyTransportError(err error) error {
	code := CodeUnreachable
	msg := "upstream not reachable"
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		code = CodeTimeout
		msg = "request timed out"
	}
	return &CarrierError{Carrier: c.carrier, Code: code, Message: msg, Retryable: true}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// extractBetween returns the text between the first occurrence of open and
// the following close marker, or "" when either marker is absent. Used for
// tag-delimited extraction from responses that are not reliably well formed.
func extractBetween(s, open, close string) string {
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(s[start:], close)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(s[start : start+end])
}

// afterTag drops the attribute tail left at the head of a chunk produced by
// splitting on a literal tag prefix ("<div", "<td"), up to and including the
// closing ">".
func afterTag(chunk string) string {
	if idx := strings.Index(chunk, ">"); idx >= 0 {
		return chunk[idx+1:]
	}
	return chunk
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// cleanHTML strips tags, collapses whitespace and decodes the entities the
// upstreams actually emit.
func cleanHTML(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	replacements := [][2]string{
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
		{"&quot;", "\""},
		{"&#39;", "'"},
		{"&nbsp;", " "},
		{"&aacute;", "á"},
		{"&eacute;", "é"},
		{"&iacute;", "í"},
		{"&oacute;", "ó"},
		{"&uacute;", "ú"},
		{"&ntilde;", "ñ"},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}
	return text
}

// labelValue matches text against "<label>" or "<label>:" prefixes and
// returns the remainder. Many upstream fields have no attribute hooks to
// anchor on, so fields are located by their visible label text.
func labelValue(text, label string) (string, bool) {
	if !strings.HasPrefix(text, label) {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, label))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	return rest, true
}
