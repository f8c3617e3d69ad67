// Package fetch retrieves a web page and reduces it to plain text for
// enrichment. Failures stay inside this boundary: callers get an error
// value, never a panic, and the enrichment pipeline turns errors into
// inline markers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxTextLen bounds extracted page text; longer pages are cut and marked
// with an ellipsis.
const MaxTextLen = 2000

// maxBodyBytes bounds how much of a response body is read before parsing.
const maxBodyBytes = 2 << 20

// Fetcher turns a URL into plain page text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a plain HTTP client and strips markup.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "mnemo/0.1")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	text := ExtractText(string(body))
	if text == "" {
		return "", fmt.Errorf("no extractable text at %s", url)
	}
	return Truncate(text), nil
}

// ExtractText strips tags from an HTML document and collapses whitespace.
// Script and style bodies are dropped. Input that does not parse as HTML
// comes back as-is, whitespace-collapsed.
func ExtractText(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "head":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts text to MaxTextLen characters, appending an ellipsis
// marker when anything was dropped. The cut falls on a rune boundary so the
// result stays valid UTF-8.
func Truncate(text string) string {
	if len(text) <= MaxTextLen {
		return text
	}

	end, runes := 0, 0
	for end < len(text) && runes < MaxTextLen {
		_, width := utf8.DecodeRuneInString(text[end:])
		end += width
		runes++
	}
	if end == len(text) {
		return text
	}
	return text[:end] + "..."
}
