package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher renders pages in a headless browser before extracting text,
// for sites that assemble their content with JavaScript. The browser is
// launched lazily on first use and reused.
type RodFetcher struct {
	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodFetcher creates a browser-backed fetcher. No browser process is
// started until the first Fetch call.
func NewRodFetcher() *RodFetcher {
	return &RodFetcher{}
}

func (f *RodFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	browser := rod.New()
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}
	f.browser = browser
	return browser, nil
}

func (f *RodFetcher) Fetch(ctx context.Context, url string) (string, error) {
	browser, err := f.connect()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load timeout for %s: %w", url, err)
	}

	result, err := page.Eval(`() => document.body.innerText`)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", url, err)
	}

	text := collapseWhitespace(result.Value.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text at %s", url)
	}
	return Truncate(text), nil
}

// Close shuts the browser down if one was started.
func (f *RodFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
