package memory

import (
	"context"
	"fmt"

	"github.com/mtegner/mnemo/internal/observability"
	"github.com/mtegner/mnemo/internal/tracing"
	"github.com/mtegner/mnemo/pkg/note"
)

// enrich scans content for its first URL and, when one is present, fetches
// the page and appends its extracted text as a delimited block. The fetched
// text is also returned separately so it can join the embedded text.
//
// Fetch failures never abort note creation: they become an inline marker in
// the content and an empty web context.
func (s *Service) enrich(ctx context.Context, content string) (string, string) {
	url := note.FindFirstURL(content)
	if url == "" || s.fetcher == nil {
		return content, ""
	}

	logger := tracing.LoggerFromContext(ctx, s.logger)

	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn().Str("url", url).Err(err).Msg("URL enrichment failed")
		observability.RecordEnrichment("failed")
		return content + fmt.Sprintf("\n\n[Enriched URL Context for %s]:\n[fetch failed: %v]", url, err), ""
	}

	logger.Debug().Str("url", url).Int("chars", len(text)).Msg("URL enrichment succeeded")
	observability.RecordEnrichment("ok")
	return content + fmt.Sprintf("\n\n[Enriched URL Context for %s]:\n%s", url, text), text
}
