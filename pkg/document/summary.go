package document

import (
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"

	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// MaxSummaryLength bounds the readable text kept as page background.
const MaxSummaryLength = 2000

// Summarize extracts the readable text of an HTML page. Any failure yields
// an empty summary.
func Summarize(text string, sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || sourceURL == "" {
		u = &url.URL{Scheme: "http", Host: "localhost"}
	}

	article, err := readability.FromReader(strings.NewReader(text), u)
	if err != nil {
		logger.Debug("[Document] Readability extraction failed", "err", err)
		return ""
	}

	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		logger.Debug("[Document] Failed to render readable text", "err", err)
		return ""
	}

	summary := strings.Join(strings.Fields(builder.String()), " ")
	if len(summary) > MaxSummaryLength {
		summary = strings.ToValidUTF8(summary[:MaxSummaryLength], "")
	}
	return summary
}
