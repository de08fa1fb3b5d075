package detect

import (
	"log/slog"
	"strings"

	"github.com/insightdelivered/statementlens/internal/extractor"
)

// DefaultSamplePages is how many leading pages are read for detection. Header
// and summary blocks live there, so later pages add latency without adding
// signal.
const DefaultSamplePages = 2

// SampleText returns the text of the first maxPages pages of the document at
// path, joined by newlines. A document that cannot be read yields an empty
// sample, which then fails detection instead of aborting the request.
func SampleText(path string, maxPages int) string {
	if maxPages <= 0 {
		maxPages = DefaultSamplePages
	}
	pages, err := extractor.ExtractSample(path, maxPages)
	if err != nil {
		slog.Debug("text sample unavailable", "path", path, "error", err)
		return ""
	}
	return strings.Join(pages, "\n")
}
