package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
)

// ExtractRequest carries one page-range extraction call: the document to read,
// a 0-based inclusive page span, the output schema and the system message that
// frames the model.
type ExtractRequest struct {
	Document      pdf.Document
	StartPage     int // 0-based inclusive
	EndPage       int // 0-based inclusive
	Schema        *SchemaNode
	SystemMessage string // empty selects the default

	// PageMarkers selects the whole-document text with "=== Page N ==="
	// markers instead of the page-range slice. Used by discovery, where the
	// model has to name page numbers in its answer.
	PageMarkers bool
}

// Extractor is the interface the analyzer and invoice stage depend on.
// Implementations bound their own concurrency; callers may invoke it from
// any number of goroutines.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (map[string]any, error)
}
