// Package pipeline holds the two extraction stages: the analyzer that splits
// a document into per-invoice page ranges, and the invoice stage that turns
// one range into a structured record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// Analyzer determines which page spans of a PDF belong to which invoice.
type Analyzer struct {
	reader    *pdf.Reader
	extractor llm.Extractor
	logger    *slog.Logger
}

func NewAnalyzer(reader *pdf.Reader, extractor llm.Extractor, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{reader: reader, extractor: extractor, logger: logger}
}

// Analyze asks the model for page ranges and falls back to even splitting
// whenever the answer is unusable. It returns 0-based inclusive ranges;
// ranges need not be contiguous or exhaustive.
func (a *Analyzer) Analyze(ctx context.Context, doc pdf.Document, expectedCount int, metadata map[string]any) ([]task.PageRange, error) {
	rid := uuid.New().String()
	start := time.Now()

	if expectedCount < 1 {
		return nil, common.ValidationError("expected invoice count must be at least 1")
	}
	totalPages, err := a.reader.PageCount(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	if totalPages == 0 {
		return nil, common.ValidationError("PDF has no pages")
	}

	a.logger.Info("analyzer.start",
		"req_id", rid,
		"pdf_path", doc.Path,
		"total_pages", totalPages,
		"expected_count", expectedCount,
	)

	ranges := a.discover(ctx, rid, doc, totalPages, expectedCount, metadata)
	if len(ranges) != expectedCount {
		if len(ranges) != 0 {
			a.logger.Warn("analyzer.count_mismatch",
				"req_id", rid,
				"returned", len(ranges),
				"expected", expectedCount,
			)
		}
		ranges = EvenSplit(totalPages, expectedCount)
	}

	a.logger.Info("analyzer.ok",
		"req_id", rid,
		"ranges", len(ranges),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ranges, nil
}

// discover runs the model-assisted path. Any failure or empty answer yields
// nil, which the caller treats as "fall back".
func (a *Analyzer) discover(ctx context.Context, rid string, doc pdf.Document, totalPages, expectedCount int, metadata map[string]any) []task.PageRange {
	result, err := a.extractor.Extract(ctx, llm.ExtractRequest{
		Document:      doc,
		StartPage:     0,
		EndPage:       totalPages - 1,
		Schema:        llm.PageRangeSchema(),
		SystemMessage: llm.AnalysisPrompt(totalPages, expectedCount, metadata),
		PageMarkers:   true,
	})
	if err != nil {
		a.logger.Warn("analyzer.discovery_failed", "req_id", rid, "error", err)
		return nil
	}

	rawRanges, ok := result["page_ranges"].([]any)
	if !ok || len(rawRanges) == 0 {
		a.logger.Warn("analyzer.no_ranges", "req_id", rid)
		return nil
	}

	var ranges []task.PageRange
	for _, raw := range rawRanges {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		// JSON numbers decode as float64; clamp 1-based values into the
		// document and drop inverted spans without erroring.
		startPage := clampPage(m["start_page"], totalPages)
		endPage := clampPage(m["end_page"], totalPages)
		if startPage < 0 || endPage < 0 || startPage > endPage {
			continue
		}
		reason, _ := m["reason"].(string)
		pr := task.PageRange{Start: startPage, End: endPage, Reason: reason}
		ranges = append(ranges, pr)
		a.logger.Info("analyzer.range",
			"req_id", rid,
			"pages", pr.Label(),
			"reason", reason,
		)
	}
	return ranges
}

// clampPage converts a decoded 1-based page number to a clamped 0-based
// index, or -1 when the value is not a number.
func clampPage(v any, totalPages int) int {
	f, ok := v.(float64)
	if !ok {
		return -1
	}
	p := int(f) - 1
	if p < 0 {
		return 0
	}
	if p > totalPages-1 {
		return totalPages - 1
	}
	return p
}

// EvenSplit divides totalPages into expectedCount chunks of
// floor(totalPages/expectedCount) pages (minimum 1), stopping early when
// pages run out. The final chunk absorbs the remainder.
func EvenSplit(totalPages, expectedCount int) []task.PageRange {
	perDoc := totalPages / expectedCount
	if perDoc < 1 {
		perDoc = 1
	}
	var ranges []task.PageRange
	for i := 0; i < expectedCount; i++ {
		start := i * perDoc
		if start >= totalPages {
			break
		}
		end := (i+1)*perDoc - 1
		if i == expectedCount-1 || end > totalPages-1 {
			end = totalPages - 1
		}
		ranges = append(ranges, task.PageRange{Start: start, End: end})
	}
	return ranges
}
