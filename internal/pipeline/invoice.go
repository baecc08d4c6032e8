package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// InvoiceStage extracts one structured invoice record per page range.
type InvoiceStage struct {
	extractor llm.Extractor
	logger    *slog.Logger
}

func NewInvoiceStage(extractor llm.Extractor, logger *slog.Logger) *InvoiceStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceStage{extractor: extractor, logger: logger}
}

// Process extracts invoice data for one page range. Failures never escape:
// an error or an empty model answer both come back as nil, and the caller
// records the range as failed without aborting its siblings.
func (s *InvoiceStage) Process(ctx context.Context, doc pdf.Document, pr task.PageRange, metadata map[string]any) map[string]any {
	start := time.Now()
	s.logger.Info("invoice.process.start",
		"pdf_path", doc.Path,
		"pages", pr.Label(),
	)

	result, err := s.extractor.Extract(ctx, llm.ExtractRequest{
		Document:      doc,
		StartPage:     pr.Start,
		EndPage:       pr.End,
		Schema:        llm.InvoiceSchema(),
		SystemMessage: llm.InvoicePrompt(pr.Reason, metadata),
	})
	if err != nil {
		s.logger.Error("invoice.process.failed",
			"pdf_path", doc.Path,
			"pages", pr.Label(),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
	if len(result) == 0 {
		s.logger.Error("invoice.process.empty_result",
			"pdf_path", doc.Path,
			"pages", pr.Label(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	s.logger.Info("invoice.process.ok",
		"pdf_path", doc.Path,
		"pages", pr.Label(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}
