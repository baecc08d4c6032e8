// Package worker drives the task lifecycle: it polls the queue, runs the
// analyzer and invoice stage for each dequeued task, and writes the final
// status and result back.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/queue"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// errAllRangesFailed is the aggregate result when no range produced data.
const errAllRangesFailed = "all page ranges failed"

type Worker struct {
	queue    queue.Queue
	reader   *pdf.Reader
	analyzer *pipeline.Analyzer
	invoice  *pipeline.InvoiceStage
	logger   *slog.Logger

	pollInterval time.Duration
	running      atomic.Bool
	wg           sync.WaitGroup
}

type Option func(*Worker)

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

func New(q queue.Queue, reader *pdf.Reader, analyzer *pipeline.Analyzer, invoice *pipeline.InvoiceStage, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		queue:        q,
		reader:       reader,
		analyzer:     analyzer,
		invoice:      invoice,
		logger:       logger,
		pollInterval: time.Second,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run polls the queue until Stop is called or ctx is cancelled. Each task is
// processed inline before the next poll; multiple Worker instances against
// the same queue are the scaling mechanism. Backend errors are logged and
// retried by the next poll.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	w.wg.Add(1)
	defer w.wg.Done()

	w.logger.Info("worker.started", "poll_interval", w.pollInterval)
	for w.running.Load() {
		t, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Error("worker.dequeue_error", "error", err)
			if !w.sleep(ctx) {
				break
			}
			continue
		}
		if t == nil {
			if !w.sleep(ctx) {
				break
			}
			continue
		}
		w.ProcessTask(ctx, t)
	}
	w.logger.Info("worker.stopped")
}

// Stop flips the running flag. The in-flight task, if any, finishes before
// the loop observes the flag; Stop returns without waiting.
func (w *Worker) Stop() {
	w.running.Store(false)
}

// Wait blocks until the poll loop has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		w.running.Store(false)
		return false
	case <-time.After(w.pollInterval):
		return true
	}
}

// ProcessTask runs one task to a terminal status. Per-range failures are
// isolated into error records; the task completes if any range succeeds and
// fails only when validation fails, the analyzer fails, or every range fails.
func (w *Worker) ProcessTask(ctx context.Context, t *task.Task) {
	start := time.Now()
	log := w.logger.With("task_id", t.TaskID)
	log.Info("worker.task.start",
		"pdf_path", t.PDFPath,
		"document_type", t.DocumentType,
		"num_pages", t.NumPages,
	)

	ttl := time.Duration(t.ResultTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Duration(task.DefaultResultTTL) * time.Second
	}

	if err := t.Validate(); err != nil {
		log.Error("worker.task.invalid", "error", err)
		w.fail(ctx, t.TaskID, map[string]any{"error": err.Error()}, ttl)
		return
	}
	if err := w.queue.UpdateTaskStatus(ctx, t.TaskID, task.StatusProcessing); err != nil {
		log.Error("worker.task.status_error", "error", err)
	}

	doc := pdf.Document{Path: t.PDFPath, Type: t.DocumentType, Password: t.Password}

	ranges, err := w.resolveRanges(ctx, doc, t)
	if err != nil {
		log.Error("worker.task.analyze_error", "error", err)
		w.fail(ctx, t.TaskID, map[string]any{"error": err.Error()}, ttl)
		return
	}

	// Document metadata is merged into successful records after extraction,
	// never sent to the model as ground truth.
	docMeta, err := w.reader.Metadata(ctx, doc)
	if err != nil {
		log.Warn("worker.task.metadata_error", "error", err)
		docMeta = nil
	}

	results := make([]map[string]any, 0, len(ranges))
	failures := 0
	for _, pr := range ranges {
		record := w.invoice.Process(ctx, doc, pr, t.Metadata)
		if record == nil {
			failures++
			results = append(results, map[string]any{
				"error":      "invoice extraction failed",
				"page_range": pr.Pages1Based(),
			})
			continue
		}
		if docMeta != nil {
			record["metadata"] = docMeta
		}
		results = append(results, record)
	}

	if failures == len(results) {
		log.Error("worker.task.failed",
			"ranges", len(ranges),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		w.fail(ctx, t.TaskID, map[string]any{"error": errAllRangesFailed}, ttl)
		return
	}

	// Partial success is success at the task level. StoreResult sets the
	// completed status as a side effect.
	if err := w.queue.StoreResult(ctx, t.TaskID, results, ttl); err != nil {
		log.Error("worker.task.store_error", "error", err)
		return
	}
	log.Info("worker.task.ok",
		"ranges", len(ranges),
		"failed_ranges", failures,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// resolveRanges honors explicit page_ranges and otherwise delegates to the
// analyzer.
func (w *Worker) resolveRanges(ctx context.Context, doc pdf.Document, t *task.Task) ([]task.PageRange, error) {
	if len(t.PageRanges) > 0 {
		return task.ParseSpans(t.PageRanges)
	}
	return w.analyzer.Analyze(ctx, doc, t.NumPages, t.Metadata)
}

// fail stores the error document and forces the terminal failed status,
// overwriting the completed status StoreResult just wrote.
func (w *Worker) fail(ctx context.Context, taskID string, result map[string]any, ttl time.Duration) {
	if err := w.queue.StoreResult(ctx, taskID, result, ttl); err != nil {
		w.logger.Error("worker.fail.store_error", "task_id", taskID, "error", err)
	}
	if err := w.queue.UpdateTaskStatus(ctx, taskID, task.StatusFailed); err != nil {
		w.logger.Error("worker.fail.status_error", "task_id", taskID, "error", err)
	}
}
