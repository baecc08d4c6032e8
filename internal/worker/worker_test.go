package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdf"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/task"
)

// fakeQueue records everything the worker writes back.
type fakeQueue struct {
	mu       sync.Mutex
	pending  []*task.Task
	statuses map[string][]task.Status
	results  map[string]any
	ttls     map[string]time.Duration
}

func newFakeQueue(tasks ...*task.Task) *fakeQueue {
	return &fakeQueue{
		pending:  tasks,
		statuses: make(map[string][]task.Status),
		results:  make(map[string]any),
		ttls:     make(map[string]time.Duration),
	}
}

func (q *fakeQueue) Enqueue(_ context.Context, t *task.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, t)
	return t.TaskID, nil
}

func (q *fakeQueue) Dequeue(_ context.Context) (*task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	return t, nil
}

func (q *fakeQueue) UpdateTaskStatus(_ context.Context, taskID string, status task.Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[taskID] = append(q.statuses[taskID], status)
	return nil
}

func (q *fakeQueue) GetTaskStatus(_ context.Context, taskID string) (task.Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	hist := q.statuses[taskID]
	if len(hist) == 0 {
		return task.StatusFailed, nil
	}
	return hist[len(hist)-1], nil
}

func (q *fakeQueue) StoreResult(_ context.Context, taskID string, result any, ttl time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[taskID] = result
	q.ttls[taskID] = ttl
	q.statuses[taskID] = append(q.statuses[taskID], task.StatusCompleted)
	return nil
}

func (q *fakeQueue) GetResult(_ context.Context, taskID string) (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.results[taskID], nil
}

func (q *fakeQueue) lastStatus(taskID string) task.Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	hist := q.statuses[taskID]
	if len(hist) == 0 {
		return ""
	}
	return hist[len(hist)-1]
}

// fakeRunner serves pdfinfo page counts and page text for the reader.
type fakeRunner struct {
	pages int
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	if name == "pdfinfo" {
		return []byte(fmt.Sprintf("Pages: %d\nTitle: statement\n", f.pages)), nil, nil
	}
	return []byte("page text"), nil, nil
}

// rangeExtractor answers per start page; unlisted pages fail.
type rangeExtractor struct {
	byStart map[int]map[string]any
}

func (e *rangeExtractor) Extract(_ context.Context, req llm.ExtractRequest) (map[string]any, error) {
	if r, ok := e.byStart[req.StartPage]; ok {
		return r, nil
	}
	return nil, errors.New("model refused")
}

func newWorker(q *fakeQueue, ex llm.Extractor, pages int) *Worker {
	reader := pdf.NewReader(pdf.Config{}, nil).WithRunner(&fakeRunner{pages: pages})
	analyzer := pipeline.NewAnalyzer(reader, ex, nil)
	invoice := pipeline.NewInvoiceStage(ex, nil)
	return New(q, reader, analyzer, invoice, nil, WithPollInterval(time.Millisecond))
}

func testTask(spans ...string) *task.Task {
	return &task.Task{
		TaskID:       task.NewTaskID(),
		PDFPath:      "/tmp/statement.pdf",
		DocumentType: constants.DocTypeText,
		ProcessType:  string(constants.ProcessTypeInvoice),
		NumPages:     len(spans),
		PageRanges:   spans,
		ResultTTL:    task.DefaultResultTTL,
	}
}

func TestProcessTaskPartialFailureCompletes(t *testing.T) {
	// three explicit single-page ranges; the middle one fails
	tk := testTask("1-1", "2-2", "3-3")
	q := newFakeQueue()
	ex := &rangeExtractor{byStart: map[int]map[string]any{
		0: {"invoice_number": "A-1"},
		2: {"invoice_number": "A-3"},
	}}
	w := newWorker(q, ex, 3)

	w.ProcessTask(context.Background(), tk)

	assert.Equal(t, task.StatusCompleted, q.lastStatus(tk.TaskID))
	list, ok := q.results[tk.TaskID].([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 3)

	assert.Equal(t, "A-1", list[0]["invoice_number"])
	assert.Equal(t, "A-3", list[2]["invoice_number"])

	// the failed range keeps its slot as an error record with 1-based pages
	assert.Equal(t, "invoice extraction failed", list[1]["error"])
	assert.Equal(t, [2]int{2, 2}, list[1]["page_range"])

	// document metadata rides along on successful records only
	meta, ok := list[0]["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "statement", meta["title"])
	assert.NotContains(t, list[1], "metadata")
}

func TestProcessTaskAllRangesFailed(t *testing.T) {
	tk := testTask("1-1", "2-2")
	q := newFakeQueue()
	w := newWorker(q, &rangeExtractor{}, 2)

	w.ProcessTask(context.Background(), tk)

	assert.Equal(t, task.StatusFailed, q.lastStatus(tk.TaskID))
	res, ok := q.results[tk.TaskID].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "all page ranges failed", res["error"])
}

func TestProcessTaskInvalidTaskFails(t *testing.T) {
	tk := testTask("1-1")
	tk.PDFPath = ""
	q := newFakeQueue()
	w := newWorker(q, &rangeExtractor{}, 1)

	w.ProcessTask(context.Background(), tk)

	assert.Equal(t, task.StatusFailed, q.lastStatus(tk.TaskID))
	res, ok := q.results[tk.TaskID].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, res["error"])
}

func TestProcessTaskBadSpansFail(t *testing.T) {
	tk := testTask("3-1")
	q := newFakeQueue()
	w := newWorker(q, &rangeExtractor{}, 3)

	w.ProcessTask(context.Background(), tk)

	assert.Equal(t, task.StatusFailed, q.lastStatus(tk.TaskID))
}

func TestProcessTaskUsesAnalyzerWhenNoSpans(t *testing.T) {
	tk := testTask()
	tk.NumPages = 2
	q := newFakeQueue()
	// discovery fails, the analyzer falls back to the even split, and both
	// halves extract successfully
	ex := &rangeExtractor{byStart: map[int]map[string]any{
		0: {"invoice_number": "B-1"},
		2: {"invoice_number": "B-2"},
	}}
	w := newWorker(q, ex, 4)

	w.ProcessTask(context.Background(), tk)

	assert.Equal(t, task.StatusCompleted, q.lastStatus(tk.TaskID))
	list, ok := q.results[tk.TaskID].([]map[string]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, "B-1", list[0]["invoice_number"])
	assert.Equal(t, "B-2", list[1]["invoice_number"])
}

func TestRunDrainsQueueAndStops(t *testing.T) {
	tk := testTask("1-1")
	q := newFakeQueue(tk)
	ex := &rangeExtractor{byStart: map[int]map[string]any{0: {"invoice_number": "C-1"}}}
	w := newWorker(q, ex, 1)

	go w.Run(context.Background())

	require.Eventually(t, func() bool {
		return q.lastStatus(tk.TaskID) == task.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := newFakeQueue()
	w := newWorker(q, &rangeExtractor{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not observe cancellation")
	}
}
