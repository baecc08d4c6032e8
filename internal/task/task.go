package task

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DefaultResultTTL is applied when a task does not carry its own.
const DefaultResultTTL = 3600

// Task is one PDF-processing job. It is created by a submitter, serialized
// and encrypted into the queue, and owned by the queue for its lifetime.
type Task struct {
	TaskID       string                 `json:"task_id,omitempty"`
	PDFPath      string                 `json:"pdf_path"`
	DocumentType constants.DocumentType `json:"document_type"`
	Password     string                 `json:"password,omitempty"`
	ProcessType  string                 `json:"process_type"`
	NumPages     int                    `json:"num_pages"` // expected invoice count
	PageRanges   []string               `json:"page_ranges,omitempty"`
	ResultTTL    int                    `json:"result_ttl,omitempty"` // seconds
	Metadata     map[string]any         `json:"metadata,omitempty"`
	SubmittedAt  time.Time              `json:"submitted_at,omitempty"`
}

// NewTaskID mints the id assigned at enqueue time.
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// Normalize fills defaults and reconciles NumPages with PageRanges: when
// explicit ranges are supplied, the invoice count is derived from their
// length and a conflicting user value is overridden with a warning, not an
// error.
func (t *Task) Normalize(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if t.TaskID == "" {
		t.TaskID = NewTaskID()
	}
	if t.DocumentType == "" {
		t.DocumentType = constants.DocTypeText
	}
	if t.ResultTTL <= 0 {
		t.ResultTTL = DefaultResultTTL
	}
	if len(t.PageRanges) > 0 && t.NumPages != len(t.PageRanges) {
		if t.NumPages != 0 {
			logger.Warn("task.num_pages_overridden",
				"task_id", t.TaskID,
				"supplied", t.NumPages,
				"derived", len(t.PageRanges),
			)
		}
		t.NumPages = len(t.PageRanges)
	}
}

// Validate checks the fields a worker needs before it can process the task.
func (t *Task) Validate() error {
	if t.PDFPath == "" {
		return common.ValidationError("pdf_path is required")
	}
	if !constants.IsValidProcessType(t.ProcessType) {
		return common.ValidationErrorf("unsupported process_type %q", t.ProcessType)
	}
	if t.NumPages < 1 && len(t.PageRanges) == 0 {
		return common.ValidationError("num_pages must be at least 1")
	}
	if _, ok := constants.ParseDocumentType(string(t.DocumentType)); !ok {
		return common.ValidationErrorf("unknown document_type %q", t.DocumentType)
	}
	return nil
}

// Marshal serializes the task for the queue.
func (t *Task) Marshal() ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return b, nil
}

// Unmarshal deserializes a queue payload back into a Task.
func Unmarshal(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &t, nil
}
