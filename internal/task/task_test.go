package task

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestNormalizeDefaults(t *testing.T) {
	tk := &Task{PDFPath: "/tmp/a.pdf", ProcessType: "invoice", NumPages: 1}
	tk.Normalize(nil)

	assert.True(t, strings.HasPrefix(tk.TaskID, "task_"))
	assert.Equal(t, constants.DocTypeText, tk.DocumentType)
	assert.Equal(t, DefaultResultTTL, tk.ResultTTL)
}

func TestNormalizeDerivesCountFromRanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tk := &Task{
		PDFPath:     "/tmp/a.pdf",
		ProcessType: "invoice",
		NumPages:    7, // conflicting, must be overridden
		PageRanges:  []string{"1-2", "3", "4-5"},
	}
	tk.Normalize(logger)

	assert.Equal(t, 3, tk.NumPages)
	assert.Contains(t, buf.String(), "task.num_pages_overridden")
}

func TestNormalizeNoWarningWhenCountsAgree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tk := &Task{PDFPath: "/tmp/a.pdf", ProcessType: "invoice", NumPages: 2, PageRanges: []string{"1", "2"}}
	tk.Normalize(logger)

	assert.Equal(t, 2, tk.NumPages)
	assert.NotContains(t, buf.String(), "task.num_pages_overridden")
}

func TestValidate(t *testing.T) {
	valid := Task{
		PDFPath:      "/tmp/a.pdf",
		DocumentType: constants.DocTypeText,
		ProcessType:  "invoice",
		NumPages:     1,
	}

	tests := []struct {
		name   string
		mutate func(*Task)
		ok     bool
	}{
		{"valid", func(*Task) {}, true},
		{"missing path", func(tk *Task) { tk.PDFPath = "" }, false},
		{"bad process type", func(tk *Task) { tk.ProcessType = "contract" }, false},
		{"zero pages", func(tk *Task) { tk.NumPages = 0 }, false},
		{"zero pages with ranges", func(tk *Task) { tk.NumPages = 0; tk.PageRanges = []string{"1-2"} }, true},
		{"bad document type", func(tk *Task) { tk.DocumentType = "vector" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := valid
			tt.mutate(&tk)
			err := tk.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrValidation))
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	tk := &Task{
		TaskID:       "task_abc",
		PDFPath:      "/tmp/a.pdf",
		DocumentType: constants.DocTypeScanned,
		ProcessType:  "invoice",
		NumPages:     2,
		PageRanges:   []string{"1-2", "3"},
		ResultTTL:    600,
		Metadata:     map[string]any{"customer_names": []any{"ACME"}},
	}
	b, err := tk.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, tk, got)
}
