package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// stubRunner replays canned output per binary and records every invocation.
type stubRunner struct {
	outputs map[string]string // binary name -> stdout
	calls   []call
	err     error
}

type call struct {
	name string
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if s.err != nil {
		return nil, []byte("boom"), s.err
	}
	return []byte(s.outputs[name]), nil, nil
}

const pdfinfoOutput = `Title:          March Invoices
Creator:        Writer
Producer:       LibreOffice 7.4
CreationDate:   Wed Mar  5 10:00:00 2025 UTC
Custom Metadata: no
Pages:          5
Encrypted:      no
Page size:      595 x 842 pts (A4)
File size:      10240 bytes
`

func newStubReader(outputs map[string]string) (*Reader, *stubRunner) {
	runner := &stubRunner{outputs: outputs}
	r := NewReader(Config{}, nil).WithRunner(runner)
	return r, runner
}

func TestPageCount(t *testing.T) {
	r, _ := newStubReader(map[string]string{"pdfinfo": pdfinfoOutput})

	n, err := r.PageCount(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMetadataParsing(t *testing.T) {
	r, _ := newStubReader(map[string]string{"pdfinfo": pdfinfoOutput})

	meta, err := r.Metadata(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText})
	require.NoError(t, err)

	assert.Equal(t, "March Invoices", meta["title"])
	assert.Equal(t, 5, meta["pages"])
	assert.Equal(t, "no", meta["encrypted"])
	_, hasScannedMark := meta["scanned"]
	assert.False(t, hasScannedMark)
}

func TestMetadataMarksDocumentType(t *testing.T) {
	r, _ := newStubReader(map[string]string{"pdfinfo": pdfinfoOutput})

	meta, err := r.Metadata(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeScanned})
	require.NoError(t, err)
	assert.Equal(t, true, meta["scanned"])
}

func TestPageRangeTextUsesOneBasedFlags(t *testing.T) {
	r, runner := newStubReader(map[string]string{"pdftotext": "page two\fpage three"})

	text, err := r.PageRangeText(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "page two\fpage three", text)

	require.Len(t, runner.calls, 1)
	args := strings.Join(runner.calls[0].args, " ")
	assert.Contains(t, args, "-f 2")
	assert.Contains(t, args, "-l 3")
}

func TestPageRangeTextRejectsInvertedRange(t *testing.T) {
	r, _ := newStubReader(nil)

	_, err := r.PageRangeText(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText}, 3, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestPasswordRequired(t *testing.T) {
	r, _ := newStubReader(nil)
	doc := Document{Path: "/tmp/locked.pdf", Type: constants.DocTypePasswordProtected}

	_, err := r.PageRangeText(context.Background(), doc, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	_, err = r.Metadata(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestPasswordForwarded(t *testing.T) {
	r, runner := newStubReader(map[string]string{"pdftotext": "text"})
	doc := Document{Path: "/tmp/locked.pdf", Type: constants.DocTypePasswordProtected, Password: "hunter2"}

	_, err := r.PageRangeText(context.Background(), doc, 0, 0)
	require.NoError(t, err)

	args := strings.Join(runner.calls[0].args, " ")
	assert.Contains(t, args, "-upw hunter2")
}

func TestCopyProtectedUsesLayout(t *testing.T) {
	r, runner := newStubReader(map[string]string{"pdftotext": "text"})

	_, err := r.PageRangeText(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeCopyProtected}, 0, 0)
	require.NoError(t, err)

	args := strings.Join(runner.calls[0].args, " ")
	assert.Contains(t, args, "-layout")
}

func TestMarkedTextAddsOneBasedMarkers(t *testing.T) {
	r, _ := newStubReader(map[string]string{"pdftotext": "first page\fsecond page\fthird page"})

	text, err := r.MarkedText(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText})
	require.NoError(t, err)

	assert.Contains(t, text, "=== Page 1 ===\nfirst page")
	assert.Contains(t, text, "=== Page 2 ===\nsecond page")
	assert.Contains(t, text, "=== Page 3 ===\nthird page")
	assert.NotContains(t, text, "=== Page 4 ===")
}

func TestPageTextsSplitsOnFormFeed(t *testing.T) {
	r, _ := newStubReader(map[string]string{"pdftotext": "one\ftwo\f"})

	pages, err := r.PageTexts(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, pages)
}

func TestRunnerFailureSurfacesStderr(t *testing.T) {
	runner := &stubRunner{err: errors.New("exit status 1")}
	r := NewReader(Config{}, nil).WithRunner(runner)

	_, err := r.PageRangeText(context.Background(), Document{Path: "/tmp/a.pdf", Type: constants.DocTypeText}, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext")
}
