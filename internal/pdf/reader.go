// Package pdf recovers text and metadata from PDF files through the poppler
// utilities (pdftotext, pdfinfo, pdftoppm) and tesseract for scanned
// documents. All binaries run behind the Runner interface.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Document identifies one PDF plus everything needed to open it.
type Document struct {
	Path     string
	Type     constants.DocumentType
	Password string
}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string // if empty -> "pdfinfo"
	Pdftoppm  string // if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"

	OCRLang string // default "eng"
	DPI     int    // rasterization DPI for scanned PDFs, default 300
}

// Reader extracts page counts, page-range text and metadata.
type Reader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewReader(cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.OCRLang == "" {
		cfg.OCRLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Reader{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub the binaries.
func (r *Reader) WithRunner(runner Runner) *Reader {
	r.runner = runner
	return r
}

// PageCount reads the page total via pdfinfo.
func (r *Reader) PageCount(ctx context.Context, doc Document) (int, error) {
	meta, err := r.Metadata(ctx, doc)
	if err != nil {
		return 0, err
	}
	pages, ok := meta["pages"].(int)
	if !ok || pages < 0 {
		return 0, fmt.Errorf("pdfinfo reported no page count for %s", doc.Path)
	}
	return pages, nil
}

// PageRangeText concatenates the text of pages start..end inclusive
// (0-based). The strategy depends on the document type: scanned documents go
// through rasterization + OCR, everything else through pdftotext.
func (r *Reader) PageRangeText(ctx context.Context, doc Document, start, end int) (string, error) {
	if start < 0 || end < start {
		return "", common.ValidationErrorf("invalid page range %d-%d", start, end)
	}
	if doc.Type == constants.DocTypeScanned {
		return r.ocrRangeText(ctx, doc, start, end)
	}
	args, err := r.textArgs(doc)
	if err != nil {
		return "", err
	}
	// pdftotext flags are 1-based inclusive
	args = append(args, "-f", strconv.Itoa(start+1), "-l", strconv.Itoa(end+1), doc.Path, "-")
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdftotext, args...)
	if err != nil {
		return "", common.WrapError(err, "pdftotext: "+truncate(string(errb), 512))
	}
	return string(out), nil
}

// MarkedText returns the whole document with 1-based "=== Page N ===" markers
// so the model can reason about positions.
func (r *Reader) MarkedText(ctx context.Context, doc Document) (string, error) {
	pages, err := r.PageTexts(ctx, doc)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, text := range pages {
		fmt.Fprintf(&b, "\n=== Page %d ===\n", i+1)
		b.WriteString(text)
	}
	return b.String(), nil
}

// PageTexts splits the document into per-page strings, using the form-feed
// separators pdftotext emits between pages.
func (r *Reader) PageTexts(ctx context.Context, doc Document) ([]string, error) {
	if doc.Type == constants.DocTypeScanned {
		total, err := r.PageCount(ctx, doc)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return nil, nil
		}
		text, err := r.ocrRangeText(ctx, doc, 0, total-1)
		if err != nil {
			return nil, err
		}
		return strings.Split(text, "\f"), nil
	}
	args, err := r.textArgs(doc)
	if err != nil {
		return nil, err
	}
	args = append(args, doc.Path, "-")
	out, errb, err := r.runner.Run(ctx, r.cfg.Pdftotext, args...)
	if err != nil {
		return nil, common.WrapError(err, "pdftotext: "+truncate(string(errb), 512))
	}
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

// Metadata parses pdfinfo output into a generic map. The document type adds
// its own markers, mirroring what each extraction strategy can know.
func (r *Reader) Metadata(ctx context.Context, doc Document) (map[string]any, error) {
	args := []string{"-enc", "UTF-8"}
	if doc.Type == constants.DocTypePasswordProtected {
		if doc.Password == "" {
			return nil, common.ValidationError("password required for password-protected PDF")
		}
		args = append(args, "-upw", doc.Password)
	}
	args = append(args, doc.Path)

	out, errb, err := r.runner.Run(ctx, r.cfg.Pdfinfo, args...)
	if err != nil {
		return nil, common.WrapError(err, "pdfinfo: "+truncate(string(errb), 512))
	}

	meta := map[string]any{}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if key == "pages" {
			if n, err := strconv.Atoi(value); err == nil {
				meta[key] = n
				continue
			}
		}
		meta[key] = value
	}

	switch doc.Type {
	case constants.DocTypePasswordProtected:
		meta["needs_password"] = true
	case constants.DocTypeCopyProtected:
		meta["copy_protected"] = true
	case constants.DocTypeScanned:
		meta["scanned"] = true
	}
	return meta, nil
}

// textArgs builds the pdftotext flag set for a document type.
func (r *Reader) textArgs(doc Document) ([]string, error) {
	args := []string{"-enc", "UTF-8", "-eol", "unix"}
	switch doc.Type {
	case constants.DocTypePasswordProtected:
		if doc.Password == "" {
			return nil, common.ValidationError("password required for password-protected PDF")
		}
		args = append(args, "-upw", doc.Password)
	case constants.DocTypeCopyProtected:
		// copy restrictions bind viewers, not the text layer; -layout keeps
		// reading order stable for protected layouts
		args = append(args, "-layout")
	}
	return args, nil
}
