package pdf

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ocrRangeText rasterizes pages start..end (0-based) with pdftoppm and runs
// tesseract over each image. Page texts are joined with form feeds so the
// output splits the same way pdftotext output does.
func (r *Reader) ocrRangeText(ctx context.Context, doc Document, start, end int) (string, error) {
	tmp, err := os.MkdirTemp("", "invoice-ocr-*")
	if err != nil {
		return "", common.WrapError(err, "creating OCR scratch directory")
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	prefix := filepath.Join(tmp, "page")
	args := []string{
		"-f", strconv.Itoa(start + 1),
		"-l", strconv.Itoa(end + 1),
		"-r", strconv.Itoa(r.cfg.DPI),
		"-png", "-gray",
	}
	if doc.Type == constants.DocTypePasswordProtected && doc.Password != "" {
		args = append(args, "-upw", doc.Password)
	}
	args = append(args, doc.Path, prefix)

	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...)
	if err != nil {
		return "", common.WrapError(err, "pdftoppm: "+truncate(string(errb), 512))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", common.WrapError(err, "listing rasterized pages")
	}
	// pdftoppm zero-pads page numbers, so a lexical sort is the page order
	sort.Strings(images)

	texts := make([]string, 0, len(images))
	for _, img := range images {
		out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, img, "stdout", "-l", r.cfg.OCRLang)
		if err != nil {
			return "", common.WrapError(err, "tesseract: "+truncate(string(errb), 512))
		}
		texts = append(texts, strings.TrimSpace(string(out)))
	}
	return strings.Join(texts, "\f"), nil
}
