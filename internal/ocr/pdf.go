package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// minTextLayerRunes below this the text layer is treated as missing (scanned PDF).
const minTextLayerRunes = 40

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	text, pages, warn, err := e.pdfToText(ctx, path)
	if err == nil {
		text = Normalize(text)
		if len([]rune(strings.TrimSpace(text))) >= minTextLayerRunes {
			return Result{Text: text, Pages: pages, Method: "pdf-text", Warnings: warn}, nil
		}
		warn = append(warn, "pdf text layer empty, falling back to ocr")
	} else {
		warn = append(warn, err.Error())
	}

	e.logger.Debug("ocr.pdf.rasterize", "path", path, "dpi", e.cfg.DPI)
	text, pages, w2, err := e.pdfToOCR(ctx, path)
	warn = append(warn, w2...)
	if err != nil {
		return Result{Method: "pdf-ocr", Warnings: warn}, err
	}
	return Result{Text: Normalize(text), Pages: pages, Method: "pdf-ocr", Warnings: warn}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftotext: %w", err)
	}
	text = string(out)
	// pages are separated by form feeds
	pages = 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "lt-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tempdir.remove_failed", "path", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	for _, img := range matches {
		txt, err := e.tesseract(ctx, img)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warnings, nil
}
