package ocr

import (
	"context"
	"fmt"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, err := e.tesseract(ctx, path)
	if err != nil {
		return Result{Method: "image-ocr"}, err
	}
	return Result{Text: Normalize(txt), Pages: 1, Method: "image-ocr"}, nil
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
