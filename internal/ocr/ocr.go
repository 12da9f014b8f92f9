package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "spa"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	Timeout        time.Duration // per document; 0 = no limit
	CommandTimeout time.Duration // per external tool call; 0 = no limit
}

// ConfigFrom maps the application OCR settings.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Pdftotext:      c.Pdftotext,
		Pdftoppm:       c.Pdftoppm,
		Tesseract:      c.Tesseract,
		TesseractLang:  c.TesseractLang,
		TessdataDir:    c.TessdataDir,
		DPI:            c.DPI,
		MaxPages:       c.MaxPages,
		Timeout:        c.Timeout,
		CommandTimeout: c.CommandTimeout,
	}
}

// Document is a source file as received: raw bytes plus a declared MIME type.
// Filename is only used to guess the format when the MIME type is missing.
type Document struct {
	Bytes    []byte
	MIMEType string
	Filename string
}

// Format resolves the declared MIME type, falling back to the file extension.
func (d Document) Format() constants.Format {
	if f := constants.MapMIMEToFormat(d.MIMEType); f != constants.UNKNOWN {
		return f
	}
	return constants.MapExtToFormat(filepath.Ext(d.Filename))
}

type Result struct {
	Text     string
	Pages    int
	Format   constants.Format
	Method   string // "plain" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec-based runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "spa"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{timeout: cfg.CommandTimeout, logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Text returns the normalized text of doc, or "" when nothing could be read.
// Failures are logged and never returned.
func (e *Extractor) Text(ctx context.Context, doc Document) string {
	res, err := e.Extract(ctx, doc)
	if err != nil {
		common.LoggerFromContext(ctx, e.logger).Warn("ocr.text.failed",
			"filename", doc.Filename, "mime_type", doc.MIMEType, "error", err)
		return ""
	}
	return res.Text
}

// Extract picks a strategy from the document format.
func (e *Extractor) Extract(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger)
	format := doc.Format()
	logger.Debug("ocr.extract.start", "filename", doc.Filename, "format", format, "bytes", len(doc.Bytes))

	if len(doc.Bytes) == 0 {
		return Result{Format: format}, fmt.Errorf("empty document")
	}

	ctx, cancel := common.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var (
		res Result
		err error
	)
	switch format {
	case constants.TXT:
		res = e.extractPlain(doc.Bytes)
	case constants.PDF:
		res, err = e.withTempFile(ctx, doc, ".pdf", e.extractPDF)
	case constants.IMAGE:
		res, err = e.withTempFile(ctx, doc, imageExt(doc), e.extractImage)
	default:
		logger.Error("ocr.extract.unsupported", "mime_type", doc.MIMEType, "filename", doc.Filename)
		return Result{Format: format}, fmt.Errorf("unsupported document type: %q", doc.MIMEType)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	logger.Info("ocr.extract.done",
		"method", res.Method,
		"pages", res.Pages,
		"chars", utf8.RuneCountInString(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPlain(b []byte) Result {
	s := string(b)
	if !utf8.ValidString(s) {
		s = latin1ToUTF8(b)
	}
	return Result{Text: Normalize(s), Pages: 1, Method: "plain"}
}

// withTempFile writes doc to a temp file for the external tools and removes it afterwards.
func (e *Extractor) withTempFile(ctx context.Context, doc Document, ext string,
	fn func(context.Context, string) (Result, error)) (Result, error) {
	f, err := os.CreateTemp("", "lt-doc-*"+ext)
	if err != nil {
		return Result{}, err
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("ocr.tempfile.remove_failed", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(doc.Bytes); err != nil {
		_ = f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return fn(ctx, path)
}

func imageExt(doc Document) string {
	if ext := constants.NormalizeExt(filepath.Ext(doc.Filename)); constants.MapExtToFormat(ext) == constants.IMAGE {
		return "." + ext
	}
	switch doc.MIMEType {
	case "image/png":
		return ".png"
	case "image/tiff":
		return ".tif"
	}
	return ".jpg"
}

// latin1ToUTF8 decodes ISO-8859-1 bytes, which is what older exports of
// Spanish documents usually are when they are not UTF-8.
func latin1ToUTF8(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}
