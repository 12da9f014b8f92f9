// Package pipeline wires the text normalizer, both field extractors, the
// merger, the identity resolver and the ledger into the two document flows:
// importing a lease contract and reconciling a payment receipt.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/extract"
	"github.com/joseph-ayodele/leases-tracker/internal/llm"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/ocr"
)

var (
	// ErrIncompleteContract means no monthly rent could be found or supplied.
	ErrIncompleteContract = fmt.Errorf("contract is missing its monthly rent: %w", common.ErrValidation)
	// ErrUnreadableReceipt means the receipt yielded no payment fields.
	ErrUnreadableReceipt = fmt.Errorf("could not read the payment receipt: %w", common.ErrValidation)
)

// TextSource turns a document into normalized text, "" when unreadable.
// *ocr.Extractor implements it.
type TextSource interface {
	Text(ctx context.Context, doc ocr.Document) string
}

// Extraction is everything learned from one contract document.
type Extraction struct {
	TextChars  int                     `json:"text_chars"`
	Report     extract.Report          `json:"candidates"`
	Heuristic  extract.ExtractedFields `json:"heuristic"`
	AI         extract.ExtractedFields `json:"ai"`
	AIUsed     bool                    `json:"ai_used"`
	Fields     extract.ExtractedFields `json:"fields"`
	Provenance extract.Provenance      `json:"provenance"`
}

// FieldExtractor runs the heuristic and AI extractors over one document and
// merges their answers.
type FieldExtractor struct {
	text      TextSource
	ai        llm.ContractExtractor
	aiTimeout time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewFieldExtractor builds a FieldExtractor. A nil ai disables the AI path.
func NewFieldExtractor(text TextSource, ai llm.ContractExtractor, aiTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *FieldExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if ai == nil {
		ai = llm.Noop{}
	}
	return &FieldExtractor{text: text, ai: ai, aiTimeout: aiTimeout, metrics: metrics, logger: logger}
}

// Extract never fails: an unreadable document yields an empty Extraction.
// The heuristic pass completes before the AI is asked, and the AI call has
// its own timeout so it cannot hold up or fail the heuristic result.
func (x *FieldExtractor) Extract(ctx context.Context, doc ocr.Document) Extraction {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, x.logger).With("filename", doc.Filename)

	text := x.text.Text(ctx, doc)
	report := extract.Analyze(text)
	out := Extraction{TextChars: len([]rune(text)), Report: report, Heuristic: report.Fields()}
	logger.Info("extract.heuristic.done", "chars", out.TextChars, "fields", out.Heuristic.Count())

	in := llm.Input{Text: text, Filename: doc.Filename}
	if doc.Format() == constants.IMAGE {
		in.Image, in.MIMEType = doc.Bytes, doc.MIMEType
	}
	if in.Text != "" || in.Image != nil {
		actx, cancel := common.WithTimeout(ctx, x.aiTimeout)
		out.AI, out.AIUsed = x.ai.ExtractContractFields(actx, in)
		cancel()
	}
	if !out.AIUsed {
		out.AI = extract.ExtractedFields{}
	}

	out.Fields, out.Provenance = extract.Merge(out.AI, out.Heuristic)
	for field, src := range out.Provenance {
		x.metrics.IncrMergedField(field, string(src))
	}
	x.metrics.ObserveOperation("extract", time.Since(start))
	logger.Info("extract.merge.done",
		"ai_used", out.AIUsed,
		"fields", out.Fields.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}
