package llm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/internal/extract"
)

// Input is what an AI extractor reads: document text, an image, or both.
type Input struct {
	Text     string
	Image    []byte
	MIMEType string // of Image
	Filename string // hint only
}

// ContractExtractor reads lease fields with a language model.
// ok is false whenever nothing usable came back (no credentials, transport
// failure, malformed output); callers then rely on the heuristics alone.
type ContractExtractor interface {
	ExtractContractFields(ctx context.Context, in Input) (fields extract.ExtractedFields, ok bool)
}

// PaymentFields is what a payment receipt yields. Every field is optional.
type PaymentFields struct {
	AmountPaid *decimal.Decimal
	PaidDate   *time.Time
	Method     *string
	Reference  *string
}

func (p PaymentFields) IsEmpty() bool {
	return p.AmountPaid == nil && p.PaidDate == nil && p.Method == nil && p.Reference == nil
}

// PaymentExtractor reads a payment receipt (usually an image).
type PaymentExtractor interface {
	ExtractPaymentFields(ctx context.Context, in Input) (fields PaymentFields, ok bool)
}

// Noop is the extractor used when no model is configured.
type Noop struct{}

func (Noop) ExtractContractFields(context.Context, Input) (extract.ExtractedFields, bool) {
	return extract.ExtractedFields{}, false
}

func (Noop) ExtractPaymentFields(context.Context, Input) (PaymentFields, bool) {
	return PaymentFields{}, false
}
