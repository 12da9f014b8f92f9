package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/ledger"
	"github.com/joseph-ayodele/leases-tracker/internal/llm"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/ocr"
)

// Payer applies payments. *ledger.Service implements it.
type Payer interface {
	ApplyToContract(ctx context.Context, contractID uuid.UUID, in ledger.PaymentInput) (ledger.Applied, error)
	ApplyToCharge(ctx context.Context, chargeID uuid.UUID, in ledger.PaymentInput) (ledger.Applied, error)
}

// ReceiptRequest targets a charge when ChargeID is set, otherwise the
// contract's charge for the month of the receipt date.
type ReceiptRequest struct {
	Document   ocr.Document
	ContractID uuid.UUID
	ChargeID   uuid.UUID
}

type ReceiptResult struct {
	Read    llm.PaymentFields `json:"read"`
	Applied ledger.Applied    `json:"applied"`
}

type ReceiptReconciler struct {
	text      TextSource
	ai        llm.PaymentExtractor
	payer     Payer
	aiTimeout time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

func NewReceiptReconciler(text TextSource, ai llm.PaymentExtractor, payer Payer, aiTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *ReceiptReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if ai == nil {
		ai = llm.Noop{}
	}
	return &ReceiptReconciler{text: text, ai: ai, payer: payer, aiTimeout: aiTimeout, metrics: metrics, logger: logger}
}

// Reconcile reads a payment receipt and applies it. A receipt without any
// readable field fails with ErrUnreadableReceipt and one without a positive
// amount with ledger.ErrInvalidAmount; neither writes anything. A missing
// date falls back to the ledger's default.
func (r *ReceiptReconciler) Reconcile(ctx context.Context, req ReceiptRequest) (ReceiptResult, error) {
	if req.ContractID == uuid.Nil && req.ChargeID == uuid.Nil {
		return ReceiptResult{}, common.Validationf("a contract or a charge is required")
	}
	start := time.Now()
	logger := common.LoggerFromContext(ctx, r.logger).With("filename", req.Document.Filename)

	in := llm.Input{Filename: req.Document.Filename}
	if req.Document.Format() == constants.IMAGE {
		in.Image, in.MIMEType = req.Document.Bytes, req.Document.MIMEType
	} else {
		in.Text = r.text.Text(ctx, req.Document)
	}

	var (
		read llm.PaymentFields
		ok   bool
	)
	if in.Text != "" || in.Image != nil {
		actx, cancel := common.WithTimeout(ctx, r.aiTimeout)
		read, ok = r.ai.ExtractPaymentFields(actx, in)
		cancel()
	}
	if !ok || read.IsEmpty() {
		logger.Warn("pipeline.receipt.unreadable")
		return ReceiptResult{}, ErrUnreadableReceipt
	}
	if read.AmountPaid == nil {
		return ReceiptResult{Read: read}, fmt.Errorf("%w: the receipt shows no amount", ledger.ErrInvalidAmount)
	}
	if err := ledger.CheckAmount(*read.AmountPaid); err != nil {
		return ReceiptResult{Read: read}, err
	}

	pay := ledger.PaymentInput{Amount: *read.AmountPaid}
	if read.PaidDate != nil {
		pay.PaidDate = *read.PaidDate
	}
	if read.Method != nil {
		pay.Method = *read.Method
	}
	if read.Reference != nil {
		pay.Reference = *read.Reference
	}

	var (
		applied ledger.Applied
		err     error
	)
	if req.ChargeID != uuid.Nil {
		applied, err = r.payer.ApplyToCharge(ctx, req.ChargeID, pay)
	} else {
		applied, err = r.payer.ApplyToContract(ctx, req.ContractID, pay)
	}
	r.metrics.ObserveOperation("receipt_reconcile", time.Since(start))
	if err != nil {
		return ReceiptResult{Read: read}, err
	}
	logger.Info("pipeline.receipt.applied",
		"charge_id", applied.Charge.ID,
		"amount", applied.Payment.AmountPaid.String(),
		"state", applied.Charge.State,
	)
	return ReceiptResult{Read: read, Applied: applied}, nil
}
