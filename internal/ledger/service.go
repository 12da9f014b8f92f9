// Package ledger keeps one charge per contract and month and derives each
// charge's state from the payments applied to it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
)

// Store runs fn inside one transaction. The implementation must serialize
// writers of the same charge for the duration of fn (row lock on Postgres,
// the single writer on SQLite); the state derivation relies on seeing every
// payment committed before it.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the charge/payment access available inside a transaction.
type Tx interface {
	// GetOrCreateCharge returns the charge for (seed.ContractID, seed.Period),
	// inserting seed when there is none. The row is locked for the rest of the tx.
	GetOrCreateCharge(ctx context.Context, seed entity.Charge) (entity.Charge, bool, error)
	// GetChargeForUpdate returns common.ErrNotFound for an unknown id.
	GetChargeForUpdate(ctx context.Context, id uuid.UUID) (entity.Charge, error)
	InsertPayment(ctx context.Context, p entity.Payment) error
	ListPayments(ctx context.Context, chargeID uuid.UUID) ([]entity.Payment, error)
	UpdateChargeState(ctx context.Context, id uuid.UUID, state constants.ChargeState, paidDate *time.Time) error
}

// PaymentInput is one payment event. Amount must be positive. A zero
// PaidDate means "today" for ApplyToContract and "the charge's due date" for
// ApplyToCharge.
type PaymentInput struct {
	Amount    decimal.Decimal
	PaidDate  time.Time
	Method    string
	Reference string
}

// Applied is the outcome of one payment.
type Applied struct {
	Charge        entity.Charge   `json:"charge"`
	Payment       entity.Payment  `json:"payment"`
	ChargeCreated bool            `json:"charge_created"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

type Service struct {
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// ApplyToContract records a payment against the contract's charge for the
// month of the payment date. When that charge does not exist yet it is
// created with the payment amount as its original amount and the payment
// date as its due date.
func (s *Service) ApplyToContract(ctx context.Context, contractID uuid.UUID, in PaymentInput) (Applied, error) {
	if err := CheckAmount(in.Amount); err != nil {
		return Applied{}, err
	}
	if contractID == uuid.Nil {
		return Applied{}, common.Validationf("contract id is required")
	}
	paid := DateOnly(in.PaidDate)
	if in.PaidDate.IsZero() {
		paid = DateOnly(s.now())
	}

	var out Applied
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		charge, created, err := tx.GetOrCreateCharge(ctx, entity.Charge{
			ID:             uuid.New(),
			ContractID:     contractID,
			Period:         Period(paid),
			OriginalAmount: in.Amount,
			DueDate:        paid,
			State:          constants.ChargePending,
		})
		if err != nil {
			return err
		}
		out.ChargeCreated = created
		return s.apply(ctx, tx, charge, paid, in, &out)
	})
	if err != nil {
		return Applied{}, err
	}
	s.applied(ctx, out)
	return out, nil
}

// ApplyToCharge records a payment against a known charge.
func (s *Service) ApplyToCharge(ctx context.Context, chargeID uuid.UUID, in PaymentInput) (Applied, error) {
	if err := CheckAmount(in.Amount); err != nil {
		return Applied{}, err
	}
	var out Applied
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		charge, err := tx.GetChargeForUpdate(ctx, chargeID)
		if err != nil {
			return err
		}
		paid := DateOnly(in.PaidDate)
		if in.PaidDate.IsZero() {
			paid = charge.DueDate
		}
		return s.apply(ctx, tx, charge, paid, in, &out)
	})
	if err != nil {
		return Applied{}, err
	}
	s.applied(ctx, out)
	return out, nil
}

func (s *Service) apply(ctx context.Context, tx Tx, charge entity.Charge, paid time.Time, in PaymentInput, out *Applied) error {
	if charge.State == constants.ChargeWrittenOff {
		return fmt.Errorf("charge %s: %w", charge.ID, ErrChargeClosed)
	}
	p := entity.Payment{
		ID:         uuid.New(),
		ChargeID:   charge.ID,
		AmountPaid: in.Amount,
		PaidDate:   paid,
		Method:     in.Method,
		Reference:  in.Reference,
		CreatedAt:  s.now().UTC(),
	}
	if err := tx.InsertPayment(ctx, p); err != nil {
		return err
	}
	payments, err := tx.ListPayments(ctx, charge.ID)
	if err != nil {
		return err
	}
	state := DeriveState(charge.Target(), payments)
	paidDate := PaidDate(charge, state, paid)
	if err := tx.UpdateChargeState(ctx, charge.ID, state, paidDate); err != nil {
		return err
	}
	charge.State, charge.PaidDate = state, paidDate
	out.Charge, out.Payment = charge, p
	out.TotalPaid = sum(payments)
	return nil
}

func (s *Service) applied(ctx context.Context, out Applied) {
	s.metrics.IncrPayment(string(out.Charge.State))
	common.LoggerFromContext(ctx, s.logger).Info("ledger.payment.applied",
		"charge_id", out.Charge.ID,
		"period", out.Charge.Period.Format(time.DateOnly),
		"amount", out.Payment.AmountPaid.String(),
		"total_paid", out.TotalPaid.String(),
		"target", out.Charge.Target().String(),
		"state", out.Charge.State,
		"charge_created", out.ChargeCreated,
	)
}

// ScheduleContract creates the PENDING charge of every month the contract
// covers. Months that already have a charge are left as they are.
func (s *Service) ScheduleContract(ctx context.Context, c entity.Contract) ([]entity.Charge, error) {
	if c.ID == uuid.Nil {
		return nil, common.Validationf("contract id is required")
	}
	if err := CheckAmount(c.MonthlyRent); err != nil {
		return nil, err
	}
	first, last := Period(c.StartDate), Period(c.EndDate)
	if last.Before(first) {
		return nil, common.Validationf("contract ends (%s) before it starts (%s)",
			c.EndDate.Format(time.DateOnly), c.StartDate.Format(time.DateOnly))
	}
	payDay := c.PayDay
	if payDay == 0 {
		payDay = constants.DefaultPayDay
	}

	var charges []entity.Charge
	created := 0
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		charges, created = charges[:0], 0
		for p := first; !p.After(last); p = p.AddDate(0, 1, 0) {
			ch, isNew, err := tx.GetOrCreateCharge(ctx, entity.Charge{
				ID:             uuid.New(),
				ContractID:     c.ID,
				Period:         p,
				OriginalAmount: c.MonthlyRent,
				DueDate:        DueDate(p, payDay),
				State:          constants.ChargePending,
			})
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
			charges = append(charges, ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	common.LoggerFromContext(ctx, s.logger).Info("ledger.schedule.done",
		"contract_id", c.ID, "months", len(charges), "created", created)
	return charges, nil
}

func sum(payments []entity.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return total
}
