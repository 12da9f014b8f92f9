package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
)

// Charge is the billing obligation of one contract for one calendar month.
// Period is always the first day of that month (UTC).
type Charge struct {
	ID             uuid.UUID             `json:"id"`
	ContractID     uuid.UUID             `json:"contract_id"`
	Period         time.Time             `json:"period"`
	OriginalAmount decimal.Decimal       `json:"original_amount"`
	AdjustedAmount *decimal.Decimal      `json:"adjusted_amount,omitempty"`
	DueDate        time.Time             `json:"due_date"`
	State          constants.ChargeState `json:"state"`
	PaidDate       *time.Time            `json:"paid_date,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Target is the amount that settles the charge.
func (c Charge) Target() decimal.Decimal {
	if c.AdjustedAmount != nil {
		return *c.AdjustedAmount
	}
	return c.OriginalAmount
}
