package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an amount applied against a Charge. Never mutated once stored.
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	ChargeID   uuid.UUID       `json:"charge_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	PaidDate   time.Time       `json:"paid_date"`
	Method     string          `json:"method,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
