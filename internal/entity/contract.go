package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
)

// Contract represents a lease contract for data transfer between layers.
type Contract struct {
	ID          uuid.UUID                `json:"id"`
	PropertyID  uuid.UUID                `json:"property_id"`
	TenantID    uuid.UUID                `json:"tenant_id"`
	OwnerID     uuid.UUID                `json:"owner_id"`
	StartDate   time.Time                `json:"start_date"`
	EndDate     time.Time                `json:"end_date"`
	MonthlyRent decimal.Decimal          `json:"monthly_rent"`
	Currency    string                   `json:"currency"`
	PayDay      int                      `json:"pay_day"`
	Status      constants.ContractStatus `json:"status"`
	Notes       string                   `json:"notes,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}
