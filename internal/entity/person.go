package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
)

// Person represents a counterparty (tenant, owner, broker or supplier).
type Person struct {
	ID          uuid.UUID            `json:"id"`
	Kind        constants.PersonKind `json:"kind"`
	DisplayName string               `json:"display_name"`
	TaxID       *string              `json:"tax_id,omitempty"` // normalized RUT
	CreatedAt   time.Time            `json:"created_at"`
}
