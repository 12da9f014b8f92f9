package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImportJob tracks one contract document through the import pipeline.
type ImportJob struct {
	ID         uuid.UUID  `json:"id"`
	Filename   string     `json:"filename"`
	Format     string     `json:"format"`
	Status     string     `json:"status"`
	Fields     []byte     `json:"fields,omitempty"` // merged fields as JSON
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
