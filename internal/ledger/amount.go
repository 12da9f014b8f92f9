package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/extract"
)

var (
	// ErrInvalidAmount rejects a payment whose amount is missing, unparseable or not positive.
	ErrInvalidAmount = fmt.Errorf("invalid payment amount: %w", common.ErrValidation)
	// ErrChargeClosed rejects payments on a written-off charge.
	ErrChargeClosed = fmt.Errorf("charge is written off: %w", common.ErrConflict)
)

// ParseAmount accepts "350000", "350000.50", "350.000" and "350.000,50".
// Ambiguous shapes such as "350,000" are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, ok := extract.ParseAmountString(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", err, raw)
	}
	return d, nil
}

// CheckAmount rejects non-positive amounts.
func CheckAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidAmount, d.String())
	}
	return nil
}

// IsInvalidAmount reports whether err is an amount rejection.
func IsInvalidAmount(err error) bool { return errors.Is(err, ErrInvalidAmount) }
