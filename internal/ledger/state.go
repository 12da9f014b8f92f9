package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
)

// DeriveState computes a charge's state from its target and the full set of
// its payments:
//
//	total >= target     -> PAID
//	0 < total < target  -> PARTIAL
//	total == 0          -> PENDING
//
// The result depends only on the payment multiset, never on insertion order.
func DeriveState(target decimal.Decimal, payments []entity.Payment) constants.ChargeState {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	switch {
	case total.IsPositive() && total.GreaterThanOrEqual(target):
		return constants.ChargePaid
	case total.IsPositive():
		return constants.ChargePartial
	default:
		return constants.ChargePending
	}
}

// PaidDate is the charge's paid date after a payment dated trigger moved it
// to state: the trigger date when the payment settles the charge, the
// earlier date when it was already PAID, nil otherwise.
func PaidDate(prev entity.Charge, state constants.ChargeState, trigger time.Time) *time.Time {
	if state != constants.ChargePaid {
		return nil
	}
	if prev.State == constants.ChargePaid && prev.PaidDate != nil {
		d := *prev.PaidDate
		return &d
	}
	return &trigger
}

// Period returns the first day (UTC) of the month containing t.
func Period(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DueDate is payDay of the period's month, clamped to the month's last day.
func DueDate(period time.Time, payDay int) time.Time {
	last := Period(period).AddDate(0, 1, -1).Day()
	if payDay < 1 {
		payDay = 1
	}
	if payDay > last {
		payDay = last
	}
	return time.Date(period.Year(), period.Month(), payDay, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock and zone.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
