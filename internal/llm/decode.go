package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/internal/extract"
)

type contractJSON struct {
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	PayDay      *int    `json:"pay_day"`
	MonthlyRent *string `json:"monthly_rent"`
	TenantName  *string `json:"tenant_name"`
	TenantTaxID *string `json:"tenant_tax_id"`
	OwnerName   *string `json:"owner_name"`
	OwnerTaxID  *string `json:"owner_tax_id"`
	Address     *string `json:"address"`
}

type paymentJSON struct {
	AmountPaid *string `json:"amount_paid"`
	PaidDate   *string `json:"paid_date"`
	Method     *string `json:"method"`
	Reference  *string `json:"reference"`
}

// DecodeContractFields turns sanitized JSON into ExtractedFields.
// Names are cleaned the same way the merger cleans them.
func DecodeContractFields(doc []byte) (extract.ExtractedFields, error) {
	var c contractJSON
	if err := json.Unmarshal(doc, &c); err != nil {
		return extract.ExtractedFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	var f extract.ExtractedFields
	var err error
	if f.StartDate, err = parseDate(c.StartDate); err != nil {
		return extract.ExtractedFields{}, err
	}
	if f.EndDate, err = parseDate(c.EndDate); err != nil {
		return extract.ExtractedFields{}, err
	}
	if f.MonthlyRent, err = parseMoney(c.MonthlyRent); err != nil {
		return extract.ExtractedFields{}, err
	}
	f.PayDay = c.PayDay
	f.TenantName = cleanName(c.TenantName)
	f.OwnerName = cleanName(c.OwnerName)
	f.TenantTaxID = c.TenantTaxID
	f.OwnerTaxID = c.OwnerTaxID
	f.Address = c.Address
	return f, nil
}

// DecodePaymentFields turns sanitized receipt JSON into PaymentFields.
func DecodePaymentFields(doc []byte) (PaymentFields, error) {
	var p paymentJSON
	if err := json.Unmarshal(doc, &p); err != nil {
		return PaymentFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	var out PaymentFields
	var err error
	if out.AmountPaid, err = parseMoney(p.AmountPaid); err != nil {
		return PaymentFields{}, err
	}
	if out.PaidDate, err = parseDate(p.PaidDate); err != nil {
		return PaymentFields{}, err
	}
	out.Method = p.Method
	out.Reference = p.Reference
	return out, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", *s, err)
	}
	return &t, nil
}

func parseMoney(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", *s, err)
	}
	return &d, nil
}

func cleanName(s *string) *string {
	if s == nil {
		return nil
	}
	if n := extract.CleanName(*s); n != "" {
		return &n
	}
	return nil
}
