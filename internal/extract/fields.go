// Package extract recovers contract fields from lease text and merges them
// with the fields returned by the AI extractor.
package extract

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ExtractedFields is a best-effort bag of contract fields. Every field is
// independently optional; nil means "no value".
type ExtractedFields struct {
	StartDate   *time.Time
	EndDate     *time.Time
	PayDay      *int
	MonthlyRent *decimal.Decimal
	TenantName  *string
	TenantTaxID *string
	OwnerName   *string
	OwnerTaxID  *string
	Address     *string
}

// IsEmpty reports whether no field carries a value.
func (f ExtractedFields) IsEmpty() bool {
	return f.StartDate == nil && f.EndDate == nil && f.PayDay == nil &&
		f.MonthlyRent == nil && f.TenantName == nil && f.TenantTaxID == nil &&
		f.OwnerName == nil && f.OwnerTaxID == nil && f.Address == nil
}

// Count returns the number of fields with a value.
func (f ExtractedFields) Count() int {
	n := 0
	for _, present := range []bool{
		f.StartDate != nil, f.EndDate != nil, f.PayDay != nil, f.MonthlyRent != nil,
		f.TenantName != nil, f.TenantTaxID != nil, f.OwnerName != nil, f.OwnerTaxID != nil,
		f.Address != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

type fieldsJSON struct {
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

// MarshalJSON renders dates as YYYY-MM-DD and money as a fixed two-decimal string.
func (f ExtractedFields) MarshalJSON() ([]byte, error) {
	out := fieldsJSON{
		PayDay:      f.PayDay,
		TenantName:  f.TenantName,
		TenantTaxID: f.TenantTaxID,
		OwnerName:   f.OwnerName,
		OwnerTaxID:  f.OwnerTaxID,
		Address:     f.Address,
	}
	if f.StartDate != nil {
		s := f.StartDate.Format(dateLayout)
		out.StartDate = &s
	}
	if f.EndDate != nil {
		s := f.EndDate.Format(dateLayout)
		out.EndDate = &s
	}
	if f.MonthlyRent != nil {
		s := f.MonthlyRent.StringFixed(2)
		out.MonthlyRent = &s
	}
	return json.Marshal(out)
}

// Candidate is one possible value for a field together with the rule that
// produced it and a confidence in [0,1].
type Candidate[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	Rule       string  `json:"rule"`
	Offset     int     `json:"offset"` // byte offset in the analysed text
}

// Rules that produce candidates.
const (
	RuleLabeledPhrase  = "labeled_phrase"
	RuleLabeledNumeric = "labeled_numeric"
	RulePositional     = "positional"
	RuleWrittenOther   = "written_other"
	RuleBusinessDays   = "business_days"
	RuleBusinessWord   = "business_days_word"
	RuleLabeledInteger = "labeled_integer"
	RuleLabeledAmount  = "labeled_amount"
	RuleMaxAmount      = "max_amount"
	RuleOtherAmount    = "other_amount"
	RuleLabeledTaxID   = "labeled_tax_id"
	RuleGenericTaxID   = "generic_tax_id"
	RuleOtherTaxID     = "other_tax_id"
	RuleNameNearTaxID  = "name_near_tax_id"
	RuleLocatedAt      = "located_at"
)

// Report holds every candidate the heuristic extractor found, ranked by
// confidence (highest first, ties keep text order).
type Report struct {
	StartDate   []Candidate[time.Time]       `json:"start_date,omitempty"`
	EndDate     []Candidate[time.Time]       `json:"end_date,omitempty"`
	PayDay      []Candidate[int]             `json:"pay_day,omitempty"`
	MonthlyRent []Candidate[decimal.Decimal] `json:"monthly_rent,omitempty"`
	TenantTaxID []Candidate[string]          `json:"tenant_tax_id,omitempty"`
	TenantName  []Candidate[string]          `json:"tenant_name,omitempty"`
	OwnerTaxID  []Candidate[string]          `json:"owner_tax_id,omitempty"`
	OwnerName   []Candidate[string]          `json:"owner_name,omitempty"`
	Address     []Candidate[string]          `json:"address,omitempty"`
}

// Fields picks the top candidate of every list.
func (r Report) Fields() ExtractedFields {
	return ExtractedFields{
		StartDate:   top(r.StartDate),
		EndDate:     top(r.EndDate),
		PayDay:      top(r.PayDay),
		MonthlyRent: top(r.MonthlyRent),
		TenantName:  top(r.TenantName),
		TenantTaxID: top(r.TenantTaxID),
		OwnerName:   top(r.OwnerName),
		OwnerTaxID:  top(r.OwnerTaxID),
		Address:     top(r.Address),
	}
}

func top[T any](cs []Candidate[T]) *T {
	if len(cs) == 0 {
		return nil
	}
	v := cs[0].Value
	return &v
}

// rank sorts by confidence and drops repeated values, keeping the best-scored copy.
func rank[T any](cs []Candidate[T], key func(T) string) []Candidate[T] {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Confidence > cs[j].Confidence })
	seen := make(map[string]struct{}, len(cs))
	out := cs[:0]
	for _, c := range cs {
		k := key(c.Value)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dateKey(t time.Time) string          { return t.Format(dateLayout) }
func intKey(i int) string                 { return strconv.Itoa(i) }
func decimalKey(d decimal.Decimal) string { return d.StringFixed(2) }
func stringKey(s string) string           { return s }
