package extract

import (
	"strings"
)

// Source tells which extractor supplied a merged field.
type Source string

const (
	SourceAI        Source = "ai"
	SourceHeuristic Source = "heuristic"
)

// Provenance maps a field's JSON name to the source that won it.
// Absent fields are not listed.
type Provenance map[string]Source

// leading tokens removed from AI-supplied names (compared folded)
var nameLeadTokens = map[string]struct{}{
	"entre": {}, "con": {}, "y": {}, "el": {}, "la": {}, "los": {}, "las": {},
	"don": {}, "dona": {}, "sr": {}, "sra": {}, "srta": {}, "senor": {}, "senora": {},
}

const nameTrimSet = ",;:.- \t\n"

// CleanName strips leading connector and title tokens ("entre", "con", "y",
// "el", "la", "don", "doña", "sr", "sra", "sr.", "sra.") and surrounding
// punctuation. It returns "" when nothing is left.
func CleanName(name string) string {
	s := strings.Trim(name, nameTrimSet)
	for {
		first, rest, found := strings.Cut(s, " ")
		if _, stop := nameLeadTokens[strings.TrimRight(fold(first), ".")]; !stop {
			break
		}
		if !found {
			return ""
		}
		s = strings.Trim(rest, nameTrimSet)
	}
	return strings.Join(strings.Fields(s), " ")
}

func cleanNamePtr(p *string) *string {
	if p == nil {
		return nil
	}
	if s := CleanName(*p); s != "" {
		return &s
	}
	return nil
}

func nonBlank(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// Merge combines AI and heuristic fields. For each field the AI value wins when
// present, then the heuristic value; otherwise the field stays absent. AI names
// are cleaned first, and a name that cleans to nothing counts as absent.
func Merge(ai, heuristic ExtractedFields) (ExtractedFields, Provenance) {
	prov := Provenance{}
	ai.TenantName = cleanNamePtr(ai.TenantName)
	ai.OwnerName = cleanNamePtr(ai.OwnerName)
	ai.TenantTaxID = nonBlank(ai.TenantTaxID)
	ai.OwnerTaxID = nonBlank(ai.OwnerTaxID)
	ai.Address = nonBlank(ai.Address)

	var out ExtractedFields
	out.StartDate = pick(ai.StartDate, heuristic.StartDate, "start_date", prov)
	out.EndDate = pick(ai.EndDate, heuristic.EndDate, "end_date", prov)
	out.PayDay = pick(ai.PayDay, heuristic.PayDay, "pay_day", prov)
	out.MonthlyRent = pick(ai.MonthlyRent, heuristic.MonthlyRent, "monthly_rent", prov)
	out.TenantName = pick(ai.TenantName, heuristic.TenantName, "tenant_name", prov)
	out.TenantTaxID = pick(ai.TenantTaxID, heuristic.TenantTaxID, "tenant_tax_id", prov)
	out.OwnerName = pick(ai.OwnerName, heuristic.OwnerName, "owner_name", prov)
	out.OwnerTaxID = pick(ai.OwnerTaxID, heuristic.OwnerTaxID, "owner_tax_id", prov)
	out.Address = pick(ai.Address, heuristic.Address, "address", prov)
	return out, prov
}

func pick[T any](ai, heuristic *T, field string, prov Provenance) *T {
	switch {
	case ai != nil:
		prov[field] = SourceAI
		v := *ai
		return &v
	case heuristic != nil:
		prov[field] = SourceHeuristic
		v := *heuristic
		return &v
	default:
		return nil
	}
}
