package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/leases-tracker/internal/rut"
)

var (
	reTaxID = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2}\.\d{3}\.\d{3}\s?-\s?[\dkK]|\d{7,8}\s?-\s?[\dkK])\b`)

	reTenantLabel = regexp.MustCompile(`(?i)\b(?:arrendatari[oa]s?|arrendadora)\b`)
	reOwnerLabel  = regexp.MustCompile(`(?i)\b(?:arrendador|propietari[oa])\b`)

	// capitalized words, optionally joined by lowercase particles ("María de la Luz")
	reNameRun = regexp.MustCompile(`\p{Lu}[\p{L}'’.\-]*(?:(?:\s+(?:de|del|la|las|los|y|e)){0,2}\s+\p{Lu}[\p{L}'’.\-]*)*`)
)

const (
	taxIDLabelWindow = 200
	nameWindow       = 160
)

// nameStopWords are dropped from either end of a capitalized run (compared folded).
var nameStopWords = map[string]struct{}{
	"don": {}, "dona": {}, "sr": {}, "sra": {}, "srta": {}, "senor": {}, "senora": {}, "sres": {},
	"entre": {}, "con": {}, "y": {}, "e": {}, "el": {}, "la": {}, "los": {}, "las": {}, "de": {}, "del": {},
	"rut": {}, "run": {}, "n": {}, "no": {}, "nº": {}, "n°": {}, "nro": {}, "ci": {}, "c.i": {},
	"cedula": {}, "identidad": {}, "nacional": {}, "rol": {}, "unico": {}, "tributario": {},
	"arrendador": {}, "arrendadora": {}, "arrendatario": {}, "arrendataria": {},
	"propietario": {}, "propietaria": {}, "comparecen": {}, "comparece": {},
	"representada": {}, "representado": {}, "por": {}, "en": {}, "adelante": {},
	"domiciliado": {}, "domiciliada": {}, "contrato": {}, "arriendo": {},
}

type taxIDHit struct {
	raw        string
	normalized string
	start, end int
}

func findTaxIDs(text string, from, to int) []taxIDHit {
	from, to = window(text, from, to)
	seg := text[from:to]
	var out []taxIDHit
	for _, m := range reTaxID.FindAllStringSubmatchIndex(seg, -1) {
		raw := seg[m[2]:m[3]]
		out = append(out, taxIDHit{
			raw:        raw,
			normalized: rut.Normalize(raw),
			start:      from + m[2],
			end:        from + m[3],
		})
	}
	return out
}

// labeledTaxID returns the first tax ID found within the window after any
// occurrence of the label, plus where the label ended.
func labeledTaxID(text string, label *regexp.Regexp) (taxIDHit, int, bool) {
	for _, m := range label.FindAllStringIndex(text, -1) {
		if hits := findTaxIDs(text, m[1], m[1]+taxIDLabelWindow); len(hits) > 0 {
			return hits[0], m[1], true
		}
	}
	return taxIDHit{}, 0, false
}

// nameBefore returns the closest capitalized run in text[from:hit.start]
// after stop words are stripped, or "".
func nameBefore(text string, from, to int) string {
	if to-nameWindow > from {
		from = to - nameWindow
	}
	from, to = window(text, from, to)
	seg := text[from:to]
	matches := reNameRun.FindAllString(seg, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if name := stripStopWords(matches[i]); name != "" {
			return name
		}
	}
	return ""
}

func stripStopWords(run string) string {
	words := strings.Fields(run)
	isStop := func(w string) bool {
		_, ok := nameStopWords[strings.TrimRight(fold(w), ".:")]
		return ok
	}
	for len(words) > 0 && isStop(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isStop(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	letters := 0
	for _, w := range words {
		for _, r := range w {
			if r != '.' && r != '-' && r != '\'' && r != '’' {
				letters++
			}
		}
	}
	if letters < 3 {
		return ""
	}
	name := strings.TrimRight(strings.Join(words, " "), ",;:-")
	// drop a sentence period but keep abbreviations such as "S.A."
	if last := words[len(words)-1]; strings.HasSuffix(name, ".") && strings.Count(last, ".") == 1 {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

func taxIDConfidence(base float64, h taxIDHit) float64 {
	if rut.Valid(h.normalized) {
		return base
	}
	return base - 0.1
}

// analyzeParties fills tax ID and name candidates for both roles.
//
// When both labels are followed by a tax ID those hits win. Otherwise the
// generic scan assigns roles by position: the first tax ID to the owner and
// the second to the tenant. Position says nothing about the role, so the two
// can end up swapped; a labeled hit that lost is kept as a lower alternative.
func analyzeParties(text string, r *Report) {
	generic := findTaxIDs(text, 0, len(text))

	type pick struct {
		hit       taxIDHit
		nameFrom  int
		rule      string
		base      float64
		nameScale float64
		found     bool
	}
	labeled := func(label *regexp.Regexp) pick {
		if h, labelEnd, ok := labeledTaxID(text, label); ok {
			return pick{hit: h, nameFrom: labelEnd, rule: RuleLabeledTaxID, base: 0.95, nameScale: 0.85, found: true}
		}
		return pick{}
	}
	positional := func(i int) pick {
		if i >= len(generic) {
			return pick{}
		}
		h := generic[i]
		return pick{hit: h, nameFrom: prevEnd(generic, h), rule: RuleGenericTaxID, base: 0.45, nameScale: 0.8, found: true}
	}

	owner, tenant := labeled(reOwnerLabel), labeled(reTenantLabel)
	var ownerAlt, tenantAlt pick
	if !owner.found || !tenant.found {
		ownerAlt, tenantAlt = owner, tenant
		owner, tenant = positional(0), positional(1)
	}

	build := func(p, alt, other pick) ([]Candidate[string], []Candidate[string]) {
		var ids, names []Candidate[string]
		add := func(p pick, scale float64) {
			if !p.found {
				return
			}
			conf := taxIDConfidence(p.base, p.hit) * scale
			ids = append(ids, Candidate[string]{Value: p.hit.raw, Confidence: conf, Rule: p.rule, Offset: p.hit.start})
			if name := nameBefore(text, p.nameFrom, p.hit.start); name != "" {
				names = append(names, Candidate[string]{Value: name, Confidence: conf * p.nameScale, Rule: RuleNameNearTaxID, Offset: p.hit.start})
			}
		}
		add(p, 1)
		// a label that lost to position ranks below it
		add(alt, 0.3)
		for _, h := range generic {
			if (p.found && h.normalized == p.hit.normalized) || (other.found && h.normalized == other.hit.normalized) {
				continue
			}
			ids = append(ids, Candidate[string]{Value: h.raw, Confidence: taxIDConfidence(0.2, h), Rule: RuleOtherTaxID, Offset: h.start})
		}
		return rank(ids, func(s string) string { return rut.Normalize(s) }), rank(names, stringKey)
	}
	r.OwnerTaxID, r.OwnerName = build(owner, ownerAlt, tenant)
	r.TenantTaxID, r.TenantName = build(tenant, tenantAlt, owner)
}

// prevEnd is where the tax ID before h ends, bounding the name search.
func prevEnd(all []taxIDHit, h taxIDHit) int {
	end := 0
	for _, o := range all {
		if o.end <= h.start && o.end > end {
			end = o.end
		}
	}
	return end
}
