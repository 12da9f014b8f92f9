package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/internal/extract"
)

// ErrNoJSON is returned when a model answer holds no JSON object.
var ErrNoJSON = errors.New("no json object in model output")

// UnwrapJSON strips code fences and a leading "json" tag and returns the
// outermost {...} of the answer.
func UnwrapJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimSpace(s[4:])
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(s[start : end+1]), nil
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindDate
	kindDay
	kindMoney
)

var contractFields = map[string]fieldKind{
	"start_date": kindDate, "end_date": kindDate, "pay_day": kindDay, "monthly_rent": kindMoney,
	"tenant_name": kindText, "tenant_tax_id": kindText, "owner_name": kindText, "owner_tax_id": kindText,
	"address": kindText,
}

// Spanish keys models tend to answer with.
var contractSynonyms = map[string]string{
	"fecha_inicio": "start_date", "fecha_fin": "end_date", "fecha_termino": "end_date",
	"dia_pago": "pay_day", "renta_mensual": "monthly_rent", "renta": "monthly_rent",
	"arrendatario_nombre": "tenant_name", "arrendatario_rut": "tenant_tax_id",
	"propietario_nombre": "owner_name", "propietario_rut": "owner_tax_id",
	"arrendador_nombre": "owner_name", "arrendador_rut": "owner_tax_id",
	"direccion": "address",
}

var paymentFields = map[string]fieldKind{
	"amount_paid": kindMoney, "paid_date": kindDate, "method": kindText, "reference": kindText,
}

var paymentSynonyms = map[string]string{
	"monto_pagado": "amount_paid", "monto": "amount_paid", "fecha_pago": "paid_date",
	"medio_pago": "method", "referencia": "reference",
}

// SanitizeContractJSON renames Spanish synonyms, drops nulls, empties and
// unknown keys, and coerces values into the shapes ContractSchema accepts.
func SanitizeContractJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	return sanitize(raw, contractFields, contractSynonyms, logger)
}

// SanitizePaymentJSON is the receipt counterpart of SanitizeContractJSON.
func SanitizePaymentJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	return sanitize(raw, paymentFields, paymentSynonyms, logger)
}

func sanitize(raw []byte, fields map[string]fieldKind, synonyms map[string]string, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)
	out := make(map[string]any, len(m))
	// canonical keys first so a synonym never overwrites them
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		_, ca := fields[a]
		_, cb := fields[b]
		switch {
		case ca && !cb:
			return -1
		case cb && !ca:
			return 1
		}
		return strings.Compare(a, b)
	})

	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		if to, ok := synonyms[name]; ok {
			name = to
		}
		kind, known := fields[name]
		if !known {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}
		v, ok := coerce(kind, m[k])
		if !ok {
			if m[k] != nil {
				dropped = append(dropped, k+"(invalid)")
			}
			continue
		}
		out[name] = v
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}

func coerce(kind fieldKind, v any) (any, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
			return nil, false
		}
		v = s
	}
	switch kind {
	case kindText:
		s, ok := v.(string)
		return s, ok
	case kindDate:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.Format("2006-01-02"), true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format("2006-01-02"), true
		}
		if t, ok := extract.ParseNumericDate(s); ok {
			return t.Format("2006-01-02"), true
		}
		return nil, false
	case kindDay:
		var n float64
		switch t := v.(type) {
		case float64:
			n = t
		case string:
			i, err := strconv.Atoi(t)
			if err != nil {
				return nil, false
			}
			n = float64(i)
		default:
			return nil, false
		}
		if n != math.Trunc(n) || n < 1 || n > 31 {
			return nil, false
		}
		return int(n), true
	case kindMoney:
		var d decimal.Decimal
		switch t := v.(type) {
		case float64:
			d = decimal.NewFromFloat(t)
			if d.Exponent() < -2 {
				return nil, false
			}
		case string:
			s := strings.TrimSpace(strings.TrimPrefix(t, "$"))
			s = strings.TrimSuffix(strings.TrimSuffix(s, "CLP"), "clp")
			s = strings.TrimSpace(s)
			p, ok := extract.ParseAmountString(s)
			if !ok {
				return nil, false
			}
			d = p
		default:
			return nil, false
		}
		if !d.IsPositive() {
			return nil, false
		}
		return d.StringFixed(2), true
	}
	return nil, false
}
