package llm

import (
	"strings"
	"unicode/utf8"
)

// ContractSystemPrompt lists the keys and the extraction rules for Chilean leases.
func ContractSystemPrompt() string {
	parts := []string{
		"Eres un extractor de contratos de arriendo en Chile. Devuelve SOLO un objeto JSON plano con estas claves exactas:",
		"start_date (YYYY-MM-DD), end_date (YYYY-MM-DD), pay_day (entero 1-31), monthly_rent (string decimal en CLP, sin simbolos ni separador de miles),",
		"tenant_name, tenant_tax_id, owner_name, owner_tax_id, address.",
		"Reglas: 1) No inventes; si un dato falta usa null.",
		"2) Fechas en ISO; si hay varias, usa el inicio y el termino de la vigencia del contrato, no la fecha de firma.",
		"3) Dia de pago: si dice 'cinco primeros dias habiles' usa 5.",
		"4) Renta: el monto mensual del arriendo, no garantias ni multas.",
		"5) RUT: copia el que aparece (formato 9.999.999-9); nunca generes uno.",
		"6) address: texto breve del inmueble arrendado.",
		"7) Nombres: sin conectores ('entre', 'con', 'y'), articulos ('el', 'la') ni titulos ('don', 'doña', 'sr', 'sra'); solo el nombre completo o la razon social.",
		"8) tenant es el arrendatario; owner es el arrendador o propietario.",
		`Ejemplo: {"tenant_name": "Intendencia Regional de Atacama", "tenant_tax_id": "60.511.030-4", "owner_name": "Hector Patricio Olave Fara", "owner_tax_id": "9.647.123-8", "start_date": "2003-04-01", "end_date": "2003-12-31", "pay_day": 5, "monthly_rent": "350000", "address": "Colipi 611, Copiapo, Atacama"}.`,
		"Sin texto extra ni backticks.",
	}
	return strings.Join(parts, " ")
}

// ContractUserPrompt packages the document text, cut to maxChars runes.
func ContractUserPrompt(text, filename string, maxChars int) string {
	var b strings.Builder
	if f := strings.TrimSpace(filename); f != "" {
		b.WriteString("Archivo: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("Texto del contrato:\n")
	b.WriteString(TruncateRunes(strings.TrimSpace(text), maxChars))
	return b.String()
}

// PaymentSystemPrompt asks for the four receipt keys.
func PaymentSystemPrompt() string {
	return strings.Join([]string{
		"Eres un lector de comprobantes de pago en Chile. Devuelve SOLO un objeto JSON plano con estas claves exactas:",
		"amount_paid (string decimal en CLP, sin puntos de miles), paid_date (YYYY-MM-DD),",
		"method (texto corto como 'transferencia' o el banco), reference (codigo de transaccion u observacion).",
		"Si falta un dato usa null. No inventes montos.",
	}, " ")
}

// TruncateRunes cuts s to at most max runes; max <= 0 means no limit.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for n := 0; n < max; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
