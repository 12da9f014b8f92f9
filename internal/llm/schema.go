package llm

const isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

// ContractSchema is the JSON-Schema (draft 2020-12 subset) the contract
// answer must satisfy after sanitizing. Every key is optional and nullable.
func ContractSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"start_date":    nullable("string", "pattern", isoDatePattern),
			"end_date":      nullable("string", "pattern", isoDatePattern),
			"pay_day":       map[string]any{"type": []string{"integer", "null"}, "minimum": 1, "maximum": 31},
			"monthly_rent":  decimalProp(),
			"tenant_name":   nullable("string"),
			"tenant_tax_id": nullable("string"),
			"owner_name":    nullable("string"),
			"owner_tax_id":  nullable("string"),
			"address":       nullable("string"),
		},
	}
}

// PaymentSchema is the receipt counterpart of ContractSchema.
func PaymentSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"amount_paid": decimalProp(),
			"paid_date":   nullable("string", "pattern", isoDatePattern),
			"method":      nullable("string"),
			"reference":   nullable("string"),
		},
	}
}

func nullable(typ string, kv ...string) map[string]any {
	m := map[string]any{"type": []string{typ, "null"}}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

func decimalProp() map[string]any {
	return nullable("string", "pattern", `^\d+(\.\d{1,2})?$`)
}
