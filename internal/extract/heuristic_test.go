package extract_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/internal/extract"
)

const leaseText = `CONTRATO DE ARRENDAMIENTO

En Copiapó, a 1° de abril de 2003, comparecen: ARRENDADOR: don Héctor Patricio Olave Fara, cédula nacional de identidad N° 9.647.123-8, domiciliado en Atacama; y ARRENDATARIA: la Intendencia Regional de Atacama, RUT 60.511.030-4, quienes convienen lo siguiente.

PRIMERO: El arrendador da en arriendo el inmueble ubicado en calle Colipí N° 611, Copiapó; destinado a oficinas.
SEGUNDO: El presente contrato comenzará a regir el día 1 de abril de 2003 y terminará el día 31 de diciembre de 2003.
TERCERO: La renta mensual será de $350.000, pagadera dentro de los cinco primeros días hábiles de cada mes.
CUARTO: Se entrega una garantía de $350.000.
`

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func mustDate(t *testing.T, name string, got *time.Time, want time.Time) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %s", name, want.Format("2006-01-02"))
	}
	if !got.Equal(want) {
		t.Fatalf("%s: got %s, want %s", name, got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func mustString(t *testing.T, name string, got *string, want string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s: got nil, want %q", name, want)
	}
	if *got != want {
		t.Fatalf("%s: got %q, want %q", name, *got, want)
	}
}

func mustRent(t *testing.T, got *decimal.Decimal, want string) {
	t.Helper()
	if got == nil {
		t.Fatalf("monthly_rent: got nil, want %s", want)
	}
	if got.StringFixed(2) != want {
		t.Fatalf("monthly_rent: got %s, want %s", got.StringFixed(2), want)
	}
}

func TestExtract_FullLease(t *testing.T) {
	f := extract.Extract(leaseText)

	mustDate(t, "start_date", f.StartDate, date(2003, time.April, 1))
	mustDate(t, "end_date", f.EndDate, date(2003, time.December, 31))
	if f.PayDay == nil || *f.PayDay != 5 {
		t.Fatalf("pay_day: got %v, want 5", f.PayDay)
	}
	mustRent(t, f.MonthlyRent, "350000.00")
	mustString(t, "owner_tax_id", f.OwnerTaxID, "9.647.123-8")
	mustString(t, "owner_name", f.OwnerName, "Héctor Patricio Olave Fara")
	mustString(t, "tenant_tax_id", f.TenantTaxID, "60.511.030-4")
	mustString(t, "tenant_name", f.TenantName, "Intendencia Regional de Atacama")
	mustString(t, "address", f.Address, "calle Colipí N° 611, Copiapó")
}

func TestAnalyze_LabeledDatesOutrankPositional(t *testing.T) {
	r := extract.Analyze(leaseText)
	if len(r.StartDate) == 0 || r.StartDate[0].Rule != extract.RuleLabeledPhrase {
		t.Fatalf("expected labeled phrase to rank first, got %+v", r.StartDate)
	}
	if len(r.EndDate) == 0 || r.EndDate[0].Rule != extract.RuleLabeledPhrase {
		t.Fatalf("expected labeled phrase to rank first, got %+v", r.EndDate)
	}
}

func TestAnalyze_OtherTaxIDsKeptAsAlternatives(t *testing.T) {
	r := extract.Analyze(leaseText)
	if len(r.OwnerTaxID) != 1 || r.OwnerTaxID[0].Rule != extract.RuleLabeledTaxID {
		t.Fatalf("owner candidates: %+v", r.OwnerTaxID)
	}
	r = extract.Analyze("ARRENDADOR: Juan Soto, RUT 12.345.678-5. Testigo: Ana Díaz, RUT 9.647.123-8. ARRENDATARIO: Pedro Rojas, RUT 60.511.030-4.")
	if len(r.OwnerTaxID) != 2 {
		t.Fatalf("expected labeled plus one alternative, got %+v", r.OwnerTaxID)
	}
	if r.OwnerTaxID[1].Value != "9.647.123-8" || r.OwnerTaxID[1].Rule != extract.RuleOtherTaxID {
		t.Fatalf("unexpected alternative: %+v", r.OwnerTaxID[1])
	}
}

func TestExtract_RentScenarios(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		rule string
	}{
		{
			name: "labeled rent",
			text: "Las partes acuerdan que la renta mensual $350.000 se pagará por mes anticipado en la calle Colipí 611.",
			want: "350000.00",
			rule: extract.RuleLabeledAmount,
		},
		{
			name: "max heuristic without label",
			text: "El estacionamiento cuesta $611 diarios. Se pagará mensualmente la suma de $350.000. Los gastos comunes ascienden a $12.000.",
			want: "350000.00",
			rule: extract.RuleMaxAmount,
		},
		{
			name: "canon with decimals",
			text: "El canon asciende a $ 420.500,50 por mes.",
			want: "420500.50",
			rule: extract.RuleLabeledAmount,
		},
		{
			name: "grouped figure without currency sign",
			text: "La renta será 275.000 pesos.",
			want: "275000.00",
			rule: extract.RuleLabeledAmount,
		},
		{
			name: "ungrouped figure after label",
			text: "Renta mensual 350000",
			want: "350000.00",
			rule: extract.RuleLabeledAmount,
		},
		{
			name: "currency token beats a bare year after label",
			text: "La renta desde el año 2004 será de $380.000 mensuales.",
			want: "380000.00",
			rule: extract.RuleLabeledAmount,
		},
		{
			// known heuristic: a larger unrelated figure wins when nothing is labeled
			name: "max heuristic picks larger unrelated figure",
			text: "Se pagarán $350.000 mensuales y una multa de $1.000.000 por atraso.",
			want: "1000000.00",
			rule: extract.RuleMaxAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := extract.Analyze(tt.text)
			mustRent(t, r.Fields().MonthlyRent, tt.want)
			if r.MonthlyRent[0].Rule != tt.rule {
				t.Fatalf("rule: got %s, want %s", r.MonthlyRent[0].Rule, tt.rule)
			}
		})
	}
}

func TestAnalyze_RentAlternativesRanked(t *testing.T) {
	r := extract.Analyze("Se pagará mensualmente la suma de $350.000. Gastos comunes $12.000. Estacionamiento $611.")
	if len(r.MonthlyRent) != 3 {
		t.Fatalf("expected 3 rent candidates, got %d: %+v", len(r.MonthlyRent), r.MonthlyRent)
	}
	for i := 1; i < len(r.MonthlyRent); i++ {
		if r.MonthlyRent[i].Confidence > r.MonthlyRent[i-1].Confidence {
			t.Fatalf("candidates not ranked: %+v", r.MonthlyRent)
		}
	}
}

func TestExtract_RentIgnoresTaxIDs(t *testing.T) {
	f := extract.Extract("Pago a don Juan Soto, RUT 12.345.678-5, por $90.000.")
	mustRent(t, f.MonthlyRent, "90000.00")
}

func TestExtract_WrittenDatePositions(t *testing.T) {
	// The positional rule is a guess: with three or more dates the first is
	// assumed to be the signing date.
	tests := []struct {
		name      string
		text      string
		wantStart *time.Time
		wantEnd   *time.Time
	}{
		{
			name:      "three dates take second and third",
			text:      "Firmado el 15 de marzo de 2020. Vigencia desde 1 de abril de 2020 hasta 31 de marzo de 2021.",
			wantStart: ptr(date(2020, time.April, 1)),
			wantEnd:   ptr(date(2021, time.March, 31)),
		},
		{
			name:      "two dates take first and second",
			text:      "Vigencia desde 1 de abril de 2020 hasta 31 de marzo de 2021.",
			wantStart: ptr(date(2020, time.April, 1)),
			wantEnd:   ptr(date(2021, time.March, 31)),
		},
		{
			name:      "one date is the start only",
			text:      "Vigencia desde 1 de abril del 2020.",
			wantStart: ptr(date(2020, time.April, 1)),
		},
		{
			name: "impossible day is skipped",
			text: "Vigencia desde 31 de febrero de 2020.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extract.Extract(tt.text)
			checkDate(t, "start_date", f.StartDate, tt.wantStart)
			checkDate(t, "end_date", f.EndDate, tt.wantEnd)
		})
	}
}

func TestExtract_LabeledStartKeepsUnlabeledEndEmpty(t *testing.T) {
	text := "El contrato comenzará a regir el día 1 de abril de 2003. Firmado 5 de enero de 2003, 7 de febrero de 2003, 9 de marzo de 2004."
	f := extract.Extract(text)
	mustDate(t, "start_date", f.StartDate, date(2003, time.April, 1))
	if f.EndDate != nil {
		t.Fatalf("end_date: got %s, want none", f.EndDate.Format("2006-01-02"))
	}
	r := extract.Analyze(text)
	for _, c := range r.StartDate[1:] {
		if c.Rule != extract.RuleWrittenOther {
			t.Fatalf("unlabeled start alternative with rule %s", c.Rule)
		}
	}
}

func TestExtract_EndNeverBeforeStart(t *testing.T) {
	f := extract.Extract("Vigencia desde 1 de abril de 2020 hasta 31 de marzo de 2019.")
	mustDate(t, "start_date", f.StartDate, date(2020, time.April, 1))
	if f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		t.Fatalf("end_date %s before start", f.EndDate.Format("2006-01-02"))
	}
}

func TestExtract_LabeledNumericDates(t *testing.T) {
	f := extract.Extract("Fecha de inicio: 01-04-2003. Fecha de término: 31/12/03.")
	mustDate(t, "start_date", f.StartDate, date(2003, time.April, 1))
	mustDate(t, "end_date", f.EndDate, date(2003, time.December, 31))
}

func TestParseNumericDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"01-04-2003", date(2003, time.April, 1), true},
		{"1/4/2003", date(2003, time.April, 1), true},
		{"31-12-03", date(2003, time.December, 31), true},
		{"31/12/99", date(1999, time.December, 31), true},
		{"32/01/2003", time.Time{}, false},
		{"hello", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := extract.ParseNumericDate(tt.in)
		if ok != tt.ok || (ok && !got.Equal(tt.want)) {
			t.Errorf("ParseNumericDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtract_PayDay(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *int
	}{
		{"digits", "La renta se pagará dentro de los 10 primeros días hábiles de cada mes.", ptr(10)},
		{"word", "pagadera dentro de los cinco primeros días hábiles", ptr(5)},
		{"word with digits", "dentro de los tres (3) primeros dias habiles", ptr(3)},
		{"labeled integer", "Día de pago: 7 de cada mes.", ptr(7)},
		{"day of each month", "se pagará el día 15 de cada mes", ptr(15)},
		{"out of range", "Día de pago: 45.", nil},
		{"absent", "Sin indicación alguna.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Extract(tt.text).PayDay
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("got %d, want absent", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Fatalf("got %v, want %d", got, *tt.want)
			}
		})
	}
}

func TestExtract_GenericTaxIDFallbackIsPositional(t *testing.T) {
	// No role labels: the first tax ID goes to the owner and the second to the
	// tenant. Nothing checks the roles, so they may be swapped in real documents.
	f := extract.Extract("Comparecen Juan Pérez Soto, 12.345.678-5, y María González, 9.647.123-8, quienes acuerdan.")
	mustString(t, "owner_tax_id", f.OwnerTaxID, "12.345.678-5")
	mustString(t, "owner_name", f.OwnerName, "Juan Pérez Soto")
	mustString(t, "tenant_tax_id", f.TenantTaxID, "9.647.123-8")
	mustString(t, "tenant_name", f.TenantName, "María González")
}

func TestExtract_OneLabelFallsBackToPosition(t *testing.T) {
	// "en adelante el arrendador" trails the owner, so the label is followed
	// by the tenant's tax ID; only a trailing tenant label has nothing after it.
	text := "Comparecen, entre don HECTOR PATRICIO OLAVE FARA, RUT 9.647.123-8, en adelante el arrendador, " +
		"y la INTENDENCIA REGIONAL DE ATACAMA, RUT 60.511.030-4, en adelante la arrendataria."
	f := extract.Extract(text)
	mustString(t, "owner_tax_id", f.OwnerTaxID, "9.647.123-8")
	mustString(t, "owner_name", f.OwnerName, "HECTOR PATRICIO OLAVE FARA")
	mustString(t, "tenant_tax_id", f.TenantTaxID, "60.511.030-4")
	mustString(t, "tenant_name", f.TenantName, "INTENDENCIA REGIONAL DE ATACAMA")

	r := extract.Analyze(text)
	if r.OwnerTaxID[0].Rule != extract.RuleGenericTaxID {
		t.Fatalf("owner top rule = %s, want %s", r.OwnerTaxID[0].Rule, extract.RuleGenericTaxID)
	}
	var labeled bool
	for _, c := range r.OwnerTaxID[1:] {
		if c.Rule == extract.RuleLabeledTaxID && c.Value == "60.511.030-4" {
			labeled = c.Confidence < r.OwnerTaxID[0].Confidence
		}
	}
	if !labeled {
		t.Fatalf("labeled hit not kept as a lower alternative: %+v", r.OwnerTaxID)
	}
}

func TestExtract_TenantLabelOnlyStillPositional(t *testing.T) {
	f := extract.Extract("ARRENDATARIO: Pedro Soto, RUT 9.647.123-8. Además firma Ana Díaz, RUT 12.345.678-5.")
	mustString(t, "owner_tax_id", f.OwnerTaxID, "9.647.123-8")
	mustString(t, "tenant_tax_id", f.TenantTaxID, "12.345.678-5")
}

func TestExtract_UppercaseNamesDropTitles(t *testing.T) {
	f := extract.Extract("EL ARRENDADOR DON HECTOR PATRICIO OLAVE FARA, CÉDULA NACIONAL DE IDENTIDAD N° 9.647.123-8.")
	mustString(t, "owner_name", f.OwnerName, "HECTOR PATRICIO OLAVE FARA")
}

func TestExtract_NeverFails(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t ",
		"$",
		"$$$ ... ,,, ---",
		"9.647.123-",
		"regirá el día de",
		"arrendador arrendatario propietario",
		"primeros días hábiles",
		string([]byte{0xff, 0xfe, 0x00}),
	}
	for _, in := range inputs {
		f := extract.Extract(in)
		if in == "" && !f.IsEmpty() {
			t.Fatalf("empty text produced fields: %+v", f)
		}
	}
}

func checkDate(t *testing.T, name string, got, want *time.Time) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Fatalf("%s: got %s, want absent", name, got.Format("2006-01-02"))
	case want != nil:
		mustDate(t, name, got, *want)
	}
}

func ptr[T any](v T) *T { return &v }
