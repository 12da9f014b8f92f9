package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/extract"
	"github.com/joseph-ayodele/leases-tracker/internal/identity"
	"github.com/joseph-ayodele/leases-tracker/internal/ledger"
	"github.com/joseph-ayodele/leases-tracker/internal/llm"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/ocr"
	"github.com/joseph-ayodele/leases-tracker/internal/repository"
)

const leaseText = `CONTRATO DE ARRENDAMIENTO

En Copiapó, a 1° de abril de 2003, comparecen: ARRENDADOR: don Héctor Patricio Olave Fara, cédula nacional de identidad N° 9.647.123-8, domiciliado en Atacama; y ARRENDATARIA: la Intendencia Regional de Atacama, RUT 60.511.030-4, quienes convienen lo siguiente.

PRIMERO: El arrendador da en arriendo el inmueble ubicado en calle Colipí N° 611, Copiapó; destinado a oficinas.
SEGUNDO: El presente contrato comenzará a regir el día 1 de abril de 2003 y terminará el día 31 de diciembre de 2003.
TERCERO: La renta mensual será de $350.000, pagadera dentro de los cinco primeros días hábiles de cada mes.
`

type staticText struct {
	text  string
	calls atomic.Int32
}

func (s *staticText) Text(context.Context, ocr.Document) string {
	s.calls.Add(1)
	return s.text
}

type fakeContractAI struct {
	fields      extract.ExtractedFields
	ok          bool
	got         llm.Input
	hadDeadline bool
}

func (f *fakeContractAI) ExtractContractFields(ctx context.Context, in llm.Input) (extract.ExtractedFields, bool) {
	f.got = in
	_, f.hadDeadline = ctx.Deadline()
	return f.fields, f.ok
}

type fakePaymentAI struct {
	answers []llm.PaymentFields
	got     []llm.Input
}

func (f *fakePaymentAI) ExtractPaymentFields(_ context.Context, in llm.Input) (llm.PaymentFields, bool) {
	f.got = append(f.got, in)
	if len(f.answers) == 0 {
		return llm.PaymentFields{}, false
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, true
}

type env struct {
	db        *repository.DB
	persons   repository.PersonRepository
	contracts repository.ContractRepository
	ledger    repository.LedgerRepository
	jobs      repository.ImportJobRepository
	service   *ledger.Service
	metrics   *observability.Metrics
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "pipeline.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	m := observability.NewMetrics()
	lr := repository.NewLedgerRepository(db, nil)
	return env{
		db:        db,
		persons:   repository.NewPersonRepository(db, nil),
		contracts: repository.NewContractRepository(db, nil),
		ledger:    lr,
		jobs:      repository.NewImportJobRepository(db, nil),
		service:   ledger.NewService(lr, m, nil),
		metrics:   m,
	}
}

func (e env) importer(text TextSource, ai llm.ContractExtractor) *ContractImporter {
	x := NewFieldExtractor(text, ai, time.Second, e.metrics, nil)
	return NewContractImporter(x, identity.NewResolver(e.persons, e.metrics, nil), e.contracts,
		ContractDefaults{}, e.metrics, nil, WithScheduler(e.service), WithImportJobs(e.jobs))
}

func pdfDoc() ocr.Document {
	return ocr.Document{Bytes: []byte("%PDF-1.4"), MIMEType: "application/pdf", Filename: "contrato.pdf"}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestImport_HeuristicOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res, err := e.importer(&staticText{text: leaseText}, nil).Import(ctx, ContractRequest{Document: pdfDoc()})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	c := res.Contract
	if !c.StartDate.Equal(day(2003, 4, 1)) || !c.EndDate.Equal(day(2003, 12, 31)) {
		t.Errorf("dates = %s..%s", c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly))
	}
	if !c.MonthlyRent.Equal(dec("350000")) || c.PayDay != 5 {
		t.Errorf("rent/pay day = %s/%d", c.MonthlyRent, c.PayDay)
	}
	if c.Status != constants.ContractActive || c.Currency != "CLP" || c.Notes != generatedNote {
		t.Errorf("defaults = %s %s %q", c.Status, c.Currency, c.Notes)
	}
	if res.Extraction.AIUsed {
		t.Error("AI reported as used without an extractor")
	}
	if res.Extraction.Provenance["monthly_rent"] != extract.SourceHeuristic {
		t.Errorf("provenance = %v", res.Extraction.Provenance)
	}

	tenant, err := e.persons.FindByTaxID(ctx, "605110304")
	if err != nil || tenant.ID != c.TenantID || tenant.DisplayName != "Intendencia Regional de Atacama" {
		t.Fatalf("tenant = %+v, %v", tenant, err)
	}
	owner, err := e.persons.FindByTaxID(ctx, "96471238")
	if err != nil || owner.ID != c.OwnerID || owner.Kind != constants.KindOwner {
		t.Fatalf("owner = %+v, %v", owner, err)
	}

	if res.Charges != 9 {
		t.Errorf("charges scheduled = %d, want 9 (April to December)", res.Charges)
	}
	job, err := e.jobs.Get(ctx, res.JobID)
	if err != nil || job.Status != string(constants.ImportImported) || job.ContractID == nil || *job.ContractID != c.ID {
		t.Errorf("job = %+v, %v", job, err)
	}
}

func TestImport_AIValuesWin(t *testing.T) {
	ai := &fakeContractAI{ok: true, fields: extract.ExtractedFields{
		MonthlyRent: ptr(dec("360000")),
		TenantName:  ptr("la Intendencia Regional"),
	}}
	e := newEnv(t)
	res, err := e.importer(&staticText{text: leaseText}, ai).Import(context.Background(), ContractRequest{Document: pdfDoc()})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Contract.MonthlyRent.Equal(dec("360000")) {
		t.Errorf("rent = %s, want AI value", res.Contract.MonthlyRent)
	}
	if res.Tenant.Person.DisplayName != "Intendencia Regional" {
		t.Errorf("tenant name = %q, want cleaned AI name", res.Tenant.Person.DisplayName)
	}
	if p := res.Extraction.Provenance; p["monthly_rent"] != extract.SourceAI || p["pay_day"] != extract.SourceHeuristic {
		t.Errorf("provenance = %v", p)
	}
	if ai.got.Text != leaseText || ai.got.Image != nil {
		t.Errorf("AI input text = %d chars, image = %d bytes", len(ai.got.Text), len(ai.got.Image))
	}
	if !ai.hadDeadline {
		t.Error("AI call ran without a deadline")
	}
}

func TestImport_AIFailureKeepsHeuristics(t *testing.T) {
	ai := &fakeContractAI{ok: false, fields: extract.ExtractedFields{MonthlyRent: ptr(dec("1"))}}
	e := newEnv(t)
	res, err := e.importer(&staticText{text: leaseText}, ai).Import(context.Background(), ContractRequest{Document: pdfDoc()})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Contract.MonthlyRent.Equal(dec("350000")) {
		t.Errorf("rent = %s", res.Contract.MonthlyRent)
	}
}

func TestImport_NoRentIsIncomplete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	res, err := e.importer(&staticText{text: "Contrato sin montos."}, nil).Import(ctx, ContractRequest{Document: pdfDoc()})
	if !errors.Is(err, ErrIncompleteContract) || !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	list, _ := e.contracts.List(ctx, "")
	if len(list) != 0 {
		t.Errorf("contracts stored = %d", len(list))
	}
	job, _ := e.jobs.Get(ctx, res.JobID)
	if job.Status != string(constants.ImportFailed) {
		t.Errorf("job status = %s", job.Status)
	}
}

func TestImport_UnreadableDocumentUsesDefaults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ci := e.importer(&staticText{}, nil)
	ci.now = func() time.Time { return time.Date(2025, 3, 10, 15, 4, 0, 0, time.UTC) }
	tenantID := uuid.New()

	res, err := ci.Import(ctx, ContractRequest{
		Document:     pdfDoc(),
		TenantRef:    tenantID.String(),
		FallbackRent: ptr(dec("250000")),
	})
	if err != nil {
		t.Fatal(err)
	}
	c := res.Contract
	if !c.StartDate.Equal(day(2025, 3, 10)) || !c.EndDate.Equal(day(2026, 3, 10)) || c.PayDay != 5 {
		t.Errorf("defaults = %s..%s day %d", c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly), c.PayDay)
	}
	if c.TenantID != tenantID || res.Tenant.Outcome != identity.OutcomeCreatedID {
		t.Errorf("tenant = %s (%s)", c.TenantID, res.Tenant.Outcome)
	}
	if res.Tenant.Person.DisplayName != constants.KindTenant.PlaceholderName() ||
		res.Owner.Person.DisplayName != constants.KindOwner.PlaceholderName() {
		t.Errorf("names = %q / %q", res.Tenant.Person.DisplayName, res.Owner.Person.DisplayName)
	}
	if c.PropertyID == uuid.Nil {
		t.Error("property id not assigned")
	}
}

func importedContract(t *testing.T, e env) uuid.UUID {
	t.Helper()
	res, err := e.importer(&staticText{text: leaseText}, nil).Import(context.Background(), ContractRequest{Document: pdfDoc()})
	if err != nil {
		t.Fatal(err)
	}
	return res.Contract.ID
}

func receiptDoc() ocr.Document {
	return ocr.Document{Bytes: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png", Filename: "comprobante.png"}
}

func TestReconcile_PartialThenPaid(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	contractID := importedContract(t, e)

	ai := &fakePaymentAI{answers: []llm.PaymentFields{
		{AmountPaid: ptr(dec("200000")), PaidDate: ptr(day(2003, 5, 6)), Method: ptr("transferencia")},
		{AmountPaid: ptr(dec("150000")), PaidDate: ptr(day(2003, 5, 20)), Reference: ptr("N° 4471")},
	}}
	text := &staticText{text: "unused"}
	rr := NewReceiptReconciler(text, ai, e.service, time.Second, e.metrics, nil)

	first, err := rr.Reconcile(ctx, ReceiptRequest{Document: receiptDoc(), ContractID: contractID})
	if err != nil {
		t.Fatal(err)
	}
	if first.Applied.Charge.State != constants.ChargePartial || first.Applied.ChargeCreated {
		t.Fatalf("first = %s created=%v", first.Applied.Charge.State, first.Applied.ChargeCreated)
	}
	second, err := rr.Reconcile(ctx, ReceiptRequest{Document: receiptDoc(), ContractID: contractID})
	if err != nil {
		t.Fatal(err)
	}
	if second.Applied.Charge.State != constants.ChargePaid || !second.Applied.Charge.PaidDate.Equal(day(2003, 5, 20)) {
		t.Fatalf("second = %s %v", second.Applied.Charge.State, second.Applied.Charge.PaidDate)
	}
	if second.Applied.Payment.Reference != "N° 4471" {
		t.Errorf("reference = %q", second.Applied.Payment.Reference)
	}
	if len(ai.got) != 2 || ai.got[0].Image == nil || ai.got[0].MIMEType != "image/png" {
		t.Errorf("AI inputs = %+v", ai.got)
	}
	if text.calls.Load() != 0 {
		t.Error("image receipt was sent through OCR")
	}
}

func TestReconcile_UnreadableWritesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	contractID := importedContract(t, e)
	rr := NewReceiptReconciler(&staticText{}, &fakePaymentAI{}, e.service, time.Second, nil, nil)

	_, err := rr.Reconcile(ctx, ReceiptRequest{Document: receiptDoc(), ContractID: contractID})
	if !errors.Is(err, ErrUnreadableReceipt) {
		t.Fatalf("err = %v", err)
	}
	payments, _ := e.ledger.ListPayments(ctx, contractID)
	if len(payments) != 0 {
		t.Errorf("payments = %d", len(payments))
	}
}

func TestReconcile_AmountProblems(t *testing.T) {
	e := newEnv(t)
	contractID := importedContract(t, e)
	for name, answer := range map[string]llm.PaymentFields{
		"no amount":       {PaidDate: ptr(day(2003, 6, 1))},
		"negative amount": {AmountPaid: ptr(dec("-5"))},
	} {
		t.Run(name, func(t *testing.T) {
			rr := NewReceiptReconciler(&staticText{}, &fakePaymentAI{answers: []llm.PaymentFields{answer}}, e.service, time.Second, nil, nil)
			_, err := rr.Reconcile(context.Background(), ReceiptRequest{Document: receiptDoc(), ContractID: contractID})
			if !errors.Is(err, ledger.ErrInvalidAmount) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestReconcile_ChargeDefaultsToDueDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	contractID := importedContract(t, e)
	charges, err := e.ledger.ListCharges(ctx, contractID)
	if err != nil || len(charges) == 0 {
		t.Fatalf("charges = %d, %v", len(charges), err)
	}
	june := charges[2]

	text := &staticText{text: "Comprobante de transferencia por $350.000"}
	ai := &fakePaymentAI{answers: []llm.PaymentFields{{AmountPaid: ptr(dec("350000"))}}}
	rr := NewReceiptReconciler(text, ai, e.service, time.Second, nil, nil)
	doc := ocr.Document{Bytes: []byte("%PDF"), MIMEType: "application/pdf", Filename: "comprobante.pdf"}

	res, err := rr.Reconcile(ctx, ReceiptRequest{Document: doc, ChargeID: june.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied.Payment.PaidDate.Equal(june.DueDate) || res.Applied.Charge.State != constants.ChargePaid {
		t.Errorf("payment = %v state %s", res.Applied.Payment.PaidDate, res.Applied.Charge.State)
	}
	if ai.got[0].Text != text.text || ai.got[0].Image != nil {
		t.Errorf("PDF receipt should be read as text: %+v", ai.got[0])
	}

	if _, err := rr.Reconcile(ctx, ReceiptRequest{Document: doc}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("missing target err = %v", err)
	}
}
