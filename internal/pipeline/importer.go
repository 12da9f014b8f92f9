package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/extract"
	"github.com/joseph-ayodele/leases-tracker/internal/identity"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/ocr"
)

const generatedNote = "generated from contract document"

type Resolver interface {
	Resolve(ctx context.Context, req identity.Request) (identity.Result, error)
}

type ContractStore interface {
	Create(ctx context.Context, c entity.Contract) (entity.Contract, error)
}

type Scheduler interface {
	ScheduleContract(ctx context.Context, c entity.Contract) ([]entity.Charge, error)
}

// ImportJobs records each import attempt. Optional.
type ImportJobs interface {
	Start(ctx context.Context, filename string, format constants.Format) (entity.ImportJob, error)
	FinishSuccess(ctx context.Context, jobID, contractID uuid.UUID, fields []byte) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string, fields []byte) error
}

// ContractDefaults fill what the document does not say.
type ContractDefaults struct {
	PayDay   int
	Months   int
	Currency string
}

func DefaultsFrom(c common.LedgerConfig) ContractDefaults {
	return ContractDefaults{PayDay: c.DefaultPayDay, Months: c.ContractMonths, Currency: c.Currency}
}

// ContractRequest is one contract document plus what the caller already knows.
type ContractRequest struct {
	Document   ocr.Document
	PropertyID uuid.UUID
	// TenantRef and OwnerRef are optional ids, tax IDs or names that take
	// precedence over what the document says.
	TenantRef    string
	OwnerRef     string
	FallbackRent *decimal.Decimal
	Notes        string
}

type ContractResult struct {
	Contract   entity.Contract `json:"contract"`
	Tenant     identity.Result `json:"tenant"`
	Owner      identity.Result `json:"owner"`
	Extraction Extraction      `json:"extraction"`
	Charges    int             `json:"charges_scheduled"`
	JobID      uuid.UUID       `json:"job_id,omitempty"`
}

type ContractImporter struct {
	extractor *FieldExtractor
	resolver  Resolver
	contracts ContractStore
	scheduler Scheduler
	jobs      ImportJobs
	defaults  ContractDefaults
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type ImporterOption func(*ContractImporter)

// WithScheduler creates the contract's monthly charges after import.
func WithScheduler(s Scheduler) ImporterOption {
	return func(ci *ContractImporter) { ci.scheduler = s }
}

func WithImportJobs(j ImportJobs) ImporterOption {
	return func(ci *ContractImporter) { ci.jobs = j }
}

func NewContractImporter(
	extractor *FieldExtractor,
	resolver Resolver,
	contracts ContractStore,
	defaults ContractDefaults,
	metrics *observability.Metrics,
	logger *slog.Logger,
	opts ...ImporterOption,
) *ContractImporter {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.PayDay == 0 {
		defaults.PayDay = constants.DefaultPayDay
	}
	if defaults.Months == 0 {
		defaults.Months = 12
	}
	if defaults.Currency == "" {
		defaults.Currency = constants.DefaultCurrency
	}
	ci := &ContractImporter{
		extractor: extractor,
		resolver:  resolver,
		contracts: contracts,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(ci)
	}
	return ci
}

// Import extracts the document's fields, resolves tenant and owner, and
// stores the resulting contract.
func (ci *ContractImporter) Import(ctx context.Context, req ContractRequest) (ContractResult, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, ci.logger).With("filename", req.Document.Filename)

	var jobID uuid.UUID
	if ci.jobs != nil {
		job, err := ci.jobs.Start(ctx, req.Document.Filename, req.Document.Format())
		if err != nil {
			return ContractResult{}, err
		}
		jobID = job.ID
	}

	res, err := ci.run(ctx, req)
	res.JobID = jobID
	ci.metrics.ObserveOperation("contract_import", time.Since(start))
	if err != nil {
		logger.Warn("pipeline.contract.failed", "job_id", jobID, "error", err)
		ci.finish(ctx, logger, jobID, uuid.Nil, res.Extraction.Fields, err)
		return res, err
	}
	ci.finish(ctx, logger, jobID, res.Contract.ID, res.Extraction.Fields, nil)
	logger.Info("pipeline.contract.imported",
		"contract_id", res.Contract.ID,
		"tenant_id", res.Tenant.Person.ID,
		"owner_id", res.Owner.Person.ID,
		"monthly_rent", res.Contract.MonthlyRent.String(),
		"ai_used", res.Extraction.AIUsed,
		"charges", res.Charges,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (ci *ContractImporter) run(ctx context.Context, req ContractRequest) (ContractResult, error) {
	res := ContractResult{Extraction: ci.extractor.Extract(ctx, req.Document)}
	fields := res.Extraction.Fields

	rent := fields.MonthlyRent
	if rent == nil {
		rent = req.FallbackRent
	}
	if rent == nil || !rent.IsPositive() {
		return res, ErrIncompleteContract
	}

	var err error
	res.Tenant, err = ci.resolver.Resolve(ctx, identity.Request{
		Reference:     req.TenantRef,
		Role:          constants.KindTenant,
		FallbackName:  deref(fields.TenantName),
		FallbackTaxID: deref(fields.TenantTaxID),
	})
	if err != nil {
		return res, fmt.Errorf("resolve tenant: %w", err)
	}
	res.Owner, err = ci.resolver.Resolve(ctx, identity.Request{
		Reference:     req.OwnerRef,
		Role:          constants.KindOwner,
		FallbackName:  deref(fields.OwnerName),
		FallbackTaxID: deref(fields.OwnerTaxID),
	})
	if err != nil {
		return res, fmt.Errorf("resolve owner: %w", err)
	}

	c, err := ci.build(req, fields, *rent, res.Tenant.Person.ID, res.Owner.Person.ID)
	if err != nil {
		return res, err
	}
	if res.Contract, err = ci.contracts.Create(ctx, c); err != nil {
		return res, fmt.Errorf("store contract: %w", err)
	}
	if ci.scheduler != nil {
		charges, err := ci.scheduler.ScheduleContract(ctx, res.Contract)
		if err != nil {
			return res, fmt.Errorf("schedule charges: %w", err)
		}
		res.Charges = len(charges)
	}
	return res, nil
}

// build applies the defaults: start today, end after the configured number
// of months, the default pay day and currency, status ACTIVE.
func (ci *ContractImporter) build(req ContractRequest, f extract.ExtractedFields, rent decimal.Decimal, tenantID, ownerID uuid.UUID) (entity.Contract, error) {
	now := ci.now().UTC()
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if f.StartDate != nil {
		startDate = *f.StartDate
	}
	endDate := startDate.AddDate(0, ci.defaults.Months, 0)
	if f.EndDate != nil {
		endDate = *f.EndDate
	}
	if endDate.Before(startDate) {
		return entity.Contract{}, common.Validationf("contract ends (%s) before it starts (%s)",
			endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}
	payDay := ci.defaults.PayDay
	if f.PayDay != nil {
		payDay = *f.PayDay
	}
	propertyID := req.PropertyID
	if propertyID == uuid.Nil {
		propertyID = uuid.New()
	}
	notes := req.Notes
	if notes == "" {
		notes = generatedNote
	}
	return entity.Contract{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		TenantID:    tenantID,
		OwnerID:     ownerID,
		StartDate:   startDate,
		EndDate:     endDate,
		MonthlyRent: rent,
		Currency:    ci.defaults.Currency,
		PayDay:      payDay,
		Status:      constants.ContractActive,
		Notes:       notes,
	}, nil
}

func (ci *ContractImporter) finish(ctx context.Context, logger *slog.Logger, jobID, contractID uuid.UUID, fields extract.ExtractedFields, failure error) {
	if ci.jobs == nil || jobID == uuid.Nil {
		return
	}
	raw, _ := json.Marshal(fields)
	var err error
	if failure != nil {
		err = ci.jobs.FinishFailure(ctx, jobID, failure.Error(), raw)
	} else {
		err = ci.jobs.FinishSuccess(ctx, jobID, contractID, raw)
	}
	if err != nil {
		logger.Error("pipeline.contract.job_update_failed", "job_id", jobID, "error", err)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
