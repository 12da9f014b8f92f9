package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
)

const contractsTable = "contracts"

var contractColumns = []string{
	"id", "property_id", "tenant_id", "owner_id", "start_date", "end_date",
	"monthly_rent", "currency", "pay_day", "status", "notes", "created_at",
}

type ContractRepository interface {
	Create(ctx context.Context, c entity.Contract) (entity.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (entity.Contract, error)
	List(ctx context.Context, status constants.ContractStatus) ([]entity.Contract, error)
}

type contractRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewContractRepository(db *DB, logger *slog.Logger) ContractRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &contractRepository{db: db, logger: logger}
}

func scanContract(r rowScanner) (entity.Contract, error) {
	var (
		c          entity.Contract
		start, end dateCol
		status     string
		created    tsCol
	)
	if err := r.Scan(&c.ID, &c.PropertyID, &c.TenantID, &c.OwnerID, &start, &end,
		&c.MonthlyRent, &c.Currency, &c.PayDay, &status, &c.Notes, &created); err != nil {
		return entity.Contract{}, err
	}
	c.StartDate, c.EndDate = start.Time, end.Time
	c.Status = constants.ContractStatus(status)
	c.CreatedAt = created.Time
	return c, nil
}

// Create stores a contract. Contracts are never updated afterwards.
func (r *contractRepository) Create(ctx context.Context, c entity.Contract) (entity.Contract, error) {
	err := common.NewValidator().
		Field("property_id", c.PropertyID, common.Required).
		Field("tenant_id", c.TenantID, common.Required).
		Field("owner_id", c.OwnerID, common.Required).
		Field("currency", c.Currency, common.CurrencyCode).
		Field("pay_day", c.PayDay, common.DayOfMonth).
		Field("notes", c.Notes, common.MaxLength(2000)).
		Err()
	if err != nil {
		return entity.Contract{}, err
	}
	if c.EndDate.Before(c.StartDate) {
		return entity.Contract{}, common.Validationf("contract ends before it starts")
	}
	if !c.MonthlyRent.IsPositive() {
		return entity.Contract{}, common.Validationf("monthly rent must be positive")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	ins := r.db.sql().Insert(contractsTable).
		Columns(contractColumns...).
		Values(c.ID, c.PropertyID, c.TenantID, c.OwnerID, r.db.date(c.StartDate), r.db.date(c.EndDate),
			c.MonthlyRent, c.Currency, c.PayDay, string(c.Status), c.Notes, r.db.ts(c.CreatedAt))
	if _, err := exec(ctx, r.db.drv, "create contract", ins); err != nil {
		r.logger.Error("repository.contract.create_failed", "contract_id", c.ID, "error", err)
		return entity.Contract{}, err
	}
	r.logger.Info("repository.contract.created", "contract_id", c.ID, "tenant_id", c.TenantID, "owner_id", c.OwnerID)
	return c, nil
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Contract, error) {
	sel := r.db.sql().Select(contractColumns...).From(entsql.Table(contractsTable)).Where(entsql.EQ("id", id))
	return queryOne(ctx, r.db.drv, "get contract", sel, scanContract)
}

// List returns contracts ordered by start date; an empty status lists all.
func (r *contractRepository) List(ctx context.Context, status constants.ContractStatus) ([]entity.Contract, error) {
	sel := r.db.sql().Select(contractColumns...).From(entsql.Table(contractsTable))
	if status != "" {
		sel.Where(entsql.EQ("status", string(status)))
	}
	return queryAll(ctx, r.db.drv, "list contracts", sel.OrderBy("start_date", "id"), scanContract)
}
