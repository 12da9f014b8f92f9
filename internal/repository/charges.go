package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/ledger"
)

const (
	chargesTable  = "charges"
	paymentsTable = "payments"
)

var (
	chargeColumns = []string{
		"id", "contract_id", "period", "original_amount", "adjusted_amount",
		"due_date", "state", "paid_date", "created_at",
	}
	paymentColumns = []string{"id", "charge_id", "amount_paid", "paid_date", "method", "reference", "created_at"}
)

// LedgerRepository is the ledger.Store over SQL plus the reads the export needs.
type LedgerRepository interface {
	ledger.Store
	GetCharge(ctx context.Context, id uuid.UUID) (entity.Charge, error)
	ListCharges(ctx context.Context, contractID uuid.UUID) ([]entity.Charge, error)
	ListPayments(ctx context.Context, contractID uuid.UUID) ([]entity.Payment, error)
}

type ledgerRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewLedgerRepository(db *DB, logger *slog.Logger) LedgerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerRepository{db: db, logger: logger}
}

func scanCharge(r rowScanner) (entity.Charge, error) {
	var (
		c                   entity.Charge
		period, due, paidOn dateCol
		adjusted            decimal.NullDecimal
		state               string
		created             tsCol
	)
	if err := r.Scan(&c.ID, &c.ContractID, &period, &c.OriginalAmount, &adjusted,
		&due, &state, &paidOn, &created); err != nil {
		return entity.Charge{}, err
	}
	c.Period, c.DueDate, c.PaidDate = period.Time, due.Time, paidOn.Ptr()
	if adjusted.Valid {
		a := adjusted.Decimal
		c.AdjustedAmount = &a
	}
	c.State = constants.ChargeState(state)
	c.CreatedAt = created.Time
	return c, nil
}

func scanPayment(r rowScanner) (entity.Payment, error) {
	var (
		p       entity.Payment
		paid    dateCol
		created tsCol
	)
	if err := r.Scan(&p.ID, &p.ChargeID, &p.AmountPaid, &paid, &p.Method, &p.Reference, &created); err != nil {
		return entity.Payment{}, err
	}
	p.PaidDate, p.CreatedAt = paid.Time, created.Time
	return p, nil
}

func (r *ledgerRepository) selectCharges() *entsql.Selector {
	return r.db.sql().Select(chargeColumns...).From(entsql.Table(chargesTable))
}

// InTx runs fn in one transaction. On Postgres the charge row is locked by
// GetOrCreateCharge/GetChargeForUpdate; SQLite takes the write lock at BEGIN.
func (r *ledgerRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return r.db.inTx(ctx, "ledger", func(tx dialect.Tx) error {
		return fn(ctx, &ledgerTx{repo: r, tx: tx})
	})
}

func (r *ledgerRepository) GetCharge(ctx context.Context, id uuid.UUID) (entity.Charge, error) {
	return queryOne(ctx, r.db.drv, "get charge", r.selectCharges().Where(entsql.EQ("id", id)), scanCharge)
}

func (r *ledgerRepository) ListCharges(ctx context.Context, contractID uuid.UUID) ([]entity.Charge, error) {
	sel := r.selectCharges().Where(entsql.EQ("contract_id", contractID)).OrderBy("period")
	return queryAll(ctx, r.db.drv, "list charges", sel, scanCharge)
}

// ListPayments returns every payment of every charge of the contract.
func (r *ledgerRepository) ListPayments(ctx context.Context, contractID uuid.UUID) ([]entity.Payment, error) {
	charges := r.db.sql().Select("id").From(entsql.Table(chargesTable)).Where(entsql.EQ("contract_id", contractID))
	sel := r.db.sql().Select(paymentColumns...).From(entsql.Table(paymentsTable)).
		Where(entsql.In("charge_id", charges)).
		OrderBy("paid_date", "created_at")
	return queryAll(ctx, r.db.drv, "list payments", sel, scanPayment)
}

type ledgerTx struct {
	repo *ledgerRepository
	tx   dialect.Tx
}

func (t *ledgerTx) forUpdate(sel *entsql.Selector) *entsql.Selector {
	if t.repo.db.dialect == dialect.Postgres {
		sel.ForUpdate()
	}
	return sel
}

func (t *ledgerTx) GetOrCreateCharge(ctx context.Context, seed entity.Charge) (entity.Charge, bool, error) {
	db := t.repo.db
	exists := db.sql().Select("id").From(entsql.Table(contractsTable)).Where(entsql.EQ("id", seed.ContractID))
	if _, err := queryOne(ctx, t.tx, "get contract", exists, scanID); errors.Is(err, common.ErrNotFound) {
		return entity.Charge{}, false, common.NotFoundf("contract %s", seed.ContractID)
	} else if err != nil {
		return entity.Charge{}, false, err
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	ins := db.sql().Insert(chargesTable).
		Columns(chargeColumns...).
		Values(seed.ID, seed.ContractID, db.date(seed.Period), seed.OriginalAmount, nullDecimal(seed.AdjustedAmount),
			db.date(seed.DueDate), string(seed.State), db.nullDate(seed.PaidDate), db.ts(seed.CreatedAt)).
		OnConflict(entsql.ConflictColumns("contract_id", "period"), entsql.DoNothing())
	n, err := exec(ctx, t.tx, "insert charge", ins)
	if err != nil {
		return entity.Charge{}, false, err
	}
	sel := t.repo.selectCharges().Where(entsql.And(
		entsql.EQ("contract_id", seed.ContractID),
		entsql.EQ("period", db.date(seed.Period)),
	))
	c, err := queryOne(ctx, t.tx, "get charge", t.forUpdate(sel), scanCharge)
	if err != nil {
		return entity.Charge{}, false, err
	}
	return c, n == 1, nil
}

func (t *ledgerTx) GetChargeForUpdate(ctx context.Context, id uuid.UUID) (entity.Charge, error) {
	sel := t.repo.selectCharges().Where(entsql.EQ("id", id))
	c, err := queryOne(ctx, t.tx, "get charge", t.forUpdate(sel), scanCharge)
	if err != nil {
		return entity.Charge{}, common.WrapError(err, "charge "+id.String())
	}
	return c, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, p entity.Payment) error {
	db := t.repo.db
	ins := db.sql().Insert(paymentsTable).
		Columns(paymentColumns...).
		Values(p.ID, p.ChargeID, p.AmountPaid, db.date(p.PaidDate), p.Method, p.Reference, db.ts(p.CreatedAt))
	_, err := exec(ctx, t.tx, "insert payment", ins)
	return err
}

func (t *ledgerTx) ListPayments(ctx context.Context, chargeID uuid.UUID) ([]entity.Payment, error) {
	sel := t.repo.db.sql().Select(paymentColumns...).From(entsql.Table(paymentsTable)).
		Where(entsql.EQ("charge_id", chargeID)).
		OrderBy("paid_date", "created_at")
	return queryAll(ctx, t.tx, "list payments", sel, scanPayment)
}

func (t *ledgerTx) UpdateChargeState(ctx context.Context, id uuid.UUID, state constants.ChargeState, paidDate *time.Time) error {
	upd := t.repo.db.sql().Update(chargesTable).Set("state", string(state)).Where(entsql.EQ("id", id))
	if paidDate != nil {
		upd.Set("paid_date", t.repo.db.date(*paidDate))
	} else {
		upd.SetNull("paid_date")
	}
	n, err := exec(ctx, t.tx, "update charge state", upd)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFoundf("charge %s", id)
	}
	return nil
}

func scanID(r rowScanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.Scan(&id)
	return id, err
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
