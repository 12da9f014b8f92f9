package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/identity"
)

const personsTable = "persons"

var personColumns = []string{"id", "kind", "display_name", "tax_id", "created_at"}

type PersonRepository interface {
	identity.Store
	GetByID(ctx context.Context, id uuid.UUID) (entity.Person, error)
	List(ctx context.Context, kind constants.PersonKind) ([]entity.Person, error)
}

type personRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPersonRepository(db *DB, logger *slog.Logger) PersonRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &personRepository{db: db, logger: logger}
}

func scanPerson(r rowScanner) (entity.Person, error) {
	var (
		p       entity.Person
		kind    string
		taxID   sql.NullString
		created tsCol
	)
	if err := r.Scan(&p.ID, &kind, &p.DisplayName, &taxID, &created); err != nil {
		return entity.Person{}, err
	}
	p.Kind = constants.PersonKind(kind)
	p.TaxID = stringPtr(taxID)
	p.CreatedAt = created.Time
	return p, nil
}

func (r *personRepository) selectBy(pred *entsql.Predicate) *entsql.Selector {
	return r.db.sql().Select(personColumns...).From(entsql.Table(personsTable)).Where(pred)
}

func (r *personRepository) insert(p entity.Person) *entsql.InsertBuilder {
	return r.db.sql().Insert(personsTable).
		Columns(personColumns...).
		Values(p.ID, string(p.Kind), p.DisplayName, nullString(p.TaxID), r.db.ts(p.CreatedAt))
}

func (r *personRepository) GetByID(ctx context.Context, id uuid.UUID) (entity.Person, error) {
	return queryOne(ctx, r.db.drv, "get person", r.selectBy(entsql.EQ("id", id)), scanPerson)
}

func (r *personRepository) FindByTaxID(ctx context.Context, normalized string) (entity.Person, error) {
	return queryOne(ctx, r.db.drv, "find person by tax id", r.selectBy(entsql.EQ("tax_id", normalized)), scanPerson)
}

func (r *personRepository) List(ctx context.Context, kind constants.PersonKind) ([]entity.Person, error) {
	sel := r.db.sql().Select(personColumns...).From(entsql.Table(personsTable))
	if kind != "" {
		sel.Where(entsql.EQ("kind", string(kind)))
	}
	return queryAll(ctx, r.db.drv, "list persons", sel.OrderBy("display_name"), scanPerson)
}

func (r *personRepository) Create(ctx context.Context, p entity.Person) (entity.Person, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := exec(ctx, r.db.drv, "create person", r.insert(p)); err != nil {
		r.logger.Error("repository.person.create_failed", "person_id", p.ID, "error", err)
		return entity.Person{}, err
	}
	return p, nil
}

// FindOrCreateByID inserts seed unless a row already holds seed.ID or
// seed.TaxID, then reads back by id. Reading nothing back means the tax ID
// is taken by another person.
func (r *personRepository) FindOrCreateByID(ctx context.Context, seed entity.Person) (entity.Person, bool, error) {
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	var (
		out     entity.Person
		created bool
	)
	err := r.db.inTx(ctx, "find or create person by id", func(tx dialect.Tx) error {
		n, err := exec(ctx, tx, "insert person", r.insert(seed).OnConflict(entsql.DoNothing()))
		if err != nil {
			return err
		}
		out, err = queryOne(ctx, tx, "get person", r.selectBy(entsql.EQ("id", seed.ID)), scanPerson)
		if errors.Is(err, common.ErrNotFound) {
			return common.NewAppError("CONFLICT", "tax id belongs to another person", common.ErrConflict)
		}
		created = n == 1
		return err
	})
	if err != nil {
		return entity.Person{}, false, err
	}
	return out, created, nil
}

// FindOrCreateByTaxID returns the person holding *seed.TaxID, inserting seed
// when there is none.
func (r *personRepository) FindOrCreateByTaxID(ctx context.Context, seed entity.Person) (entity.Person, bool, error) {
	if seed.TaxID == nil || *seed.TaxID == "" {
		return entity.Person{}, false, common.Validationf("tax id is required")
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	var (
		out     entity.Person
		created bool
	)
	err := r.db.inTx(ctx, "find or create person by tax id", func(tx dialect.Tx) error {
		n, err := exec(ctx, tx, "insert person", r.insert(seed).OnConflict(entsql.ConflictColumns("tax_id"), entsql.DoNothing()))
		if err != nil {
			return err
		}
		out, err = queryOne(ctx, tx, "find person by tax id", r.selectBy(entsql.EQ("tax_id", *seed.TaxID)), scanPerson)
		created = n == 1
		return err
	})
	if err != nil {
		return entity.Person{}, false, err
	}
	return out, created, nil
}
