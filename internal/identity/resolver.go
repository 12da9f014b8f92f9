// Package identity maps raw counterparty references onto persons.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/rut"
)

// Store is the persistence the resolver needs. Both FindOrCreate methods must
// look up and insert atomically so concurrent resolutions of the same
// reference end on one person.
type Store interface {
	// FindOrCreateByID returns the person with seed.ID, inserting seed when absent.
	// It returns common.ErrConflict when seed.TaxID belongs to another person.
	FindOrCreateByID(ctx context.Context, seed entity.Person) (entity.Person, bool, error)
	// FindOrCreateByTaxID returns the person whose tax ID equals *seed.TaxID,
	// inserting seed when none exists.
	FindOrCreateByTaxID(ctx context.Context, seed entity.Person) (entity.Person, bool, error)
	FindByTaxID(ctx context.Context, normalized string) (entity.Person, error)
	Create(ctx context.Context, p entity.Person) (entity.Person, error)
}

// Request is one counterparty to resolve.
type Request struct {
	// Reference is an id, a tax ID in any punctuation, or free text.
	Reference     string
	Role          constants.PersonKind
	FallbackName  string
	FallbackTaxID string
}

// Outcome tells how a reference was resolved.
type Outcome string

const (
	OutcomeExistingID Outcome = "existing_id"
	OutcomeCreatedID  Outcome = "created_id"
	OutcomeTaxIDMatch Outcome = "tax_id_match"
	OutcomeCreated    Outcome = "created"
)

type Result struct {
	Person  entity.Person
	Outcome Outcome
}

type Resolver struct {
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewResolver(store Store, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, metrics: metrics, logger: logger}
}

// Resolve returns the person a reference designates, creating one when
// nothing matches. First success wins:
//
//  1. the reference (or fallback tax ID) is an id that exists
//  2. it is an id that does not exist: create a person with that id
//  3. a normalized tax ID matches an existing person exactly
//  4. create a person with a fresh id
//
// Only exact ids and exact normalized tax IDs are matched; two spellings of a
// name become two persons. Errors come only from the store.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	logger := common.LoggerFromContext(ctx, r.logger).With("role", req.Role)
	taxIDs := candidateTaxIDs(req)
	seed := entity.Person{
		Kind:        req.Role,
		DisplayName: displayName(req),
	}
	if len(taxIDs) > 0 {
		seed.TaxID = &taxIDs[0]
		if !rut.Valid(taxIDs[0]) {
			logger.Warn("identity.resolve.invalid_check_digit", "tax_id", taxIDs[0])
		}
	}

	if id, ok := parseID(req.Reference, req.FallbackTaxID); ok {
		seed.ID = id
		p, created, err := r.store.FindOrCreateByID(ctx, seed)
		if errors.Is(err, common.ErrConflict) && seed.TaxID != nil {
			// tax ID already taken by someone else; keep the requested id
			logger.Warn("identity.resolve.tax_id_taken", "id", id, "tax_id", *seed.TaxID)
			seed.TaxID = nil
			p, created, err = r.store.FindOrCreateByID(ctx, seed)
		}
		if err != nil {
			return Result{}, fmt.Errorf("resolve by id: %w", err)
		}
		if created {
			return r.done(logger, p, OutcomeCreatedID), nil
		}
		return r.done(logger, p, OutcomeExistingID), nil
	}

	for _, tid := range taxIDs {
		p, err := r.store.FindByTaxID(ctx, tid)
		if err == nil {
			return r.done(logger, p, OutcomeTaxIDMatch), nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return Result{}, fmt.Errorf("find by tax id: %w", err)
		}
	}

	seed.ID = uuid.New()
	if seed.TaxID != nil {
		// the lookups above may race with another resolver; this one is atomic
		p, created, err := r.store.FindOrCreateByTaxID(ctx, seed)
		if err != nil {
			return Result{}, fmt.Errorf("resolve by tax id: %w", err)
		}
		if created {
			return r.done(logger, p, OutcomeCreated), nil
		}
		return r.done(logger, p, OutcomeTaxIDMatch), nil
	}

	p, err := r.store.Create(ctx, seed)
	if err != nil {
		return Result{}, fmt.Errorf("create person: %w", err)
	}
	return r.done(logger, p, OutcomeCreated), nil
}

func (r *Resolver) done(logger *slog.Logger, p entity.Person, o Outcome) Result {
	r.metrics.IncrResolution(string(o))
	event := "identity.resolve.matched"
	if o == OutcomeCreated || o == OutcomeCreatedID {
		event = "identity.resolve.created"
	}
	logger.Info(event, "person_id", p.ID, "outcome", o, "kind", p.Kind)
	return Result{Person: p, Outcome: o}
}

func parseID(refs ...string) (uuid.UUID, bool) {
	for _, ref := range refs {
		if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// candidateTaxIDs returns the normalized tax IDs worth matching, the
// reference first, then the fallback. Values that are not RUT-shaped are
// never matched or stored.
func candidateTaxIDs(req Request) []string {
	var out []string
	if ref := rut.Normalize(req.Reference); rut.LooksLike(ref) {
		out = append(out, ref)
	}
	if fb := rut.Normalize(req.FallbackTaxID); rut.LooksLike(fb) {
		if len(out) == 0 || out[0] != fb {
			out = append(out, fb)
		}
	}
	return out
}

// displayName prefers the fallback name, then a free-text reference, then
// a placeholder for the role.
func displayName(req Request) string {
	if n := strings.TrimSpace(req.FallbackName); n != "" {
		return n
	}
	ref := strings.TrimSpace(req.Reference)
	if ref != "" && !isUUID(ref) && !rut.LooksLike(rut.Normalize(ref)) {
		return ref
	}
	return req.Role.PlaceholderName()
}

func isUUID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}
