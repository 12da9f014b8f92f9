package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
)

type memStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]entity.Person
	creates int
	failAll error
}

func newMemStore(people ...entity.Person) *memStore {
	s := &memStore{byID: map[uuid.UUID]entity.Person{}}
	for _, p := range people {
		s.byID[p.ID] = p
	}
	return s
}

func (s *memStore) findTax(tid string) (entity.Person, bool) {
	for _, p := range s.byID {
		if p.TaxID != nil && *p.TaxID == tid {
			return p, true
		}
	}
	return entity.Person{}, false
}

func (s *memStore) insert(p entity.Person) (entity.Person, error) {
	if p.TaxID != nil {
		if _, taken := s.findTax(*p.TaxID); taken {
			return entity.Person{}, common.ErrConflict
		}
	}
	s.byID[p.ID] = p
	s.creates++
	return p, nil
}

func (s *memStore) FindOrCreateByID(_ context.Context, seed entity.Person) (entity.Person, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return entity.Person{}, false, s.failAll
	}
	if p, ok := s.byID[seed.ID]; ok {
		return p, false, nil
	}
	p, err := s.insert(seed)
	return p, err == nil, err
}

func (s *memStore) FindOrCreateByTaxID(_ context.Context, seed entity.Person) (entity.Person, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return entity.Person{}, false, s.failAll
	}
	if p, ok := s.findTax(*seed.TaxID); ok {
		return p, false, nil
	}
	p, err := s.insert(seed)
	return p, err == nil, err
}

func (s *memStore) FindByTaxID(_ context.Context, tid string) (entity.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return entity.Person{}, s.failAll
	}
	if p, ok := s.findTax(tid); ok {
		return p, nil
	}
	return entity.Person{}, common.ErrNotFound
}

func (s *memStore) Create(_ context.Context, p entity.Person) (entity.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return entity.Person{}, s.failAll
	}
	return s.insert(p)
}

func strp(s string) *string { return &s }

func TestResolve_ExistingID(t *testing.T) {
	id := uuid.New()
	store := newMemStore(entity.Person{ID: id, Kind: constants.KindOwner, DisplayName: "Héctor Olave"})
	r := NewResolver(store, nil, nil)

	res, err := r.Resolve(context.Background(), Request{Reference: id.String(), Role: constants.KindOwner, FallbackName: "otro"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person.ID != id || res.Outcome != OutcomeExistingID || res.Person.DisplayName != "Héctor Olave" {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.creates != 0 {
		t.Fatal("existing id must not create")
	}
}

func TestResolve_UnknownIDIsCreatedWithThatID(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	id := uuid.New()

	res, err := r.Resolve(context.Background(), Request{
		Reference: id.String(), Role: constants.KindTenant, FallbackTaxID: "60.511.030-4",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person.ID != id || res.Outcome != OutcomeCreatedID {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Person.DisplayName != "Arrendatario sin nombre" {
		t.Fatalf("placeholder name = %q", res.Person.DisplayName)
	}
	if res.Person.TaxID == nil || *res.Person.TaxID != "605110304" {
		t.Fatalf("tax id = %v", res.Person.TaxID)
	}
}

func TestResolve_IDInFallbackTaxID(t *testing.T) {
	id := uuid.New()
	store := newMemStore(entity.Person{ID: id, Kind: constants.KindOwner, DisplayName: "X"})
	r := NewResolver(store, nil, nil)
	res, err := r.Resolve(context.Background(), Request{Reference: "Héctor", Role: constants.KindOwner, FallbackTaxID: id.String()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person.ID != id {
		t.Fatalf("got %s, want %s", res.Person.ID, id)
	}
}

func TestResolve_NewIDWithTakenTaxIDDropsTaxID(t *testing.T) {
	owner := entity.Person{ID: uuid.New(), Kind: constants.KindOwner, DisplayName: "Héctor", TaxID: strp("96471238")}
	store := newMemStore(owner)
	r := NewResolver(store, nil, nil)
	id := uuid.New()

	res, err := r.Resolve(context.Background(), Request{Reference: id.String(), Role: constants.KindTenant, FallbackTaxID: "9.647.123-8"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person.ID != id || res.Person.TaxID != nil {
		t.Fatalf("unexpected result %+v", res.Person)
	}
}

func TestResolve_TaxIDMatchAcrossFormats(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, Request{Reference: "9.647.123-8", Role: constants.KindOwner, FallbackName: "Héctor Patricio Olave Fara"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Outcome != OutcomeCreated || first.Person.DisplayName != "Héctor Patricio Olave Fara" {
		t.Fatalf("unexpected first result %+v", first)
	}

	for _, ref := range []string{"9647123-8", "9647123-8 ", "96471238"} {
		res, err := r.Resolve(ctx, Request{Reference: ref, Role: constants.KindOwner})
		if err != nil {
			t.Fatal(err)
		}
		if res.Person.ID != first.Person.ID || res.Outcome != OutcomeTaxIDMatch {
			t.Fatalf("%q resolved to %+v", ref, res)
		}
	}
	if store.creates != 1 {
		t.Fatalf("creates = %d, want 1", store.creates)
	}
}

func TestResolve_LowercaseCheckDigit(t *testing.T) {
	store := newMemStore(entity.Person{ID: uuid.New(), Kind: constants.KindTenant, DisplayName: "K", TaxID: strp("10000013K")})
	r := NewResolver(store, nil, nil)
	res, err := r.Resolve(context.Background(), Request{Reference: "10.000.013-k", Role: constants.KindTenant})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeTaxIDMatch {
		t.Fatalf("outcome = %s", res.Outcome)
	}
}

func TestResolve_FallbackTaxIDWithFreeTextReference(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	ctx := context.Background()

	a, err := r.Resolve(ctx, Request{Reference: "Intendencia Regional de Atacama", Role: constants.KindTenant, FallbackTaxID: "60.511.030-4"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Person.DisplayName != "Intendencia Regional de Atacama" {
		t.Fatalf("display name = %q", a.Person.DisplayName)
	}
	b, err := r.Resolve(ctx, Request{Reference: "INTENDENCIA ATACAMA", Role: constants.KindTenant, FallbackTaxID: "60511030-4"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Person.ID != b.Person.ID {
		t.Fatal("same tax id resolved to two persons")
	}
}

func TestResolve_NearDuplicateNamesAreDistinct(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	ctx := context.Background()
	a, _ := r.Resolve(ctx, Request{Reference: "Juan Pérez", Role: constants.KindTenant})
	b, _ := r.Resolve(ctx, Request{Reference: "Juan Perez", Role: constants.KindTenant})
	if a.Person.ID == b.Person.ID {
		t.Fatal("names are not a matching key")
	}
	if store.creates != 2 {
		t.Fatalf("creates = %d", store.creates)
	}
}

func TestResolve_FreeTextTaxIDIsNotAKey(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	ctx := context.Background()
	a, err := r.Resolve(ctx, Request{FallbackName: "Ana Ruiz", Role: constants.KindTenant, FallbackTaxID: "no indicado"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(ctx, Request{FallbackName: "Pedro Soto", Role: constants.KindTenant, FallbackTaxID: "no indicado"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Person.ID == b.Person.ID || b.Outcome != OutcomeCreated {
		t.Fatalf("free text merged persons: %+v %+v", a, b)
	}
	if a.Person.TaxID != nil || b.Person.TaxID != nil {
		t.Fatalf("free text stored as tax id: %v %v", a.Person.TaxID, b.Person.TaxID)
	}
	if b.Person.DisplayName != "Pedro Soto" {
		t.Fatalf("display name = %q", b.Person.DisplayName)
	}
}

func TestResolve_EmptyReferenceGetsPlaceholder(t *testing.T) {
	r := NewResolver(newMemStore(), nil, nil)
	res, err := r.Resolve(context.Background(), Request{Role: constants.KindOwner})
	if err != nil {
		t.Fatal(err)
	}
	if res.Person.DisplayName != "Propietario sin nombre" || res.Person.TaxID != nil || res.Outcome != OutcomeCreated {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestResolve_IsIdempotentUnderConcurrency(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(ctx, Request{Reference: "12.345.678-5", Role: constants.KindOwner})
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = res.Person.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatal("concurrent resolutions created different persons")
		}
	}
	if store.creates != 1 {
		t.Fatalf("creates = %d, want 1", store.creates)
	}
}

func TestResolve_StoreErrorsPropagate(t *testing.T) {
	store := newMemStore()
	store.failAll = common.DatabaseError("select", errors.New("connection refused"))
	r := NewResolver(store, nil, nil)
	_, err := r.Resolve(context.Background(), Request{Reference: "12.345.678-5", Role: constants.KindOwner})
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("err = %v, want ErrDatabase", err)
	}
}
