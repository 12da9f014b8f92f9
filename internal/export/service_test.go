package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
	"github.com/joseph-ayodele/leases-tracker/internal/export"
)

type fakeStore struct {
	contracts map[uuid.UUID]entity.Contract
	charges   map[uuid.UUID][]entity.Charge
	payments  map[uuid.UUID][]entity.Payment
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (entity.Contract, error) {
	c, ok := s.contracts[id]
	if !ok {
		return entity.Contract{}, common.NotFoundf("contract %s", id)
	}
	return c, nil
}

func (s *fakeStore) ListCharges(_ context.Context, id uuid.UUID) ([]entity.Charge, error) {
	return s.charges[id], nil
}

func (s *fakeStore) ListPayments(_ context.Context, id uuid.UUID) ([]entity.Payment, error) {
	return s.payments[id], nil
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed() (*fakeStore, uuid.UUID, uuid.UUID) {
	a, b := uuid.New(), uuid.New()
	s := &fakeStore{
		contracts: map[uuid.UUID]entity.Contract{a: {ID: a}, b: {ID: b}},
		charges:   map[uuid.UUID][]entity.Charge{},
		payments:  map[uuid.UUID][]entity.Payment{},
	}
	paid := day(2024, 3, 20)
	march := entity.Charge{ID: uuid.New(), ContractID: a, Period: day(2024, 3, 1), DueDate: day(2024, 3, 5),
		OriginalAmount: dec("350000"), State: constants.ChargePaid, PaidDate: &paid}
	april := entity.Charge{ID: uuid.New(), ContractID: a, Period: day(2024, 4, 1), DueDate: day(2024, 4, 5),
		OriginalAmount: dec("350000"), State: constants.ChargePartial}
	adj := dec("300000")
	other := entity.Charge{ID: uuid.New(), ContractID: b, Period: day(2024, 3, 1), DueDate: day(2024, 3, 10),
		OriginalAmount: dec("320000"), AdjustedAmount: &adj, State: constants.ChargePending}
	s.charges[a] = []entity.Charge{march, april}
	s.charges[b] = []entity.Charge{other}
	s.payments[a] = []entity.Payment{
		{ID: uuid.New(), ChargeID: march.ID, AmountPaid: dec("200000"), PaidDate: day(2024, 3, 5), Method: "transferencia"},
		{ID: uuid.New(), ChargeID: march.ID, AmountPaid: dec("150000"), PaidDate: day(2024, 3, 20), Reference: "op-9"},
		{ID: uuid.New(), ChargeID: april.ID, AmountPaid: dec("100000"), PaidDate: day(2024, 4, 4)},
	}
	return s, a, b
}

func rows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()
	r, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows(%s): %v", sheet, err)
	}
	return r
}

func TestExportLedgerXLSX(t *testing.T) {
	s, a, b := seed()
	svc := export.NewService(s, s, nil)
	data, err := svc.ExportLedgerXLSX(context.Background(), []uuid.UUID{a, b}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	charges := rows(t, data, "Charges")
	if len(charges) != 4 {
		t.Fatalf("charge rows = %d, want header + 3", len(charges))
	}
	if charges[0][0] != "Contract" || charges[0][8] != "State" {
		t.Errorf("header = %v", charges[0])
	}
	march := charges[1]
	if march[1] != "2024-03" || march[6] != "350000" || march[7] != "0" || march[8] != "PAID" || march[9] != "2024-03-20" {
		t.Errorf("march = %v", march)
	}
	april := charges[2]
	if april[6] != "100000" || april[7] != "250000" || april[8] != "PARTIAL" {
		t.Errorf("april = %v", april)
	}
	adjusted := charges[3]
	if adjusted[0] != b.String() || adjusted[4] != "300000" || adjusted[5] != "300000" || adjusted[7] != "300000" {
		t.Errorf("adjusted = %v", adjusted)
	}

	payments := rows(t, data, "Payments")
	if len(payments) != 4 {
		t.Fatalf("payment rows = %d", len(payments))
	}
	if payments[1][4] != "transferencia" || payments[2][5] != "op-9" {
		t.Errorf("payments = %v", payments)
	}
}

func TestExportLedgerXLSX_Window(t *testing.T) {
	s, a, _ := seed()
	svc := export.NewService(s, s, nil)
	from, to := day(2024, 4, 1), day(2024, 4, 30)
	data, err := svc.ExportLedgerXLSX(context.Background(), []uuid.UUID{a}, &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	charges := rows(t, data, "Charges")
	if len(charges) != 2 || charges[1][1] != "2024-04" {
		t.Fatalf("charges = %v", charges)
	}
	if payments := rows(t, data, "Payments"); len(payments) != 2 {
		t.Errorf("payments = %v", payments)
	}
}

func TestExportLedgerXLSX_UnknownContract(t *testing.T) {
	s, a, _ := seed()
	svc := export.NewService(s, s, nil)
	_, err := svc.ExportLedgerXLSX(context.Background(), []uuid.UUID{a, uuid.New()}, nil, nil)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
