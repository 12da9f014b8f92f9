package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/leases-tracker/internal/entity"
)

const (
	chargesSheet  = "Charges"
	paymentsSheet = "Payments"
	loadWorkers   = 4
)

type Contracts interface {
	GetByID(ctx context.Context, id uuid.UUID) (entity.Contract, error)
}

type Ledger interface {
	ListCharges(ctx context.Context, contractID uuid.UUID) ([]entity.Charge, error)
	ListPayments(ctx context.Context, contractID uuid.UUID) ([]entity.Payment, error)
}

// Service produces XLSX workbooks of the charge ledger.
type Service struct {
	contracts Contracts
	ledger    Ledger
	logger    *slog.Logger
}

func NewService(contracts Contracts, ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{contracts: contracts, ledger: ledger, logger: logger}
}

type contractLedger struct {
	contract entity.Contract
	charges  []entity.Charge
	payments map[uuid.UUID][]entity.Payment // by charge
}

// ExportLedgerXLSX returns a workbook with one row per charge and one per
// payment for the given contracts, in the order given. The window applies to
// charge periods:
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every charge.
func (s *Service) ExportLedgerXLSX(ctx context.Context, contractIDs []uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	fromDate, toDate := window(from, to)

	loaded := make([]contractLedger, len(contractIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkers)
	for i, id := range contractIDs {
		i, id := i, id
		g.Go(func() error {
			cl, err := s.load(gctx, id, fromDate, toDate)
			if err != nil {
				return fmt.Errorf("contract %s: %w", id, err)
			}
			loaded[i] = cl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("export.xlsx.load_failed", "error", err)
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", chargesSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	if _, err := f.NewSheet(paymentsSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	cw := newSheetWriter(f, chargesSheet, money)
	cw.header("Contract", "Period", "Due Date", "Original", "Adjusted", "Target", "Paid", "Balance", "State", "Paid Date")
	pw := newSheetWriter(f, paymentsSheet, money)
	pw.header("Contract", "Period", "Paid Date", "Amount", "Method", "Reference")

	var charges, payments int
	for _, cl := range loaded {
		for _, ch := range cl.charges {
			paid := decimal.Zero
			for _, p := range cl.payments[ch.ID] {
				paid = paid.Add(p.AmountPaid)
				pw.row(cl.contract.ID.String(), month(ch.Period), p.PaidDate.Format(time.DateOnly),
					p.AmountPaid, p.Method, p.Reference)
				payments++
			}
			var adjusted any = ""
			if ch.AdjustedAmount != nil {
				adjusted = *ch.AdjustedAmount
			}
			paidDate := ""
			if ch.PaidDate != nil {
				paidDate = ch.PaidDate.Format(time.DateOnly)
			}
			balance := decimal.Max(ch.Target().Sub(paid), decimal.Zero)
			cw.row(cl.contract.ID.String(), month(ch.Period), ch.DueDate.Format(time.DateOnly),
				ch.OriginalAmount, adjusted, ch.Target(), paid, balance, string(ch.State), paidDate)
			charges++
		}
	}
	if err := cw.err; err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	if err := pw.err; err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	_ = f.SetColWidth(chargesSheet, "A", "A", 38) // contract id
	_ = f.SetColWidth(chargesSheet, "B", "C", 12) // period, due
	_ = f.SetColWidth(chargesSheet, "D", "H", 14) // amounts
	_ = f.SetColWidth(chargesSheet, "I", "J", 12)
	_ = f.SetColWidth(paymentsSheet, "A", "A", 38)
	_ = f.SetColWidth(paymentsSheet, "B", "D", 14)
	_ = f.SetColWidth(paymentsSheet, "E", "F", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"contracts", len(contractIDs),
		"charges", charges,
		"payments", payments,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, from, to *time.Time) (contractLedger, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return contractLedger{}, err
	}
	charges, err := s.ledger.ListCharges(ctx, id)
	if err != nil {
		return contractLedger{}, err
	}
	payments, err := s.ledger.ListPayments(ctx, id)
	if err != nil {
		return contractLedger{}, err
	}
	cl := contractLedger{contract: c, payments: map[uuid.UUID][]entity.Payment{}}
	for _, ch := range charges {
		if (from != nil && ch.Period.Before(periodOf(*from))) || (to != nil && ch.Period.After(*to)) {
			continue
		}
		cl.charges = append(cl.charges, ch)
	}
	for _, p := range payments {
		cl.payments[p.ChargeID] = append(cl.payments[p.ChargeID], p)
	}
	return cl, nil
}

// window normalizes the optional bounds to dates (UTC).
func window(from, to *time.Time) (*time.Time, *time.Time) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := dateOnly(*from)
		fromDate = &f
	}
	if to != nil {
		t := dateOnly(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := dateOnly(time.Now().UTC())
		toDate = &t
	}
	return fromDate, toDate
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func periodOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func month(period time.Time) string { return period.Format("2006-01") }

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	money int
	next  int
	err   error
}

func newSheetWriter(f *excelize.File, sheet string, money int) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, money: money, next: 1}
}

func (w *sheetWriter) header(cols ...string) {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	w.row(vals...)
}

func (w *sheetWriter) row(vals ...any) {
	if w.err != nil {
		return
	}
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, w.next)
		if err != nil {
			w.err = err
			return
		}
		if d, ok := v.(decimal.Decimal); ok {
			if err := w.f.SetCellFloat(w.sheet, cell, d.InexactFloat64(), -1, 64); err != nil {
				w.err = err
				return
			}
			if err := w.f.SetCellStyle(w.sheet, cell, cell, w.money); err != nil {
				w.err = err
				return
			}
			continue
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			w.err = err
			return
		}
	}
	w.next++
}
