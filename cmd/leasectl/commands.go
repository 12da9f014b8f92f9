package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/export"
	"github.com/joseph-ayodele/leases-tracker/internal/ledger"
	"github.com/joseph-ayodele/leases-tracker/internal/pipeline"
)

// errHelp ends a command quietly after -h.
var errHelp = errors.New("help requested")

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return common.Validationf("%s: %v", fs.Name(), err)
	}
	return nil
}

// quiet turns errHelp into success.
func quiet(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}

func runExtract(ctx context.Context, args []string) error {
	fs, g := newFlagSet("extract")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	path, err := singleArg(fs, "contract document")
	if err != nil {
		return err
	}
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, g, false)
	if err != nil {
		return err
	}
	return printJSON(a.fieldExtractor().Extract(ctx, doc))
}

func runImport(ctx context.Context, args []string) error {
	fs, g := newFlagSet("import")
	property := fs.String("property", "", "property id (generated when empty)")
	tenant := fs.String("tenant", "", "tenant id, RUT or name; overrides the document")
	owner := fs.String("owner", "", "owner id, RUT or name; overrides the document")
	rent := fs.String("rent", "", "monthly rent used when the document has none")
	notes := fs.String("notes", "", "contract notes")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	path, err := singleArg(fs, "contract document")
	if err != nil {
		return err
	}
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	req := pipeline.ContractRequest{Document: doc, TenantRef: *tenant, OwnerRef: *owner, Notes: *notes}
	if req.PropertyID, err = parseUUID("property", *property); err != nil {
		return err
	}
	if req.FallbackRent, err = decimalFlag(*rent); err != nil {
		return err
	}

	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	res, err := a.importer().Import(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runPay(ctx context.Context, args []string) error {
	fs, g := newFlagSet("pay")
	contract := fs.String("contract", "", "contract id; the charge is picked by payment month")
	charge := fs.String("charge", "", "charge id")
	amount := fs.String("amount", "", "amount paid, e.g. 350000 or 350.000,50 (required)")
	date := fs.String("date", "", "payment date YYYY-MM-DD")
	method := fs.String("method", "", "payment method")
	ref := fs.String("ref", "", "payment reference")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}

	amt, err := ledger.ParseAmount(*amount)
	if err != nil {
		return err
	}
	in := ledger.PaymentInput{Amount: amt, Method: *method, Reference: *ref}
	paid, err := parseDate("date", *date)
	if err != nil {
		return err
	}
	if paid != nil {
		in.PaidDate = *paid
	}
	contractID, chargeID, err := target(*contract, *charge)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	var res ledger.Applied
	if chargeID != uuid.Nil {
		res, err = a.ledger.ApplyToCharge(ctx, chargeID, in)
	} else {
		res, err = a.ledger.ApplyToContract(ctx, contractID, in)
	}
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runPayReceipt(ctx context.Context, args []string) error {
	fs, g := newFlagSet("pay-receipt")
	contract := fs.String("contract", "", "contract id; the charge is picked by payment month")
	charge := fs.String("charge", "", "charge id")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	path, err := singleArg(fs, "receipt file")
	if err != nil {
		return err
	}
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	contractID, chargeID, err := target(*contract, *charge)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	res, err := a.reconciler().Reconcile(ctx, pipeline.ReceiptRequest{
		Document:   doc,
		ContractID: contractID,
		ChargeID:   chargeID,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

// target parses the --contract / --charge pair; exactly one is required.
func target(contract, charge string) (uuid.UUID, uuid.UUID, error) {
	if (contract == "") == (charge == "") {
		return uuid.Nil, uuid.Nil, common.Validationf("exactly one of --contract or --charge is required")
	}
	contractID, err := parseUUID("contract", contract)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	chargeID, err := parseUUID("charge", charge)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return contractID, chargeID, nil
}

func runExport(ctx context.Context, args []string) error {
	fs, g := newFlagSet("export")
	ids := fs.String("contracts", "", "comma separated contract ids (default: every active contract)")
	out := fs.String("out", "ledger.xlsx", "output XLSX file path")
	fromStr := fs.String("from", "", "first period YYYY-MM-DD")
	toStr := fs.String("to", "", "last period YYYY-MM-DD")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	from, err := parseDate("from", *fromStr)
	if err != nil {
		return err
	}
	to, err := parseDate("to", *toStr)
	if err != nil {
		return err
	}
	var contractIDs []uuid.UUID
	for _, s := range strings.Split(*ids, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		id, err := parseUUID("contracts", s)
		if err != nil {
			return err
		}
		contractIDs = append(contractIDs, id)
	}

	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if len(contractIDs) == 0 {
		active, err := a.contracts.List(ctx, constants.ContractActive)
		if err != nil {
			return err
		}
		for _, c := range active {
			contractIDs = append(contractIDs, c.ID)
		}
	}
	if len(contractIDs) == 0 {
		return common.NotFoundf("no active contracts to export")
	}

	svc := export.NewService(a.contracts, a.charges, a.logger)
	data, err := svc.ExportLedgerXLSX(ctx, contractIDs, from, to)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.WrapError(err, "create output directory")
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return common.WrapError(err, "write export")
	}
	fmt.Printf("wrote %d contracts to %s\n", len(contractIDs), *out)
	return nil
}

func runMigrate(ctx context.Context, args []string) error {
	fs, g := newFlagSet("migrate")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()
	start := time.Now()
	if err := a.db.Migrate(ctx); err != nil {
		return err
	}
	fmt.Printf("migrated %s database in %s\n", a.db.Dialect(), time.Since(start).Round(time.Millisecond))
	return nil
}

// decimalFlag is nil when s is empty.
func decimalFlag(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ledger.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
