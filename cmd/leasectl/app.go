package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/identity"
	"github.com/joseph-ayodele/leases-tracker/internal/ledger"
	"github.com/joseph-ayodele/leases-tracker/internal/llm"
	"github.com/joseph-ayodele/leases-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/leases-tracker/internal/observability"
	"github.com/joseph-ayodele/leases-tracker/internal/ocr"
	"github.com/joseph-ayodele/leases-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/leases-tracker/internal/repository"
)

// globalFlags are registered on every subcommand's flag set.
type globalFlags struct {
	config string
	sqlite string
}

func newFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", os.Getenv("CONFIG_FILE"), "YAML config file")
	fs.StringVar(&g.sqlite, "sqlite", "", "SQLite database file (overrides DB_URL)")
	return fs, g
}

func (g *globalFlags) load() (*common.Config, error) {
	var (
		cfg *common.Config
		err error
	)
	if g.config != "" {
		cfg, err = common.LoadConfigFile(g.config)
	} else {
		cfg, err = common.LoadConfig()
	}
	if err != nil {
		return nil, err
	}
	if g.sqlite != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = g.sqlite
	}
	return cfg, nil
}

// app holds everything a command may need. Commands that do not touch the
// database use only the extraction half.
type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	text       *ocr.Extractor
	contractAI llm.ContractExtractor
	paymentAI  llm.PaymentExtractor

	db        *repo.DB
	persons   repo.PersonRepository
	contracts repo.ContractRepository
	charges   repo.LedgerRepository
	jobs      repo.ImportJobRepository
	ledger    *ledger.Service
}

// newApp wires the text and AI extractors. withDB also opens the store;
// a SQLite store is migrated on open so a fresh file is usable at once.
func newApp(ctx context.Context, g *globalFlags, withDB bool) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	// JSON results go to stdout; logs go to stderr.
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}
	a.text = ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
	a.contractAI, a.paymentAI = newAI(cfg.LLM, a.metrics, logger)
	if !withDB {
		return a, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if db.Dialect() != dialect.Postgres {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	a.db = db
	a.persons = repo.NewPersonRepository(db, logger)
	a.contracts = repo.NewContractRepository(db, logger)
	a.charges = repo.NewLedgerRepository(db, logger)
	a.jobs = repo.NewImportJobRepository(db, logger)
	a.ledger = ledger.NewService(a.charges, a.metrics, logger)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func newAI(cfg common.LLMConfig, metrics *observability.Metrics, logger *slog.Logger) (llm.ContractExtractor, llm.PaymentExtractor) {
	client := openai.NewClient(openai.ConfigFrom(cfg), logger, openai.WithMetrics(metrics))
	if !client.Enabled() {
		logger.Warn("llm.disabled", "reason", "OPENAI_API_KEY not set")
		return llm.Noop{}, llm.Noop{}
	}
	return client, client
}

func (a *app) fieldExtractor() *pipeline.FieldExtractor {
	return pipeline.NewFieldExtractor(a.text, a.contractAI, a.cfg.LLM.Timeout, a.metrics, a.logger)
}

func (a *app) importer() *pipeline.ContractImporter {
	resolver := identity.NewResolver(a.persons, a.metrics, a.logger)
	return pipeline.NewContractImporter(a.fieldExtractor(), resolver, a.contracts,
		pipeline.DefaultsFrom(a.cfg.Ledger), a.metrics, a.logger,
		pipeline.WithScheduler(a.ledger),
		pipeline.WithImportJobs(a.jobs),
	)
}

func (a *app) reconciler() *pipeline.ReceiptReconciler {
	return pipeline.NewReceiptReconciler(a.text, a.paymentAI, a.ledger, a.cfg.LLM.Timeout, a.metrics, a.logger)
}

// readDocument loads a file; the format is guessed from its extension.
func readDocument(path string) (ocr.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ocr.Document{}, common.NewAppError("INVALID_INPUT", fmt.Sprintf("read %s: %v", path, err), common.ErrInvalidInput)
	}
	return ocr.Document{
		Bytes:    b,
		MIMEType: constants.MIMEFromExt(filepath.Ext(path)),
		Filename: filepath.Base(path),
	}, nil
}

func parseDate(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, common.Validationf("invalid --%s date, use YYYY-MM-DD: %v", name, err)
	}
	return &t, nil
}

func parseUUID(name, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, common.Validationf("invalid --%s id %q", name, s)
	}
	return id, nil
}

// singleArg returns the one positional argument a command expects.
func singleArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", common.Validationf("%s: expected exactly one %s", fs.Name(), what)
	}
	return fs.Arg(0), nil
}
