package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/leases-tracker/internal/async"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/ingest"
	"github.com/joseph-ayodele/leases-tracker/internal/pipeline"
)

// Manifest lists contract documents to import. Relative file paths are
// resolved against the manifest's directory.
//
//	workers: 4
//	contracts:
//	  - file: contracts/depto-101.pdf
//	    property_id: 5b1f...
//	    tenant: 12.345.678-5
//	    rent: "350.000"
type Manifest struct {
	Workers   int             `yaml:"workers"`
	Contracts []ManifestEntry `yaml:"contracts"`
}

type ManifestEntry struct {
	File       string `yaml:"file"`
	PropertyID string `yaml:"property_id"`
	Tenant     string `yaml:"tenant"`
	Owner      string `yaml:"owner"`
	Rent       string `yaml:"rent"`
	Notes      string `yaml:"notes"`
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("read manifest %s: %v", path, err), common.ErrInvalidInput)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, common.Validationf("parse manifest %s: %v", path, err)
	}
	if len(m.Contracts) == 0 {
		return nil, common.Validationf("manifest %s lists no contracts", path)
	}
	base := filepath.Dir(path)
	for i := range m.Contracts {
		e := &m.Contracts[i]
		if e.File == "" {
			return nil, common.Validationf("manifest entry %d: file is required", i+1)
		}
		if !filepath.IsAbs(e.File) {
			e.File = filepath.Join(base, e.File)
		}
	}
	return &m, nil
}

// manifestFromDir lists every document under dir with no overrides.
func manifestFromDir(dir string) (*Manifest, error) {
	paths, failed, stats, err := ingest.ScanDirectory(dir, nil, true)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", err.Error(), common.ErrInvalidInput)
	}
	for _, f := range failed {
		slog.Warn("batch.scan.skipped", "path", f.Path, "error", f.Err)
	}
	if len(paths) == 0 {
		return nil, common.Validationf("no contract documents under %s (scanned %d files)", dir, stats.Scanned)
	}
	m := &Manifest{}
	for _, p := range paths {
		m.Contracts = append(m.Contracts, ManifestEntry{File: p})
	}
	return m, nil
}

// request reads the entry's document and builds the import request.
func (e ManifestEntry) request() (pipeline.ContractRequest, error) {
	doc, err := readDocument(e.File)
	if err != nil {
		return pipeline.ContractRequest{}, err
	}
	req := pipeline.ContractRequest{Document: doc, TenantRef: e.Tenant, OwnerRef: e.Owner, Notes: e.Notes}
	if req.PropertyID, err = parseUUID("property_id", e.PropertyID); err != nil {
		return pipeline.ContractRequest{}, err
	}
	if req.FallbackRent, err = decimalFlag(e.Rent); err != nil {
		return pipeline.ContractRequest{}, err
	}
	return req, nil
}

// batchLine is one line of the batch report.
type batchLine struct {
	File       string    `json:"file"`
	ContractID uuid.UUID `json:"contract_id,omitempty"`
	Charges    int       `json:"charges_scheduled,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type batchReport struct {
	Imported int         `json:"imported"`
	Failed   int         `json:"failed"`
	Results  []batchLine `json:"results"`
}

// collector gathers queue results; DoneFunc runs on worker goroutines.
type collector struct {
	mu     sync.Mutex
	report batchReport
}

func (c *collector) done(job async.Job, res pipeline.ContractResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(job.Source, res, err)
}

func (c *collector) add(file string, res pipeline.ContractResult, err error) {
	line := batchLine{File: file}
	if err != nil {
		line.Error = err.Error()
		c.report.Failed++
	} else {
		line.ContractID = res.Contract.ID
		line.Charges = res.Charges
		c.report.Imported++
	}
	c.report.Results = append(c.report.Results, line)
}

func runBatch(ctx context.Context, args []string) error {
	fs, g := newFlagSet("batch")
	workers := fs.Int("workers", 0, "concurrent imports (overrides the manifest)")
	timeout := fs.Duration("timeout", 3*time.Minute, "per-document timeout")
	dir := fs.String("dir", "", "import every contract document under this directory instead of a manifest")
	if err := parseFlags(fs, args); err != nil {
		return quiet(err)
	}
	var (
		m   *Manifest
		err error
	)
	if *dir != "" {
		m, err = manifestFromDir(*dir)
	} else {
		var path string
		if path, err = singleArg(fs, "manifest file"); err != nil {
			return err
		}
		m, err = loadManifest(path)
	}
	if err != nil {
		return err
	}
	if *workers > 0 {
		m.Workers = *workers
	}

	a, err := newApp(ctx, g, true)
	if err != nil {
		return err
	}
	defer a.Close()

	col := &collector{}
	queue := async.NewImportQueue(a.importer(), a.logger,
		async.WithWorkers(m.Workers),
		async.WithQueueSize(len(m.Contracts)),
		async.WithProcessTimeout(*timeout),
		async.WithDoneFunc(col.done),
	)
	for _, e := range m.Contracts {
		req, err := e.request()
		if err != nil {
			col.done(async.Job{Source: e.File}, pipeline.ContractResult{}, err)
			continue
		}
		job := async.Job{Request: req, Source: e.File, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
		if err := queue.Enqueue(ctx, job); err != nil {
			col.done(job, pipeline.ContractResult{}, err)
		}
	}
	queue.Shutdown(context.Background())

	a.logger.Info("batch.done", "imported", col.report.Imported, "failed", col.report.Failed)
	if err := printJSON(col.report); err != nil {
		return err
	}
	if col.report.Failed > 0 {
		return common.NewAppError("BATCH_FAILED", fmt.Sprintf("%d of %d contracts failed", col.report.Failed, len(m.Contracts)), common.ErrValidation)
	}
	return nil
}
