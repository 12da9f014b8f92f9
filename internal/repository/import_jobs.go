package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/entity"
)

const importJobsTable = "import_jobs"

var importJobColumns = []string{"id", "filename", "format", "status", "fields", "contract_id", "error", "started_at", "finished_at"}

type ImportJobRepository interface {
	Start(ctx context.Context, filename string, format constants.Format) (entity.ImportJob, error)
	FinishSuccess(ctx context.Context, jobID, contractID uuid.UUID, fields []byte) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string, fields []byte) error
	Get(ctx context.Context, jobID uuid.UUID) (entity.ImportJob, error)
}

type importJobRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewImportJobRepository(db *DB, logger *slog.Logger) ImportJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &importJobRepository{db: db, logger: logger}
}

func (r *importJobRepository) Start(ctx context.Context, filename string, format constants.Format) (entity.ImportJob, error) {
	job := entity.ImportJob{
		ID:        uuid.New(),
		Filename:  filename,
		Format:    string(format),
		Status:    string(constants.ImportRunning),
		StartedAt: time.Now().UTC(),
	}
	ins := r.db.sql().Insert(importJobsTable).
		Columns("id", "filename", "format", "status", "started_at").
		Values(job.ID, job.Filename, job.Format, job.Status, r.db.ts(job.StartedAt))
	if _, err := exec(ctx, r.db.drv, "start import job", ins); err != nil {
		r.logger.Error("repository.import_job.start_failed", "filename", filename, "error", err)
		return entity.ImportJob{}, err
	}
	r.logger.Info("repository.import_job.started", "job_id", job.ID, "filename", filename, "format", format)
	return job, nil
}

func (r *importJobRepository) FinishSuccess(ctx context.Context, jobID, contractID uuid.UUID, fields []byte) error {
	upd := r.db.sql().Update(importJobsTable).
		Set("status", string(constants.ImportImported)).
		Set("contract_id", contractID).
		Set("fields", string(fields)).
		Set("finished_at", r.db.ts(time.Now())).
		Where(entsql.EQ("id", jobID))
	if err := r.finish(ctx, jobID, upd); err != nil {
		return err
	}
	r.logger.Info("repository.import_job.finished", "job_id", jobID, "contract_id", contractID)
	return nil
}

func (r *importJobRepository) FinishFailure(ctx context.Context, jobID uuid.UUID, message string, fields []byte) error {
	upd := r.db.sql().Update(importJobsTable).
		Set("status", string(constants.ImportFailed)).
		Set("error", message).
		Set("finished_at", r.db.ts(time.Now())).
		Where(entsql.EQ("id", jobID))
	if fields != nil {
		upd.Set("fields", string(fields))
	}
	if err := r.finish(ctx, jobID, upd); err != nil {
		return err
	}
	r.logger.Warn("repository.import_job.failed", "job_id", jobID, "error", message)
	return nil
}

func (r *importJobRepository) finish(ctx context.Context, jobID uuid.UUID, upd *entsql.UpdateBuilder) error {
	n, err := exec(ctx, r.db.drv, "finish import job", upd)
	if err != nil {
		r.logger.Error("repository.import_job.finish_failed", "job_id", jobID, "error", err)
		return err
	}
	if n == 0 {
		return common.NotFoundf("import job %s", jobID)
	}
	return nil
}

func (r *importJobRepository) Get(ctx context.Context, jobID uuid.UUID) (entity.ImportJob, error) {
	sel := r.db.sql().Select(importJobColumns...).From(entsql.Table(importJobsTable)).Where(entsql.EQ("id", jobID))
	return queryOne(ctx, r.db.drv, "get import job", sel, scanImportJob)
}

func scanImportJob(r rowScanner) (entity.ImportJob, error) {
	var (
		j                 entity.ImportJob
		fields, errMsg    sql.NullString
		contractID        uuid.NullUUID
		started, finished tsCol
	)
	if err := r.Scan(&j.ID, &j.Filename, &j.Format, &j.Status, &fields, &contractID, &errMsg, &started, &finished); err != nil {
		return entity.ImportJob{}, err
	}
	if fields.Valid {
		j.Fields = []byte(fields.String)
	}
	if contractID.Valid {
		id := contractID.UUID
		j.ContractID = &id
	}
	j.Error = errMsg.String
	j.StartedAt, j.FinishedAt = started.Time, finished.Ptr()
	return j, nil
}
