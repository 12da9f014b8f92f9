package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

// DB is the shared handle behind every repository. Postgres goes through a
// pgx pool; SQLite (local CLI runs, tests) through modernc's pure-Go driver
// limited to one connection, which makes it the single writer.
type DB struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// Open dispatches on cfg.Driver.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case dialect.Postgres:
		return OpenPostgres(ctx, cfg, logger)
	case "sqlite", dialect.SQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// OpenPostgres creates a pgx pool and wraps it for ent's SQL driver.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.open", "driver", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.open.failed", "error", err)
		return nil, common.DatabaseError("parse dsn", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "leases-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dctx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("db.open.failed", "error", err)
		return nil, common.DatabaseError("connect", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("db.open.ok", "driver", dialect.Postgres)
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, dialect: dialect.Postgres, logger: logger}, nil
}

// OpenSQLite opens (creating if needed) the database file at path. Foreign
// keys are on and transactions take the write lock up front.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.DatabaseError("open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("db.open.failed", "driver", dialect.SQLite, "error", err)
		return nil, common.DatabaseError("open sqlite", err)
	}
	logger.Info("db.open.ok", "driver", dialect.SQLite, "path", path)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite, logger: logger}, nil
}

// Dialect is dialect.Postgres or dialect.SQLite.
func (d *DB) Dialect() string { return d.dialect }

// Close closes the pool and the sql.DB wrapping it.
func (d *DB) Close() {
	d.logger.Info("db.close")
	if err := d.drv.Close(); err != nil {
		d.logger.Error("db.close.failed", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database within timeout.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.drv.DB().PingContext(ctx)
	}
	if err != nil {
		d.logger.Warn("db.ping.failed", "error", err)
		return common.DatabaseError("ping", err)
	}
	d.logger.Debug("db.ping.ok")
	return nil
}

func (d *DB) sql() *entsql.DialectBuilder { return entsql.Dialect(d.dialect) }

// inTx runs fn in a transaction, rolling back on error or panic.
func (d *DB) inTx(ctx context.Context, op string, fn func(tx dialect.Tx) error) (err error) {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return common.DatabaseError(op+": begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Error("db.tx.rollback_failed", "op", op, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.DatabaseError(op+": commit", err)
	}
	return nil
}
