package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

// dateCol scans a DATE (Postgres hands back time.Time) or an ISO TEXT date
// (SQLite). NULL leaves Valid false.
type dateCol struct {
	Time  time.Time
	Valid bool
}

func (c *dateCol) Scan(v any) error {
	t, ok, err := scanTime(v, time.DateOnly, time.RFC3339)
	if err != nil {
		return err
	}
	c.Valid = ok
	if ok {
		c.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return nil
}

func (c dateCol) Ptr() *time.Time {
	if !c.Valid {
		return nil
	}
	t := c.Time
	return &t
}

// tsCol scans TIMESTAMPTZ or RFC 3339 TEXT.
type tsCol struct {
	Time  time.Time
	Valid bool
}

func (c *tsCol) Scan(v any) error {
	t, ok, err := scanTime(v, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999 -0700 MST")
	if err != nil {
		return err
	}
	c.Time, c.Valid = t.UTC(), ok
	return nil
}

func (c tsCol) Ptr() *time.Time {
	if !c.Valid {
		return nil
	}
	t := c.Time
	return &t
}

func scanTime(v any, layouts ...string) (time.Time, bool, error) {
	var s string
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return x, true, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}, false, fmt.Errorf("cannot scan %T into time", v)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse time %q", s)
}

func (d *DB) date(t time.Time) string { return t.Format(time.DateOnly) }

func (d *DB) nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.date(*t)
}

// ts binds a timestamp; SQLite gets RFC 3339 text so it sorts and parses back.
func (d *DB) ts(t time.Time) any {
	if t.IsZero() {
		t = time.Now()
	}
	if d.dialect == dialect.SQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type querier = dialect.ExecQuerier

type rowScanner interface {
	Scan(dest ...any) error
}

// queryAll runs a built query and scans every row.
func queryAll[T any](ctx context.Context, q querier, op string, b entsql.Querier, scan func(rowScanner) (T, error)) ([]T, error) {
	query, args := b.Query()
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, common.DatabaseError(op, err)
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, common.DatabaseError(op+": scan", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(op, err)
	}
	return out, nil
}

// queryOne is queryAll for at most one row; no row is common.ErrNotFound.
func queryOne[T any](ctx context.Context, q querier, op string, b entsql.Querier, scan func(rowScanner) (T, error)) (T, error) {
	all, err := queryAll(ctx, q, op, b, scan)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(all) == 0 {
		var zero T
		return zero, common.NotFoundf("%s: no rows", op)
	}
	return all[0], nil
}

// exec runs a built statement and returns the affected row count.
func exec(ctx context.Context, q querier, op string, b entsql.Querier) (int64, error) {
	query, args := b.Query()
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, common.DatabaseError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.DatabaseError(op, err)
	}
	return n, nil
}
