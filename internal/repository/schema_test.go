package repository

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/leases-tracker/db/ent/schema"
)

// The DDL in migrate.go is written by hand; keep it in step with the ent model.
func TestMigrationMatchesEntSchema(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "schema.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	models := map[string]ent.Interface{
		personsTable:    schema.Person{},
		contractsTable:  schema.Contract{},
		chargesTable:    schema.Charge{},
		paymentsTable:   schema.Payment{},
		importJobsTable: schema.ImportJob{},
	}
	for table, model := range models {
		t.Run(table, func(t *testing.T) {
			rows := &entsql.Rows{}
			if err := db.drv.Query(ctx, "SELECT name FROM pragma_table_info(?)", []any{table}, rows); err != nil {
				t.Fatal(err)
			}
			defer rows.Close()
			var columns []string
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					t.Fatal(err)
				}
				columns = append(columns, name)
			}
			var fields []string
			for _, f := range model.Fields() {
				fields = append(fields, f.Descriptor().Name)
			}
			slices.Sort(columns)
			slices.Sort(fields)
			if !slices.Equal(columns, fields) {
				t.Errorf("table columns %v != ent fields %v", columns, fields)
			}
		})
	}
}

func TestColumnListsMatchEntSchema(t *testing.T) {
	for _, tc := range []struct {
		columns []string
		model   ent.Interface
	}{
		{personColumns, schema.Person{}},
		{contractColumns, schema.Contract{}},
		{chargeColumns, schema.Charge{}},
		{paymentColumns, schema.Payment{}},
		{importJobColumns, schema.ImportJob{}},
	} {
		var fields []string
		for _, f := range tc.model.Fields() {
			fields = append(fields, f.Descriptor().Name)
		}
		if !slices.Equal(tc.columns, fields) {
			t.Errorf("column list %v, ent fields %v", tc.columns, fields)
		}
	}
}
