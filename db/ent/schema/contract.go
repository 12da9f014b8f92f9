package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/db/ent/schema/utils"
)

type Contract struct{ ent.Schema }

func (Contract) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "contracts"},
	}
}

func (Contract) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("property_id", uuid.UUID{}).Immutable(),
		field.UUID("tenant_id", uuid.UUID{}).Immutable(),
		field.UUID("owner_id", uuid.UUID{}).Immutable(),
		field.Time("start_date").
			SchemaType(map[string]string{dialect.Postgres: "date"}).
			Immutable(),
		field.Time("end_date").
			SchemaType(map[string]string{dialect.Postgres: "date"}).
			Immutable(),
		field.Other("monthly_rent", decimal.Decimal{}).
			SchemaType(map[string]string{dialect.Postgres: "numeric(14,2)", dialect.SQLite: "text"}).
			Immutable(),
		field.String("currency").Default(constants.DefaultCurrency).Immutable(),
		field.Int("pay_day").Range(1, 31).Immutable(),
		field.String("status").
			Validate(utils.EnumValidator(constants.ContractStatuses...)),
		field.String("notes").Default(""),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Contract) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("tenant", Person.Type).
			Ref("tenancies").
			Field("tenant_id").
			Required().
			Unique().
			Immutable(),
		edge.From("owner", Person.Type).
			Ref("ownerships").
			Field("owner_id").
			Required().
			Unique().
			Immutable(),
		edge.To("charges", Charge.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("import_jobs", ImportJob.Type).
			Annotations(entsql.OnDelete(entsql.SetNull)),
	}
}
