package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is immutable once stored.
type Payment struct{ ent.Schema }

func (Payment) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "payments"},
	}
}

func (Payment) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("charge_id", uuid.UUID{}).Immutable(),
		field.Other("amount_paid", decimal.Decimal{}).
			SchemaType(map[string]string{dialect.Postgres: "numeric(14,2)", dialect.SQLite: "text"}).
			Immutable(),
		field.Time("paid_date").
			SchemaType(map[string]string{dialect.Postgres: "date"}).
			Immutable(),
		field.String("method").Default("").Immutable(),
		field.String("reference").Default("").Immutable(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Payment) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("charge", Charge.Type).
			Ref("payments").
			Field("charge_id").
			Required().
			Unique().
			Immutable(),
	}
}

func (Payment) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("charge_id"),
	}
}
