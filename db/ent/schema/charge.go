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

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/db/ent/schema/utils"
)

// Charge is one contract's obligation for one calendar month. state and
// paid_date are derived from the charge's payments.
type Charge struct{ ent.Schema }

func (Charge) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "charges"},
	}
}

func (Charge) Fields() []ent.Field {
	money := map[string]string{dialect.Postgres: "numeric(14,2)", dialect.SQLite: "text"}
	date := map[string]string{dialect.Postgres: "date"}
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("contract_id", uuid.UUID{}).Immutable(),
		// first day of the month
		field.Time("period").SchemaType(date).Immutable(),
		field.Other("original_amount", decimal.Decimal{}).SchemaType(money),
		field.Other("adjusted_amount", decimal.Decimal{}).SchemaType(money).
			Optional().Nillable(),
		field.Time("due_date").SchemaType(date),
		field.String("state").
			Default(string(constants.ChargePending)).
			Validate(utils.EnumValidator(constants.ChargeStates...)),
		field.Time("paid_date").SchemaType(date).
			Optional().Nillable(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Charge) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("contract", Contract.Type).
			Ref("charges").
			Field("contract_id").
			Required().
			Unique().
			Immutable(),
		edge.To("payments", Payment.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

func (Charge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("contract_id", "period").Unique(),
	}
}
