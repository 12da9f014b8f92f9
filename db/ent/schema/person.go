package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/leases-tracker/constants"
	"github.com/joseph-ayodele/leases-tracker/db/ent/schema/utils"
)

// Person is a tenant, owner, broker or supplier. Never deleted.
type Person struct{ ent.Schema }

func (Person) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "persons"},
	}
}

func (Person) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("kind").
			Validate(utils.EnumValidator(constants.KindsAsStringSlice()...)),
		field.String("display_name").NotEmpty(),
		// normalized RUT: digits plus check digit, no punctuation
		field.String("tax_id").
			Optional().Nillable().
			Unique(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Person) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("tenancies", Contract.Type),
		edge.To("ownerships", Contract.Type),
	}
}
