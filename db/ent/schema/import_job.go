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

// ImportJob records one run of the contract import pipeline.
type ImportJob struct{ ent.Schema }

func (ImportJob) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "import_jobs"},
	}
}

func (ImportJob) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("filename"),
		field.String("format"),
		field.String("status").
			Default(string(constants.ImportRunning)).
			Validate(utils.EnumValidator(constants.ImportStatuses...)),
		// merged fields as JSON
		field.Text("fields").Optional().Nillable(),
		field.UUID("contract_id", uuid.UUID{}).Optional().Nillable(),
		field.Text("error").Optional().Nillable(),
		field.Time("started_at").Default(time.Now).Immutable(),
		field.Time("finished_at").Optional().Nillable(),
	}
}

func (ImportJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("contract", Contract.Type).
			Ref("import_jobs").
			Field("contract_id").
			Unique(),
	}
}
