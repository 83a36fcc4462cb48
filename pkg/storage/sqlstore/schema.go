package sqlstore

import (
	"math"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table is the name of the table transcripts are stored in.
const Table = "transcripts"

var (
	// transcriptsColumns holds the columns for the "transcripts" table.
	transcriptsColumns = []*schema.Column{
		{Name: "event_id", Type: field.TypeString, Size: 255},
		{Name: "session_id", Type: field.TypeString, Size: 255},
		{Name: "provider", Type: field.TypeString, Size: 255, Nullable: true},
		{Name: "model", Type: field.TypeString, Size: 255, Nullable: true},
		{Name: "emitted_at", Type: field.TypeInt64},
		// body is the JSON encoded transcript.
		{Name: "body", Type: field.TypeString, Size: math.MaxInt32},
	}

	// transcriptsTable holds the schema information for the "transcripts" table.
	transcriptsTable = &schema.Table{
		Name:       Table,
		Columns:    transcriptsColumns,
		PrimaryKey: []*schema.Column{transcriptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "transcript_session_id",
				Unique:  false,
				Columns: []*schema.Column{transcriptsColumns[1]},
			},
			{
				Name:    "transcript_emitted_at",
				Unique:  false,
				Columns: []*schema.Column{transcriptsColumns[4]},
			},
		},
	}

	tables = []*schema.Table{transcriptsTable}
)
