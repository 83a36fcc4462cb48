// Package sqlstore implements storage.Driver on top of any database/sql
// connection. The table is migrated with ent's schema package and statements
// are built with ent's SQL builder.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
)

// Driver implements storage.Driver over an ent SQL driver.
type Driver struct {
	drv     *entsql.Driver
	dialect string
}

// New wraps db and creates the transcripts table when it is missing.
// dialectName is one of the entgo.io/ent/dialect names.
func New(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	d := &Driver{
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
	}

	if err := d.migrate(ctx); err != nil {
		_ = d.drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return d, nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect)
}

func (d *Driver) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}

// Put stores a transcript. Storing the same event id twice is a no-op.
func (d *Driver) Put(ctx context.Context, t *eventstream.Transcript) (bool, error) {
	if err := storage.Validate(t); err != nil {
		return false, err
	}

	body, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("encoding transcript: %w", err)
	}

	model := ""
	if t.Meta != nil {
		model = t.Meta.Model
	}

	query, args := d.builder().Insert(Table).
		Columns("event_id", "session_id", "provider", "model", "emitted_at", "body").
		Values(t.EventID, t.SessionID, t.Source.Provider, model, t.EmittedAt.UnixNano(), string(body)).
		OnConflict(entsql.ConflictColumns("event_id"), entsql.DoNothing()).
		Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("inserting transcript: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting transcript: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a transcript by its event id.
func (d *Driver) Get(ctx context.Context, eventID string) (*eventstream.Transcript, error) {
	b := d.builder()
	t := b.Table(Table)
	query, args := b.Select(t.C("body")).
		From(t).
		Where(entsql.EQ(t.C("event_id"), eventID)).
		Query()

	found, err := d.queryBodies(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, storage.NotFoundError{EventID: eventID}
	}
	return found[0], nil
}

// List returns matching transcripts, newest first.
func (d *Driver) List(ctx context.Context, opts storage.ListOptions) ([]*eventstream.Transcript, error) {
	b := d.builder()
	t := b.Table(Table)
	sel := b.Select(t.C("body")).From(t)

	if opts.SessionID != "" {
		sel.Where(entsql.EQ(t.C("session_id"), opts.SessionID))
	}
	if opts.Provider != "" {
		sel.Where(entsql.EQ(t.C("provider"), opts.Provider))
	}

	query, args := sel.
		OrderBy(entsql.Desc(t.C("emitted_at"))).
		Limit(opts.EffectiveLimit()).
		Query()

	return d.queryBodies(ctx, query, args)
}

// Count returns the number of stored transcripts.
func (d *Driver) Count(ctx context.Context) (int, error) {
	b := d.builder()
	query, args := b.Select(entsql.Count("*")).From(b.Table(Table)).Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("counting transcripts: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("counting transcripts: %w", err)
		}
		return 0, errors.New("counting transcripts: no result row")
	}

	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transcripts: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) queryBodies(ctx context.Context, query string, args []any) ([]*eventstream.Transcript, error) {
	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var out []*eventstream.Transcript
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}

		t := &eventstream.Transcript{}
		if err := json.Unmarshal([]byte(body), t); err != nil {
			return nil, fmt.Errorf("decoding transcript: %w", err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	return out, nil
}
