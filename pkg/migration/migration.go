// Package migration runs versioned MongoDB schema changes (indexes,
// validators) and records them in the schema_migrations collection.
//
//	func init() {
//	    migration.Register("20260101000000_users_location_index", &UsersLocationIndex{})
//	}
//
//	farmdirect migrate             // run all pending
//	farmdirect migrate:rollback    // rollback last batch
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/farmdirect/farmdirect/pkg/logger"
)

// Collection holds one document per applied migration.
const Collection = "schema_migrations"

// Migration is the interface every migration must implement.
type Migration interface {
	Up(ctx context.Context, db *mongo.Database) error
	Down(ctx context.Context, db *mongo.Database) error
}

// Record is a row of the tracking collection.
type Record struct {
	Name  string    `bson:"name"`
	Batch int       `bson:"batch"`
	RunAt time.Time `bson:"runAt"`
}

// ErrNotRegistered is returned by Rollback for a recorded migration that no
// longer exists in code.
var ErrNotRegistered = errors.New("migration: not registered")

type registeredMigration struct {
	name string
	m    Migration
}

var registry []registeredMigration

// Register adds a migration to the global registry. name should be
// timestamp-prefixed; pending migrations run in name order.
func Register(name string, m Migration) {
	registry = append(registry, registeredMigration{name: name, m: m})
}

// ledger persists which migrations ran.
type ledger interface {
	Ran(ctx context.Context) ([]Record, error)
	Add(ctx context.Context, rec Record) error
	Remove(ctx context.Context, name string) error
}

// Runner executes and tracks migrations.
type Runner struct {
	db         *mongo.Database
	ledger     ledger
	migrations []registeredMigration
	out        io.Writer
}

// New creates a Runner over the global registry.
func New(db *mongo.Database) *Runner {
	return &Runner{
		db:         db,
		ledger:     mongoLedger{coll: db.Collection(Collection)},
		migrations: append([]registeredMigration(nil), registry...),
		out:        os.Stdout,
	}
}

// Pending returns the names of migrations that have not yet been run.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	pending, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(pending))
	for i, p := range pending {
		names[i] = p.name
	}
	return names, nil
}

func (r *Runner) pending(ctx context.Context) ([]registeredMigration, error) {
	ran, err := r.ledger.Ran(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(ran))
	for _, rec := range ran {
		done[rec.Name] = true
	}

	var pending []registeredMigration
	for _, reg := range r.migrations {
		if !done[reg.name] {
			pending = append(pending, reg)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].name < pending[j].name })
	return pending, nil
}

// Run executes all pending migrations in a single batch.
func (r *Runner) Run(ctx context.Context) error {
	pending, err := r.pending(ctx)
	if err != nil {
		return fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	batch, err := r.nextBatch(ctx)
	if err != nil {
		return err
	}

	for _, reg := range pending {
		logger.Info("migration: running", "name", reg.name)
		fmt.Fprintf(r.out, "  ▶ Migrating: %s\n", reg.name)

		if err := reg.m.Up(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		if err := r.ledger.Add(ctx, Record{Name: reg.name, Batch: batch, RunAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("migration: record %s: %w", reg.name, err)
		}
		fmt.Fprintf(r.out, "  ✅ Migrated:  %s\n", reg.name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverses every migration of the most recent batch, newest first.
func (r *Runner) Rollback(ctx context.Context) error {
	ran, err := r.ledger.Ran(ctx)
	if err != nil {
		return fmt.Errorf("migration: fetch ran: %w", err)
	}

	last := 0
	for _, rec := range ran {
		if rec.Batch > last {
			last = rec.Batch
		}
	}
	if last == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	var batch []Record
	for _, rec := range ran {
		if rec.Batch == last {
			batch = append(batch, rec)
		}
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Name > batch[j].Name })

	known := make(map[string]Migration, len(r.migrations))
	for _, reg := range r.migrations {
		known[reg.name] = reg.m
	}

	for _, rec := range batch {
		m, ok := known[rec.Name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotRegistered, rec.Name)
		}

		fmt.Fprintf(r.out, "  ◀ Rolling back: %s\n", rec.Name)
		logger.Info("migration: rolling back", "name", rec.Name)

		if err := m.Down(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.ledger.Remove(ctx, rec.Name); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "  ✅ Rolled back:  %s\n", rec.Name)
	}
	return nil
}

// Status prints all migrations and whether each has been run.
func (r *Runner) Status(ctx context.Context) error {
	ran, err := r.ledger.Ran(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]Record, len(ran))
	for _, rec := range ran {
		byName[rec.Name] = rec
	}

	names := make([]string, 0, len(r.migrations))
	for _, reg := range r.migrations {
		names = append(names, reg.name)
	}
	sort.Strings(names)

	fmt.Fprintf(r.out, "%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	fmt.Fprintln(r.out, strings.Repeat("-", 80))
	for _, name := range names {
		if rec, ok := byName[name]; ok {
			fmt.Fprintf(r.out, "%-60s  %-8s  %d\n", name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-60s  %-8s  -\n", name, "Pending")
		}
	}
	return nil
}

func (r *Runner) nextBatch(ctx context.Context) (int, error) {
	ran, err := r.ledger.Ran(ctx)
	if err != nil {
		return 0, err
	}
	last := 0
	for _, rec := range ran {
		if rec.Batch > last {
			last = rec.Batch
		}
	}
	return last + 1, nil
}

type mongoLedger struct {
	coll *mongo.Collection
}

func (l mongoLedger) Ran(ctx context.Context) ([]Record, error) {
	cur, err := l.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (l mongoLedger) Add(ctx context.Context, rec Record) error {
	_, err := l.coll.InsertOne(ctx, rec)
	return err
}

func (l mongoLedger) Remove(ctx context.Context, name string) error {
	_, err := l.coll.DeleteOne(ctx, bson.M{"name": name})
	return err
}
