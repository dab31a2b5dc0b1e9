// Package migrations contains the index migrations. Each file registers
// itself from init(); cmd/farmdirect imports the package for the side effect.
package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexMigration creates one named index on Up and drops it on Down.
type indexMigration struct {
	collection string
	model      mongo.IndexModel
}

func index(collection, name string, keys bson.D, opts ...func(*options.IndexOptions)) *indexMigration {
	o := options.Index().SetName(name)
	for _, fn := range opts {
		fn(o)
	}
	return &indexMigration{collection: collection, model: mongo.IndexModel{Keys: keys, Options: o}}
}

func (m *indexMigration) Up(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(m.collection).Indexes().CreateOne(ctx, m.model)
	return err
}

func (m *indexMigration) Down(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(m.collection).Indexes().DropOne(ctx, *m.model.Options.Name)
	return err
}

func unique(o *options.IndexOptions) { o.SetUnique(true) }

func weights(w bson.D) func(*options.IndexOptions) {
	return func(o *options.IndexOptions) { o.SetWeights(w) }
}
