package repositories

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/farmdirect/farmdirect/pkg/metrics"
)

// Dumper streams whole collections as canonical Extended JSON, one
// document per line.
type Dumper struct {
	db *mongo.Database
}

func NewDumper(db *mongo.Database) *Dumper {
	return &Dumper{db: db}
}

// Dump writes every document of collection to w and returns the count.
func (d *Dumper) Dump(ctx context.Context, collection string, w io.Writer) (int, error) {
	defer metrics.ObserveStore(collection+".dump", time.Now())

	cur, err := d.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("%s: dump: %w", collection, err)
	}
	defer cur.Close(ctx)

	bw := bufio.NewWriter(w)
	n := 0
	for cur.Next(ctx) {
		line, err := bson.MarshalExtJSON(cur.Current, true, false)
		if err != nil {
			return n, fmt.Errorf("%s: dump: %w", collection, err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return n, err
		}
		n++
	}
	if err := cur.Err(); err != nil {
		return n, fmt.Errorf("%s: dump: %w", collection, err)
	}
	return n, bw.Flush()
}
