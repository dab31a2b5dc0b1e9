// Package repositories holds the MongoDB access code. Every repository takes
// the database handle in its constructor; nothing here reads package globals.
package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("repositories: not found")
	// ErrConflict is returned when a conditional update lost a race.
	ErrConflict = errors.New("repositories: concurrent modification")
)

// ObjectID parses a hex id, mapping malformed input to ErrNotFound.
func ObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
