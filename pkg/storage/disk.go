// Package storage is the filesystem abstraction used for backup archives.
//
// Two drivers are available:
//   - "local": local filesystem (default)
//   - "s3": S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, err := storage.Open(config.StorageDefault())
//	err = disk.Put(ctx, "backups/2026-10-16/users.jsonl", r)
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/farmdirect/farmdirect/config"
)

// ErrUnknownDisk is returned by Open for an unsupported driver name.
var ErrUnknownDisk = errors.New("storage: unknown disk")

// Object is one stored file.
type Object struct {
	Path     string
	Size     int64
	Modified time.Time
}

// Disk is the driver interface.
type Disk interface {
	// Put writes r to path, creating parents as needed.
	Put(ctx context.Context, path string, r io.Reader) error

	// Get returns a reader for path. Caller must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns every object under prefix, recursively.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes paths. Missing paths are not an error.
	Delete(ctx context.Context, paths ...string) error

	// URL returns a locator for path suitable for logs.
	URL(path string) string
}

// Open boots the named disk from configuration.
func Open(ctx context.Context, name string) (Disk, error) {
	switch name {
	case "", "local":
		return NewLocal(config.StorageLocalRoot()), nil
	case "s3":
		return newS3Disk(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDisk, name)
}

// Newest sorts objects by modification time, newest first.
func Newest(objs []Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		return objs[i].Modified.After(objs[j].Modified)
	})
}
