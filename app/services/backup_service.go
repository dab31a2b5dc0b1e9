package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/storage"
)

// BackupCollections are exported by every backup run.
var BackupCollections = []string{
	models.UsersCollection,
	models.ProductsCollection,
	models.OrdersCollection,
	models.ChatsCollection,
}

const stampLayout = "20060102T150405Z"

// Dumper writes one collection as JSON lines.
type Dumper interface {
	Dump(ctx context.Context, collection string, w io.Writer) (int, error)
}

// BackupPolicy controls where backups go and how many survive pruning.
type BackupPolicy struct {
	Prefix    string
	Retention time.Duration
	MaxCount  int
}

// BackupReport summarises one run.
type BackupReport struct {
	Stamp     string
	Documents map[string]int
	Pruned    []string
}

// BackupService exports collections to a storage disk and prunes old runs.
type BackupService struct {
	dump   Dumper
	disk   storage.Disk
	policy BackupPolicy
	now    func() time.Time
}

func NewBackupService(dump Dumper, disk storage.Disk, policy BackupPolicy) *BackupService {
	if policy.Prefix == "" {
		policy.Prefix = "backups"
	}
	return &BackupService{dump: dump, disk: disk, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// Run writes <prefix>/<stamp>/<collection>.jsonl for every collection, then
// prunes.
func (s *BackupService) Run(ctx context.Context) (*BackupReport, error) {
	now := s.now()
	report := &BackupReport{Stamp: now.Format(stampLayout), Documents: map[string]int{}}
	log := logger.WithCtx(ctx)

	for _, coll := range BackupCollections {
		var buf bytes.Buffer
		n, err := s.dump.Dump(ctx, coll, &buf)
		if err != nil {
			return report, fmt.Errorf("backup: %s: %w", coll, err)
		}
		p := path.Join(s.policy.Prefix, report.Stamp, coll+".jsonl")
		if err := s.disk.Put(ctx, p, &buf); err != nil {
			return report, fmt.Errorf("backup: %s: %w", coll, err)
		}
		report.Documents[coll] = n
		log.Info("backup: wrote collection", "collection", coll, "documents", n, "url", s.disk.URL(p))
	}

	pruned, err := s.Prune(ctx, now)
	report.Pruned = pruned
	return report, err
}

// Prune deletes runs older than the retention window and, beyond that,
// all but the newest MaxCount runs. It returns the stamps removed.
func (s *BackupService) Prune(ctx context.Context, now time.Time) ([]string, error) {
	objs, err := s.disk.List(ctx, s.policy.Prefix)
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}

	runs := map[string][]string{}
	for _, o := range objs {
		rel := strings.TrimPrefix(strings.TrimPrefix(o.Path, s.policy.Prefix), "/")
		stamp, _, ok := strings.Cut(rel, "/")
		if !ok {
			continue
		}
		if _, err := time.Parse(stampLayout, stamp); err != nil {
			continue
		}
		runs[stamp] = append(runs[stamp], o.Path)
	}

	stamps := make([]string, 0, len(runs))
	for st := range runs {
		stamps = append(stamps, st)
	}
	// The layout sorts chronologically as text.
	sort.Sort(sort.Reverse(sort.StringSlice(stamps)))

	var pruned []string
	for i, st := range stamps {
		at, _ := time.Parse(stampLayout, st)
		expired := s.policy.Retention > 0 && now.Sub(at) > s.policy.Retention
		excess := s.policy.MaxCount > 0 && i >= s.policy.MaxCount
		if !expired && !excess {
			continue
		}
		if err := s.disk.Delete(ctx, runs[st]...); err != nil {
			return pruned, fmt.Errorf("backup: prune %s: %w", st, err)
		}
		pruned = append(pruned, st)
	}
	return pruned, nil
}
