package maintenance

import (
	"context"
	"fmt"

	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/logger"
)

// BackupReport describes a snapshot taken of the live list.
type BackupReport struct {
	RunID     string               `json:"runId"`
	File      string               `json:"file"`
	Path      string               `json:"path"`
	Version   int                  `json:"version"`
	SizeBytes int64                `json:"sizeBytes"`
	Counts    domain.TypeCounts    `json:"counts"`
	Sampled   []backup.SampleCheck `json:"sampled"`
	Mirrored  bool                 `json:"mirrored"`
}

// Backup snapshots the live list to the backup store and verifies it.
func (t *Toolkit) Backup(ctx context.Context) (*BackupReport, error) {
	snap, err := t.svc.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watch list: %w", err)
	}
	return t.backupItems(ctx, snap.Version, snap.Items)
}

func (t *Toolkit) backupItems(ctx context.Context, version int, items []domain.MediaRecord) (*BackupReport, error) {
	if t.backups == nil {
		return nil, fmt.Errorf("%w: backup store", ErrNotConfigured)
	}
	res, err := t.backups.Write(ctx, t.entryID, version, items)
	if err != nil {
		return nil, err
	}
	logger.Info("safety backup taken", "file", res.Manifest.File, "movies", res.Manifest.Counts.Movies, "tv", res.Manifest.Counts.TV)
	return &BackupReport{
		RunID:     res.Manifest.RunID,
		File:      res.Manifest.File,
		Path:      res.Path,
		Version:   res.Manifest.Version,
		SizeBytes: res.Manifest.SizeBytes,
		Counts:    res.Manifest.Counts,
		Sampled:   res.Sampled,
		Mirrored:  res.Mirrored,
	}, nil
}
