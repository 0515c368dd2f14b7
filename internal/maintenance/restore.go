package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/domain"
)

// ErrEmptyBackup is returned when a restore source holds no items.
var ErrEmptyBackup = errors.New("backup holds no items")

// RestoreOptions selects the restore source and mode.
type RestoreOptions struct {
	// Path is the snapshot to restore. Empty means the newest backup.
	Path string
	// Merge keeps the live shows and takes only movies from the backup.
	Merge bool
}

// RestoreReport describes a restore.
type RestoreReport struct {
	Source       string            `json:"source"`
	Merge        bool              `json:"merge"`
	BackupCounts domain.TypeCounts `json:"backupCounts"`
	Before       domain.TypeCounts `json:"before"`
	After        domain.TypeCounts `json:"after"`
	Version      int               `json:"version"`
	SafetyBackup *BackupReport     `json:"safetyBackup,omitempty"`
}

// Restore writes a snapshot back as the live list. The live list is backed
// up first. In merge mode the result is the backup's movies followed by the
// live list's shows.
func (t *Toolkit) Restore(ctx context.Context, opts RestoreOptions) (*RestoreReport, error) {
	if t.backups == nil {
		return nil, fmt.Errorf("%w: backup store", ErrNotConfigured)
	}
	path := opts.Path
	if path == "" {
		latest, err := t.backups.Latest()
		if err != nil {
			return nil, err
		}
		path = latest.Path
	}

	restored, err := backup.Load(path)
	if err != nil {
		return nil, err
	}
	if len(restored) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBackup, path)
	}

	safety, err := t.Backup(ctx)
	if err != nil {
		return nil, fmt.Errorf("safety backup: %w", err)
	}

	rep := &RestoreReport{
		Source:       path,
		Merge:        opts.Merge,
		BackupCounts: domain.CountByType(restored),
		SafetyBackup: safety,
	}
	name := "restore"
	if opts.Merge {
		name = "restore-merge"
	}
	res, err := t.svc.Rebuild(ctx, name, func(_ context.Context, current []domain.MediaRecord) ([]domain.MediaRecord, error) {
		if !opts.Merge {
			return restored, nil
		}
		movies := domain.FilterByType(restored, domain.MediaTypeMovie)
		shows := domain.FilterByType(current, domain.MediaTypeTV)
		merged := make([]domain.MediaRecord, 0, len(movies)+len(shows))
		merged = append(merged, movies...)
		return append(merged, shows...), nil
	})
	if err != nil {
		return nil, err
	}
	rep.Before = res.Before
	rep.After = res.After
	rep.Version = res.Version
	return rep, nil
}
