package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/moviediary/watchlog/internal/domain"
)

// FieldCount is how many items carry one removable field.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// CleanupReport describes a field cleanup, previewed or applied.
type CleanupReport struct {
	Counts         domain.TypeCounts `json:"counts"`
	Fields         []FieldCount      `json:"fields"`
	ItemsCleaned   int               `json:"itemsCleaned"`
	CurrentBytes   int               `json:"currentBytes"`
	NewBytes       int               `json:"newBytes"`
	SavingsPercent float64           `json:"savingsPercent"`
	Applied        bool              `json:"applied"`
	Version        int               `json:"version,omitempty"`
	Backup         *BackupReport     `json:"backup,omitempty"`
}

// PreviewCleanup reports what Cleanup would remove without writing.
func (t *Toolkit) PreviewCleanup(ctx context.Context) (*CleanupReport, error) {
	items, err := t.svc.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading watch list: %w", err)
	}
	_, rep, err := stripFields(items, t.cleanupFields)
	return rep, err
}

// Cleanup backs the list up, strips the configured fields from every item
// and saves the result. Nothing is written when no item carried any of the
// fields. The write aborts if the total or per-type counts would change.
func (t *Toolkit) Cleanup(ctx context.Context) (*CleanupReport, error) {
	bk, err := t.Backup(ctx)
	if err != nil {
		return nil, fmt.Errorf("safety backup: %w", err)
	}

	var rep *CleanupReport
	res, err := t.svc.Mutate(ctx, "cleanup", func(_ context.Context, items []domain.MediaRecord) ([]domain.MediaRecord, bool, error) {
		cleaned, r, err := stripFields(items, t.cleanupFields)
		if err != nil {
			return nil, false, err
		}
		rep = r
		return cleaned, r.ItemsCleaned > 0, nil
	})
	if err != nil {
		return nil, err
	}
	rep.Backup = bk
	rep.Applied = res.Changed
	rep.Version = res.Version
	return rep, nil
}

// stripFields removes fields from copies of items and measures the result.
// Field counts are sorted by count, descending.
func stripFields(items []domain.MediaRecord, fields []string) ([]domain.MediaRecord, *CleanupReport, error) {
	counts := make(map[string]int, len(fields))
	cleaned := make([]domain.MediaRecord, len(items))
	rep := &CleanupReport{Counts: domain.CountByType(items)}

	for i, rec := range items {
		out, removed := rec.Without(fields)
		cleaned[i] = out
		if len(removed) > 0 {
			rep.ItemsCleaned++
		}
		for _, f := range removed {
			counts[f]++
		}
	}

	for _, f := range fields {
		if n := counts[f]; n > 0 {
			rep.Fields = append(rep.Fields, FieldCount{Field: f, Count: n})
		}
	}
	sort.SliceStable(rep.Fields, func(i, j int) bool { return rep.Fields[i].Count > rep.Fields[j].Count })

	before, err := json.Marshal(items)
	if err != nil {
		return nil, nil, fmt.Errorf("measuring list: %w", err)
	}
	after, err := json.Marshal(cleaned)
	if err != nil {
		return nil, nil, fmt.Errorf("measuring cleaned list: %w", err)
	}
	rep.CurrentBytes = len(before)
	rep.NewBytes = len(after)
	if rep.CurrentBytes > 0 {
		rep.SavingsPercent = float64(rep.CurrentBytes-rep.NewBytes) / float64(rep.CurrentBytes) * 100
	}
	return cleaned, rep, nil
}
