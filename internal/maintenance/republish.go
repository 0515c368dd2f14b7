package maintenance

import (
	"context"
	"fmt"

	"github.com/moviediary/watchlog/internal/pkg/logger"
)

// RepublishReport describes a republish.
type RepublishReport struct {
	Items          int    `json:"items"`
	Version        int    `json:"version"`
	InvalidationID string `json:"invalidationId,omitempty"`
}

// Republish publishes the current version again so the delivery cache
// refreshes, then invalidates the CDN when one is configured. A failed
// invalidation is reported as an error after the publish succeeded.
func (t *Toolkit) Republish(ctx context.Context) (*RepublishReport, error) {
	snap, err := t.svc.Republish(ctx)
	if err != nil {
		return nil, err
	}
	rep := &RepublishReport{Items: len(snap.Items), Version: snap.Version}

	if t.cdn == nil || !t.cdn.Enabled() {
		return rep, nil
	}
	id, err := t.cdn.Invalidate(ctx)
	if err != nil {
		return rep, fmt.Errorf("cdn invalidation: %w", err)
	}
	rep.InvalidationID = id
	logger.Info("cdn invalidation created", "id", id)
	return rep, nil
}
