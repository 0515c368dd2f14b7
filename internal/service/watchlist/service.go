package watchlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/pkg/logger"
	"github.com/moviediary/watchlog/internal/stats"
)

// Service implements the watch list read and write paths. Reads are
// lock-free; writes serialize on the lock returned by the LockFactory.
type Service struct {
	repo    Repository
	newLock LockFactory
	engine  *stats.Engine
}

// LockFactory returns a fresh lock instance per write cycle.
type LockFactory func() distlock.DistLock

// Option configures a Service.
type Option func(*Service)

// WithLock sets the lock used around writes. The default is distlock.Noop.
func WithLock(f LockFactory) Option {
	return func(s *Service) { s.newLock = f }
}

// WithEngine sets the stats engine. The default uses stats.DefaultPolicy.
func WithEngine(e *stats.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// NewService creates a watch list service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		newLock: func() distlock.DistLock { return distlock.Noop{} },
		engine:  stats.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Engine returns the stats engine the service classifies with.
func (s *Service) Engine() *stats.Engine { return s.engine }

// Load returns the current list.
func (s *Service) Load(ctx context.Context) ([]domain.MediaRecord, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// Snapshot returns the current list with its version metadata.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.repo.Load(ctx)
}

// Describe returns metadata about the backing entry.
func (s *Service) Describe(ctx context.Context) (*EntryInfo, error) {
	return s.repo.Describe(ctx)
}

// Stats loads the list and summarizes the records of type t.
func (s *Service) Stats(ctx context.Context, t domain.MediaType) (domain.StatsSummary, error) {
	items, err := s.Load(ctx)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	return s.engine.Summarize(items, t), nil
}

// MutateFunc edits a private copy of the list. It returns the edited list
// and whether anything changed; returning changed=false skips the write.
type MutateFunc func(ctx context.Context, items []domain.MediaRecord) ([]domain.MediaRecord, bool, error)

// MutationResult reports one write cycle.
type MutationResult struct {
	Before    domain.TypeCounts
	After     domain.TypeCounts
	Changed   bool
	Version   int
	Published bool
}

// Mutate runs fn under the lock against a fresh copy of the list, checks
// that the result still holds the same items in the same order, then
// saves and publishes it. name labels the run in logs.
func (s *Service) Mutate(ctx context.Context, name string, fn MutateFunc) (*MutationResult, error) {
	var res *MutationResult
	err := s.locked(ctx, func(ctx context.Context) error {
		snap, err := s.repo.Load(ctx)
		if err != nil {
			return err
		}

		working := make([]domain.MediaRecord, len(snap.Items))
		for i, rec := range snap.Items {
			working[i] = rec.Clone()
		}

		out, changed, err := fn(ctx, working)
		if err != nil {
			return err
		}

		res = &MutationResult{
			Before:  domain.CountByType(snap.Items),
			After:   domain.CountByType(out),
			Version: snap.Version,
		}
		if err := verifySameItems(snap.Items, out); err != nil {
			logger.Error("mutation rejected", "op", name, "error", err)
			return err
		}
		if !changed {
			logger.Info("mutation made no changes", "op", name, "items", len(out))
			return nil
		}

		saved, err := s.save(ctx, name, snap, out)
		if err != nil {
			return err
		}
		res.Changed = true
		res.Version = saved.Version
		res.Published = true
		return nil
	})
	return res, err
}

// Replace overwrites the whole list under the lock. It is the restore
// path and performs no identity checks.
func (s *Service) Replace(ctx context.Context, name string, items []domain.MediaRecord) (*MutationResult, error) {
	return s.Rebuild(ctx, name, func(context.Context, []domain.MediaRecord) ([]domain.MediaRecord, error) {
		return items, nil
	})
}

// Rebuild is Replace with the new list computed from the current one
// while the lock is held.
func (s *Service) Rebuild(ctx context.Context, name string, fn func(ctx context.Context, current []domain.MediaRecord) ([]domain.MediaRecord, error)) (*MutationResult, error) {
	var res *MutationResult
	err := s.locked(ctx, func(ctx context.Context) error {
		snap, err := s.repo.Load(ctx)
		if err != nil {
			return err
		}
		items, err := fn(ctx, snap.Items)
		if err != nil {
			return err
		}
		saved, err := s.save(ctx, name, snap, items)
		if err != nil {
			return err
		}
		res = &MutationResult{
			Before:    domain.CountByType(snap.Items),
			After:     domain.CountByType(items),
			Changed:   true,
			Version:   saved.Version,
			Published: true,
		}
		return nil
	})
	return res, err
}

// Republish publishes the current version without changing it.
func (s *Service) Republish(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := s.locked(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.repo.Load(ctx)
		if err != nil {
			return err
		}
		if err := s.repo.Publish(ctx, snap); err != nil {
			return fmt.Errorf("publishing version %d: %w", snap.Version, err)
		}
		logger.Info("watch list republished", "version", snap.Version, "items", len(snap.Items))
		return nil
	})
	return snap, err
}

func (s *Service) save(ctx context.Context, name string, base *Snapshot, items []domain.MediaRecord) (*Snapshot, error) {
	saved, err := s.repo.Save(ctx, base, items)
	if err != nil {
		return nil, fmt.Errorf("%s: saving: %w", name, err)
	}
	if err := s.repo.Publish(ctx, saved); err != nil {
		return nil, fmt.Errorf("%s: publishing version %d: %w", name, saved.Version, err)
	}
	logger.Info("watch list saved", "op", name, "version", saved.Version, "items", len(items))
	return saved, nil
}

func (s *Service) locked(ctx context.Context, fn func(ctx context.Context) error) error {
	err := distlock.Run(ctx, s.newLock(), fn)
	if errors.Is(err, distlock.ErrHeld) {
		return ErrLockHeld
	}
	return err
}

// verifySameItems checks that after has the same length, id sequence and
// per-type counts as before.
func verifySameItems(before, after []domain.MediaRecord) error {
	if len(before) != len(after) {
		return fmt.Errorf("%w: item count changed from %d to %d", ErrVerification, len(before), len(after))
	}
	for i := range before {
		bid, bok := before[i].ID()
		aid, aok := after[i].ID()
		if bok != aok || bid != aid {
			return fmt.Errorf("%w: item %d id changed from %v to %v", ErrVerification, i, before[i][domain.FieldID], after[i][domain.FieldID])
		}
	}
	if b, a := domain.CountByType(before), domain.CountByType(after); b != a {
		return fmt.Errorf("%w: type counts changed from %d movies/%d tv to %d movies/%d tv",
			ErrVerification, b.Movies, b.TV, a.Movies, a.TV)
	}
	return nil
}
