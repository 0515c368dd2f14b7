package maintenance_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/moviediary/watchlog/internal/backup"
	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/maintenance"
	"github.com/moviediary/watchlog/internal/pkg/distlock"
	"github.com/moviediary/watchlog/internal/service/watchlist"
	"github.com/moviediary/watchlog/internal/tmdb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FAKES
// =============================================================================

type memRepo struct {
	mu        sync.Mutex
	items     []domain.MediaRecord
	version   int
	saves     int
	publishes int
}

func newMemRepo(items ...domain.MediaRecord) *memRepo {
	return &memRepo{items: items, version: 1}
}

func (m *memRepo) Load(_ context.Context) (*watchlist.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]domain.MediaRecord, len(m.items))
	copy(cp, m.items)
	return &watchlist.Snapshot{Items: cp, Version: m.version}, nil
}

func (m *memRepo) Save(_ context.Context, _ *watchlist.Snapshot, items []domain.MediaRecord) (*watchlist.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	m.version++
	m.saves++
	return &watchlist.Snapshot{Items: items, Version: m.version}, nil
}

func (m *memRepo) Publish(_ context.Context, snap *watchlist.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes++
	m.version = snap.Version + 1
	return nil
}

func (m *memRepo) Describe(_ context.Context) (*watchlist.EntryInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &watchlist.EntryInfo{ID: "movieList", ContentType: "movieList", Version: m.version, Fields: []string{"contents"}, ItemCount: len(m.items)}, nil
}

type fakeMeta struct {
	mu      sync.Mutex
	movies  map[int]*tmdb.Movie
	credits map[int]*tmdb.Credits
	shows   map[int]*tmdb.TV
	calls   int
	onTV    func()
}

func (f *fakeMeta) GetMovie(_ context.Context, id int) (*tmdb.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if m, ok := f.movies[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("movie %d: %w", id, tmdb.ErrNotFound)
}

func (f *fakeMeta) GetMovieCredits(_ context.Context, id int) (*tmdb.Credits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if c, ok := f.credits[id]; ok {
		return c, nil
	}
	return &tmdb.Credits{ID: id}, nil
}

func (f *fakeMeta) GetTV(_ context.Context, id int) (*tmdb.TV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.onTV != nil {
		f.onTV()
	}
	if s, ok := f.shows[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("tv %d: %w", id, tmdb.ErrNotFound)
}

type fakeCDN struct {
	enabled bool
	err     error
	calls   int
}

func (f *fakeCDN) Enabled() bool { return f.enabled }

func (f *fakeCDN) Invalidate(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "I2J0I21PCUYOIK", nil
}

type fixture struct {
	repo    *memRepo
	meta    *fakeMeta
	cdn     *fakeCDN
	backups *backup.Store
	kit     *maintenance.Toolkit
}

func newFixture(t *testing.T, items ...domain.MediaRecord) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newMemRepo(items...),
		meta:    &fakeMeta{movies: map[int]*tmdb.Movie{}, credits: map[int]*tmdb.Credits{}, shows: map[int]*tmdb.TV{}},
		cdn:     &fakeCDN{},
		backups: backup.NewStore(config.BackupConfig{Dir: t.TempDir(), SampleSize: 5}, nil),
	}
	f.kit = maintenance.New(maintenance.Deps{
		Watchlist:     watchlist.NewService(f.repo),
		Backups:       f.backups,
		Metadata:      f.meta,
		CDN:           f.cdn,
		EntryID:       "movieList",
		CleanupFields: config.DefaultCleanupFields,
	})
	return f
}

func movie(id int, extra map[string]any) domain.MediaRecord {
	r := domain.MediaRecord{"id": id, "title": fmt.Sprintf("Movie %d", id), "poster_path": "/p.jpg", "rating": 4}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func show(id int, extra map[string]any) domain.MediaRecord {
	r := domain.MediaRecord{"id": id, "name": fmt.Sprintf("Show %d", id), "first_air_date": "2011-04-17"}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func backupCount(t *testing.T, s *backup.Store) int {
	t.Helper()
	all, err := s.List()
	require.NoError(t, err)
	return len(all)
}

// =============================================================================
// BACKUP
// =============================================================================

func TestBackup(t *testing.T) {
	f := newFixture(t, movie(1, nil), movie(2, nil), show(3, nil))

	rep, err := f.kit.Backup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TypeCounts{Total: 3, Movies: 2, TV: 1}, rep.Counts)
	assert.Len(t, rep.Sampled, 3)
	assert.FileExists(t, rep.Path)
	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.Mirrored)
}

// =============================================================================
// CLEANUP
// =============================================================================

func TestPreviewCleanup(t *testing.T) {
	f := newFixture(t,
		movie(1, map[string]any{"overview": "a long synopsis", "popularity": 12.5, "original_language": "ja"}),
		movie(2, map[string]any{"overview": "another synopsis"}),
		show(3, nil),
	)

	rep, err := f.kit.PreviewCleanup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []maintenance.FieldCount{{Field: "overview", Count: 2}, {Field: "popularity", Count: 1}}, rep.Fields)
	assert.Equal(t, 2, rep.ItemsCleaned)
	assert.Greater(t, rep.CurrentBytes, rep.NewBytes)
	assert.Greater(t, rep.SavingsPercent, 0.0)
	assert.False(t, rep.Applied)
	assert.Zero(t, f.repo.saves)
}

func TestCleanup_AppliesAfterBackup(t *testing.T) {
	f := newFixture(t,
		movie(1, map[string]any{"overview": "x", "vote_count": 10, "original_language": "ko", "dateWatched": "2024-01-01"}),
		show(2, map[string]any{"backdrop_path": "/b.jpg"}),
	)

	rep, err := f.kit.Cleanup(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Applied)
	require.NotNil(t, rep.Backup)
	assert.Equal(t, 1, backupCount(t, f.backups))
	assert.Equal(t, 1, f.repo.saves)
	assert.Equal(t, 1, f.repo.publishes)

	assert.NotContains(t, f.repo.items[0], "overview")
	assert.NotContains(t, f.repo.items[0], "vote_count")
	assert.Equal(t, "ko", f.repo.items[0]["original_language"], "attribution input survives")
	assert.Equal(t, "2024-01-01", f.repo.items[0]["dateWatched"])
	assert.NotContains(t, f.repo.items[1], "backdrop_path")
}

func TestCleanup_NothingToRemove(t *testing.T) {
	f := newFixture(t, movie(1, nil), show(2, nil))

	rep, err := f.kit.Cleanup(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Applied)
	assert.Zero(t, f.repo.saves)
}

func TestCleanup_AbortsWhenTypeCountsChange(t *testing.T) {
	f := newFixture(t, movie(1, nil), show(2, nil))
	kit := maintenance.New(maintenance.Deps{
		Watchlist:     watchlist.NewService(f.repo),
		Backups:       f.backups,
		CleanupFields: []string{"first_air_date"},
	})

	_, err := kit.Cleanup(context.Background())
	assert.ErrorIs(t, err, watchlist.ErrVerification)
	assert.Zero(t, f.repo.saves)
	assert.Equal(t, "2011-04-17", f.repo.items[1]["first_air_date"])
}

// =============================================================================
// ENRICHMENT
// =============================================================================

func TestEnrichCredits(t *testing.T) {
	f := newFixture(t,
		movie(1, nil),
		movie(2, map[string]any{"director": "Unknown", "production_countries": []any{"US"}}),
		movie(3, map[string]any{"director": "Jane Campion", "production_countries": []any{"NZ"}}),
		show(4, nil),
		movie(5, nil),
	)
	f.meta.movies[1] = &tmdb.Movie{ID: 1, ProductionCountries: []tmdb.ProductionCountry{{ISO3166_1: "IE"}, {ISO3166_1: "GB"}}}
	f.meta.credits[1] = &tmdb.Credits{ID: 1, Crew: []tmdb.CrewMember{{Name: "A Writer", Job: "Screenplay"}, {Name: "Yorgos Lanthimos", Job: "Director"}}}
	f.meta.movies[2] = &tmdb.Movie{ID: 2, ProductionCountries: []tmdb.ProductionCountry{{ISO3166_1: "US"}}}
	f.meta.shows[4] = &tmdb.TV{ID: 4, OriginCountry: []string{"US"}, CreatedBy: []tmdb.Creator{{Name: "Eric Kripke"}}}

	var seen []int
	rep, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{
		Progress: func(p maintenance.Progress) { seen = append(seen, p.ID) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Enriched)
	assert.Equal(t, 1, rep.Skipped)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, 5, rep.Failed[0].ID)
	assert.True(t, rep.Applied)
	assert.Equal(t, []int{1, 2, 4, 5}, seen)
	assert.Equal(t, 1, f.repo.saves, "one save for the whole run")
	assert.Equal(t, 1, backupCount(t, f.backups))

	items := f.repo.items
	assert.Equal(t, "Yorgos Lanthimos", items[0]["director"])
	assert.Equal(t, []string{"IE", "GB"}, items[0]["production_countries"])
	assert.Equal(t, "movie", items[0]["media_type"])
	assert.Equal(t, "Unknown", items[1]["director"], "no director credit stays Unknown")
	assert.NotContains(t, items[2], "media_type", "skipped items are untouched")
	assert.Equal(t, "Eric Kripke", items[3]["creator"])
	assert.Equal(t, []string{"US"}, items[3]["origin_country"])
	assert.Equal(t, "tv", items[3]["media_type"])
	assert.Equal(t, "movie", items[4]["media_type"], "media_type is set even when the fetch failed")
	assert.NotContains(t, items[4], "director")
}

func TestEnrichCredits_TypeAndLimit(t *testing.T) {
	f := newFixture(t, movie(1, nil), show(2, nil), show(3, nil))
	f.meta.shows[2] = &tmdb.TV{ID: 2}
	f.meta.shows[3] = &tmdb.TV{ID: 3}

	rep, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{Type: domain.MediaTypeTV, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Enriched)
	assert.Equal(t, "Unknown", f.repo.items[1]["creator"])
	assert.Equal(t, []string{}, f.repo.items[1]["origin_country"])
	assert.NotContains(t, f.repo.items[2], "creator")
	assert.NotContains(t, f.repo.items[0], "director")
}

func TestEnrichCredits_Errors(t *testing.T) {
	f := newFixture(t, movie(1, nil))

	_, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{Type: "person"})
	assert.Error(t, err)

	kit := maintenance.New(maintenance.Deps{Watchlist: watchlist.NewService(f.repo), Backups: f.backups})
	_, err = kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{})
	assert.ErrorIs(t, err, maintenance.ErrNotConfigured)
}

func TestEnrichCredits_Cancelled(t *testing.T) {
	f := newFixture(t, movie(1, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.kit.EnrichCredits(ctx, maintenance.EnrichOptions{})
	assert.Error(t, err)
	assert.Zero(t, f.repo.saves)
}

func TestEnrichCredits_SkipsShowsWithCreatedBy(t *testing.T) {
	f := newFixture(t,
		show(1, map[string]any{"created_by": "Phoebe Waller-Bridge", "origin_country": []any{"GB"}}),
		show(2, map[string]any{"created_by": []any{map[string]any{"name": "Matt Duffer"}}, "origin_country": []any{"US"}}),
		show(3, map[string]any{"created_by": "Unknown", "origin_country": []any{"US"}}),
	)
	f.meta.shows[3] = &tmdb.TV{ID: 3, OriginCountry: []string{"US"}, CreatedBy: []tmdb.Creator{{Name: "Vince Gilligan"}}}

	rep, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, 1, rep.Enriched)
	assert.Equal(t, 1, f.meta.calls)
	assert.NotContains(t, f.repo.items[0], "creator")
	assert.NotContains(t, f.repo.items[1], "creator")
	assert.Equal(t, "Vince Gilligan", f.repo.items[2]["creator"])
}

// lockedFixture guards the fixture's list with a one-second Redis lock.
func lockedFixture(t *testing.T, items ...domain.MediaRecord) (*fixture, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture(t, items...)
	svc := watchlist.NewService(f.repo, watchlist.WithLock(func() distlock.DistLock {
		return distlock.NewRedisLock(rdb, "watchlist", time.Second)
	}))
	f.kit = maintenance.New(maintenance.Deps{Watchlist: svc, Backups: f.backups, Metadata: f.meta, EntryID: "movieList"})
	return f, mr, rdb
}

func TestEnrichCredits_KeepsLockForLongRuns(t *testing.T) {
	f, mr, rdb := lockedFixture(t, show(1, nil), show(2, nil), show(3, nil))
	for id := 1; id <= 3; id++ {
		f.meta.shows[id] = &tmdb.TV{ID: id, OriginCountry: []string{"US"}}
	}

	var stolen []bool
	f.meta.onTV = func() {
		mr.FastForward(800 * time.Millisecond)
		ok, err := distlock.NewRedisLock(rdb, "watchlist", time.Minute).Acquire(context.Background())
		require.NoError(t, err)
		stolen = append(stolen, ok)
	}

	rep, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Enriched)
	assert.Equal(t, []bool{false, false, false}, stolen, "the run outlived its TTL but kept the lock")
	assert.Equal(t, 1, f.repo.saves)
	assert.False(t, mr.Exists("watchlog:lock:watchlist"), "released after the run")
}

func TestEnrichCredits_AbortsWhenLockLost(t *testing.T) {
	f, mr, _ := lockedFixture(t, show(1, nil), show(2, nil))
	f.meta.shows[1] = &tmdb.TV{ID: 1}
	f.meta.shows[2] = &tmdb.TV{ID: 2}
	f.meta.onTV = func() { mr.FastForward(2 * time.Second) }

	_, err := f.kit.EnrichCredits(context.Background(), maintenance.EnrichOptions{})
	assert.ErrorIs(t, err, distlock.ErrLost)
	assert.Zero(t, f.repo.saves)
	assert.Equal(t, 1, f.meta.calls)
}

// =============================================================================
// LANGUAGE
// =============================================================================

func TestPreviewLanguage(t *testing.T) {
	f := newFixture(t,
		movie(1, nil), movie(2, nil), movie(3, nil), movie(4, map[string]any{"original_language": "en"}),
		show(5, nil),
	)
	f.meta.movies[1] = &tmdb.Movie{ID: 1, OriginalLanguage: "ja"}
	f.meta.movies[2] = &tmdb.Movie{ID: 2, OriginalLanguage: "zh"}
	f.meta.movies[3] = &tmdb.Movie{ID: 3, OriginalLanguage: "ja"}

	prev, err := f.kit.PreviewLanguage(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 4, prev.Movies)
	assert.Equal(t, 1, prev.HaveLanguage)
	assert.Equal(t, 3, prev.NeedLanguage)
	require.Len(t, prev.Samples, 3)
	assert.True(t, prev.Samples[1].Ambiguous)
	assert.Equal(t, []maintenance.LanguageCount{
		{Language: "ja", Country: "JP", Count: 2},
		{Language: "zh", Country: "CN", Count: 1},
	}, prev.Distribution)
	assert.Zero(t, f.repo.saves)
}

func TestAddLanguage_RequiresBackup(t *testing.T) {
	f := newFixture(t, movie(1, nil))

	_, err := f.kit.AddLanguage(context.Background(), maintenance.EnrichOptions{})
	assert.ErrorIs(t, err, backup.ErrNoBackup)
	assert.Zero(t, f.meta.calls)
	assert.Zero(t, f.repo.saves)
}

func TestAddLanguage(t *testing.T) {
	f := newFixture(t,
		movie(1, map[string]any{"director": "Bong Joon-ho"}),
		movie(2, map[string]any{"original_language": "fr"}),
		show(3, nil),
		movie(4, nil),
	)
	f.meta.movies[1] = &tmdb.Movie{ID: 1, OriginalLanguage: "ko", ProductionCountries: []tmdb.ProductionCountry{{ISO3166_1: "KR"}}}
	_, err := f.kit.Backup(context.Background())
	require.NoError(t, err)

	rep, err := f.kit.AddLanguage(context.Background(), maintenance.EnrichOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, 1, rep.HadLanguage)
	require.Len(t, rep.Failed, 1)
	assert.True(t, rep.Applied)
	assert.NotEmpty(t, rep.BackupFile)

	assert.Equal(t, "ko", f.repo.items[0]["original_language"])
	assert.NotContains(t, f.repo.items[0], "production_countries", "only original_language is added")
	assert.Equal(t, "fr", f.repo.items[1]["original_language"])
	assert.NotContains(t, f.repo.items[2], "original_language")
}

// =============================================================================
// VERIFY / INSPECT
// =============================================================================

func TestVerify(t *testing.T) {
	f := newFixture(t,
		movie(1, map[string]any{"title": "The Killing of a Sacred Deer", "original_language": "en", "production_countries": []any{"IE", "GB", "US"}, "director": "Yorgos Lanthimos"}),
		movie(2, map[string]any{"original_language": "ja", "director": "Unknown"}),
		movie(3, nil),
		show(4, map[string]any{"origin_country": []any{"GB"}, "creator": "Phoebe Waller-Bridge"}),
	)

	rep, err := f.kit.Verify(context.Background(), maintenance.VerifyOptions{IDs: []int{2, 99}, Titles: []string{"sacred deer"}})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeCounts{Total: 4, Movies: 3, TV: 1}, rep.Counts)
	assert.Equal(t, maintenance.Coverage{
		MoviesWithLanguage:  2,
		MoviesWithCountries: 1,
		MoviesWithDirector:  1,
		ShowsWithOrigin:     1,
		ShowsWithCreator:    1,
		MoviesUnattributed:  1,
	}, rep.Coverage)

	require.Len(t, rep.Traces, 3)
	assert.Equal(t, "JP", rep.Traces[0].Country)
	assert.False(t, rep.Traces[1].Found)
	assert.Equal(t, "IE", rep.Traces[2].Country, "english defers to the first production country")
	assert.Equal(t, `["IE","GB","US"]`, rep.Traces[2].Countries)

	assert.Equal(t, []domain.RankedCount{{Name: "IE", Count: 1}, {Name: "JP", Count: 1}}, rep.Movies.TopCountries)
	assert.Equal(t, 1, rep.TV.TotalWatched)
}

func TestVerify_DefaultTracesOnePerRule(t *testing.T) {
	f := newFixture(t,
		movie(1, map[string]any{"original_language": "ja"}),
		movie(2, map[string]any{"original_language": "ko"}),
		movie(3, map[string]any{"production_countries": []any{"FR"}}),
		movie(4, nil),
	)

	rep, err := f.kit.Verify(context.Background(), maintenance.VerifyOptions{})
	require.NoError(t, err)

	require.Len(t, rep.Traces, 3)
	assert.Equal(t, 1, rep.Traces[0].ID)
	assert.Equal(t, 3, rep.Traces[1].ID)
	assert.Equal(t, 4, rep.Traces[2].ID)
}

func TestInspect(t *testing.T) {
	f := newFixture(t,
		movie(1581164, map[string]any{"dateWatched": "2024-03-01"}),
		show(2, map[string]any{"name": "Supernatural", "dateWatched": "2024-05-10T20:00:00Z"}),
		movie(3, map[string]any{"dateWatched": "not a date"}),
		movie(4, map[string]any{"dateWatched": "2023-12-31"}),
	)

	rep, err := f.kit.Inspect(context.Background(), maintenance.InspectOptions{
		IDs:    []int{1581164},
		Titles: []string{"SUPERNATURAL", "missing"},
		Recent: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "movieList", rep.Entry.ID)
	assert.Equal(t, domain.TypeCounts{Total: 4, Movies: 3, TV: 1}, rep.Counts)
	require.Len(t, rep.Matches, 3)
	assert.True(t, rep.Matches[0].Found)
	assert.True(t, rep.Matches[1].Found)
	assert.Equal(t, "Supernatural", rep.Matches[1].Record.Title())
	assert.False(t, rep.Matches[2].Found)

	require.Len(t, rep.Recent, 2)
	assert.Equal(t, 2, rep.Recent[0].ID)
	assert.Equal(t, 1581164, rep.Recent[1].ID)
}

// =============================================================================
// RESTORE / REPUBLISH
// =============================================================================

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup_2024-01-01T00-00-00.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRestore_Full(t *testing.T) {
	f := newFixture(t, movie(1, nil))
	path := writeSnapshot(t, `[{"id":1,"title":"A"},{"id":2,"title":"B"},{"id":3,"name":"C","media_type":"tv"}]`)

	rep, err := f.kit.Restore(context.Background(), maintenance.RestoreOptions{Path: path})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeCounts{Total: 1, Movies: 1}, rep.Before)
	assert.Equal(t, domain.TypeCounts{Total: 3, Movies: 2, TV: 1}, rep.After)
	require.NotNil(t, rep.SafetyBackup)
	assert.Equal(t, 1, backupCount(t, f.backups))
	assert.Len(t, f.repo.items, 3)
}

func TestRestore_MergeKeepsLiveShows(t *testing.T) {
	f := newFixture(t, movie(1, nil), show(10, map[string]any{"creator": "Live Creator"}))
	path := writeSnapshot(t, `[{"id":1,"title":"A"},{"id":2,"title":"B"},{"id":3,"name":"Old show","first_air_date":"2001-01-01"}]`)

	rep, err := f.kit.Restore(context.Background(), maintenance.RestoreOptions{Path: path, Merge: true})
	require.NoError(t, err)

	assert.Equal(t, domain.TypeCounts{Total: 3, Movies: 2, TV: 1}, rep.After)
	ids := make([]int, len(f.repo.items))
	for i, rec := range f.repo.items {
		ids[i], _ = rec.ID()
	}
	assert.Equal(t, []int{1, 2, 10}, ids)
	assert.Equal(t, "Live Creator", f.repo.items[2]["creator"])
}

func TestRestore_EmptyBackup(t *testing.T) {
	f := newFixture(t, movie(1, nil))

	_, err := f.kit.Restore(context.Background(), maintenance.RestoreOptions{Path: writeSnapshot(t, `[]`)})
	assert.ErrorIs(t, err, maintenance.ErrEmptyBackup)

	_, err = f.kit.Restore(context.Background(), maintenance.RestoreOptions{})
	assert.ErrorIs(t, err, backup.ErrNoBackup)
	assert.Zero(t, f.repo.saves)
}

func TestRepublish(t *testing.T) {
	f := newFixture(t, movie(1, nil), show(2, nil))

	rep, err := f.kit.Republish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Items)
	assert.Empty(t, rep.InvalidationID)
	assert.Zero(t, f.cdn.calls)
	assert.Equal(t, 1, f.repo.publishes)

	f.cdn.enabled = true
	rep, err = f.kit.Republish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "I2J0I21PCUYOIK", rep.InvalidationID)

	f.cdn.err = errors.New("throttled")
	rep, err = f.kit.Republish(context.Background())
	assert.Error(t, err)
	require.NotNil(t, rep, "publish succeeded before the invalidation failed")
	assert.Equal(t, 3, f.repo.publishes)
}
