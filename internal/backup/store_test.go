package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, mirror Mirror) *Store {
	t.Helper()
	s := NewStore(config.BackupConfig{Dir: filepath.Join(t.TempDir(), "data"), SampleSize: 5}, mirror)
	s.now = func() time.Time { return time.Date(2025, 1, 15, 10, 30, 45, 123, time.UTC) }
	return s
}

func sampleItems() []domain.MediaRecord {
	return []domain.MediaRecord{
		{"id": json.Number("238"), "title": "The Godfather", "poster_path": "/3bhkrj58Vtu7enYsRolD1fZdja1.jpg", "rating": json.Number("5")},
		{"id": json.Number("1399"), "name": "Game of Thrones", "first_air_date": "2011-04-17", "rating": json.Number("4.5")},
		{"id": 550, "title": "Fight Club", "media_type": "movie"},
	}
}

type recordingMirror struct {
	manifests []*Manifest
	bodies    [][]byte
	err       error
}

func (m *recordingMirror) Put(_ context.Context, man *Manifest, body []byte) error {
	if m.err != nil {
		return m.err
	}
	m.manifests = append(m.manifests, man)
	m.bodies = append(m.bodies, body)
	return nil
}

func TestFileName(t *testing.T) {
	ts := time.Date(2025, 1, 15, 10, 30, 45, 999, time.UTC)
	assert.Equal(t, "backup_2025-01-15T10-30-45.json", FileName(ts))
}

func TestWrite_VerifiesAndMirrors(t *testing.T) {
	mirror := &recordingMirror{}
	s := newTestStore(t, mirror)

	res, err := s.Write(context.Background(), "movieList", 12, sampleItems())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.Dir(), "backup_2025-01-15T10-30-45.json"), res.Path)
	assert.Len(t, res.Sampled, 3, "sample is capped at the item count")
	assert.True(t, res.Mirrored)
	assert.Equal(t, domain.TypeCounts{Total: 3, Movies: 2, TV: 1}, res.Manifest.Counts)
	assert.Equal(t, 12, res.Manifest.Version)
	assert.NotEmpty(t, res.Manifest.RunID)

	require.Len(t, mirror.manifests, 1)
	disk, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, disk, mirror.bodies[0])
	assert.Contains(t, string(disk), "\n  {\n    \"", "pretty printed")

	loaded, err := Load(res.Path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, json.Number("4.5"), loaded[1]["rating"])
}

func TestWrite_MirrorFailureKeepsLocalCopy(t *testing.T) {
	s := newTestStore(t, &recordingMirror{err: errors.New("access denied")})

	res, err := s.Write(context.Background(), "movieList", 1, sampleItems())
	require.NoError(t, err)
	assert.False(t, res.Mirrored)
	assert.FileExists(t, res.Path)
}

func TestWrite_EmptyList(t *testing.T) {
	s := newTestStore(t, nil)
	res, err := s.Write(context.Background(), "movieList", 1, []domain.MediaRecord{})
	require.NoError(t, err)
	assert.Empty(t, res.Sampled)

	loaded, err := Load(res.Path)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestVerify_DetectsMismatch(t *testing.T) {
	s := newTestStore(t, nil)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	path := filepath.Join(s.Dir(), "backup_2025-01-01T00-00-00.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":238,"title":"Wrong"}]`), 0o644))

	_, err := s.verify(path, []domain.MediaRecord{{"id": 238, "title": "The Godfather"}})
	assert.ErrorIs(t, err, ErrVerification)

	_, err = s.verify(path, sampleItems())
	assert.ErrorIs(t, err, ErrVerification)
}

func TestListAndLatest(t *testing.T) {
	s := newTestStore(t, nil)

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoBackup, "missing directory")

	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	for _, name := range []string{
		"backup_2025-01-15T10-30-45.json",
		"backup_2024-12-31T23-59-59.json",
		"backup_2025-02-01T08-00-00.json",
		"notes.txt",
		"backup_garbage.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte("[]"), 0o644))
	}

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "backup_2024-12-31T23-59-59.json", all[0].Name)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "backup_2025-02-01T08-00-00.json", latest.Name)
}

func TestWrite_SameSecondKeepsBothSnapshots(t *testing.T) {
	mirror := &recordingMirror{}
	s := newTestStore(t, mirror)
	ctx := context.Background()

	first, err := s.Write(ctx, "movieList", 7, sampleItems())
	require.NoError(t, err)
	second, err := s.Write(ctx, "movieList", 8, sampleItems()[:1])
	require.NoError(t, err)
	third, err := s.Write(ctx, "movieList", 9, sampleItems()[:2])
	require.NoError(t, err)

	assert.Equal(t, "backup_2025-01-15T10-30-45.json", first.Manifest.File)
	assert.Equal(t, "backup_2025-01-15T10-30-45-2.json", second.Manifest.File)
	assert.Equal(t, "backup_2025-01-15T10-30-45-3.json", third.Manifest.File)
	assert.Equal(t, 2, mirror.manifests[1].Seq)

	snapshot, err := Load(first.Path)
	require.NoError(t, err)
	assert.Len(t, snapshot, 3, "earlier snapshot was not overwritten")

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].Seq, all[1].Seq, all[2].Seq})

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, third.Manifest.File, latest.Name)
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		seq  int
		ok   bool
	}{
		{"backup_2025-01-15T10-30-45.json", 1, true},
		{"backup_2025-01-15T10-30-45-12.json", 12, true},
		{"backup_2025-01-15T10-30-45-1.json", 0, false},
		{"backup_2025-01-15T10-30-45x2.json", 0, false},
		{"backup_2025-01-15.json", 0, false},
		{"notes.json", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, seq, ok := parseName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.seq, seq)
		})
	}
}
