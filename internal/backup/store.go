// Package backup writes, verifies and reads timestamped JSON snapshots of
// the watch list, optionally mirrored to S3 with a DynamoDB manifest.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moviediary/watchlog/internal/config"
	"github.com/moviediary/watchlog/internal/domain"
	"github.com/moviediary/watchlog/internal/pkg/logger"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".json"
	// timestampLayout matches ISO-8601 with ':' replaced by '-', seconds precision.
	timestampLayout = "2006-01-02T15-04-05"
)

// Mirror receives a copy of every written snapshot. Implementations must
// not modify body.
type Mirror interface {
	Put(ctx context.Context, m *Manifest, body []byte) error
}

// Manifest describes one snapshot.
type Manifest struct {
	RunID     string            `json:"run_id" dynamodbav:"RunID"`
	EntryID   string            `json:"entry_id" dynamodbav:"EntryID"`
	Timestamp string            `json:"timestamp" dynamodbav:"Timestamp"`
	Seq       int               `json:"seq" dynamodbav:"Seq"`
	File      string            `json:"file" dynamodbav:"File"`
	S3Key     string            `json:"s3_key,omitempty" dynamodbav:"S3Key,omitempty"`
	Version   int               `json:"version" dynamodbav:"Version"`
	SizeBytes int64             `json:"size_bytes" dynamodbav:"SizeBytes"`
	Counts    domain.TypeCounts `json:"counts" dynamodbav:"Counts"`
}

// SampleCheck is one item compared during verification.
type SampleCheck struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Result is what Write produced.
type Result struct {
	Manifest *Manifest
	Path     string
	Sampled  []SampleCheck
	Mirrored bool
}

// Info is one snapshot on disk.
type Info struct {
	Path  string
	Name  string
	Taken time.Time
	// Seq orders snapshots taken within the same second, starting at 1.
	Seq  int
	Size int64
}

// Store manages the local backup directory.
type Store struct {
	dir        string
	sampleSize int
	mirror     Mirror
	now        func() time.Time
	rnd        *rand.Rand
}

// NewStore creates a store rooted at cfg.Dir. mirror may be nil.
func NewStore(cfg config.BackupConfig, mirror Mirror) *Store {
	return &Store{
		dir:        cfg.Dir,
		sampleSize: cfg.SampleSize,
		mirror:     mirror,
		now:        time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dir returns the backup directory.
func (s *Store) Dir() string { return s.dir }

// FileName returns the snapshot file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(timestampLayout) + fileSuffix
}

// Write saves items as a pretty-printed snapshot, reads it back and
// verifies it, then hands it to the mirror. A mirror failure is logged and
// reported in Result.Mirrored; the local snapshot is what callers rely on.
func (s *Store) Write(ctx context.Context, entryID string, version int, items []domain.MediaRecord) (*Result, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	body, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}

	taken := s.now().UTC()
	name, seq, err := s.freeName(taken)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)
	if err := writeFileAtomic(path, body); err != nil {
		return nil, err
	}

	sampled, err := s.verify(path, items)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		RunID:     uuid.New().String(),
		EntryID:   entryID,
		Timestamp: taken.Format(time.RFC3339),
		Seq:       seq,
		File:      name,
		Version:   version,
		SizeBytes: int64(len(body)),
		Counts:    domain.CountByType(items),
	}
	res := &Result{Manifest: m, Path: path, Sampled: sampled}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, m, body); err != nil {
			logger.Warn("backup mirror failed", "file", name, "error", err)
		} else {
			res.Mirrored = true
		}
	}

	logger.Info("backup written", "file", name, "items", len(items), "bytes", len(body), "run_id", m.RunID)
	return res, nil
}

// freeName returns the first unused snapshot name for t. A second snapshot
// in the same second gets a -2 suffix, the next -3, and so on.
func (s *Store) freeName(t time.Time) (string, int, error) {
	stem := filePrefix + t.UTC().Format(timestampLayout)
	name := stem + fileSuffix
	for seq := 1; ; seq++ {
		if seq > 1 {
			name = stem + "-" + strconv.Itoa(seq) + fileSuffix
		}
		_, err := os.Stat(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			return name, seq, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("checking backup name: %w", err)
		}
	}
}

// parseName reads the timestamp and sequence out of a snapshot name.
func parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, 0, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(stem) < len(timestampLayout) {
		return time.Time{}, 0, false
	}
	taken, err := time.Parse(timestampLayout, stem[:len(timestampLayout)])
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 1
	if rest := stem[len(timestampLayout):]; rest != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
		if err != nil || !strings.HasPrefix(rest, "-") || n < 2 {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return taken, seq, true
}

// verify re-reads path and compares it with items: same length, and for a
// random sample the id, title, poster_path and rating match.
func (s *Store) verify(path string, items []domain.MediaRecord) ([]SampleCheck, error) {
	backed, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if len(backed) != len(items) {
		return nil, fmt.Errorf("%w: expected %d items, got %d", ErrVerification, len(items), len(backed))
	}

	n := s.sampleSize
	if n > len(items) {
		n = len(items)
	}
	checks := make([]SampleCheck, 0, n)
	for _, idx := range s.rnd.Perm(len(items))[:n] {
		orig, got := items[idx], backed[idx]
		for _, key := range []string{domain.FieldID, domain.FieldTitle, domain.FieldPosterPath, domain.FieldRating} {
			if scalar(orig[key]) != scalar(got[key]) {
				return nil, fmt.Errorf("%w: item %d field %s: %q != %q", ErrVerification, idx, key, scalar(orig[key]), scalar(got[key]))
			}
		}
		checks = append(checks, SampleCheck{Index: idx, ID: scalar(orig[domain.FieldID]), Title: orig.Title()})
	}
	return checks, nil
}

// scalar renders a JSON scalar for comparison. json.Number and Go numbers
// of the same value render identically.
func scalar(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Load reads a snapshot with numbers preserved.
func Load(path string) ([]domain.MediaRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses a snapshot body.
func Decode(data []byte) ([]domain.MediaRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []domain.MediaRecord
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}
	if items == nil {
		items = []domain.MediaRecord{}
	}
	return items, nil
}

// List returns the snapshots in the directory, oldest first. A missing
// directory yields an empty list.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	var out []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		taken, seq, ok := parseName(name)
		if !ok {
			continue
		}
		info := Info{Path: filepath.Join(s.dir, name), Name: name, Taken: taken, Seq: seq}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Taken.Equal(out[j].Taken) {
			return out[i].Taken.Before(out[j].Taken)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// Latest returns the newest snapshot, or ErrNoBackup.
func (s *Store) Latest() (*Info, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoBackup, s.dir)
	}
	return &all[len(all)-1], nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming backup: %w", err)
	}
	return nil
}
