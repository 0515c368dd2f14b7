package posts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moviediary/watchlog/internal/pkg/logger"
)

// BuildIndex aggregates every *.json post file in dir into one array at
// out, newest first. A post without an id takes its file name. Files that
// fail to parse are logged and skipped. A missing dir writes "[]".
// It returns the number of posts written.
func BuildIndex(dir, out string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Info("no posts directory, writing empty index", "dir", dir, "out", out)
		return 0, writeIndex(out, []map[string]any{})
	}
	if err != nil {
		return 0, fmt.Errorf("reading posts dir: %w", err)
	}

	posts := []map[string]any{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		post, err := readPost(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping post file", "file", name, "error", err)
			continue
		}
		if id, ok := post["id"]; !ok || id == nil || id == "" {
			post["id"] = strings.TrimSuffix(name, ".json")
		}
		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return postDate(posts[i]).After(postDate(posts[j]))
	})

	if err := writeIndex(out, posts); err != nil {
		return 0, err
	}
	logger.Info("posts index written", "posts", len(posts), "out", out)
	return len(posts), nil
}

func readPost(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var post map[string]any
	if err := dec.Decode(&post); err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errors.New("not a JSON object")
	}
	return post, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// postDate parses the date field. Undated posts sort last.
func postDate(post map[string]any) time.Time {
	s, _ := post["date"].(string)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func writeIndex(out string, posts []map[string]any) error {
	body, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding posts index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return fmt.Errorf("writing posts index: %w", err)
	}
	return nil
}
