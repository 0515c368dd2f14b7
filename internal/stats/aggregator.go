package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/moviediary/watchlog/internal/domain"
)

// TopN is the length cap of the ranked tables.
const TopN = 10

// ErrInvalidType is returned by ParseType for anything but movie or tv.
var ErrInvalidType = errors.New("invalid media type")

// ParseType reads a type filter. Empty means movie.
func ParseType(s string) (domain.MediaType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return domain.MediaTypeMovie, nil
	}
	t := domain.MediaType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (want movie or tv)", ErrInvalidType, s)
	}
	return t, nil
}

// Summarize aggregates the records of type t with the default policy.
func Summarize(records []domain.MediaRecord, t domain.MediaType) domain.StatsSummary {
	return defaultEngine.Summarize(records, t)
}

// Summarize filters records to type t and folds them into ranked country
// and person tallies. Each record adds at most one country count and one
// count per credited person. Ties keep first-encountered order.
func (e *Engine) Summarize(records []domain.MediaRecord, t domain.MediaType) domain.StatsSummary {
	countries := newTally()
	people := newTally()
	watched := 0

	for _, rec := range records {
		if !rec.IsType(t) {
			continue
		}
		watched++

		c := e.Classify(rec)
		if c.Country != "" {
			countries.add(c.Country)
		}
		for _, p := range c.People {
			people.add(p)
		}
	}

	return domain.StatsSummary{
		TotalWatched:   watched,
		TotalCountries: countries.len(),
		TotalDirectors: people.len(),
		TopCountries:   countries.top(TopN),
		TopDirectors:   people.top(TopN),
	}
}

// tally counts keys and remembers the order they first appeared in.
type tally struct {
	index map[string]int
	rows  []domain.RankedCount
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(name string) {
	if i, ok := t.index[name]; ok {
		t.rows[i].Count++
		return
	}
	t.index[name] = len(t.rows)
	t.rows = append(t.rows, domain.RankedCount{Name: name, Count: 1})
}

func (t *tally) len() int { return len(t.rows) }

func (t *tally) top(n int) []domain.RankedCount {
	ranked := make([]domain.RankedCount, len(t.rows))
	copy(ranked, t.rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
