package stats

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/moviediary/watchlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, raw string) []domain.MediaRecord {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out []domain.MediaRecord
	require.NoError(t, dec.Decode(&out))
	return out
}

func one(t *testing.T, raw string) domain.MediaRecord {
	t.Helper()
	return records(t, "["+raw+"]")[0]
}

// =============================================================================
// CLASSIFIER
// =============================================================================

func TestClassify_TypeFallback(t *testing.T) {
	e := Default()

	assert.Equal(t, domain.MediaTypeMovie, e.Classify(one(t, `{"id":1}`)).Type)
	assert.Equal(t, domain.MediaTypeTV, e.Classify(one(t, `{"id":2,"first_air_date":"2005-09-13"}`)).Type)
	assert.Equal(t, domain.MediaTypeMovie, e.Classify(one(t, `{"id":3,"media_type":"movie","first_air_date":"2005-09-13"}`)).Type)
}

func TestClassify_MovieCountry(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		source  Source
	}{
		{"japanese language wins without countries", `{"id":1,"original_language":"ja"}`, "JP", SourceLanguage},
		{"language beats production country", `{"id":2,"original_language":"ko","production_countries":["US"]}`, "KR", SourceLanguage},
		{"english defers to production country", `{"id":3,"original_language":"en","production_countries":["GB"]}`, "GB", SourceProductionCountry},
		{"chinese defers to production object", `{"id":4,"original_language":"zh","production_countries":[{"iso_3166_1":"TW","name":"Taiwan"}]}`, "TW", SourceProductionCountry},
		{"object without iso uses name", `{"id":5,"original_language":"en","production_countries":[{"name":"Ireland"}]}`, "Ireland", SourceProductionCountry},
		{"unknown language falls back", `{"id":6,"original_language":"xx","production_countries":["IS"]}`, "IS", SourceProductionCountry},
		{"no language uses first country only", `{"id":7,"production_countries":["IE","GB","US"]}`, "IE", SourceProductionCountry},
		{"cantonese tag maps to CN", `{"id":8,"original_language":"cn","production_countries":["HK"]}`, "CN", SourceLanguage},
		{"nothing available", `{"id":9}`, "", SourceNone},
		{"english with no countries", `{"id":10,"original_language":"en","production_countries":[]}`, "", SourceNone},
		{"malformed first entry", `{"id":11,"production_countries":[42,"US"]}`, "", SourceNone},
		{"upper-case language code", `{"id":12,"original_language":"FR"}`, "FR", SourceLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default().Classify(one(t, tt.raw))
			assert.Equal(t, tt.country, c.Country)
			assert.Equal(t, tt.source, c.Source)
		})
	}
}

func TestClassify_TVCountryIgnoresLanguage(t *testing.T) {
	c := Default().Classify(one(t, `{"id":1,"media_type":"tv","original_language":"ja","origin_country":["GB","US"]}`))
	assert.Equal(t, "GB", c.Country)
	assert.Equal(t, SourceOriginCountry, c.Source)

	c = Default().Classify(one(t, `{"id":2,"media_type":"tv","original_language":"ja"}`))
	assert.Equal(t, "", c.Country)
	assert.Equal(t, SourceNone, c.Source)
}

func TestClassify_People(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"unknown director", `{"id":1,"director":"Unknown"}`, nil},
		{"two directors", `{"id":2,"director":"Jane Doe, John Roe"}`, []string{"Jane Doe", "John Roe"}},
		{"empty tokens dropped", `{"id":3,"director":" , Agnès Varda ,,"}`, []string{"Agnès Varda"}},
		{"tv prefers created_by", `{"id":4,"media_type":"tv","created_by":"Eric Kripke","creator":"Someone Else"}`, []string{"Eric Kripke"}},
		{"tv falls back to creator", `{"id":5,"media_type":"tv","creator":"Vince Gilligan, Peter Gould"}`, []string{"Vince Gilligan", "Peter Gould"}},
		{"tv empty created_by falls back", `{"id":6,"media_type":"tv","created_by":"","creator":"Phoebe Waller-Bridge"}`, []string{"Phoebe Waller-Bridge"}},
		{"tv raw tmdb array", `{"id":7,"media_type":"tv","created_by":[{"name":"Matt Duffer"},{"name":"Ross Duffer"}]}`, []string{"Matt Duffer", "Ross Duffer"}},
		{"tv ignores director", `{"id":8,"media_type":"tv","director":"Nope"}`, nil},
		{"non-string director", `{"id":9,"director":12}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default().Classify(one(t, tt.raw)).People)
		})
	}
}

// =============================================================================
// AGGREGATOR
// =============================================================================

const sampleCollection = `[
	{"id":1,"media_type":"movie","title":"Tokyo Story","original_language":"ja","director":"Yasujirō Ozu"},
	{"id":2,"title":"The Killing of a Sacred Deer","original_language":"en","production_countries":["IE","GB","US"],"director":"Yorgos Lanthimos"},
	{"id":3,"title":"The Lobster","original_language":"en","production_countries":[{"iso_3166_1":"IE","name":"Ireland"}],"director":"Yorgos Lanthimos"},
	{"id":4,"title":"Yi Yi","original_language":"zh","production_countries":[{"iso_3166_1":"TW"}],"director":"Edward Yang"},
	{"id":5,"title":"Untitled","director":"Unknown"},
	{"id":6,"name":"Supernatural","first_air_date":"2005-09-13","origin_country":["US"],"creator":"Eric Kripke"},
	{"id":7,"name":"Fleabag","media_type":"tv","origin_country":["GB"],"created_by":"Phoebe Waller-Bridge"},
	{"id":8,"title":"Co-directed","original_language":"fr","director":"Jane Doe, John Roe"}
]`

func TestSummarize_Movies(t *testing.T) {
	s := Summarize(records(t, sampleCollection), domain.MediaTypeMovie)

	assert.Equal(t, 6, s.TotalWatched)
	assert.Equal(t, 4, s.TotalCountries) // JP, IE, TW, FR
	assert.Equal(t, 5, s.TotalDirectors) // Ozu, Lanthimos, Yang, Doe, Roe

	assert.Equal(t, []domain.RankedCount{
		{Name: "IE", Count: 2},
		{Name: "JP", Count: 1},
		{Name: "TW", Count: 1},
		{Name: "FR", Count: 1},
	}, s.TopCountries)

	require.NotEmpty(t, s.TopDirectors)
	assert.Equal(t, domain.RankedCount{Name: "Yorgos Lanthimos", Count: 2}, s.TopDirectors[0])
	assert.Equal(t, "Yasujirō Ozu", s.TopDirectors[1].Name, "ties keep first-encountered order")
}

func TestSummarize_TV(t *testing.T) {
	s := Summarize(records(t, sampleCollection), domain.MediaTypeTV)

	assert.Equal(t, 2, s.TotalWatched)
	assert.Equal(t, 2, s.TotalCountries)
	assert.Equal(t, 2, s.TotalDirectors)
	assert.Equal(t, []domain.RankedCount{{Name: "US", Count: 1}, {Name: "GB", Count: 1}}, s.TopCountries)
	assert.Equal(t, []domain.RankedCount{{Name: "Eric Kripke", Count: 1}, {Name: "Phoebe Waller-Bridge", Count: 1}}, s.TopDirectors)
}

func TestSummarize_NoCountryStillCounted(t *testing.T) {
	s := Summarize(records(t, `[{"id":1},{"id":2,"director":"Unknown"}]`), domain.MediaTypeMovie)

	assert.Equal(t, 2, s.TotalWatched)
	assert.Equal(t, 0, s.TotalCountries)
	assert.Equal(t, 0, s.TotalDirectors)
	assert.NotNil(t, s.TopCountries)
	assert.Empty(t, s.TopCountries)
	assert.Empty(t, s.TopDirectors)
}

func TestSummarize_TruncatesToTopTenSortedDescending(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	id := 0
	// country C00 gets 1 film, C01 gets 2, ... C14 gets 15.
	for c := 0; c < 15; c++ {
		for n := 0; n <= c; n++ {
			if id > 0 {
				b.WriteString(",")
			}
			id++
			fmt.Fprintf(&b, `{"id":%d,"production_countries":["C%02d"],"director":"D%02d"}`, id, c, c)
		}
	}
	b.WriteString("]")
	recs := records(t, b.String())

	s := Summarize(recs, domain.MediaTypeMovie)

	assert.Equal(t, len(recs), s.TotalWatched, "totalWatched is independent of truncation")
	assert.Equal(t, 15, s.TotalCountries)
	assert.Equal(t, 15, s.TotalDirectors)
	require.Len(t, s.TopCountries, TopN)
	require.Len(t, s.TopDirectors, TopN)
	assert.Equal(t, "C14", s.TopCountries[0].Name)
	for i := 1; i < len(s.TopCountries); i++ {
		assert.GreaterOrEqual(t, s.TopCountries[i-1].Count, s.TopCountries[i].Count)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	recs := records(t, sampleCollection)
	before, err := json.Marshal(recs)
	require.NoError(t, err)

	first := Summarize(recs, domain.MediaTypeMovie)
	second := Summarize(recs, domain.MediaTypeMovie)
	assert.Equal(t, first, second)

	after, err := json.Marshal(recs)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after), "input must not be modified")
}

func TestSummarize_OneCountryPerRecord(t *testing.T) {
	s := Summarize(records(t, `[{"id":1,"production_countries":["US","GB","FR"]}]`), domain.MediaTypeMovie)
	assert.Equal(t, []domain.RankedCount{{Name: "US", Count: 1}}, s.TopCountries)
}

// =============================================================================
// POLICY
// =============================================================================

func TestPolicy_Overrides(t *testing.T) {
	p := DefaultPolicy().WithOverrides([]string{"en"}, map[string]string{"zh": "tw", "ja": ""})
	e := NewEngine(p)

	c := e.Classify(one(t, `{"id":1,"original_language":"zh","production_countries":["HK"]}`))
	assert.Equal(t, "TW", c.Country, "zh is no longer ambiguous and maps to the override")

	c = e.Classify(one(t, `{"id":2,"original_language":"ja","production_countries":["FR"]}`))
	assert.Equal(t, "FR", c.Country, "removed language falls back to production country")

	assert.Equal(t, "JP", DefaultPolicy().LanguageCountries["ja"], "default policy is not mutated")
}

func TestParseType(t *testing.T) {
	mt, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeMovie, mt)

	mt, err = ParseType(" TV ")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeTV, mt)

	_, err = ParseType("person")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestEngine_LanguageCountry(t *testing.T) {
	cc, ambiguous := Default().LanguageCountry("JA")
	assert.Equal(t, "JP", cc)
	assert.False(t, ambiguous)

	cc, ambiguous = Default().LanguageCountry("zh")
	assert.Equal(t, "CN", cc)
	assert.True(t, ambiguous)

	cc, _ = Default().LanguageCountry("xx")
	assert.Empty(t, cc)
}
