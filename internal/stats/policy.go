package stats

import "strings"

// Policy is the static data behind movie country attribution.
//
// AmbiguousLanguages are ISO-639-1 codes spoken as a first language in
// several film-producing countries; for those the language says nothing
// about origin and the first production country is used instead.
// LanguageCountries maps the remaining languages to an ISO-3166-1 code.
type Policy struct {
	AmbiguousLanguages []string          `yaml:"ambiguous_languages" json:"ambiguousLanguages"`
	LanguageCountries  map[string]string `yaml:"language_countries" json:"languageCountries"`
}

var defaultAmbiguousLanguages = []string{
	"en", // US, GB, IE, AU, CA, NZ
	"zh", // CN, HK, TW
}

var defaultLanguageCountries = map[string]string{
	"ja": "JP", "ko": "KR", "zh": "CN", "fr": "FR", "de": "DE",
	"es": "ES", "it": "IT", "pt": "BR", "hi": "IN", "ru": "RU",
	"th": "TH", "id": "ID", "vi": "VN", "tl": "PH", "sv": "SE",
	"da": "DK", "no": "NO", "fi": "FI", "nl": "NL", "pl": "PL",
	"tr": "TR", "ar": "SA", "he": "IL", "cs": "CZ", "hu": "HU",
	"ro": "RO", "el": "GR", "uk": "UA", "ms": "MY", "ta": "IN",
	"te": "IN", "bn": "BD", "ml": "IN",
	// TMDB tags Cantonese productions "cn".
	"cn": "CN",
}

// DefaultPolicy returns a fresh copy of the built-in attribution tables.
func DefaultPolicy() Policy {
	p := Policy{
		AmbiguousLanguages: append([]string(nil), defaultAmbiguousLanguages...),
		LanguageCountries:  make(map[string]string, len(defaultLanguageCountries)),
	}
	for k, v := range defaultLanguageCountries {
		p.LanguageCountries[k] = v
	}
	return p
}

// WithOverrides returns a copy of p with ambiguous replacing the ambiguous
// set when non-nil, and countries merged over the language table. An empty
// country value removes that language from the table.
func (p Policy) WithOverrides(ambiguous []string, countries map[string]string) Policy {
	out := Policy{
		AmbiguousLanguages: append([]string(nil), p.AmbiguousLanguages...),
		LanguageCountries:  make(map[string]string, len(p.LanguageCountries)+len(countries)),
	}
	if ambiguous != nil {
		out.AmbiguousLanguages = append([]string(nil), ambiguous...)
	}
	for k, v := range p.LanguageCountries {
		out.LanguageCountries[k] = v
	}
	for k, v := range countries {
		k = normalizeLanguage(k)
		if v == "" {
			delete(out.LanguageCountries, k)
			continue
		}
		out.LanguageCountries[k] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}

func normalizeLanguage(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
