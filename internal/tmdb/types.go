package tmdb

// ProductionCountry is one entry of a movie's production_countries.
type ProductionCountry struct {
	ISO3166_1 string `json:"iso_3166_1"`
	Name      string `json:"name"`
}

// Movie is the subset of /movie/{id} the enrichment tools read.
type Movie struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	OriginalLanguage    string              `json:"original_language"`
	ReleaseDate         string              `json:"release_date"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
}

// CountryCodes returns the ISO codes of the production countries in order.
func (m Movie) CountryCodes() []string {
	out := make([]string, 0, len(m.ProductionCountries))
	for _, c := range m.ProductionCountries {
		if c.ISO3166_1 != "" {
			out = append(out, c.ISO3166_1)
		}
	}
	return out
}

// CrewMember is one crew credit.
type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// Credits is /movie/{id}/credits, crew only.
type Credits struct {
	ID   int          `json:"id"`
	Crew []CrewMember `json:"crew"`
}

// Director returns the first crew member whose job is Director.
func (c Credits) Director() (string, bool) {
	for _, m := range c.Crew {
		if m.Job == "Director" && m.Name != "" {
			return m.Name, true
		}
	}
	return "", false
}

// Creator is one entry of a show's created_by.
type Creator struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// TV is the subset of /tv/{id} the enrichment tools read.
type TV struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	OriginalLanguage string    `json:"original_language"`
	FirstAirDate     string    `json:"first_air_date"`
	OriginCountry    []string  `json:"origin_country"`
	CreatedBy        []Creator `json:"created_by"`
}

// CreatorNames returns the creators' names in credit order.
func (t TV) CreatorNames() []string {
	out := make([]string, 0, len(t.CreatedBy))
	for _, c := range t.CreatedBy {
		if c.Name != "" {
			out = append(out, c.Name)
		}
	}
	return out
}
