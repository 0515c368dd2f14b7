package domain

// RankedCount is one row of a top-N table.
type RankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatsSummary is the per-type statistics view served to the blog.
type StatsSummary struct {
	TotalWatched   int           `json:"totalWatched"`
	TotalCountries int           `json:"totalCountries"`
	TotalDirectors int           `json:"totalDirectors"`
	TopCountries   []RankedCount `json:"topCountries"`
	TopDirectors   []RankedCount `json:"topDirectors"`
}
