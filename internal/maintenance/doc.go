// Package maintenance implements the one-off and recurring operations run
// against the stored watch list: backups, field cleanup, TMDB enrichment,
// verification, restore, republish and inspection.
//
// Every operation returns a typed report. Rendering is left to the caller
// (see internal/report). Writes go through watchlist.Service so they share
// its lock and its length and identity checks.
package maintenance
