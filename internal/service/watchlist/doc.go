// Package watchlist owns the stored watch list: reading it, computing stats
// over it, and every write back to the CMS.
//
// All writes go through Service.Mutate or Service.Replace, which hold the
// distributed lock for the whole load/modify/save/publish cycle. Mutate also
// refuses to save a list whose length, id sequence or per-type counts differ
// from what was loaded.
//
// The Contentful-backed Repository lives in contentful.go; tests use an
// in-memory one.
package watchlist
