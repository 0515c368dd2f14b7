// Package stats attributes watched movies and shows to a country and a set
// of credited people, and folds a collection into ranked per-type tallies.
//
// This is the only place in the repository that decides a record's country.
// The API handler, the verification command and the maintenance reports all
// go through Engine so they can never disagree.
//
// The package is pure: no I/O, no logging, no clock. The same input always
// produces the same StatsSummary.
package stats
