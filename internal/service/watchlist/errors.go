package watchlist

import "errors"

// Sentinel errors for the watchlist service layer.
var (
	ErrCollectionNotFound = errors.New("watch list not found")
	ErrLockHeld           = errors.New("another maintenance run holds the watch list lock")
	ErrVerification       = errors.New("watch list verification failed")
	ErrConflict           = errors.New("watch list changed since it was loaded")
)
