package backup

import "errors"

var (
	// ErrNoBackup is returned when the backup directory holds no snapshot.
	ErrNoBackup = errors.New("no backup found")
	// ErrVerification is returned when a written snapshot does not read back
	// identical to what was written.
	ErrVerification = errors.New("backup verification failed")
)
