package dataset

import "github.com/pkg/errors"

// Sentinel errors returned by New and At. Callers distinguish failure classes
// with errors.Is.
var (
	// ErrMissingSource reports a missing data directory with no remote source
	// configured to fetch it from.
	ErrMissingSource = errors.New("data directory missing and no remote source configured")

	// ErrDatasetNotFound reports a data directory that is still missing after
	// a download attempt completed.
	ErrDatasetNotFound = errors.New("data directory missing after download attempt")

	// ErrIndexOutOfRange reports an At index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("sample index out of range")
)
