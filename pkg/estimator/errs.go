package estimator

import "errors"

var (
	// ErrShape indicates that raw coefficient slices disagree on the cluster count.
	ErrShape = errors.New("estimator: coefficient table shape")

	// ErrStatsType indicates an unknown stats window name.
	ErrStatsType = errors.New("estimator: unknown stats type")

	// ErrDuplicateUID indicates that a dump lists the same UID twice.
	ErrDuplicateUID = errors.New("estimator: duplicate uid")

	// ErrEmptyUnit indicates a null entry in a dump's unit list.
	ErrEmptyUnit = errors.New("estimator: empty unit")
)
