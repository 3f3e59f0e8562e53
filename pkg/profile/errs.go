package profile

import "errors"

var (
	// ErrNoClusters indicates that the profile declares no CPU clusters.
	ErrNoClusters = errors.New("profile: no cpu clusters")

	// ErrNegative indicates a negative current or capacity value.
	ErrNegative = errors.New("profile: negative value")

	// ErrStepMismatch indicates that core_speeds and core_power of a cluster
	// have different lengths.
	ErrStepMismatch = errors.New("profile: core_speeds/core_power length mismatch")

	// ErrNoCores indicates a cluster with zero cores.
	ErrNoCores = errors.New("profile: cluster has no cores")

	// ErrNoSuchFrequency indicates that no cluster lists the given frequency.
	ErrNoSuchFrequency = errors.New("profile: frequency not in any cluster")
)
