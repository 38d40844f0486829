package crs

import "errors"

var (
	// ErrUnsupported is returned when no transform exists between two
	// descriptors, for example when one side has no projection at all.
	ErrUnsupported = errors.New("crs: unsupported transform")

	// ErrSensorModel is returned when ground control points cannot be fitted.
	ErrSensorModel = errors.New("crs: invalid sensor model")

	// ErrDuplicateProjection is returned by Register for a name already in use.
	ErrDuplicateProjection = errors.New("crs: projection already registered")
)
