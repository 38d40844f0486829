package raster

import "errors"

var (
	// ErrOpen wraps every failure to open a raster. It is fatal to the
	// layer being created.
	ErrOpen = errors.New("raster: cannot open")

	// ErrLevel is returned for a decimation level the dataset does not have.
	ErrLevel = errors.New("raster: unknown decimation level")

	// ErrChannel is returned for an out-of-range channel index.
	ErrChannel = errors.New("raster: channel out of range")

	// ErrClosed is returned by reads on a closed dataset.
	ErrClosed = errors.New("raster: dataset closed")
)
