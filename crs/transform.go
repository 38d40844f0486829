package crs

import "github.com/gogpu/tileview"

// Transform maps a point between two coordinate systems.
// tileview.Matrix satisfies it.
type Transform interface {
	TransformPoint(p tileview.Point) tileview.Point
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(tileview.Point) tileview.Point

// TransformPoint calls f(p).
func (f TransformFunc) TransformPoint(p tileview.Point) tileview.Point { return f(p) }

// Pair holds both directions of a transform, always built together.
type Pair struct {
	Forward Transform
	Inverse Transform

	// Identity is true when both directions are the identity mapping.
	Identity bool
}

// IdentityPair returns a pair that leaves points unchanged.
func IdentityPair() Pair {
	id := tileview.Identity()
	return Pair{Forward: id, Inverse: id, Identity: true}
}

func chain(first, second func(tileview.Point) tileview.Point) Transform {
	return TransformFunc(func(p tileview.Point) tileview.Point {
		return second(first(p))
	})
}
