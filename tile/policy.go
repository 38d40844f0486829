package tile

import (
	"fmt"
	"math"
	"strings"
)

// Policy breaks ties when choosing a pyramid level.
type Policy int

const (
	// Nearest picks the level closest to the zoom in either direction.
	// Exact ties go to the finer level.
	Nearest Policy = iota

	// NearestLower prefers detail: only levels at least as fine as the
	// zoom are considered.
	NearestLower

	// NearestUpper prefers speed: only levels at least as coarse as the
	// zoom are considered.
	NearestUpper
)

func (p Policy) String() string {
	switch p {
	case Nearest:
		return "nearest"
	case NearestLower:
		return "nearest-lower"
	case NearestUpper:
		return "nearest-upper"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the String form of a policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "":
		return Nearest, nil
	case "nearest-lower", "lower":
		return NearestLower, nil
	case "nearest-upper", "upper":
		return NearestUpper, nil
	}
	return Nearest, fmt.Errorf("tile: unknown resolution policy %q", s)
}

// SelectLevel picks a decimation level for a zoom where one screen pixel
// spans scale level-0 raster pixels.
//
// With desired = 1/2^Lc, Lc = log2(scale) clamped at 0 (no level is finer
// than full resolution), and diff = 1/2^L - desired:
//   - Nearest minimizes |diff|, ties go to the smaller L
//   - NearestLower keeps diff >= 0 and minimizes diff
//   - NearestUpper keeps diff <= 0 and minimizes -diff
//
// If no level satisfies the policy the coarsest level is returned.
// The boolean is false when levels is empty or scale is not a positive
// finite number.
func SelectLevel(levels []int, scale float64, policy Policy) (int, bool) {
	if len(levels) == 0 || !(scale > 0) || math.IsInf(scale, 0) {
		return 0, false
	}
	desired := 1 / math.Max(scale, 1)

	const eps = 1e-12
	best, bestDist, found := 0, math.Inf(1), false
	coarsest := levels[0]
	for _, l := range levels {
		coarsest = max(coarsest, l)
		diff := math.Ldexp(1, -l) - desired

		var dist float64
		switch policy {
		case NearestLower:
			if diff < -eps {
				continue
			}
			dist = diff
		case NearestUpper:
			if diff > eps {
				continue
			}
			dist = -diff
		default:
			dist = math.Abs(diff)
		}
		if !found || dist < bestDist-eps || (math.Abs(dist-bestDist) <= eps && l < best) {
			best, bestDist, found = l, dist, true
		}
	}
	if !found {
		return coarsest, true
	}
	return best, true
}
