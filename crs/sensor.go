package crs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/gogpu/tileview"
)

// Keyword prefix of ground control points. Each GCP keyword value is four
// numbers: "x y lon lat", x/y in raster physical units.
const gcpPrefix = "gcp."

// GCP is a ground control point tying a raster position to lon/lat.
type GCP struct {
	Raster tileview.Point
	LonLat tileview.Point
}

// GCPKeywords encodes control points as sensor keywords.
func GCPKeywords(gcps []GCP) Keywords {
	kw := make(Keywords, len(gcps))
	for i, g := range gcps {
		kw[fmt.Sprintf("%s%03d", gcpPrefix, i)] = fmt.Sprintf("%g %g %g %g",
			g.Raster.X, g.Raster.Y, g.LonLat.X, g.LonLat.Y)
	}
	return kw
}

// ParseGCPs extracts the ground control points from keywords, ordered by key.
func ParseGCPs(kw Keywords) ([]GCP, error) {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		if strings.HasPrefix(k, gcpPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	gcps := make([]GCP, 0, len(keys))
	for _, k := range keys {
		fields := strings.Fields(kw[k])
		if len(fields) != 4 {
			return nil, fmt.Errorf("crs: keyword %s: want 4 numbers, got %d", k, len(fields))
		}
		var v [4]float64
		for i, f := range fields {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("crs: keyword %s: %w", k, err)
			}
			v[i] = n
		}
		gcps = append(gcps, GCP{Raster: tileview.Pt(v[0], v[1]), LonLat: tileview.Pt(v[2], v[3])})
	}
	return gcps, nil
}

// SensorModel is an affine approximation of a sensor geometry fitted to
// ground control points by least squares.
type SensorModel struct {
	toLonLat   tileview.Matrix
	fromLonLat tileview.Matrix
}

// NewSensorModel fits a model to at least three non-collinear GCPs.
func NewSensorModel(gcps []GCP) (*SensorModel, error) {
	if len(gcps) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 ground control points, got %d", ErrSensorModel, len(gcps))
	}
	src := make([]tileview.Point, len(gcps))
	dst := make([]tileview.Point, len(gcps))
	for i, g := range gcps {
		src[i], dst[i] = g.Raster, g.LonLat
	}
	fwd, err := fitAffine(src, dst)
	if err != nil {
		return nil, err
	}
	inv, ok := fwd.Invert()
	if !ok {
		return nil, fmt.Errorf("%w: control points are collinear", ErrSensorModel)
	}
	return &SensorModel{toLonLat: fwd, fromLonLat: inv}, nil
}

func (m *SensorModel) ToLonLat(p tileview.Point) tileview.Point    { return m.toLonLat.TransformPoint(p) }
func (m *SensorModel) FromLonLat(ll tileview.Point) tileview.Point { return m.fromLonLat.TransformPoint(ll) }

// fitAffine solves dst = M*src in the least-squares sense with a QR
// factorization of the 2n x 6 design matrix.
func fitAffine(src, dst []tileview.Point) (tileview.Matrix, error) {
	n := len(src)
	a := mat.NewDense(n*2, 6, nil)
	b := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y

		a.Set(i*2, 0, x)
		a.Set(i*2, 1, y)
		a.Set(i*2, 2, 1)
		b.SetVec(i*2, dst[i].X)

		a.Set(i*2+1, 3, x)
		a.Set(i*2+1, 4, y)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2+1, dst[i].Y)
	}

	var qr mat.QR
	qr.Factorize(a)
	if cond := qr.Cond(); cond > 1e12 {
		return tileview.Matrix{}, fmt.Errorf("%w: control points are degenerate (cond %.3g)", ErrSensorModel, cond)
	}

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		return tileview.Matrix{}, fmt.Errorf("%w: %v", ErrSensorModel, err)
	}
	return tileview.Matrix{
		A: params.AtVec(0), B: params.AtVec(1), C: params.AtVec(2),
		D: params.AtVec(3), E: params.AtVec(4), F: params.AtVec(5),
	}, nil
}
