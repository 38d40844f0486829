package crs

import (
	"maps"
	"slices"
	"strings"
)

// Keywords is the sensor keyword list attached to a raster (for example
// the ground control points of an unrectified scene).
type Keywords map[string]string

// Descriptor identifies a coordinate reference system.
type Descriptor struct {
	// Projection is an authority code, a registered name or a WKT string.
	// Empty means "no projection information".
	Projection string

	// Keywords holds optional sensor model parameters.
	Keywords Keywords
}

// Pixel is the descriptor of a raster without georeferencing.
var Pixel = Descriptor{}

// Geographic is WGS84 longitude/latitude in degrees.
var Geographic = Descriptor{Projection: EPSG4326}

// WebMercator is spherical Mercator in meters.
var WebMercator = Descriptor{Projection: EPSG3857}

// IsZero reports whether d carries neither a projection nor keywords.
func (d Descriptor) IsZero() bool {
	return strings.TrimSpace(d.Projection) == "" && len(d.Keywords) == 0
}

// HasSensorModel reports whether d carries ground control points.
func (d Descriptor) HasSensorModel() bool {
	for k := range d.Keywords {
		if strings.HasPrefix(k, gcpPrefix) {
			return true
		}
	}
	return false
}

// Equal reports whether two descriptors describe the same system.
func (d Descriptor) Equal(o Descriptor) bool {
	return Normalize(d.Projection) == Normalize(o.Projection) && maps.Equal(d.Keywords, o.Keywords)
}

// Key returns a canonical string for d, usable as a map or cache key.
func (d Descriptor) Key() string {
	var b strings.Builder
	b.WriteString(Normalize(d.Projection))
	for _, k := range slices.Sorted(maps.Keys(d.Keywords)) {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d.Keywords[k])
	}
	return b.String()
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	if d.IsZero() {
		return "pixel"
	}
	s := Normalize(d.Projection)
	if d.HasSensorModel() {
		s += "+sensor"
	}
	return s
}

// Normalize maps common spellings of the built-in systems to their
// authority code. WKT strings are recognized by their root node.
// Other authority codes such as "epsg:32631" are upper-cased; anything
// else is returned trimmed, unchanged.
func Normalize(projection string) string {
	p := strings.TrimSpace(projection)
	u := strings.ToUpper(p)
	switch u {
	case "EPSG:4326", "WGS84", "WGS 84", "CRS:84", "OGC:CRS84":
		return EPSG4326
	case "EPSG:3857", "EPSG:900913", "WEBMERCATOR", "WEB MERCATOR":
		return EPSG3857
	}
	switch {
	case strings.HasPrefix(u, "GEOGCS[") || strings.HasPrefix(u, "GEOGCRS["):
		return EPSG4326
	case (strings.HasPrefix(u, "PROJCS[") || strings.HasPrefix(u, "PROJCRS[")) &&
		strings.Contains(u, "MERCATOR") &&
		(strings.Contains(u, "PSEUDO") || strings.Contains(u, "3857") || strings.Contains(u, "AUXILIARY_SPHERE")):
		return EPSG3857
	}
	if isAuthorityCode(p) {
		return u
	}
	return p
}

// isAuthorityCode reports whether s has the form AUTHORITY:code.
func isAuthorityCode(s string) bool {
	auth, code, ok := strings.Cut(s, ":")
	if !ok || auth == "" || code == "" {
		return false
	}
	return !strings.ContainsAny(s, "[]\" \t+")
}
