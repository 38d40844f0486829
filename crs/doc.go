// Package crs describes coordinate reference systems and builds point
// transforms between them.
//
// A [Descriptor] names a projection ("EPSG:4326", "EPSG:3857", a WKT string,
// or "" for plain pixel space) and may carry sensor keywords holding ground
// control points. [Registry.Build] turns two descriptors into a [Pair] of
// forward and inverse transforms, caching the result.
//
// Transforms always go through geographic longitude/latitude: the source
// descriptor is mapped to lon/lat, then lon/lat to the destination.
package crs
