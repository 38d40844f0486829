// Package tile keeps the resident tiles of one raster layer.
//
// On every heavy update a [Cache] picks the pyramid level matching the
// current zoom ([SelectLevel]), maps the viewport to raster pixels, expands
// that rectangle to whole tiles on the level's grid, evicts the tiles no
// longer needed and loads the missing ones. Light renders only draw what
// is resident.
//
// # Tile grid
//
// Each level has its own grid in that level's pixel coordinates, anchored
// at pixel (0, 0), with a constant edge length. A level-L tile therefore
// covers exactly 2^L x 2^L level-0 tiles of the same edge length.
//
// # States
//
//	Idle                 nothing to do
//	NeedsGeometryUpdate  corners of resident tiles are stale
//	NeedsDataUpdate      the resident set itself may be wrong
//
// Geometry recompute always happens before eviction, and eviction before
// loading. Eviction releases the tile's texture before it returns.
package tile
