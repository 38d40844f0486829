// Package layer provides the drawable layers a compositor stacks: raster
// layers backed by a tile cache, vector layers read from GeoJSON, and
// region-of-interest boxes.
//
// Every layer follows the same frame protocol. SetViewport hands it the
// current geometry, HeavyUpdate may read data and upload textures, and
// LightRender only draws what is already resident. Layers are driven from
// one goroutine and are not safe for concurrent use.
package layer
