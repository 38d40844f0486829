// Package tileview is the core of an interactive viewer for very large,
// georeferenced raster images.
//
// # Overview
//
// A viewer built on tileview shows one or more raster layers, vector layers
// and region-of-interest boxes through a continuously changing viewport
// (pan, zoom, rotate). Rasters are never loaded whole: every layer keeps a
// small set of fixed-size pixel blocks ("tiles") resident, taken from the
// pyramid level that best matches the current zoom, and each tile is drawn
// as one GPU texture whose four corners are placed in viewport coordinates.
//
// # Architecture
//
// The module is organized into:
//   - tileview (this package): Point, Rect, Matrix and the shared logger
//   - viewport: the mutable view state (origin, spacing, size, rotation, CRS)
//   - crs: coordinate reference descriptors, projections, sensor models and
//     the transform registry
//   - raster: the raster data source (datasets, pyramid levels, block reads)
//   - gpu: texture upload, release and quad drawing (software and wgpu/hal)
//   - coords: the per-layer viewport <-> raster transform pair
//   - tile: resolution selection and the tile residency cache
//   - layer: raster, vector and ROI layers behind one Layer interface
//   - view: the compositor that owns layers, draw order and the frame loop
//
// # Frame Model
//
// Rendering is single-threaded and frame based:
//
//	c := view.New(gpu.NewSoftware(800, 600))
//	key, err := c.AddActor(rasterLayer, "")
//	...
//	c.Viewport().Zoom(center, 0.5)
//
//	c.BeforeRender()
//	if interacting {
//	    c.LightRender() // resident tiles only, no I/O
//	} else {
//	    c.HeavyRender(ctx) // load/evict tiles, then draw
//	}
//	c.AfterRender()
//
// # Coordinate Systems
//
// Screen pixels have their origin at the top-left corner of the viewport.
// Viewport space is the coordinate system the view state is expressed in;
// it is a map projection when projection is enabled and the first raster's
// physical space otherwise. Raster pixel space has (0, 0) at the top-left
// corner of the full resolution image and pixel (i, j) covers [i, i+1) x [j, j+1).
//
// # Logging
//
// tileview is silent by default. Call SetLogger to receive degraded-mode
// warnings (projection fallback, tile read failures) and debug diagnostics.
package tileview
