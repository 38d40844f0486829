// Package raster is the data source behind raster layers.
//
// A [Dataset] exposes the metadata of one raster (native origin, spacing,
// size, channel count, decimation levels, projection) and reads
// axis-aligned pixel blocks of any level as multi-channel float buffers.
// Blocks are cropped to the level's extent before reading, never after.
//
// [Memory] keeps a whole pyramid in memory; [Open] decodes an image file
// (PNG, JPEG, GIF, TIFF, BMP, WebP) with its world file, .prj and .gcps
// sidecars into a Memory dataset.
package raster
