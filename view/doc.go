// Package view composes layers into frames.
//
// A [Compositor] owns a viewport, a set of layers addressed by key and a
// draw order. The first key of the draw order is the topmost layer; layers
// are drawn back to front. A frame is
//
//	c.BeforeRender()
//	c.HeavyRender(ctx) // or c.LightRender() while the user drags
//	c.AfterRender()
//
// LightRender never reads raster data, so it stays responsive during
// interaction; HeavyRender loads and evicts tiles first.
package view
