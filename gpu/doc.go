// Package gpu uploads tile textures, releases them, and draws them as
// quads placed by their four viewport-space corners.
//
// Two backends implement [Backend]:
//   - [Software] rasterizes into an *image.RGBA with golang.org/x/image
//     (affine texture mapping, anti-aliased vector strokes). It needs no
//     GPU and backs the command-line renderer and the tests.
//   - [HAL] owns real GPU textures on a wgpu/hal device shared by the host
//     application and records per-frame quad and line commands for the
//     host's render pass. Its shaders live in a [ShaderRegistry].
//
// Every texture is owned by exactly one caller: ReleaseTexture frees it
// immediately, and releasing an unknown ID is a no-op.
package gpu
