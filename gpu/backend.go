// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/gogpu/tileview"
)

var (
	// ErrEmptyTexture is returned when uploading a texture with no pixels.
	ErrEmptyTexture = errors.New("gpu: empty texture")

	// ErrPixelSize is returned when the pixel slice does not match the size.
	ErrPixelSize = errors.New("gpu: pixel data does not match texture size")

	// ErrClosed is returned by uploads on a closed backend.
	ErrClosed = errors.New("gpu: backend closed")
)

// TextureID identifies a texture owned by a Backend. Zero is never valid.
type TextureID uint64

var textureIDs atomic.Uint64

func nextTextureID() TextureID {
	return TextureID(textureIDs.Add(1))
}

// Frame describes the surface a frame is drawn on.
type Frame struct {
	// Size is the surface size in pixels.
	Size image.Point

	// ToScreen maps viewport coordinates (after rotation) to surface pixels.
	ToScreen tileview.Matrix

	// Clear is the background color; nil leaves the surface untouched.
	Clear color.Color
}

// Style describes how a polyline is drawn.
type Style struct {
	Color color.NRGBA

	// Width is the stroke width in screen pixels. Zero disables the stroke.
	Width float64

	// Fill closes the polyline and fills its interior with Color at
	// FillAlpha opacity.
	Fill      bool
	FillAlpha float64
}

// Backend is the GPU surface layers draw on.
type Backend interface {
	// Name returns a short name for logs.
	Name() string

	// UploadTexture creates a texture from premultiplied RGBA8 pixels,
	// rows top to bottom, len(pix) == 4*width*height.
	UploadTexture(width, height int, pix []byte) (TextureID, error)

	// ReleaseTexture frees a texture synchronously.
	ReleaseTexture(id TextureID)

	// BeginFrame starts a frame and clears the surface if requested.
	BeginFrame(f Frame)

	// DrawTexturedQuad draws a texture with its upper-left, upper-right,
	// lower-left and lower-right corners at the given viewport points.
	DrawTexturedQuad(id TextureID, corners [4]tileview.Point, alpha float64)

	// DrawPolyline draws a line string given in viewport coordinates.
	DrawPolyline(pts []tileview.Point, closed bool, style Style)

	// EndFrame finishes the frame.
	EndFrame() error

	// Textures returns the number of live textures.
	Textures() int

	// Close releases every remaining texture.
	Close() error
}

func checkUpload(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 {
		return ErrEmptyTexture
	}
	if len(pix) != 4*width*height {
		return ErrPixelSize
	}
	return nil
}
