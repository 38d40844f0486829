// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host owns the device; tileview receives it and never creates one.
// DeviceHandle is an alias for gpucontext.DeviceProvider so that any
// gpucontext host can be passed directly.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by hosts that expose their wgpu/hal objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewHALFromProvider builds a HAL backend on the device of a host
// application. The provider must also expose HalDevice and HalQueue.
func NewHALFromProvider(provider DeviceHandle) (*HAL, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	h := NewHAL(device, queue)
	h.format = provider.SurfaceFormat()
	return h, nil
}

// TextureFormat is the format of every tile texture.
const TextureFormat = gputypes.TextureFormatRGBA8Unorm

// NullDeviceHandle is a DeviceHandle without a device, for CPU-only hosts.
type NullDeviceHandle struct{}

func (NullDeviceHandle) Device() gpucontext.Device   { return nil }
func (NullDeviceHandle) Queue() gpucontext.Queue     { return nil }
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports an unknown adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}
