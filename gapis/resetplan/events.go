// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resetplan

import (
	"context"
	"fmt"

	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
)

type (
	AllocationID = tracker.AllocationID
	ResourceID   = tracker.ResourceID
)

// Event is one decoded command of the frame. Events are applied in the order
// they were recorded.
type Event interface {
	// Kind returns the name of the event in trace files.
	Kind() string
	// apply applies the event, which runs on queue family qf.
	apply(ctx context.Context, p *Planner, qf uint32) error
}

// AllocateMemory creates an allocation of Size bytes.
type AllocateMemory struct {
	Memory AllocationID
	Size   uint64
}

// FreeMemory frees an allocation. Its state is final from then on.
type FreeMemory struct {
	Memory AllocationID
}

// CreateBuffer creates a buffer.
type CreateBuffer struct {
	Buffer ResourceID
	Info   vulkan.VkBufferCreateInfo
}

// CreateImage creates an image.
type CreateImage struct {
	Image ResourceID
	Info  vulkan.VkImageCreateInfo
}

// DestroyImage destroys an image. Its state is final from then on.
type DestroyImage struct {
	Image ResourceID
}

// BindBufferMemory binds a buffer at Offset of an allocation.
type BindBufferMemory struct {
	Buffer       ResourceID
	Memory       AllocationID
	Offset       uint64
	Requirements vulkan.VkMemoryRequirements
}

// BindImageMemory binds an image at Offset of an allocation.
type BindImageMemory struct {
	Image        ResourceID
	Memory       AllocationID
	Offset       uint64
	Requirements vulkan.VkMemoryRequirements
}

// BufferAccess reads, writes or clears the bytes [Offset, Offset+Size) of a
// buffer. VK_WHOLE_SIZE selects up to the end of the buffer.
type BufferAccess struct {
	Buffer      ResourceID
	QueueFamily uint32
	Action      tracker.AccessAction
	Offset      uint64
	Size        uint64
}

// MemoryAccess is a host access to the bytes [Offset, Offset+Size) of a
// mapped allocation.
type MemoryAccess struct {
	Memory AllocationID
	Action tracker.AccessAction
	Offset uint64
	Size   uint64
}

// ImageAccess reads, writes or clears a subresource range of an image, which
// is expected in Layout. An UNDEFINED Layout matches any layout.
type ImageAccess struct {
	Image       ResourceID
	QueueFamily uint32
	Action      tracker.AccessAction
	Layout      vulkan.VkImageLayout
	Range       vulkan.VkImageSubresourceRange
	// Is2DView is true if the access goes through a 2D view of a 3D image.
	Is2DView bool
}

// BufferBarrier transfers the bytes [Offset, Offset+Size) of a buffer between
// queue families.
type BufferBarrier struct {
	Buffer         ResourceID
	QueueFamily    uint32
	SrcQueueFamily uint32
	DstQueueFamily uint32
	Offset         uint64
	Size           uint64
}

// ImageBarrier transitions a subresource range of an image between layouts
// and queue families.
type ImageBarrier struct {
	Image          ResourceID
	QueueFamily    uint32
	OldLayout      vulkan.VkImageLayout
	NewLayout      vulkan.VkImageLayout
	SrcQueueFamily uint32
	DstQueueFamily uint32
	Range          vulkan.VkImageSubresourceRange
}

// Submit runs Events on a queue of QueueFamily. Events that do not name a
// queue family run on the submit's.
type Submit struct {
	Queue       uint64
	QueueFamily uint32
	Events      []Event
}

func (AllocateMemory) Kind() string   { return "AllocateMemory" }
func (FreeMemory) Kind() string       { return "FreeMemory" }
func (CreateBuffer) Kind() string     { return "CreateBuffer" }
func (CreateImage) Kind() string      { return "CreateImage" }
func (DestroyImage) Kind() string     { return "DestroyImage" }
func (BindBufferMemory) Kind() string { return "BindBufferMemory" }
func (BindImageMemory) Kind() string  { return "BindImageMemory" }
func (BufferAccess) Kind() string     { return "BufferAccess" }
func (MemoryAccess) Kind() string     { return "MemoryAccess" }
func (ImageAccess) Kind() string      { return "ImageAccess" }
func (BufferBarrier) Kind() string    { return "BufferBarrier" }
func (ImageBarrier) Kind() string     { return "ImageBarrier" }
func (Submit) Kind() string           { return "Submit" }

func (e AllocateMemory) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.allocateMemory(ctx, e)
}

func (e FreeMemory) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.freeMemory(ctx, e)
}

func (e CreateBuffer) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.createBuffer(ctx, e)
}

func (e CreateImage) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.createImage(ctx, e)
}

func (e DestroyImage) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.destroyImage(ctx, e)
}

func (e BindBufferMemory) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.bind(ctx, tracker.BufferResource, e.Buffer, e.Memory, e.Offset, e.Requirements)
}

func (e BindImageMemory) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.bind(ctx, tracker.ImageResource, e.Image, e.Memory, e.Offset, e.Requirements)
}

func (e BufferAccess) apply(ctx context.Context, p *Planner, qf uint32) error {
	e.QueueFamily = inherit(e.QueueFamily, qf)
	return p.bufferAccess(ctx, e)
}

func (e MemoryAccess) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.memoryAccess(ctx, e)
}

func (e ImageAccess) apply(ctx context.Context, p *Planner, qf uint32) error {
	e.QueueFamily = inherit(e.QueueFamily, qf)
	return p.imageAccess(ctx, e)
}

func (e BufferBarrier) apply(ctx context.Context, p *Planner, qf uint32) error {
	e.QueueFamily = inherit(e.QueueFamily, qf)
	return p.bufferBarrier(ctx, e)
}

func (e ImageBarrier) apply(ctx context.Context, p *Planner, qf uint32) error {
	e.QueueFamily = inherit(e.QueueFamily, qf)
	return p.imageBarrier(ctx, e)
}

func (e Submit) apply(ctx context.Context, p *Planner, qf uint32) error {
	return p.submit(ctx, e, inherit(e.QueueFamily, qf))
}

// inherit returns qf, or the enclosing queue family if qf is ignored.
func inherit(qf, enclosing uint32) uint32 {
	if qf == vulkan.VK_QUEUE_FAMILY_IGNORED {
		return enclosing
	}
	return qf
}

func (e BufferAccess) String() string {
	return fmt.Sprintf("%v of buffer %d [%d,+%d)", e.Action, e.Buffer, e.Offset, e.Size)
}

func (e ImageAccess) String() string {
	return fmt.Sprintf("%v of image %d in %v", e.Action, e.Image, e.Layout)
}
