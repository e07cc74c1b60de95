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

package resetplan_test

import (
	"os"
	"strings"
	"testing"

	"github.com/baldurk/renderdoc-sub050/core/assert"
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/resetplan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
)

func loadExample(t *testing.T) *resetplan.Trace {
	f, err := os.Open("testdata/frame.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	trace, err := resetplan.LoadTrace(f)
	if err != nil {
		t.Fatal(err)
	}
	return trace
}

func TestLoadTrace(t *testing.T) {
	ctx := log.Testing(t)
	trace := loadExample(t)
	assert.For(ctx, "frame").ThatString(trace.Frame).Equals("example")
	assert.For(ctx, "events").ThatSlice(trace.Events).IsLength(16)

	assert.For(ctx, "allocate").That(trace.Events[0]).Equals(resetplan.AllocateMemory{Memory: 1, Size: 256})
	assert.For(ctx, "bind").That(trace.Events[9]).Equals(resetplan.BindBufferMemory{
		Buffer: 12, Memory: 1, Offset: 96,
		Requirements: vulkan.VkMemoryRequirements{Size: 64, Alignment: 16},
	})
	assert.For(ctx, "create image").That(trace.Events[13]).DeepEquals(resetplan.CreateImage{
		Image: 21,
		Info: vulkan.VkImageCreateInfo{
			ImageType:     vulkan.VkImageType_VK_IMAGE_TYPE_2D,
			Fmt:           vulkan.VkFormat_VK_FORMAT_R8G8B8A8_UNORM,
			Extent:        vulkan.VkExtent3D{Width: 1, Height: 1, Depth: 1},
			MipLevels:     1,
			ArrayLayers:   1,
			SharingMode:   exclusive,
			InitialLayout: general,
		},
	})

	submit, ok := trace.Events[14].(resetplan.Submit)
	assert.For(ctx, "submit").ThatBoolean(ok).IsTrue()
	assert.For(ctx, "queue").That(submit.Queue).Equals(uint64(5))
	assert.For(ctx, "queue family").That(submit.QueueFamily).Equals(uint32(0))
	assert.For(ctx, "nested").ThatSlice(submit.Events).IsLength(8)
	assert.For(ctx, "whole buffer").That(submit.Events[0]).Equals(resetplan.BufferAccess{
		Buffer: 10, QueueFamily: ignored, Action: tracker.ActionWrite, Size: whole,
	})
	assert.For(ctx, "partial image").That(submit.Events[4]).Equals(resetplan.ImageAccess{
		Image: 20, QueueFamily: ignored, Action: tracker.ActionRead, Layout: general,
		Range: vulkan.VkImageSubresourceRange{
			AspectMask:   ^vulkan.VkImageAspectFlags(0),
			BaseMipLevel: 1,
			LevelCount:   remaining,
			LayerCount:   remaining,
		},
	})
	assert.For(ctx, "barrier").That(submit.Events[5]).Equals(resetplan.ImageBarrier{
		Image: 20, QueueFamily: ignored,
		OldLayout: general, NewLayout: transferDst,
		SrcQueueFamily: ignored, DstQueueFamily: ignored,
		Range: vulkan.VkImageSubresourceRange{
			AspectMask: ^vulkan.VkImageAspectFlags(0),
			LevelCount: remaining,
			LayerCount: remaining,
		},
	})
}

func TestLoadTraceFields(t *testing.T) {
	ctx := log.Testing(t)
	trace, err := resetplan.LoadTrace(strings.NewReader(`
events:
  - memory_access: {memory: 2, offset: 16, size: 32}
  - buffer_barrier: {buffer: 4, src: 0, dst: external, offset: 8}
  - image_access:
      image: 3
      action: readwrite
      view_2d: true
      range: {aspect: depth|stencil, mips: 2, base_layer: 1, layers: remaining}
  - create_image:
      image: 3
      type: 3d
      format: d24_unorm_s8_uint
      depth: 4
      array_compatible: true
      sharing: concurrent
      queue_families: [0, 2]
`))
	if !assert.For(ctx, "err").ThatError(err).Succeeded() {
		return
	}
	assert.For(ctx, "frame").ThatString(trace.Frame).Equals("")
	assert.For(ctx, "memory").That(trace.Events[0]).Equals(resetplan.MemoryAccess{
		Memory: 2, Action: tracker.ActionWrite, Offset: 16, Size: 32,
	})
	assert.For(ctx, "barrier").That(trace.Events[1]).Equals(resetplan.BufferBarrier{
		Buffer: 4, QueueFamily: ignored, SrcQueueFamily: 0,
		DstQueueFamily: vulkan.VK_QUEUE_FAMILY_EXTERNAL, Offset: 8, Size: whole,
	})
	assert.For(ctx, "image access").That(trace.Events[2]).Equals(resetplan.ImageAccess{
		Image: 3, QueueFamily: ignored, Action: tracker.ActionReadWrite,
		Range: vulkan.VkImageSubresourceRange{
			AspectMask: vulkan.VkImageAspectFlags(vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT |
				vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_STENCIL_BIT),
			LevelCount:     2,
			BaseArrayLayer: 1,
			LayerCount:     remaining,
		},
		Is2DView: true,
	})
	create, ok := trace.Events[3].(resetplan.CreateImage)
	if !assert.For(ctx, "create").ThatBoolean(ok).IsTrue() {
		return
	}
	assert.For(ctx, "type").That(create.Info.ImageType).Equals(vulkan.VkImageType_VK_IMAGE_TYPE_3D)
	assert.For(ctx, "format").That(create.Info.Fmt).Equals(vulkan.VkFormat_VK_FORMAT_D24_UNORM_S8_UINT)
	assert.For(ctx, "extent").That(create.Info.Extent).Equals(vulkan.VkExtent3D{Width: 1, Height: 1, Depth: 4})
	assert.For(ctx, "flags").That(create.Info.Flags).Equals(vulkan.VkImageCreateFlagBits_VK_IMAGE_CREATE_2D_ARRAY_COMPATIBLE_BIT)
	assert.For(ctx, "sharing").That(create.Info.SharingMode).Equals(vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT)
	assert.For(ctx, "families").ThatSlice(create.Info.QueueFamilyIndices).Equals([]uint32{0, 2})
}

func TestLoadTraceEmpty(t *testing.T) {
	ctx := log.Testing(t)
	trace, err := resetplan.LoadTrace(strings.NewReader(""))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "events").ThatSlice(trace.Events).IsEmpty()
}

func TestLoadTraceErrors(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name  string
		trace string
		cause error
	}{
		{"syntax", "events: [", resetplan.ErrBadTrace},
		{"unknown event", "events:\n  - draw: {}\n", resetplan.ErrBadTrace},
		{"two keys", "events:\n  - {free: {memory: 1}, allocate: {memory: 2}}\n", resetplan.ErrBadTrace},
		{"scalar event", "events:\n  - free\n", resetplan.ErrBadTrace},
		{"bad size", "events:\n  - memory_access: {memory: 1, size: lots}\n", resetplan.ErrBadTrace},
		{"bad count", "events:\n  - image_access: {image: 1, range: {mips: some}}\n", resetplan.ErrBadTrace},
		{"bad layout", "events:\n  - image_access: {image: 1, layout: sideways}\n", vulkan.ErrUnknownName},
		{"bad format", "events:\n  - create_image: {image: 1, format: r9}\n", vulkan.ErrUnknownName},
		{"nested", "events:\n  - submit: {events: [{draw: {}}]}\n", resetplan.ErrBadTrace},
	} {
		ctx := log.Enter(ctx, test.name)
		_, err := resetplan.LoadTrace(strings.NewReader(test.trace))
		assert.For(ctx, "err").ThatError(err).HasCause(test.cause)
	}
}

func TestRunTrace(t *testing.T) {
	ctx := log.Testing(t)
	trace := loadExample(t)
	plan := resetplan.Run(ctx, resetplan.DefaultOptions(), trace.Events)
	assert.For(ctx, "errors").ThatSlice(plan.Errors).IsLength(1)
	assert.For(ctx, "error").ThatError(plan.Errors[0]).HasCause(resetplan.ErrUnknownResource)
	assert.For(ctx, "issues").ThatSlice(plan.Issues).IsLength(1)
	for id, expected := range map[resetplan.ResourceID]tracker.ResetRequirement{
		10: tracker.NoReset,
		11: tracker.NeedsReset,
		12: tracker.NeedsReset,
		20: tracker.NeedsReset,
		21: tracker.NoReset,
		30: tracker.NeedsReset,
	} {
		assert.For(ctx, "%d", id).That(verdict(ctx, plan, id)).Equals(expected)
	}
}
