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

package tracker_test

import (
	"context"
	"testing"

	"github.com/baldurk/renderdoc-sub050/core/assert"
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
)

const (
	undefined    = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED
	general      = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_GENERAL
	transferDst  = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL
	shaderRead   = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL
	exclusive    = vulkan.VkSharingMode_VK_SHARING_MODE_EXCLUSIVE
	concurrent   = vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT
	ignored      = vulkan.VK_QUEUE_FAMILY_IGNORED
	colorAspect  = vulkan.VkImageAspectFlags(vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT)
	depthAspect  = vulkan.VkImageAspectFlags(vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT)
	remaining    = vulkan.VK_REMAINING_ARRAY_LAYERS
	planesAspect = vulkan.VkImageAspectFlags(0x30)
)

func colorImage(mips, layers uint32) vulkan.VkImageCreateInfo {
	return vulkan.VkImageCreateInfo{
		ImageType:     vulkan.VkImageType_VK_IMAGE_TYPE_2D,
		Fmt:           vulkan.VkFormat_VK_FORMAT_R8G8B8A8_UNORM,
		Extent:        vulkan.VkExtent3D{Width: 64, Height: 64, Depth: 1},
		MipLevels:     mips,
		ArrayLayers:   layers,
		SharingMode:   exclusive,
		InitialLayout: undefined,
	}
}

func newImage(ctx context.Context, t *testing.T, info vulkan.VkImageCreateInfo) *tracker.ImageState {
	img, err := tracker.NewImageState(ctx, 7, info, tracker.DefaultPolicy)
	if !assert.For(ctx, "NewImageState").ThatError(err).Succeeded() {
		t.FailNow()
	}
	return img
}

func TestImageStateCreate(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(3, 2)
	info.InitialLayout = general
	img := newImage(ctx, t, info)
	full := img.FullRange()
	assert.For(ctx, "full").That(full).Equals(tracker.ImageSubresourceRange{
		Image: 7, AspectMask: colorAspect, LevelCount: 3, LayerCount: 2,
	})
	subs, states := img.SubresourceStates()
	assert.For(ctx, "subresources").ThatSlice(subs).IsLength(6)
	for i, s := range states {
		assert.For(ctx, "%v", subs[i]).That(s).Equals(tracker.ImageSubresourceState{
			AccessState:      tracker.Init,
			StartLayout:      general,
			Layout:           general,
			StartQueueFamily: ignored,
			QueueFamily:      ignored,
			SharingMode:      exclusive,
		})
	}
	assert.For(ctx, "untouched").That(img.ResetRequirement()).Equals(tracker.NeedsInit)

	info.Fmt = vulkan.VkFormat_VK_FORMAT_UNDEFINED
	_, err := tracker.NewImageState(ctx, 8, info, tracker.DefaultPolicy)
	assert.For(ctx, "unknown format").ThatError(err).HasCause(vulkan.ErrUnknownFormat)

	info = colorImage(0, 1)
	_, err = tracker.NewImageState(ctx, 9, info, tracker.DefaultPolicy)
	assert.For(ctx, "no levels").ThatError(err).HasCause(tracker.ErrInvalidImage)
}

func TestImageStateVolumeLayers(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(1, 1)
	info.ImageType = vulkan.VkImageType_VK_IMAGE_TYPE_3D
	info.Extent.Depth = 8
	plain := newImage(ctx, t, info)
	assert.For(ctx, "plain 3D layers").That(plain.Layers).Equals(uint32(1))

	info.Flags = vulkan.VkImageCreateFlagBits_VK_IMAGE_CREATE_2D_ARRAY_COMPATIBLE_BIT
	img := newImage(ctx, t, info)
	assert.For(ctx, "array compatible layers").That(img.Layers).Equals(uint32(8))

	r, err := img.Range(colorAspect, 0, 1, 3, 1, true)
	assert.For(ctx, "2D view err").ThatError(err).Succeeded()
	assert.For(ctx, "2D view").ThatInteger(r.Count()).Equals(1)
	assert.For(ctx, "2D view layer").That(r.BaseArrayLayer).Equals(uint32(3))

	r, err = img.Range(colorAspect, 0, 1, 3, 1, false)
	assert.For(ctx, "3D view err").ThatError(err).Succeeded()
	assert.For(ctx, "3D view").ThatInteger(r.Count()).Equals(8)
	assert.For(ctx, "3D view is full").ThatBoolean(img.IsFullRange(r)).IsTrue()
}

func TestImageStateNormalizeAspectMask(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(1, 1)
	info.Fmt = vulkan.VkFormat_VK_FORMAT_G8_B8R8_2PLANE_420_UNORM
	planar := newImage(ctx, t, info)
	assert.For(ctx, "color to planes").That(planar.NormalizeAspectMask(colorAspect)).Equals(planesAspect)
	assert.For(ctx, "one plane").That(planar.NormalizeAspectMask(0x20)).Equals(vulkan.VkImageAspectFlags(0x20))
	assert.For(ctx, "missing plane").That(planar.NormalizeAspectMask(0x40)).Equals(vulkan.VkImageAspectFlags(0))

	info.Fmt = vulkan.VkFormat_VK_FORMAT_D24_UNORM_S8_UINT
	ds := newImage(ctx, t, info)
	assert.For(ctx, "depth of depth stencil").That(ds.NormalizeAspectMask(depthAspect)).Equals(depthAspect)
	assert.For(ctx, "color of depth stencil").That(ds.NormalizeAspectMask(colorAspect)).Equals(vulkan.VkImageAspectFlags(0))
}

func TestImageStateRange(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage(ctx, t, colorImage(4, 6))
	for _, test := range []struct {
		name                          string
		mask                          vulkan.VkImageAspectFlags
		baseMip, mips, baseLayer, num uint32
		expected                      tracker.ImageSubresourceRange
	}{
		{"whole", colorAspect, 0, remaining, 0, remaining,
			tracker.ImageSubresourceRange{Image: 7, AspectMask: colorAspect, LevelCount: 4, LayerCount: 6}},
		{"tail", colorAspect, 2, remaining, 4, remaining,
			tracker.ImageSubresourceRange{Image: 7, AspectMask: colorAspect, BaseMipLevel: 2, LevelCount: 2, BaseArrayLayer: 4, LayerCount: 2}},
		{"clamped", colorAspect, 1, 10, 5, 10,
			tracker.ImageSubresourceRange{Image: 7, AspectMask: colorAspect, BaseMipLevel: 1, LevelCount: 3, BaseArrayLayer: 5, LayerCount: 1}},
		{"extra aspects dropped", colorAspect | depthAspect, 0, 1, 0, 1,
			tracker.ImageSubresourceRange{Image: 7, AspectMask: colorAspect, LevelCount: 1, LayerCount: 1}},
	} {
		r, err := img.Range(test.mask, test.baseMip, test.mips, test.baseLayer, test.num, true)
		assert.For(ctx, "%s err", test.name).ThatError(err).Succeeded()
		assert.For(ctx, "%s", test.name).That(r).Equals(test.expected)
	}
	for _, test := range []struct {
		name                          string
		mask                          vulkan.VkImageAspectFlags
		baseMip, mips, baseLayer, num uint32
	}{
		{"mip out of range", colorAspect, 4, 1, 0, 1},
		{"layer out of range", colorAspect, 0, 1, 6, 1},
		{"no levels", colorAspect, 0, 0, 0, 1},
		{"wrong aspect", depthAspect, 0, 1, 0, 1},
	} {
		_, err := img.Range(test.mask, test.baseMip, test.mips, test.baseLayer, test.num, true)
		assert.For(ctx, "%s", test.name).ThatError(err).HasCause(tracker.ErrSubresourceOutOfRange)
	}
}

func TestImageStateAccess(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage(ctx, t, colorImage(2, 1))
	full := img.FullRange()
	mip0, _ := img.Range(colorAspect, 0, 1, 0, 1, true)

	img.Transition(ctx, full, 0, undefined, transferDst, ignored, ignored)
	img.Access(ctx, full, 0, transferDst, tracker.ActionWrite)
	assert.For(ctx, "written").That(img.ResetRequirement()).Equals(tracker.NoReset)
	assert.For(ctx, "no issues").ThatSlice(img.Issues).IsEmpty()

	img.Access(ctx, mip0, 0, transferDst, tracker.ActionRead)
	assert.For(ctx, "read after write").That(img.ResetRequirement()).Equals(tracker.NeedsInit)

	img.Access(ctx, mip0, 0, undefined, tracker.ActionClear)
	assert.For(ctx, "read then cleared").That(img.ResetRequirement()).Equals(tracker.NeedsReset)
	s := img.Subresource(tracker.ImageSubresource{Image: 7, Aspect: vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT, Level: 1})
	assert.For(ctx, "mip 1").That(s.AccessState).Equals(tracker.Write)
}

func TestImageStateLayoutMismatch(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(1, 1)
	info.InitialLayout = shaderRead

	img := newImage(ctx, t, info)
	img.Access(ctx, img.FullRange(), 0, transferDst, tracker.ActionWrite)
	assert.For(ctx, "strict").That(img.ResetRequirement()).Equals(tracker.NeedsReset)
	assert.For(ctx, "issues").ThatSlice(img.Issues).IsLength(1)
	assert.For(ctx, "issue").That(img.Issues[0].Mismatch).Equals(tracker.LayoutMismatch)
	assert.For(ctx, "issue reset").ThatBoolean(img.Issues[0].Reset).IsTrue()
	changes := img.RangeChanges(img.FullRange())
	assert.For(ctx, "layout adopted").That(changes.Layout).Equals(transferDst)

	lenient, err := tracker.NewImageState(ctx, 7, info, tracker.Policy{StrictQueueOwnership: true})
	assert.For(ctx, "lenient err").ThatError(err).Succeeded()
	lenient.Access(ctx, lenient.FullRange(), 0, transferDst, tracker.ActionWrite)
	assert.For(ctx, "lenient").That(lenient.ResetRequirement()).Equals(tracker.NoReset)
	assert.For(ctx, "lenient issues").ThatSlice(lenient.Issues).IsLength(1)
}

func TestImageStateQueueOwnership(t *testing.T) {
	ctx := log.Testing(t)
	img := newImage(ctx, t, colorImage(1, 1))
	full := img.FullRange()

	img.Access(ctx, full, 1, undefined, tracker.ActionWrite)
	changes := img.RangeChanges(full)
	assert.For(ctx, "acquired start").That(changes.StartQueueFamily).Equals(uint32(1))
	assert.For(ctx, "acquired").That(changes.QueueFamily).Equals(uint32(1))
	assert.For(ctx, "no change").ThatBoolean(changes.QueueFamilyChanged).IsFalse()

	img.Transition(ctx, full, 1, undefined, shaderRead, 1, 2)
	img.Access(ctx, full, 2, shaderRead, tracker.ActionRead)
	assert.For(ctx, "transferred").ThatSlice(img.Issues).IsEmpty()
	changes = img.RangeChanges(full)
	assert.For(ctx, "owner").That(changes.QueueFamily).Equals(uint32(2))
	assert.For(ctx, "changed").ThatBoolean(changes.QueueFamilyChanged).IsTrue()
	assert.For(ctx, "read after write").That(img.ResetRequirement()).Equals(tracker.NeedsInit)

	img.Access(ctx, full, 1, shaderRead, tracker.ActionRead)
	assert.For(ctx, "foreign access").ThatSlice(img.Issues).IsLength(1)
	assert.For(ctx, "foreign mismatch").That(img.Issues[0].Mismatch).Equals(tracker.QueueFamilyMismatch)
	assert.For(ctx, "forced").That(img.ResetRequirement()).Equals(tracker.NeedsReset)
}

func TestImageStateConcurrent(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(1, 1)
	info.SharingMode = concurrent
	info.QueueFamilyIndices = []uint32{0, 1}
	img := newImage(ctx, t, info)
	full := img.FullRange()

	img.Access(ctx, full, 0, undefined, tracker.ActionWrite)
	img.Access(ctx, full, 1, undefined, tracker.ActionWrite)
	assert.For(ctx, "declared").ThatSlice(img.Issues).IsEmpty()
	assert.For(ctx, "written").That(img.ResetRequirement()).Equals(tracker.NoReset)

	img.Access(ctx, full, 5, undefined, tracker.ActionWrite)
	assert.For(ctx, "undeclared").ThatSlice(img.Issues).IsLength(1)
	assert.For(ctx, "undeclared mismatch").That(img.Issues[0].Mismatch).Equals(tracker.UndeclaredQueueFamily)
	assert.For(ctx, "undeclared forced").That(img.ResetRequirement()).Equals(tracker.NeedsReset)
}

func TestImageStateRangeChanges(t *testing.T) {
	ctx := log.Testing(t)
	info := colorImage(2, 1)
	info.InitialLayout = shaderRead
	img := newImage(ctx, t, info)
	full := img.FullRange()
	mip1, _ := img.Range(colorAspect, 1, 1, 0, 1, true)

	changes := img.RangeChanges(full)
	assert.For(ctx, "untouched").That(changes).Equals(tracker.ImageSubresourceRangeStateChanges{
		SameStartLayout:      true,
		SameLayout:           true,
		SameStartQueueFamily: true,
		SameQueueFamily:      true,
		StartLayout:          shaderRead,
		Layout:               shaderRead,
		StartQueueFamily:     ignored,
		QueueFamily:          ignored,
	})

	img.Transition(ctx, mip1, 0, shaderRead, transferDst, ignored, ignored)
	changes = img.RangeChanges(full)
	assert.For(ctx, "start").ThatBoolean(changes.SameStartLayout).IsTrue()
	assert.For(ctx, "end").ThatBoolean(changes.SameLayout).IsFalse()
	assert.For(ctx, "end layout").That(changes.Layout).Equals(undefined)
	assert.For(ctx, "changed").ThatBoolean(changes.LayoutChanged).IsTrue()

	fresh := newImage(ctx, t, colorImage(1, 1))
	fresh.Transition(ctx, fresh.FullRange(), 0, undefined, general, ignored, ignored)
	changes = fresh.RangeChanges(fresh.FullRange())
	assert.For(ctx, "from undefined is trivial").ThatBoolean(changes.LayoutChanged).IsFalse()
	assert.For(ctx, "from undefined end").That(changes.Layout).Equals(general)

	other := full
	other.AspectMask = depthAspect
	changes = img.RangeChanges(other)
	assert.For(ctx, "no match").That(changes).Equals(tracker.ImageSubresourceRangeStateChanges{
		SameStartLayout:      true,
		SameLayout:           true,
		SameStartQueueFamily: true,
		SameQueueFamily:      true,
		StartLayout:          undefined,
		Layout:               undefined,
		StartQueueFamily:     ignored,
		QueueFamily:          ignored,
	})
}
