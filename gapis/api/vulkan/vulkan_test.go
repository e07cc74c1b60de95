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

package vulkan_test

import (
	"testing"

	"github.com/baldurk/renderdoc-sub050/core/assert"
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
)

func TestParseImageLayout(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name     string
		expected vulkan.VkImageLayout
	}{
		{"VK_IMAGE_LAYOUT_GENERAL", vulkan.VkImageLayout_VK_IMAGE_LAYOUT_GENERAL},
		{"transfer_dst_optimal", vulkan.VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL},
		{" Present_Src_KHR ", vulkan.VkImageLayout_VK_IMAGE_LAYOUT_PRESENT_SRC_KHR},
		{"undefined", vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED},
	} {
		got, err := vulkan.ParseImageLayout(test.name)
		assert.For(ctx, "err %s", test.name).ThatError(err).Succeeded()
		assert.For(ctx, "layout %s", test.name).That(got).Equals(test.expected)
	}
	_, err := vulkan.ParseImageLayout("sideways")
	assert.For(ctx, "unknown").ThatError(err).HasCause(vulkan.ErrUnknownName)
}

func TestImageAspectFlags(t *testing.T) {
	ctx := log.Testing(t)
	mask, err := vulkan.ParseImageAspectFlags("depth|STENCIL")
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "mask").That(mask).Equals(vulkan.VkImageAspectFlags(0x6))
	assert.For(ctx, "bits").ThatSlice(mask.Bits()).Equals([]vulkan.VkImageAspectFlagBits{
		vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT,
		vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_STENCIL_BIT,
	})
	assert.For(ctx, "string").ThatString(mask).Equals("VK_IMAGE_ASPECT_DEPTH_BIT|VK_IMAGE_ASPECT_STENCIL_BIT")
	assert.For(ctx, "empty").ThatSlice(vulkan.VkImageAspectFlags(0).Bits()).IsEmpty()

	_, err = vulkan.ParseImageAspectFlags("color|bogus")
	assert.For(ctx, "bogus").ThatError(err).HasCause(vulkan.ErrUnknownName)
}

func TestFormatAspects(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		format      vulkan.VkFormat
		aspects     vulkan.VkImageAspectFlags
		multiPlanar bool
	}{
		{vulkan.VkFormat_VK_FORMAT_R8G8B8A8_UNORM, 0x1, false},
		{vulkan.VkFormat_VK_FORMAT_D32_SFLOAT, 0x2, false},
		{vulkan.VkFormat_VK_FORMAT_S8_UINT, 0x4, false},
		{vulkan.VkFormat_VK_FORMAT_D24_UNORM_S8_UINT, 0x6, false},
		{vulkan.VkFormat_VK_FORMAT_G8_B8R8_2PLANE_420_UNORM, 0x30, true},
		{vulkan.VkFormat_VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM, 0x70, true},
	} {
		aspects, err := test.format.Aspects()
		assert.For(ctx, "%v err", test.format).ThatError(err).Succeeded()
		assert.For(ctx, "%v aspects", test.format).That(aspects).Equals(test.aspects)
		assert.For(ctx, "%v planar", test.format).ThatBoolean(test.format.IsMultiPlanar()).Equals(test.multiPlanar)
	}
	_, err := vulkan.VkFormat_VK_FORMAT_UNDEFINED.Aspects()
	assert.For(ctx, "undefined").ThatError(err).HasCause(vulkan.ErrUnknownFormat)

	f, err := vulkan.ParseFormat("d16_unorm_s8_uint")
	assert.For(ctx, "parse err").ThatError(err).Succeeded()
	assert.For(ctx, "parse").That(f).Equals(vulkan.VkFormat_VK_FORMAT_D16_UNORM_S8_UINT)
}

func TestQueueFamily(t *testing.T) {
	ctx := log.Testing(t)
	for _, qf := range []uint32{0, 3, vulkan.VK_QUEUE_FAMILY_IGNORED, vulkan.VK_QUEUE_FAMILY_EXTERNAL} {
		got, err := vulkan.ParseQueueFamily(vulkan.QueueFamilyString(qf))
		assert.For(ctx, "err %d", qf).ThatError(err).Succeeded()
		assert.For(ctx, "round trip %d", qf).That(got).Equals(qf)
	}
	got, err := vulkan.ParseQueueFamily("VK_QUEUE_FAMILY_IGNORED")
	assert.For(ctx, "full name err").ThatError(err).Succeeded()
	assert.For(ctx, "full name").That(got).Equals(vulkan.VK_QUEUE_FAMILY_IGNORED)
	_, err = vulkan.ParseQueueFamily("graphics")
	assert.For(ctx, "bogus").ThatError(err).HasCause(vulkan.ErrUnknownName)
}
