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

package vulkan

type VkExtent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// VkImageCreateInfo holds the parts of an image's creation parameters that
// determine its subresources and ownership.
type VkImageCreateInfo struct {
	Flags              VkImageCreateFlags
	ImageType          VkImageType
	Fmt                VkFormat
	Extent             VkExtent3D
	MipLevels          uint32
	ArrayLayers        uint32
	SharingMode        VkSharingMode
	QueueFamilyIndices []uint32
	InitialLayout      VkImageLayout
}

type VkBufferCreateInfo struct {
	Size               uint64
	SharingMode        VkSharingMode
	QueueFamilyIndices []uint32
}

type VkMemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

type VkImageSubresourceRange struct {
	AspectMask     VkImageAspectFlags
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}
