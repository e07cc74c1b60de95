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

import "github.com/pkg/errors"

type VkFormat uint32

const (
	VkFormat_VK_FORMAT_UNDEFINED                 VkFormat = 0
	VkFormat_VK_FORMAT_R8G8B8A8_UNORM            VkFormat = 37
	VkFormat_VK_FORMAT_R8G8B8A8_SRGB             VkFormat = 43
	VkFormat_VK_FORMAT_B8G8R8A8_UNORM            VkFormat = 44
	VkFormat_VK_FORMAT_R16G16B16A16_SFLOAT       VkFormat = 97
	VkFormat_VK_FORMAT_R32_SFLOAT                VkFormat = 100
	VkFormat_VK_FORMAT_R32G32B32A32_SFLOAT       VkFormat = 109
	VkFormat_VK_FORMAT_D16_UNORM                 VkFormat = 124
	VkFormat_VK_FORMAT_X8_D24_UNORM_PACK32       VkFormat = 125
	VkFormat_VK_FORMAT_D32_SFLOAT                VkFormat = 126
	VkFormat_VK_FORMAT_S8_UINT                   VkFormat = 127
	VkFormat_VK_FORMAT_D16_UNORM_S8_UINT         VkFormat = 128
	VkFormat_VK_FORMAT_D24_UNORM_S8_UINT         VkFormat = 129
	VkFormat_VK_FORMAT_D32_SFLOAT_S8_UINT        VkFormat = 130
	VkFormat_VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM VkFormat = 1000156002
	VkFormat_VK_FORMAT_G8_B8R8_2PLANE_420_UNORM  VkFormat = 1000156003
)

const (
	colorAspect        = VkImageAspectFlags(VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT)
	depthAspect        = VkImageAspectFlags(VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT)
	stencilAspect      = VkImageAspectFlags(VkImageAspectFlagBits_VK_IMAGE_ASPECT_STENCIL_BIT)
	depthStencilAspect = depthAspect | stencilAspect
	twoPlaneAspect     = VkImageAspectFlags(VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_0_BIT |
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_1_BIT)
	threePlaneAspect = twoPlaneAspect | VkImageAspectFlags(VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_2_BIT)
)

type formatInfo struct {
	name    string
	aspects VkImageAspectFlags
}

var formats = map[VkFormat]formatInfo{
	VkFormat_VK_FORMAT_R8G8B8A8_UNORM:            {"VK_FORMAT_R8G8B8A8_UNORM", colorAspect},
	VkFormat_VK_FORMAT_R8G8B8A8_SRGB:             {"VK_FORMAT_R8G8B8A8_SRGB", colorAspect},
	VkFormat_VK_FORMAT_B8G8R8A8_UNORM:            {"VK_FORMAT_B8G8R8A8_UNORM", colorAspect},
	VkFormat_VK_FORMAT_R16G16B16A16_SFLOAT:       {"VK_FORMAT_R16G16B16A16_SFLOAT", colorAspect},
	VkFormat_VK_FORMAT_R32_SFLOAT:                {"VK_FORMAT_R32_SFLOAT", colorAspect},
	VkFormat_VK_FORMAT_R32G32B32A32_SFLOAT:       {"VK_FORMAT_R32G32B32A32_SFLOAT", colorAspect},
	VkFormat_VK_FORMAT_D16_UNORM:                 {"VK_FORMAT_D16_UNORM", depthAspect},
	VkFormat_VK_FORMAT_X8_D24_UNORM_PACK32:       {"VK_FORMAT_X8_D24_UNORM_PACK32", depthAspect},
	VkFormat_VK_FORMAT_D32_SFLOAT:                {"VK_FORMAT_D32_SFLOAT", depthAspect},
	VkFormat_VK_FORMAT_S8_UINT:                   {"VK_FORMAT_S8_UINT", stencilAspect},
	VkFormat_VK_FORMAT_D16_UNORM_S8_UINT:         {"VK_FORMAT_D16_UNORM_S8_UINT", depthStencilAspect},
	VkFormat_VK_FORMAT_D24_UNORM_S8_UINT:         {"VK_FORMAT_D24_UNORM_S8_UINT", depthStencilAspect},
	VkFormat_VK_FORMAT_D32_SFLOAT_S8_UINT:        {"VK_FORMAT_D32_SFLOAT_S8_UINT", depthStencilAspect},
	VkFormat_VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM: {"VK_FORMAT_G8_B8_R8_3PLANE_420_UNORM", threePlaneAspect},
	VkFormat_VK_FORMAT_G8_B8R8_2PLANE_420_UNORM:  {"VK_FORMAT_G8_B8R8_2PLANE_420_UNORM", twoPlaneAspect},
}

var formatNames = func() enumNames[VkFormat] {
	e := enumNames[VkFormat]{prefix: "VK_FORMAT_", names: map[VkFormat]string{
		VkFormat_VK_FORMAT_UNDEFINED: "VK_FORMAT_UNDEFINED",
	}}
	for f, info := range formats {
		e.names[f] = info.name
	}
	return e
}()

func (v VkFormat) String() string { return formatNames.name(v) }

func ParseFormat(s string) (VkFormat, error) { return formatNames.parse(s) }

// Aspects returns the aspects that an image of the format is made of. Each
// plane of a multi-planar format is a separate aspect.
func (v VkFormat) Aspects() (VkImageAspectFlags, error) {
	info, ok := formats[v]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownFormat, "%v", v)
	}
	return info.aspects, nil
}

// IsMultiPlanar returns true if the format stores its channels in separate
// planes.
func (v VkFormat) IsMultiPlanar() bool {
	info, ok := formats[v]
	return ok && info.aspects&twoPlaneAspect != 0
}
