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

// Package vulkan holds the subset of the Vulkan vocabulary that the frame
// reset analysis consumes: image layouts, aspects, formats, sharing modes,
// queue family sentinels and the create-info structures of images and buffers.
package vulkan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/baldurk/renderdoc-sub050/core/fault"
	"github.com/pkg/errors"
)

const (
	// ErrUnknownFormat is returned for formats outside of the format table.
	ErrUnknownFormat = fault.Const("Unknown VkFormat")
	// ErrUnknownName is returned when a symbolic name cannot be parsed.
	ErrUnknownName = fault.Const("Unknown enumerator name")
)

const (
	VK_QUEUE_FAMILY_IGNORED   = ^uint32(0)
	VK_QUEUE_FAMILY_EXTERNAL  = ^uint32(0) - 1
	VK_REMAINING_MIP_LEVELS   = ^uint32(0)
	VK_REMAINING_ARRAY_LAYERS = ^uint32(0)
	VK_WHOLE_SIZE             = ^uint64(0)
)

type VkImageLayout uint32

const (
	VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED                        VkImageLayout = 0
	VkImageLayout_VK_IMAGE_LAYOUT_GENERAL                          VkImageLayout = 1
	VkImageLayout_VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL         VkImageLayout = 2
	VkImageLayout_VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL VkImageLayout = 3
	VkImageLayout_VK_IMAGE_LAYOUT_DEPTH_STENCIL_READ_ONLY_OPTIMAL  VkImageLayout = 4
	VkImageLayout_VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL         VkImageLayout = 5
	VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL             VkImageLayout = 6
	VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL             VkImageLayout = 7
	VkImageLayout_VK_IMAGE_LAYOUT_PREINITIALIZED                   VkImageLayout = 8
	VkImageLayout_VK_IMAGE_LAYOUT_PRESENT_SRC_KHR                  VkImageLayout = 1000001002
)

var imageLayoutNames = enumNames[VkImageLayout]{
	prefix: "VK_IMAGE_LAYOUT_",
	names: map[VkImageLayout]string{
		VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED:                        "VK_IMAGE_LAYOUT_UNDEFINED",
		VkImageLayout_VK_IMAGE_LAYOUT_GENERAL:                          "VK_IMAGE_LAYOUT_GENERAL",
		VkImageLayout_VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL:         "VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL: "VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_DEPTH_STENCIL_READ_ONLY_OPTIMAL:  "VK_IMAGE_LAYOUT_DEPTH_STENCIL_READ_ONLY_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL:         "VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL:             "VK_IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL:             "VK_IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL",
		VkImageLayout_VK_IMAGE_LAYOUT_PREINITIALIZED:                   "VK_IMAGE_LAYOUT_PREINITIALIZED",
		VkImageLayout_VK_IMAGE_LAYOUT_PRESENT_SRC_KHR:                  "VK_IMAGE_LAYOUT_PRESENT_SRC_KHR",
	},
}

func (v VkImageLayout) String() string { return imageLayoutNames.name(v) }

// ParseImageLayout parses either the full enumerator name or the name without
// its VK_IMAGE_LAYOUT_ prefix, in any case.
func ParseImageLayout(s string) (VkImageLayout, error) { return imageLayoutNames.parse(s) }

type VkImageAspectFlagBits uint32

const (
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT    VkImageAspectFlagBits = 0x1
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT    VkImageAspectFlagBits = 0x2
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_STENCIL_BIT  VkImageAspectFlagBits = 0x4
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_METADATA_BIT VkImageAspectFlagBits = 0x8
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_0_BIT  VkImageAspectFlagBits = 0x10
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_1_BIT  VkImageAspectFlagBits = 0x20
	VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_2_BIT  VkImageAspectFlagBits = 0x40
)

var imageAspectNames = enumNames[VkImageAspectFlagBits]{
	prefix: "VK_IMAGE_ASPECT_",
	suffix: "_BIT",
	names: map[VkImageAspectFlagBits]string{
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT:    "VK_IMAGE_ASPECT_COLOR_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT:    "VK_IMAGE_ASPECT_DEPTH_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_STENCIL_BIT:  "VK_IMAGE_ASPECT_STENCIL_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_METADATA_BIT: "VK_IMAGE_ASPECT_METADATA_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_0_BIT:  "VK_IMAGE_ASPECT_PLANE_0_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_1_BIT:  "VK_IMAGE_ASPECT_PLANE_1_BIT",
		VkImageAspectFlagBits_VK_IMAGE_ASPECT_PLANE_2_BIT:  "VK_IMAGE_ASPECT_PLANE_2_BIT",
	},
}

func (v VkImageAspectFlagBits) String() string { return imageAspectNames.name(v) }

// VkImageAspectFlags is a mask of VkImageAspectFlagBits.
type VkImageAspectFlags uint32

// Bits returns the set bits of the mask, lowest first.
func (f VkImageAspectFlags) Bits() []VkImageAspectFlagBits {
	bits := []VkImageAspectFlagBits{}
	for b := VkImageAspectFlags(1); b != 0 && b <= f; b <<= 1 {
		if f&b != 0 {
			bits = append(bits, VkImageAspectFlagBits(b))
		}
	}
	return bits
}

// Has returns true if bit is set in the mask.
func (f VkImageAspectFlags) Has(bit VkImageAspectFlagBits) bool {
	return f&VkImageAspectFlags(bit) != 0
}

func (f VkImageAspectFlags) String() string {
	if f == 0 {
		return "0"
	}
	parts := []string{}
	for _, b := range f.Bits() {
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "|")
}

// ParseImageAspectFlags parses a '|' separated list of aspect names, such as
// "depth|stencil".
func ParseImageAspectFlags(s string) (VkImageAspectFlags, error) {
	out := VkImageAspectFlags(0)
	for _, part := range strings.Split(s, "|") {
		b, err := imageAspectNames.parse(part)
		if err != nil {
			return 0, err
		}
		out |= VkImageAspectFlags(b)
	}
	return out, nil
}

type VkSharingMode uint32

const (
	VkSharingMode_VK_SHARING_MODE_EXCLUSIVE  VkSharingMode = 0
	VkSharingMode_VK_SHARING_MODE_CONCURRENT VkSharingMode = 1
)

var sharingModeNames = enumNames[VkSharingMode]{
	prefix: "VK_SHARING_MODE_",
	names: map[VkSharingMode]string{
		VkSharingMode_VK_SHARING_MODE_EXCLUSIVE:  "VK_SHARING_MODE_EXCLUSIVE",
		VkSharingMode_VK_SHARING_MODE_CONCURRENT: "VK_SHARING_MODE_CONCURRENT",
	},
}

func (v VkSharingMode) String() string { return sharingModeNames.name(v) }

func ParseSharingMode(s string) (VkSharingMode, error) { return sharingModeNames.parse(s) }

type VkImageType uint32

const (
	VkImageType_VK_IMAGE_TYPE_1D VkImageType = 0
	VkImageType_VK_IMAGE_TYPE_2D VkImageType = 1
	VkImageType_VK_IMAGE_TYPE_3D VkImageType = 2
)

var imageTypeNames = enumNames[VkImageType]{
	prefix: "VK_IMAGE_TYPE_",
	names: map[VkImageType]string{
		VkImageType_VK_IMAGE_TYPE_1D: "VK_IMAGE_TYPE_1D",
		VkImageType_VK_IMAGE_TYPE_2D: "VK_IMAGE_TYPE_2D",
		VkImageType_VK_IMAGE_TYPE_3D: "VK_IMAGE_TYPE_3D",
	},
}

func (v VkImageType) String() string { return imageTypeNames.name(v) }

func ParseImageType(s string) (VkImageType, error) { return imageTypeNames.parse(s) }

type VkImageCreateFlags uint32

const (
	VkImageCreateFlagBits_VK_IMAGE_CREATE_2D_ARRAY_COMPATIBLE_BIT VkImageCreateFlags = 0x20
)

// QueueFamilyString returns the queue family index, or the name of the
// sentinel it holds.
func QueueFamilyString(qf uint32) string {
	switch qf {
	case VK_QUEUE_FAMILY_IGNORED:
		return "IGNORED"
	case VK_QUEUE_FAMILY_EXTERNAL:
		return "EXTERNAL"
	default:
		return strconv.FormatUint(uint64(qf), 10)
	}
}

// ParseQueueFamily is the inverse of QueueFamilyString. It also accepts the
// full VK_QUEUE_FAMILY_ names.
func ParseQueueFamily(s string) (uint32, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "VK_QUEUE_FAMILY_") {
	case "IGNORED":
		return VK_QUEUE_FAMILY_IGNORED, nil
	case "EXTERNAL":
		return VK_QUEUE_FAMILY_EXTERNAL, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrUnknownName, "queue family %q", s)
	}
	return uint32(v), nil
}

// enumNames maps enumerator values to their Vulkan names.
type enumNames[T ~uint32] struct {
	prefix string
	suffix string
	names  map[T]string
}

func (e enumNames[T]) name(v T) string {
	if n, ok := e.names[v]; ok {
		return n
	}
	return fmt.Sprintf("%s%d", e.prefix, uint32(v))
}

func (e enumNames[T]) parse(s string) (T, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for v, n := range e.names {
		if n == upper || n == e.prefix+upper || n == e.prefix+upper+e.suffix {
			return v, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownName, "%q is not a %s* name", s, e.prefix)
}
