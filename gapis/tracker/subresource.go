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

package tracker

import (
	"fmt"

	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
)

// ImageSubresource is one (aspect, layer, level) slice of an image.
type ImageSubresource struct {
	Image  ResourceID
	Aspect vulkan.VkImageAspectFlagBits
	Layer  uint32
	Level  uint32
}

// Less orders subresources by image, then aspect, layer and level.
func (s ImageSubresource) Less(o ImageSubresource) bool {
	switch {
	case s.Image != o.Image:
		return s.Image < o.Image
	case s.Aspect != o.Aspect:
		return s.Aspect < o.Aspect
	case s.Layer != o.Layer:
		return s.Layer < o.Layer
	default:
		return s.Level < o.Level
	}
}

func (s ImageSubresource) String() string {
	return fmt.Sprintf("image %d %v layer %d level %d", s.Image, s.Aspect, s.Layer, s.Level)
}

// ImageSubresourceRange selects the subresources of an image that have one of
// the aspects in AspectMask, a level in [BaseMipLevel, BaseMipLevel+LevelCount)
// and a layer in [BaseArrayLayer, BaseArrayLayer+LayerCount).
type ImageSubresourceRange struct {
	Image          ResourceID
	AspectMask     vulkan.VkImageAspectFlags
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// Walk calls f for each subresource in the range, aspect by aspect, then
// level by level, then layer by layer. Walk stops if f returns false.
func (r ImageSubresourceRange) Walk(f func(ImageSubresource) bool) {
	for _, aspect := range r.AspectMask.Bits() {
		for i := uint32(0); i < r.LevelCount; i++ {
			for j := uint32(0); j < r.LayerCount; j++ {
				s := ImageSubresource{
					Image:  r.Image,
					Aspect: aspect,
					Level:  r.BaseMipLevel + i,
					Layer:  r.BaseArrayLayer + j,
				}
				if !f(s) {
					return
				}
			}
		}
	}
}

// Subresources returns every subresource in the range.
func (r ImageSubresourceRange) Subresources() []ImageSubresource {
	out := make([]ImageSubresource, 0, r.Count())
	r.Walk(func(s ImageSubresource) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Count returns the number of subresources in the range.
func (r ImageSubresourceRange) Count() int {
	return len(r.AspectMask.Bits()) * int(r.LevelCount) * int(r.LayerCount)
}

func (r ImageSubresourceRange) String() string {
	return fmt.Sprintf("image %d %v levels [%d,+%d) layers [%d,+%d)",
		r.Image, r.AspectMask, r.BaseMipLevel, r.LevelCount, r.BaseArrayLayer, r.LayerCount)
}
