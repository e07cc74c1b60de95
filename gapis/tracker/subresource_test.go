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
	"testing"

	"github.com/baldurk/renderdoc-sub050/core/assert"
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
)

func TestSubresourceRangeEnumeration(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name     string
		rng      tracker.ImageSubresourceRange
		expected int
	}{
		{"single", tracker.ImageSubresourceRange{Image: 1, AspectMask: 0x1, LevelCount: 1, LayerCount: 1}, 1},
		{"depth stencil", tracker.ImageSubresourceRange{Image: 1, AspectMask: 0x6, BaseMipLevel: 2, LevelCount: 3, BaseArrayLayer: 1, LayerCount: 4}, 24},
		{"three planes", tracker.ImageSubresourceRange{Image: 1, AspectMask: 0x70, LevelCount: 1, LayerCount: 2}, 6},
		{"no levels", tracker.ImageSubresourceRange{Image: 1, AspectMask: 0x1, LevelCount: 0, LayerCount: 2}, 0},
		{"no aspects", tracker.ImageSubresourceRange{Image: 1, LevelCount: 2, LayerCount: 2}, 0},
	} {
		ctx := log.Enter(ctx, test.name)
		subs := test.rng.Subresources()
		assert.For(ctx, "count").ThatInteger(test.rng.Count()).Equals(test.expected)
		assert.For(ctx, "yielded").ThatSlice(subs).IsLength(test.expected)
		seen := map[tracker.ImageSubresource]bool{}
		for _, s := range subs {
			assert.For(ctx, "unique %v", s).ThatBoolean(seen[s]).IsFalse()
			seen[s] = true
			assert.For(ctx, "aspect %v", s).ThatBoolean(test.rng.AspectMask.Has(s.Aspect)).IsTrue()
			assert.For(ctx, "level %v", s).ThatInteger(int(s.Level)).IsAtLeast(int(test.rng.BaseMipLevel))
			assert.For(ctx, "level %v", s).ThatInteger(int(s.Level)).IsAtMost(int(test.rng.BaseMipLevel + test.rng.LevelCount - 1))
			assert.For(ctx, "layer %v", s).ThatInteger(int(s.Layer)).IsAtLeast(int(test.rng.BaseArrayLayer))
			assert.For(ctx, "layer %v", s).ThatInteger(int(s.Layer)).IsAtMost(int(test.rng.BaseArrayLayer + test.rng.LayerCount - 1))
		}
	}
}

func TestSubresourceRangeWalkStops(t *testing.T) {
	ctx := log.Testing(t)
	rng := tracker.ImageSubresourceRange{Image: 1, AspectMask: 0x1, LevelCount: 4, LayerCount: 4}
	visited := 0
	rng.Walk(func(tracker.ImageSubresource) bool {
		visited++
		return visited < 3
	})
	assert.For(ctx, "visited").ThatInteger(visited).Equals(3)
}

func TestSubresourceOrdering(t *testing.T) {
	ctx := log.Testing(t)
	color := vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT
	depth := vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_DEPTH_BIT
	ordered := []tracker.ImageSubresource{
		{Image: 1, Aspect: color, Layer: 0, Level: 0},
		{Image: 1, Aspect: color, Layer: 0, Level: 1},
		{Image: 1, Aspect: color, Layer: 1, Level: 0},
		{Image: 1, Aspect: depth, Layer: 0, Level: 0},
		{Image: 2, Aspect: color, Layer: 0, Level: 0},
	}
	for i := range ordered {
		for j := range ordered {
			assert.For(ctx, "%v < %v", ordered[i], ordered[j]).ThatBoolean(ordered[i].Less(ordered[j])).Equals(i < j)
		}
	}
}
