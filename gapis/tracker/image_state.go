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
	"context"
	"fmt"
	"sort"

	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/config"
	"github.com/pkg/errors"
)

// ImageSubresourceState is the tracked state of one image subresource.
type ImageSubresourceState struct {
	AccessState      AccessState
	StartLayout      vulkan.VkImageLayout
	Layout           vulkan.VkImageLayout
	StartQueueFamily uint32
	QueueFamily      uint32
	SharingMode      vulkan.VkSharingMode
}

// acquire gives an EXCLUSIVE subresource to qf if nothing owns it yet. The
// first owner seen in the frame is assumed to have owned it before the frame.
// It returns false if another queue family owns the subresource.
func (s *ImageSubresourceState) acquire(qf uint32) bool {
	if s.SharingMode != vulkan.VkSharingMode_VK_SHARING_MODE_EXCLUSIVE || qf == vulkan.VK_QUEUE_FAMILY_IGNORED {
		return true
	}
	if s.QueueFamily == vulkan.VK_QUEUE_FAMILY_IGNORED {
		s.QueueFamily = qf
		if s.StartQueueFamily == vulkan.VK_QUEUE_FAMILY_IGNORED {
			s.StartQueueFamily = qf
		}
		return true
	}
	return s.QueueFamily == qf
}

// Access applies transition to the subresource on behalf of queue family qf,
// which expects the subresource to be in layout. An UNDEFINED layout matches
// any current layout. Mismatches are returned, and force the state to Reset
// as the policy asks.
func (s *ImageSubresourceState) Access(qf uint32, layout vulkan.VkImageLayout, transition AccessTransition, p Policy) (Mismatch, bool) {
	var m Mismatch
	forced := false
	if layout != vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED && layout != s.Layout {
		m |= LayoutMismatch
		forced = forced || p.StrictLayouts
		s.Layout = layout
	}
	if !s.acquire(qf) {
		m |= QueueFamilyMismatch
		forced = forced || p.StrictQueueOwnership
		s.QueueFamily = qf
	}
	s.AccessState = transition(s.AccessState)
	if forced {
		s.AccessState = Reset
	}
	return m, forced
}

// Transition records a barrier executed on queue family qf that moves the
// subresource from oldLayout to newLayout, and from srcQueueFamily to
// dstQueueFamily. An UNDEFINED oldLayout matches any current layout.
func (s *ImageSubresourceState) Transition(qf uint32, oldLayout, newLayout vulkan.VkImageLayout, srcQueueFamily, dstQueueFamily uint32, p Policy) (Mismatch, bool) {
	var m Mismatch
	forced := false
	if oldLayout != vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED && oldLayout != s.Layout {
		m |= LayoutMismatch
		forced = forced || p.StrictLayouts
	}
	if newLayout != vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED {
		s.Layout = newLayout
	}
	if isOwnershipTransfer(s.SharingMode, srcQueueFamily, dstQueueFamily) {
		if !s.acquire(srcQueueFamily) {
			m |= QueueFamilyMismatch
			forced = forced || p.StrictQueueOwnership
		}
		s.QueueFamily = dstQueueFamily
	} else if !s.acquire(qf) {
		m |= QueueFamilyMismatch
		forced = forced || p.StrictQueueOwnership
		s.QueueFamily = qf
	}
	if forced {
		s.AccessState = Reset
	}
	return m, forced
}

func isOwnershipTransfer(mode vulkan.VkSharingMode, src, dst uint32) bool {
	return mode == vulkan.VkSharingMode_VK_SHARING_MODE_EXCLUSIVE &&
		src != dst &&
		src != vulkan.VK_QUEUE_FAMILY_IGNORED &&
		dst != vulkan.VK_QUEUE_FAMILY_IGNORED
}

// ImageSubresourceRangeStateChanges summarizes the layouts and queue families
// of the subresources in a range.
type ImageSubresourceRangeStateChanges struct {
	// SameStartLayout is true if every subresource started in StartLayout.
	SameStartLayout bool
	// SameLayout is true if every subresource is now in Layout.
	SameLayout bool
	// LayoutChanged is true if any subresource moved between two defined
	// layouts.
	LayoutChanged bool

	SameStartQueueFamily bool
	SameQueueFamily      bool
	QueueFamilyChanged   bool

	// StartLayout and Layout are UNDEFINED unless uniform.
	StartLayout vulkan.VkImageLayout
	Layout      vulkan.VkImageLayout
	// StartQueueFamily and QueueFamily are VK_QUEUE_FAMILY_IGNORED unless
	// uniform.
	StartQueueFamily uint32
	QueueFamily      uint32
}

// ImageState tracks every subresource of one image.
type ImageState struct {
	Image ResourceID
	Info  vulkan.VkImageCreateInfo
	// Aspects is the set of aspects tracked for the image's format.
	Aspects vulkan.VkImageAspectFlags
	// Layers is the number of tracked layers. 3D images that can be viewed as
	// 2D arrays track one layer per depth slice.
	Layers uint32
	Issues []Issue

	policy       Policy
	subresources map[ImageSubresource]*ImageSubresourceState
}

// NewImageState seeds the state of every subresource of a newly created
// image.
func NewImageState(ctx context.Context, id ResourceID, info vulkan.VkImageCreateInfo, p Policy) (*ImageState, error) {
	aspects, err := info.Fmt.Aspects()
	if err != nil {
		return nil, errors.Wrapf(err, "Creating image %d", id)
	}
	layers := info.ArrayLayers
	if info.ImageType == vulkan.VkImageType_VK_IMAGE_TYPE_3D &&
		info.Flags&vulkan.VkImageCreateFlagBits_VK_IMAGE_CREATE_2D_ARRAY_COMPATIBLE_BIT != 0 {
		layers = info.Extent.Depth
	}
	if info.MipLevels == 0 || layers == 0 {
		return nil, errors.Wrapf(ErrInvalidImage, "Creating image %d with %d levels and %d layers", id, info.MipLevels, layers)
	}
	i := &ImageState{
		Image:        id,
		Info:         info,
		Aspects:      aspects,
		Layers:       layers,
		policy:       p,
		subresources: map[ImageSubresource]*ImageSubresourceState{},
	}
	i.FullRange().Walk(func(s ImageSubresource) bool {
		i.subresources[s] = &ImageSubresourceState{
			AccessState:      Init,
			StartLayout:      info.InitialLayout,
			Layout:           info.InitialLayout,
			StartQueueFamily: vulkan.VK_QUEUE_FAMILY_IGNORED,
			QueueFamily:      vulkan.VK_QUEUE_FAMILY_IGNORED,
			SharingMode:      info.SharingMode,
		}
		return true
	})
	if config.DebugResetPlanner {
		log.D(ctx, "Image %d: %d subresources, aspects %v", id, len(i.subresources), aspects)
	}
	return i, nil
}

// FullRange returns the range of every subresource of the image.
func (i *ImageState) FullRange() ImageSubresourceRange {
	return ImageSubresourceRange{
		Image:          i.Image,
		AspectMask:     i.Aspects,
		BaseMipLevel:   0,
		LevelCount:     i.Info.MipLevels,
		BaseArrayLayer: 0,
		LayerCount:     i.Layers,
	}
}

// IsFullRange returns true if r selects every subresource of the image.
func (i *ImageState) IsFullRange(r ImageSubresourceRange) bool {
	return r.Count() == i.FullRange().Count() && r.AspectMask == i.Aspects
}

// NormalizeAspectMask maps the aspects named by an API call onto the tracked
// aspects. COLOR names every plane of a multi-planar format.
func (i *ImageState) NormalizeAspectMask(mask vulkan.VkImageAspectFlags) vulkan.VkImageAspectFlags {
	if i.Info.Fmt.IsMultiPlanar() && mask.Has(vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT) {
		mask &^= vulkan.VkImageAspectFlags(vulkan.VkImageAspectFlagBits_VK_IMAGE_ASPECT_COLOR_BIT)
		mask |= i.Aspects
	}
	return mask & i.Aspects
}

// Range validates a subresource selection and returns it with its aspects
// normalized and its counts resolved. VK_REMAINING_MIP_LEVELS and
// VK_REMAINING_ARRAY_LAYERS select up to the end of the image, and counts that
// overrun the image are clamped. A view that is not a 2D view of a 3D image
// covers every depth slice, whatever layers it names.
func (i *ImageState) Range(aspectMask vulkan.VkImageAspectFlags, baseMip, mipCount, baseLayer, layerCount uint32, is2DView bool) (ImageSubresourceRange, error) {
	mask := i.NormalizeAspectMask(aspectMask)
	if mask == 0 {
		return ImageSubresourceRange{}, errors.Wrapf(ErrSubresourceOutOfRange,
			"Image %d has none of the aspects %v", i.Image, aspectMask)
	}
	if i.Info.ImageType == vulkan.VkImageType_VK_IMAGE_TYPE_3D && !is2DView {
		baseLayer, layerCount = 0, i.Layers
	}
	mips, err := clampCount(baseMip, mipCount, i.Info.MipLevels)
	if err != nil {
		return ImageSubresourceRange{}, errors.Wrapf(err, "Image %d mip levels", i.Image)
	}
	layers, err := clampCount(baseLayer, layerCount, i.Layers)
	if err != nil {
		return ImageSubresourceRange{}, errors.Wrapf(err, "Image %d array layers", i.Image)
	}
	return ImageSubresourceRange{
		Image:          i.Image,
		AspectMask:     mask,
		BaseMipLevel:   baseMip,
		LevelCount:     mips,
		BaseArrayLayer: baseLayer,
		LayerCount:     layers,
	}, nil
}

// RangeFrom is Range for a VkImageSubresourceRange.
func (i *ImageState) RangeFrom(r vulkan.VkImageSubresourceRange, is2DView bool) (ImageSubresourceRange, error) {
	return i.Range(r.AspectMask, r.BaseMipLevel, r.LevelCount, r.BaseArrayLayer, r.LayerCount, is2DView)
}

func clampCount(base, count, total uint32) (uint32, error) {
	if base >= total || count == 0 {
		return 0, errors.Wrapf(ErrSubresourceOutOfRange, "[%d,+%d) of %d", base, count, total)
	}
	if count == vulkan.VK_REMAINING_ARRAY_LAYERS || count > total-base {
		count = total - base
	}
	return count, nil
}

// Subresource returns the state of one subresource, or nil if the image does
// not have it.
func (i *ImageState) Subresource(s ImageSubresource) *ImageSubresourceState {
	return i.subresources[s]
}

// RangeChanges summarizes the layout and queue family history of the
// subresources in r. A change counts only if it moves between two defined
// layouts, or between two owning queue families.
func (i *ImageState) RangeChanges(r ImageSubresourceRange) ImageSubresourceRangeStateChanges {
	out := ImageSubresourceRangeStateChanges{
		SameStartLayout:      true,
		SameLayout:           true,
		SameStartQueueFamily: true,
		SameQueueFamily:      true,
		StartQueueFamily:     vulkan.VK_QUEUE_FAMILY_IGNORED,
		QueueFamily:          vulkan.VK_QUEUE_FAMILY_IGNORED,
	}
	first := true
	r.Walk(func(sub ImageSubresource) bool {
		s := i.subresources[sub]
		if s == nil {
			return true
		}
		if first {
			out.StartLayout, out.Layout = s.StartLayout, s.Layout
			out.StartQueueFamily, out.QueueFamily = s.StartQueueFamily, s.QueueFamily
			first = false
		}
		out.SameStartLayout = out.SameStartLayout && s.StartLayout == out.StartLayout
		out.SameLayout = out.SameLayout && s.Layout == out.Layout
		out.SameStartQueueFamily = out.SameStartQueueFamily && s.StartQueueFamily == out.StartQueueFamily
		out.SameQueueFamily = out.SameQueueFamily && s.QueueFamily == out.QueueFamily
		if s.StartLayout != s.Layout &&
			s.StartLayout != vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED &&
			s.Layout != vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED {
			out.LayoutChanged = true
		}
		if s.StartQueueFamily != s.QueueFamily &&
			s.StartQueueFamily != vulkan.VK_QUEUE_FAMILY_IGNORED &&
			s.QueueFamily != vulkan.VK_QUEUE_FAMILY_IGNORED {
			out.QueueFamilyChanged = true
		}
		return true
	})
	if !out.SameStartLayout {
		out.StartLayout = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED
	}
	if !out.SameLayout {
		out.Layout = vulkan.VkImageLayout_VK_IMAGE_LAYOUT_UNDEFINED
	}
	if !out.SameStartQueueFamily {
		out.StartQueueFamily = vulkan.VK_QUEUE_FAMILY_IGNORED
	}
	if !out.SameQueueFamily {
		out.QueueFamily = vulkan.VK_QUEUE_FAMILY_IGNORED
	}
	return out
}

func (i *ImageState) target() string { return fmt.Sprintf("image %d", i.Image) }

// isDeclared returns true if a CONCURRENT image may be used by qf.
func (i *ImageState) isDeclared(qf uint32) bool {
	if i.Info.SharingMode != vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT || qf == vulkan.VK_QUEUE_FAMILY_IGNORED {
		return true
	}
	for _, declared := range i.Info.QueueFamilyIndices {
		if declared == qf {
			return true
		}
	}
	return false
}

// Access applies action to every subresource in r on behalf of queue family
// qf, which expects them to be in layout.
func (i *ImageState) Access(ctx context.Context, r ImageSubresourceRange, qf uint32, layout vulkan.VkImageLayout, action AccessAction) {
	var all Mismatch
	forcedAny := false
	undeclared := !i.isDeclared(qf)
	transition := action.Transition()
	r.Walk(func(sub ImageSubresource) bool {
		s := i.subresources[sub]
		if s == nil {
			return true
		}
		before := s.AccessState
		m, forced := s.Access(qf, layout, transition, i.policy)
		if undeclared && i.policy.StrictQueueOwnership {
			s.AccessState, forced = Reset, true
		}
		all |= m
		forcedAny = forcedAny || forced
		if config.LogAccessTransitions && before != s.AccessState {
			log.D(ctx, "%v: %v %v -> %v", sub, action, before, s.AccessState)
		}
		return true
	})
	if undeclared {
		all |= UndeclaredQueueFamily
	}
	if all != 0 {
		addIssue(ctx, &i.Issues, Issue{
			Mismatch: all,
			Target:   i.target(),
			Detail: fmt.Sprintf("%v of %v by queue family %v in %v",
				action, r, vulkan.QueueFamilyString(qf), layout),
			Reset: forcedAny,
		})
	}
}

// Transition records a layout transition or queue family ownership transfer
// of every subresource in r.
func (i *ImageState) Transition(ctx context.Context, r ImageSubresourceRange, qf uint32, oldLayout, newLayout vulkan.VkImageLayout, srcQueueFamily, dstQueueFamily uint32) {
	var all Mismatch
	forcedAny := false
	r.Walk(func(sub ImageSubresource) bool {
		if s := i.subresources[sub]; s != nil {
			m, forced := s.Transition(qf, oldLayout, newLayout, srcQueueFamily, dstQueueFamily, i.policy)
			all |= m
			forcedAny = forcedAny || forced
		}
		return true
	})
	if all != 0 {
		addIssue(ctx, &i.Issues, Issue{
			Mismatch: all,
			Target:   i.target(),
			Detail: fmt.Sprintf("barrier on %v from %v to %v, queue family %v to %v",
				r, oldLayout, newLayout,
				vulkan.QueueFamilyString(srcQueueFamily), vulkan.QueueFamilyString(dstQueueFamily)),
			Reset: forcedAny,
		})
	}
}

// ForceReset marks every subresource in r as Reset.
func (i *ImageState) ForceReset(r ImageSubresourceRange) {
	r.Walk(func(sub ImageSubresource) bool {
		if s := i.subresources[sub]; s != nil {
			s.AccessState = Reset
		}
		return true
	})
}

// ResetRequirement returns the verdict for the image's contents: Reset if
// any subresource was read and then overwritten, Init if any subresource was
// read or left untouched, NoReset otherwise.
func (i *ImageState) ResetRequirement() ResetRequirement {
	req := requirementOf{}
	for _, s := range i.subresources {
		req.add(s.AccessState)
	}
	return req.result()
}

// SubresourceStates returns the subresources of the image in order, with
// their states.
func (i *ImageState) SubresourceStates() ([]ImageSubresource, []ImageSubresourceState) {
	subs := make([]ImageSubresource, 0, len(i.subresources))
	for s := range i.subresources {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(a, b int) bool { return subs[a].Less(subs[b]) })
	states := make([]ImageSubresourceState, len(subs))
	for n, s := range subs {
		states[n] = *i.subresources[s]
	}
	return subs, states
}
