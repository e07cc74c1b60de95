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
	"github.com/baldurk/renderdoc-sub050/core/fault"
	"github.com/baldurk/renderdoc-sub050/core/math/interval"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
	"github.com/pkg/errors"
)

// ResourcePlan is the verdict for one buffer or image.
type ResourcePlan struct {
	Resource ResourceID
	Kind     tracker.ResourceKind
	// Bound is true if the resource was bound to Memory at Range.
	Bound  bool
	Memory AllocationID
	Range  tracker.MemRange
	// Aliased is true if another resource shares a byte with this one.
	Aliased     bool
	Reset       tracker.ResetRequirement
	CreateEvent uint64
	BindEvent   uint64
}

// AllocationPlan is the outcome of the analysis of one allocation.
type AllocationPlan struct {
	Allocation AllocationID
	Size       uint64
	Aliased    bool
	NeedsReset bool
	NeedsInit  bool
	// Abandoned is true if an event on the allocation failed.
	Abandoned bool
	Freed     bool
	// Resources are the resources bound to the allocation, in bind order.
	Resources []ResourcePlan
	// Order is the order in which to reset or initialize Resources, as
	// indices into Resources.
	Order []int
	// States are the runs of equal access state over the allocation.
	States []interval.Interval[tracker.MemoryState]
}

// Ordered returns the resources of the allocation in emission order.
func (a AllocationPlan) Ordered() []ResourcePlan {
	out := make([]ResourcePlan, len(a.Order))
	for i, n := range a.Order {
		out[i] = a.Resources[n]
	}
	return out
}

// Plan is the outcome of the analysis of one frame.
type Plan struct {
	// Allocations are sorted by ID.
	Allocations []AllocationPlan
	// Resources are sorted by ID, and include unbound resources.
	Resources []ResourcePlan
	// Issues are the mismatches between events and tracked state.
	Issues []tracker.Issue
	// Errors are the events that could not be applied.
	Errors fault.List

	images map[ResourceID]*tracker.ImageState
}

// Resource returns the verdict for a resource.
func (p *Plan) Resource(id ResourceID) (ResourcePlan, bool) {
	for _, r := range p.Resources {
		if r.Resource == id {
			return r, true
		}
	}
	return ResourcePlan{}, false
}

// Allocation returns the outcome for an allocation.
func (p *Plan) Allocation(id AllocationID) (AllocationPlan, bool) {
	for _, a := range p.Allocations {
		if a.Allocation == id {
			return a, true
		}
	}
	return AllocationPlan{}, false
}

// EmissionOrder returns every bound resource, allocation by allocation, each
// allocation in its reset order.
func (p *Plan) EmissionOrder() []ResourcePlan {
	out := []ResourcePlan{}
	for _, a := range p.Allocations {
		out = append(out, a.Ordered()...)
	}
	return out
}

// Image returns the final state of an image.
func (p *Plan) Image(id ResourceID) (*tracker.ImageState, error) {
	i, ok := p.images[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownImage, "Image %d", id)
	}
	return i, nil
}

// RangeChanges summarizes the layout and queue family changes of a
// subresource range of an image over the frame. A nil r selects the whole
// image.
func (p *Plan) RangeChanges(id ResourceID, r *vulkan.VkImageSubresourceRange) (tracker.ImageSubresourceRangeStateChanges, error) {
	i, err := p.Image(id)
	if err != nil {
		return tracker.ImageSubresourceRangeStateChanges{}, err
	}
	rng := i.FullRange()
	if r != nil {
		if rng, err = i.RangeFrom(*r, true); err != nil {
			return tracker.ImageSubresourceRangeStateChanges{}, err
		}
	}
	return i.RangeChanges(rng), nil
}

// Count returns the number of resources with each requirement.
func (p *Plan) Count() map[tracker.ResetRequirement]int {
	out := map[tracker.ResetRequirement]int{}
	for _, r := range p.Resources {
		out[r.Reset]++
	}
	return out
}
