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
	"github.com/baldurk/renderdoc-sub050/core/math/interval"
	"github.com/baldurk/renderdoc-sub050/core/math/u64"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/config"
)

// MemRange is a half-open byte range [Start, End) of one allocation.
type MemRange struct {
	Start uint64
	End   uint64
}

// MakeRange returns the range occupied by a resource with the given memory
// requirements bound at offset.
func MakeRange(offset uint64, req vulkan.VkMemoryRequirements) MemRange {
	return MemRange{Start: offset, End: u64.SaturatingAdd(offset, req.Size)}
}

// Intersect returns true if the two ranges share at least one byte.
func (r MemRange) Intersect(o MemRange) bool { return r.Span().Overlaps(o.Span()) }

// Size returns the number of bytes in the range.
func (r MemRange) Size() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r MemRange) Span() interval.U64Span { return interval.U64Span{Start: r.Start, End: r.End} }

func (r MemRange) String() string { return r.Span().String() }

// MemoryState is the tracked state of a run of bytes of one allocation.
type MemoryState struct {
	Access           AccessState
	StartQueueFamily uint32
	QueueFamily      uint32
	// IsAcquired is true once a queue family owns the bytes in the frame.
	IsAcquired bool
}

var initialMemoryState = MemoryState{
	Access:           Init,
	StartQueueFamily: vulkan.VK_QUEUE_FAMILY_IGNORED,
	QueueFamily:      vulkan.VK_QUEUE_FAMILY_IGNORED,
}

// ResourceKind is the type of a bound resource.
type ResourceKind uint8

const (
	BufferResource ResourceKind = iota
	ImageResource
)

func (k ResourceKind) String() string {
	if k == ImageResource {
		return "image"
	}
	return "buffer"
}

// BoundResource is the binding of one resource into an allocation.
type BoundResource struct {
	// CreateEvent and BindEvent are the indices of the events that created and
	// bound the resource.
	CreateEvent  uint64
	BindEvent    uint64
	Resource     ResourceID
	Kind         ResourceKind
	Requirements vulkan.VkMemoryRequirements
	Offset       uint64
	Reset        ResetRequirement
	// Aliased is true if the resource shared bytes with a resource bound
	// before it.
	Aliased bool
}

// Range returns the bytes of the allocation that the resource occupies.
func (b BoundResource) Range() MemRange { return MakeRange(b.Offset, b.Requirements) }

type tristate uint8

const (
	unknown tristate = iota
	yes
	no
)

// MemoryAllocation tracks the byte-granular access state of one memory
// allocation, and the resources bound into it.
type MemoryAllocation struct {
	Allocation AllocationID
	Size       uint64
	Resources  []BoundResource
	Issues     []Issue

	policy    Policy
	state     *interval.Map[MemoryState]
	ranges    []MemRange
	bound     interval.U64SpanList
	aliased   tristate
	abandoned bool
}

// NewMemoryAllocation returns the tracker for a new allocation of size bytes.
func NewMemoryAllocation(id AllocationID, size uint64, p Policy) *MemoryAllocation {
	return &MemoryAllocation{
		Allocation: id,
		Size:       size,
		policy:     p,
		state:      interval.NewMap(initialMemoryState),
	}
}

func (m *MemoryAllocation) target() string { return fmt.Sprintf("memory %d", m.Allocation) }

// Add binds a resource into the allocation and returns its index. The
// resource is flagged as aliased if it overlaps a resource bound before it.
func (m *MemoryAllocation) Add(ctx context.Context, res BoundResource) int {
	r := res.Range()
	if a := res.Requirements.Alignment; a > 1 && u64.AlignUp(res.Offset, a) != res.Offset {
		addIssue(ctx, &m.Issues, Issue{
			Mismatch: MisalignedBinding,
			Target:   m.target(),
			Detail:   fmt.Sprintf("%v %d bound at %d, alignment %d", res.Kind, res.Resource, res.Offset, a),
		})
	}
	if r.End > m.Size {
		log.W(ctx, "%v %d bound at %v overruns %v of %d bytes", res.Kind, res.Resource, r, m.target(), m.Size)
	}
	res.Aliased = m.CheckAliasedResources(r)
	res.Reset = Unknown
	m.Resources = append(m.Resources, res)
	m.ranges = append(m.ranges, r)
	if r.Size() > 0 {
		interval.Merge(&m.bound, r.Span(), true)
	}
	m.aliased = unknown
	if config.DebugResetPlanner {
		log.D(ctx, "Bound %v %d at %v of %v (aliased: %v)", res.Kind, res.Resource, r, m.target(), res.Aliased)
	}
	return len(m.Resources) - 1
}

// CheckAliasedResources returns true if r shares a byte with any resource
// already bound to the allocation.
func (m *MemoryAllocation) CheckAliasedResources(r MemRange) bool {
	if r.Size() == 0 {
		return false
	}
	_, count := interval.Intersect(m.bound, r.Span())
	return count > 0
}

// HasAliasedResources returns true if any two bound resources share a byte.
func (m *MemoryAllocation) HasAliasedResources() bool {
	if m.aliased == unknown {
		m.aliased = no
		sorted := append([]MemRange{}, m.ranges...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
		end := uint64(0)
		for _, r := range sorted {
			if r.Size() == 0 {
				continue
			}
			if r.Start < end {
				m.aliased = yes
				break
			}
			end = u64.Max(end, r.End)
		}
	}
	return m.aliased == yes
}

// clip bounds the byte range [offset, offset+size) to the allocation.
// VK_WHOLE_SIZE selects up to the end of the allocation.
func (m *MemoryAllocation) clip(offset, size uint64) MemRange {
	end := m.Size
	if size != vulkan.VK_WHOLE_SIZE {
		end = u64.Min(u64.SaturatingAdd(offset, size), m.Size)
	}
	return MemRange{Start: offset, End: end}
}

// Access applies action to the bytes [offset, offset+size) on behalf of queue
// family qf.
func (m *MemoryAllocation) Access(ctx context.Context, qf uint32, sharing vulkan.VkSharingMode, action AccessAction, offset, size uint64) {
	r := m.clip(offset, size)
	if r.Size() == 0 {
		return
	}
	transition := action.Transition()
	exclusive := sharing == vulkan.VkSharingMode_VK_SHARING_MODE_EXCLUSIVE && qf != vulkan.VK_QUEUE_FAMILY_IGNORED
	mismatch, forced := false, false
	m.state.Update(r.Span(), initialMemoryState, func(s, _ MemoryState) MemoryState {
		reset := false
		if exclusive {
			switch {
			case !s.IsAcquired:
				s.QueueFamily, s.IsAcquired = qf, true
				if s.StartQueueFamily == vulkan.VK_QUEUE_FAMILY_IGNORED {
					s.StartQueueFamily = qf
				}
			case s.QueueFamily != qf:
				mismatch = true
				reset = m.policy.StrictQueueOwnership
				s.QueueFamily = qf
			}
		}
		s.Access = transition(s.Access)
		if reset {
			s.Access, forced = Reset, true
		}
		return s
	})
	if mismatch {
		addIssue(ctx, &m.Issues, Issue{
			Mismatch: QueueFamilyMismatch,
			Target:   m.target(),
			Detail:   fmt.Sprintf("%v of %v by queue family %v", action, r, vulkan.QueueFamilyString(qf)),
			Reset:    forced,
		})
	}
	if config.LogAccessTransitions {
		log.D(ctx, "%v %v: %v", m.target(), r, action)
	}
}

// MayWrite records a write that covers an unknown part of the bytes
// [offset, offset+size). Bytes read earlier in the frame need a reset. The
// bytes are not known to be written, so every other state is kept.
func (m *MemoryAllocation) MayWrite(ctx context.Context, offset, size uint64) {
	r := m.clip(offset, size)
	if r.Size() == 0 {
		return
	}
	m.state.Update(r.Span(), initialMemoryState, func(s, _ MemoryState) MemoryState {
		if s.Access == Read {
			s.Access = Reset
		}
		return s
	})
	if config.LogAccessTransitions {
		log.D(ctx, "%v %v: partial write", m.target(), r)
	}
}

// TransitionQueueFamily records the transfer of the bytes
// [offset, offset+size) from queue family src to queue family dst.
func (m *MemoryAllocation) TransitionQueueFamily(ctx context.Context, sharing vulkan.VkSharingMode, src, dst uint32, offset, size uint64) {
	r := m.clip(offset, size)
	if r.Size() == 0 || !isOwnershipTransfer(sharing, src, dst) {
		return
	}
	mismatch, forced := false, false
	m.state.Update(r.Span(), initialMemoryState, func(s, _ MemoryState) MemoryState {
		switch {
		case !s.IsAcquired:
			s.IsAcquired = true
			if s.StartQueueFamily == vulkan.VK_QUEUE_FAMILY_IGNORED {
				s.StartQueueFamily = src
			}
		case s.QueueFamily != src:
			mismatch = true
			if m.policy.StrictQueueOwnership {
				s.Access, forced = Reset, true
			}
		}
		s.QueueFamily = dst
		return s
	})
	if mismatch {
		addIssue(ctx, &m.Issues, Issue{
			Mismatch: QueueFamilyMismatch,
			Target:   m.target(),
			Detail: fmt.Sprintf("transfer of %v from queue family %v to %v", r,
				vulkan.QueueFamilyString(src), vulkan.QueueFamilyString(dst)),
			Reset: forced,
		})
	}
}

// ForceReset marks the bytes [offset, offset+size) as Reset.
func (m *MemoryAllocation) ForceReset(offset, size uint64) {
	r := m.clip(offset, size)
	m.state.Update(r.Span(), initialMemoryState, func(s, _ MemoryState) MemoryState {
		s.Access = Reset
		return s
	})
}

// Abandon gives up on tracking the allocation. Every byte and every bound
// resource then needs a reset.
func (m *MemoryAllocation) Abandon() { m.abandoned = true }

// Abandoned returns true if Abandon was called.
func (m *MemoryAllocation) Abandoned() bool { return m.abandoned }

// State returns the state of the byte at offset.
func (m *MemoryAllocation) State(offset uint64) MemoryState {
	return m.state.Find(offset).Value
}

// States returns the runs of equal state over the allocation's bytes.
func (m *MemoryAllocation) States() []interval.Interval[MemoryState] {
	out := []interval.Interval[MemoryState]{}
	m.state.Overlapping(interval.U64Span{Start: 0, End: m.Size}, func(i interval.Interval[MemoryState]) bool {
		out = append(out, i)
		return true
	})
	return out
}

// RangeRequirement returns the verdict for the bytes in r: Reset if any was
// read and then overwritten, Init if any was read or left untouched, NoReset
// otherwise.
func (m *MemoryAllocation) RangeRequirement(r MemRange) ResetRequirement {
	if m.abandoned {
		return NeedsReset
	}
	req := requirementOf{}
	m.state.Overlapping(r.Span(), func(i interval.Interval[MemoryState]) bool {
		req.add(i.Value.Access)
		return !req.reset
	})
	return req.result()
}

// NeedsReset returns true if any byte of the allocation needs its pre-frame
// contents restored.
func (m *MemoryAllocation) NeedsReset() bool {
	return m.any(func(s MemoryState) bool { return s.Access == Reset })
}

// NeedsInit returns true if any byte of the allocation is left untouched by
// the frame.
func (m *MemoryAllocation) NeedsInit() bool {
	return m.any(func(s MemoryState) bool { return s.Access == Init })
}

func (m *MemoryAllocation) any(pred func(MemoryState) bool) bool {
	if m.abandoned {
		return true
	}
	found := false
	m.state.Overlapping(interval.U64Span{Start: 0, End: m.Size}, func(i interval.Interval[MemoryState]) bool {
		found = pred(i.Value)
		return !found
	})
	return found
}

// OrderByResetRequirement returns the indices of the bound resources, those
// that need a reset first, then those that need an initialization, then the
// rest. Resources with equal requirements stay in bind order.
func (m *MemoryAllocation) OrderByResetRequirement() []int {
	order := make([]int, len(m.Resources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Resources[order[a]].Reset.rank() < m.Resources[order[b]].Reset.rank()
	})
	return order
}
