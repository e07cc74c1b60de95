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

// Package resetplan replays the events of one frame through the image and
// memory trackers, and decides which resources the replay of that frame has
// to reset or initialize.
package resetplan

import (
	"context"
	"sort"

	"github.com/baldurk/renderdoc-sub050/core/fault"
	"github.com/baldurk/renderdoc-sub050/core/log"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/config"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
	"github.com/pkg/errors"
)

const (
	ErrUnknownMemory   = fault.Const("Unknown memory allocation")
	ErrUnknownResource = fault.Const("Unknown buffer")
	ErrUnknownImage    = fault.Const("Unknown image")
	ErrAlreadyBound    = fault.Const("Resource already bound to memory")
	ErrDuplicateID     = fault.Const("Identifier already in use")
)

// binding is the place of a resource in an allocation.
type binding struct {
	memory AllocationID
	index  int
	offset uint64
	size   uint64
}

type buffer struct {
	id          ResourceID
	createEvent uint64
	info        vulkan.VkBufferCreateInfo
	binding     *binding
}

type image struct {
	id          ResourceID
	createEvent uint64
	state       *tracker.ImageState
	binding     *binding
	destroyed   bool
}

type allocation struct {
	*tracker.MemoryAllocation
	freed bool
}

// Planner applies the events of one frame, in order, to the trackers of the
// allocations and images they name. A Planner analyzes a single frame.
type Planner struct {
	options     Options
	event       uint64
	allocations map[AllocationID]*allocation
	buffers     map[ResourceID]*buffer
	images      map[ResourceID]*image
	errors      fault.List
}

// New returns a Planner for one frame.
func New(options Options) *Planner {
	return &Planner{
		options:     options,
		allocations: map[AllocationID]*allocation{},
		buffers:     map[ResourceID]*buffer{},
		images:      map[ResourceID]*image{},
	}
}

// Apply applies the next event of the frame. Errors are returned and also
// kept for the plan. An error on an event that names a known allocation
// abandons that allocation: every resource bound to it will need a reset.
func (p *Planner) Apply(ctx context.Context, e Event) error {
	p.event++
	ctx = log.V{"event": p.event, "kind": e.Kind()}.Bind(ctx)
	if config.DebugResetPlanner {
		log.D(ctx, "%+v", e)
	}
	err := e.apply(ctx, p, vulkan.VK_QUEUE_FAMILY_IGNORED)
	if err != nil {
		log.W(ctx, "%v", err)
		p.errors.Collect(errors.Wrapf(err, "Event %d (%s)", p.event, e.Kind()))
	}
	return err
}

// Run applies every event and returns the plan. Errors of individual events
// are kept in the plan and do not stop the run.
func Run(ctx context.Context, options Options, events []Event) *Plan {
	p := New(options)
	for _, e := range events {
		p.Apply(ctx, e)
	}
	return p.Finish(ctx)
}

func (p *Planner) allocation(id AllocationID) (*allocation, error) {
	a, ok := p.allocations[id]
	if !ok || a.freed {
		return nil, errors.Wrapf(ErrUnknownMemory, "Memory %d", id)
	}
	return a, nil
}

func (p *Planner) buffer(id ResourceID) (*buffer, error) {
	b, ok := p.buffers[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownResource, "Buffer %d", id)
	}
	return b, nil
}

func (p *Planner) image(id ResourceID) (*image, error) {
	i, ok := p.images[id]
	if !ok || i.destroyed {
		return nil, errors.Wrapf(ErrUnknownImage, "Image %d", id)
	}
	return i, nil
}

// abandon gives up on the allocation of b, if it names a live one.
func (p *Planner) abandon(ctx context.Context, b *binding) {
	if b == nil {
		return
	}
	if a, ok := p.allocations[b.memory]; ok && !a.Abandoned() {
		log.W(ctx, "Abandoning memory %d", b.memory)
		a.Abandon()
	}
}

func (p *Planner) resourceExists(id ResourceID) bool {
	_, isBuffer := p.buffers[id]
	_, isImage := p.images[id]
	return isBuffer || isImage
}

func (p *Planner) allocateMemory(ctx context.Context, e AllocateMemory) error {
	if _, ok := p.allocations[e.Memory]; ok {
		return errors.Wrapf(ErrDuplicateID, "Memory %d", e.Memory)
	}
	p.allocations[e.Memory] = &allocation{
		MemoryAllocation: tracker.NewMemoryAllocation(e.Memory, e.Size, p.options.policy()),
	}
	return nil
}

func (p *Planner) freeMemory(ctx context.Context, e FreeMemory) error {
	a, err := p.allocation(e.Memory)
	if err != nil {
		return err
	}
	a.freed = true
	return nil
}

func (p *Planner) createBuffer(ctx context.Context, e CreateBuffer) error {
	if p.resourceExists(e.Buffer) {
		return errors.Wrapf(ErrDuplicateID, "Buffer %d", e.Buffer)
	}
	p.buffers[e.Buffer] = &buffer{id: e.Buffer, createEvent: p.event, info: e.Info}
	return nil
}

func (p *Planner) createImage(ctx context.Context, e CreateImage) error {
	if p.resourceExists(e.Image) {
		return errors.Wrapf(ErrDuplicateID, "Image %d", e.Image)
	}
	state, err := tracker.NewImageState(ctx, e.Image, e.Info, p.options.policy())
	if err != nil {
		return err
	}
	p.images[e.Image] = &image{id: e.Image, createEvent: p.event, state: state}
	return nil
}

func (p *Planner) destroyImage(ctx context.Context, e DestroyImage) error {
	i, err := p.image(e.Image)
	if err != nil {
		return err
	}
	i.destroyed = true
	return nil
}

func (p *Planner) bind(ctx context.Context, kind tracker.ResourceKind, id ResourceID, memory AllocationID, offset uint64, req vulkan.VkMemoryRequirements) error {
	a, err := p.allocation(memory)
	if err != nil {
		return err
	}
	var slot **binding
	createEvent := uint64(0)
	if kind == tracker.BufferResource {
		b, err := p.buffer(id)
		if err != nil {
			a.Abandon()
			return err
		}
		slot, createEvent = &b.binding, b.createEvent
	} else {
		i, err := p.image(id)
		if err != nil {
			a.Abandon()
			return err
		}
		slot, createEvent = &i.binding, i.createEvent
	}
	if *slot != nil {
		a.Abandon()
		p.abandon(ctx, *slot)
		return errors.Wrapf(ErrAlreadyBound, "%v %d to memory %d", kind, id, memory)
	}
	index := a.Add(ctx, tracker.BoundResource{
		CreateEvent:  createEvent,
		BindEvent:    p.event,
		Resource:     id,
		Kind:         kind,
		Requirements: req,
		Offset:       offset,
	})
	*slot = &binding{memory: memory, index: index, offset: offset, size: req.Size}
	return nil
}

// bound returns the live allocation that b is bound to, or nil if the
// resource is not bound.
func (p *Planner) bound(b *binding) (*allocation, error) {
	if b == nil {
		return nil, nil
	}
	return p.allocation(b.memory)
}

func (p *Planner) bufferAccess(ctx context.Context, e BufferAccess) error {
	b, err := p.buffer(e.Buffer)
	if err != nil {
		return err
	}
	a, err := p.bound(b.binding)
	if err != nil || a == nil {
		return err
	}
	offset, size, err := b.translate(e.Offset, e.Size)
	if err != nil {
		a.Abandon()
		return err
	}
	a.Access(ctx, e.QueueFamily, b.info.SharingMode, e.Action, offset, size)
	return nil
}

func (p *Planner) bufferBarrier(ctx context.Context, e BufferBarrier) error {
	b, err := p.buffer(e.Buffer)
	if err != nil {
		return err
	}
	a, err := p.bound(b.binding)
	if err != nil || a == nil {
		return err
	}
	offset, size, err := b.translate(e.Offset, e.Size)
	if err != nil {
		a.Abandon()
		return err
	}
	a.TransitionQueueFamily(ctx, b.info.SharingMode, e.SrcQueueFamily, e.DstQueueFamily, offset, size)
	return nil
}

// translate maps a range of the buffer to a range of its allocation.
func (b *buffer) translate(offset, size uint64) (uint64, uint64, error) {
	if offset > b.binding.size {
		return 0, 0, errors.Wrapf(tracker.ErrSubresourceOutOfRange,
			"Offset %d of buffer %d of %d bytes", offset, b.id, b.binding.size)
	}
	if size == vulkan.VK_WHOLE_SIZE || size > b.binding.size-offset {
		size = b.binding.size - offset
	}
	return b.binding.offset + offset, size, nil
}

func (p *Planner) memoryAccess(ctx context.Context, e MemoryAccess) error {
	a, err := p.allocation(e.Memory)
	if err != nil {
		return err
	}
	a.Access(ctx, vulkan.VK_QUEUE_FAMILY_IGNORED, vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT, e.Action, e.Offset, e.Size)
	return nil
}

func (p *Planner) imageAccess(ctx context.Context, e ImageAccess) error {
	i, err := p.image(e.Image)
	if err != nil {
		return err
	}
	r, err := i.state.RangeFrom(e.Range, e.Is2DView)
	if err != nil {
		p.abandon(ctx, i.binding)
		i.state.ForceReset(i.state.FullRange())
		return err
	}
	i.state.Access(ctx, r, e.QueueFamily, e.Layout, e.Action)

	a, err := p.bound(i.binding)
	if err != nil || a == nil {
		return err
	}
	// The trackers do not know where a subresource lives in memory. A partial
	// access may read or overwrite any byte of the image.
	if !i.state.IsFullRange(r) {
		if e.Action != tracker.ActionWrite && e.Action != tracker.ActionClear {
			a.Access(ctx, vulkan.VK_QUEUE_FAMILY_IGNORED, vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT,
				tracker.ActionRead, i.binding.offset, i.binding.size)
		}
		if e.Action != tracker.ActionRead {
			a.MayWrite(ctx, i.binding.offset, i.binding.size)
		}
		return nil
	}
	a.Access(ctx, vulkan.VK_QUEUE_FAMILY_IGNORED, vulkan.VkSharingMode_VK_SHARING_MODE_CONCURRENT,
		e.Action, i.binding.offset, i.binding.size)
	return nil
}

func (p *Planner) imageBarrier(ctx context.Context, e ImageBarrier) error {
	i, err := p.image(e.Image)
	if err != nil {
		return err
	}
	// A barrier on a 3D image covers every depth slice.
	r, err := i.state.RangeFrom(e.Range, false)
	if err != nil {
		p.abandon(ctx, i.binding)
		i.state.ForceReset(i.state.FullRange())
		return err
	}
	i.state.Transition(ctx, r, e.QueueFamily, e.OldLayout, e.NewLayout, e.SrcQueueFamily, e.DstQueueFamily)
	return nil
}

func (p *Planner) submit(ctx context.Context, e Submit, qf uint32) error {
	ctx = log.V{"queue": e.Queue, "queue-family": vulkan.QueueFamilyString(qf)}.Bind(ctx)
	errs := fault.List{}
	for _, nested := range e.Events {
		if err := nested.apply(ctx, p, qf); err != nil {
			log.W(ctx, "%s: %v", nested.Kind(), err)
			errs.Collect(err)
		}
	}
	if len(errs) > 1 {
		return errors.Wrapf(errs.First(), "%d errors in submit, first", len(errs))
	}
	return errs.First()
}

// Finish computes the verdict of every resource and returns the plan. The
// Planner must not be used afterwards.
func (p *Planner) Finish(ctx context.Context) *Plan {
	plan := &Plan{
		Errors: p.errors,
		images: map[ResourceID]*tracker.ImageState{},
	}
	imageRequirement := map[ResourceID]tracker.ResetRequirement{}
	for _, id := range sortedKeys(p.images) {
		i := p.images[id]
		plan.images[id] = i.state
		imageRequirement[id] = i.state.ResetRequirement()
		plan.Issues = append(plan.Issues, i.state.Issues...)
	}

	for _, id := range sortedKeys(p.allocations) {
		a := p.allocations[id]
		for n := range a.Resources {
			res := &a.Resources[n]
			req := a.RangeRequirement(res.Range())
			if res.Kind == tracker.ImageResource && req != tracker.NeedsReset {
				req = imageRequirement[res.Resource]
			}
			if p.options.PromoteAliasedToInit && req == tracker.NoReset && a.overlapsOther(n) {
				req = tracker.NeedsInit
			}
			res.Reset = req
		}
		plan.Allocations = append(plan.Allocations, a.plan())
		plan.Issues = append(plan.Issues, a.Issues...)
	}

	for _, ap := range plan.Allocations {
		plan.Resources = append(plan.Resources, ap.Resources...)
	}
	for _, id := range sortedKeys(p.buffers) {
		if p.buffers[id].binding == nil {
			plan.Resources = append(plan.Resources, ResourcePlan{
				Resource:    id,
				Kind:        tracker.BufferResource,
				CreateEvent: p.buffers[id].createEvent,
				Reset:       tracker.NoReset,
			})
		}
	}
	for _, id := range sortedKeys(p.images) {
		if i := p.images[id]; i.binding == nil {
			plan.Resources = append(plan.Resources, ResourcePlan{
				Resource:    id,
				Kind:        tracker.ImageResource,
				CreateEvent: i.createEvent,
				Reset:       imageRequirement[id],
			})
		}
	}
	sort.SliceStable(plan.Resources, func(a, b int) bool {
		return plan.Resources[a].Resource < plan.Resources[b].Resource
	})
	if config.DebugResetPlanner {
		log.D(ctx, "Planned %d allocations, %d resources, %d issues",
			len(plan.Allocations), len(plan.Resources), len(plan.Issues))
	}
	return plan
}

// overlapsOther returns true if resource n shares a byte with any other
// resource of the allocation.
func (a *allocation) overlapsOther(n int) bool {
	r := a.Resources[n].Range()
	for i, o := range a.Resources {
		if i != n && r.Intersect(o.Range()) {
			return true
		}
	}
	return false
}

func (a *allocation) plan() AllocationPlan {
	out := AllocationPlan{
		Allocation: a.Allocation,
		Size:       a.Size,
		Aliased:    a.HasAliasedResources(),
		NeedsReset: a.NeedsReset(),
		NeedsInit:  a.NeedsInit(),
		Abandoned:  a.Abandoned(),
		Freed:      a.freed,
		Order:      a.OrderByResetRequirement(),
		States:     a.States(),
	}
	for n, res := range a.Resources {
		out.Resources = append(out.Resources, ResourcePlan{
			Resource:    res.Resource,
			Kind:        res.Kind,
			Memory:      a.Allocation,
			Bound:       true,
			Range:       res.Range(),
			Aliased:     a.overlapsOther(n),
			Reset:       res.Reset,
			CreateEvent: res.CreateEvent,
			BindEvent:   res.BindEvent,
		})
	}
	return out
}

func sortedKeys[K ~uint64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	return keys
}
