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
	"strings"

	"github.com/baldurk/renderdoc-sub050/core/fault"
	"github.com/baldurk/renderdoc-sub050/core/log"
)

const (
	// ErrSubresourceOutOfRange is returned for subresource ranges that select
	// nothing in the image.
	ErrSubresourceOutOfRange = fault.Const("Subresource range out of image bounds")
	// ErrInvalidImage is returned for images that have no subresources.
	ErrInvalidImage = fault.Const("Image has no subresources")
)

// ResourceID identifies a buffer or image. IDs are owned by the decoder of the
// capture and are opaque to the trackers.
type ResourceID uint64

// AllocationID identifies a memory allocation.
type AllocationID uint64

// Policy controls how the trackers respond to events that do not match the
// tracked state.
type Policy struct {
	// StrictLayouts forces a reset of subresources accessed or transitioned
	// from a layout other than their current one.
	StrictLayouts bool
	// StrictQueueOwnership forces a reset of ranges accessed by a queue family
	// that does not own them.
	StrictQueueOwnership bool
}

// DefaultPolicy resets on every mismatch.
var DefaultPolicy = Policy{StrictLayouts: true, StrictQueueOwnership: true}

// Mismatch is a set of inconsistencies between an event and the tracked state.
type Mismatch uint32

const (
	LayoutMismatch Mismatch = 1 << iota
	QueueFamilyMismatch
	UndeclaredQueueFamily
	MisalignedBinding
)

var mismatchNames = []string{"layout", "queue-family", "undeclared-queue-family", "misaligned-binding"}

func (m Mismatch) String() string {
	parts := []string{}
	for i, n := range mismatchNames {
		if m&(1<<uint(i)) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Issue is a mismatch observed by a tracker while applying one event.
type Issue struct {
	Mismatch Mismatch
	// Target names the image or allocation the event applied to.
	Target string
	// Detail describes the expected and observed state.
	Detail string
	// Reset is true if the mismatch forced the affected state to Reset.
	Reset bool
}

func (i Issue) String() string {
	s := fmt.Sprintf("%v: %v mismatch: %v", i.Target, i.Mismatch, i.Detail)
	if i.Reset {
		s += " (forced reset)"
	}
	return s
}

// addIssue logs i and appends it to l.
func addIssue(ctx context.Context, l *[]Issue, i Issue) {
	log.Bind(ctx, log.V{
		"target":   i.Target,
		"mismatch": i.Mismatch,
		"reset":    i.Reset,
	}).W("%v", i.Detail)
	*l = append(*l, i)
}
