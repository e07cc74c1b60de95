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

import "github.com/baldurk/renderdoc-sub050/gapis/tracker"

// Options controls one analysis.
type Options struct {
	// StrictLayouts forces a reset of image subresources used in a layout
	// other than their tracked layout.
	StrictLayouts bool
	// StrictQueueOwnership forces a reset of EXCLUSIVE resources used by a
	// queue family that does not own them.
	StrictQueueOwnership bool
	// PromoteAliasedToInit reports aliased resources that need no reset as
	// needing an initialization.
	PromoteAliasedToInit bool
}

// DefaultOptions resets on every mismatch and trusts aliased verdicts.
func DefaultOptions() Options {
	return Options{
		StrictLayouts:        true,
		StrictQueueOwnership: true,
	}
}

func (o Options) policy() tracker.Policy {
	return tracker.Policy{
		StrictLayouts:        o.StrictLayouts,
		StrictQueueOwnership: o.StrictQueueOwnership,
	}
}
