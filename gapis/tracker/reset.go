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

// ResetRequirement is the verdict for one resource: what the replay has to do
// with its contents before the frame starts.
type ResetRequirement uint8

const (
	// Unknown means the verdict has not been computed yet.
	Unknown ResetRequirement = iota
	// NeedsReset means the pre-frame contents must be restored.
	NeedsReset
	// NeedsInit means the contents must be initialized once.
	NeedsInit
	// NoReset means the frame fully determines the contents.
	NoReset
)

func (r ResetRequirement) String() string {
	switch r {
	case NeedsReset:
		return "Reset"
	case NeedsInit:
		return "Init"
	case NoReset:
		return "NoReset"
	default:
		return "Unknown"
	}
}

// rank orders requirements for emission: resets first, then initializations.
func (r ResetRequirement) rank() int {
	switch r {
	case NeedsReset:
		return 0
	case NeedsInit:
		return 1
	case NoReset:
		return 2
	default:
		return 3
	}
}

// requirementOf accumulates access states into a verdict.
type requirementOf struct {
	reset bool
	init  bool
}

func (r *requirementOf) add(s AccessState) {
	switch s {
	case Reset:
		r.reset = true
	case Init, Read:
		r.init = true
	}
}

func (r requirementOf) result() ResetRequirement {
	switch {
	case r.reset:
		return NeedsReset
	case r.init:
		return NeedsInit
	default:
		return NoReset
	}
}
