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

// Package tracker follows the contents of images and memory allocations
// through the events of one frame, and derives whether the pre-frame
// contents of each resource are needed to replay that frame.
package tracker

import (
	"strings"

	"github.com/pkg/errors"
)

// AccessState is the cumulative effect of the frame's actions on a byte range
// or image subresource.
type AccessState uint8

const (
	// Init means the frame has not touched the contents yet.
	Init AccessState = iota
	// Read means the pre-frame contents were read before any write.
	Read
	// Write means the contents were written before any read.
	Write
	// Clear means the contents were discarded before any read.
	Clear
	// Reset means the contents were read, then overwritten.
	Reset
)

var accessStateNames = [...]string{"Init", "Read", "Write", "Clear", "Reset"}

func (s AccessState) String() string {
	if int(s) < len(accessStateNames) {
		return accessStateNames[s]
	}
	return "AccessState(?)"
}

// AccessAction is what a single event does to a byte range or subresource.
type AccessAction uint8

const (
	ActionWrite AccessAction = iota
	ActionRead
	ActionClear
	ActionReadWrite
)

var accessActionNames = [...]string{"Write", "Read", "Clear", "ReadWrite"}

func (a AccessAction) String() string {
	if int(a) < len(accessActionNames) {
		return accessActionNames[a]
	}
	return "AccessAction(?)"
}

// ParseAccessAction parses an action name, ignoring case.
func ParseAccessAction(s string) (AccessAction, error) {
	for i, n := range accessActionNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return AccessAction(i), nil
		}
	}
	return 0, errors.Errorf("Unknown access action %q", s)
}

// transitions lists the state changes of the access state machine.
// Anything missing from the table leaves the state unchanged.
var transitions = map[AccessState]map[AccessAction]AccessState{
	Init: {
		ActionRead:  Read,
		ActionWrite: Write,
		ActionClear: Clear,
	},
	Write: {
		ActionRead:  Read,
		ActionClear: Clear,
	},
	Read: {
		ActionWrite: Reset,
		ActionClear: Reset,
	},
}

// Next returns the state that follows s after action a.
func (s AccessState) Next(a AccessAction) AccessState {
	if a == ActionReadWrite {
		return s.Next(ActionRead).Next(ActionWrite)
	}
	if next, ok := transitions[s][a]; ok {
		return next
	}
	return s
}

// AccessTransition advances an access state by one action.
type AccessTransition func(AccessState) AccessState

// Transition returns the state machine transition for the action.
func (a AccessAction) Transition() AccessTransition {
	return func(s AccessState) AccessState { return s.Next(a) }
}
