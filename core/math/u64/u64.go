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

// Package u64 provides helpers for uint64 byte offsets and sizes.
package u64

// Min returns the minimum value of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum value of a and b.
func Max(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// AlignUp returns the result of aligning up the given value to the given
// alignment. An alignment of 0 leaves value unchanged.
func AlignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	if value%alignment != 0 {
		return value + alignment - (value % alignment)
	}
	return value
}

// SaturatingAdd returns a + b, clamped to the largest uint64.
func SaturatingAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}
