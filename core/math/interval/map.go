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

package interval

import (
	"bytes"
	"fmt"

	"github.com/baldurk/renderdoc-sub050/core/math/u64"
	"github.com/google/btree"
)

// MaxOffset is the exclusive upper bound of the space covered by a Map.
const MaxOffset = ^uint64(0)

// Map associates a value with every offset in [0, MaxOffset).
//
// The space is partitioned into contiguous, non-overlapping intervals. There is
// always an interval starting at 0, and no two adjacent intervals hold equal
// values: every mutator coalesces the intervals it touches.
type Map[T comparable] struct {
	tree *btree.BTreeG[boundary[T]]
}

// boundary is the start of an interval. The interval ends at the start of the
// next boundary, or at MaxOffset for the last one.
type boundary[T comparable] struct {
	start uint64
	value T
}

// Interval is a span of a Map together with the value held over it.
type Interval[T comparable] struct {
	Span  U64Span
	Value T
}

func (i Interval[T]) String() string { return fmt.Sprintf("%v=%v", i.Span, i.Value) }

// NewMap returns a Map holding initial over the whole space.
func NewMap[T comparable](initial T) *Map[T] {
	m := &Map[T]{
		tree: btree.NewG(8, func(a, b boundary[T]) bool { return a.start < b.start }),
	}
	m.tree.ReplaceOrInsert(boundary[T]{start: 0, value: initial})
	return m
}

// Len returns the number of intervals in the map.
func (m *Map[T]) Len() int { return m.tree.Len() }

// Clone returns an independent copy of the map.
func (m *Map[T]) Clone() *Map[T] { return &Map[T]{tree: m.tree.Clone()} }

// at returns the boundary of the interval containing x: the last boundary
// that starts at or before x.
func (m *Map[T]) at(x uint64) boundary[T] {
	var out boundary[T]
	m.tree.DescendLessOrEqual(boundary[T]{start: x}, func(b boundary[T]) bool {
		out = b
		return false
	})
	return out
}

// endOf returns the end of the interval starting at start.
func (m *Map[T]) endOf(start uint64) uint64 {
	end := MaxOffset
	if start == MaxOffset {
		return end
	}
	m.tree.AscendGreaterOrEqual(boundary[T]{start: start + 1}, func(b boundary[T]) bool {
		end = b.start
		return false
	})
	return end
}

func (m *Map[T]) interval(b boundary[T]) Interval[T] {
	return Interval[T]{Span: U64Span{Start: b.start, End: m.endOf(b.start)}, Value: b.value}
}

// Find returns the interval containing the offset x.
func (m *Map[T]) Find(x uint64) Interval[T] {
	return m.interval(m.at(x))
}

// Split inserts a boundary at x, so that the interval containing x is divided
// into two intervals holding the same value. Split is a no-op if x is already
// the start of an interval.
func (m *Map[T]) Split(x uint64) {
	if x >= MaxOffset {
		return
	}
	b := m.at(x)
	if b.start == x {
		return
	}
	m.tree.ReplaceOrInsert(boundary[T]{start: x, value: b.value})
}

// MergeLeft coalesces the interval containing x with its predecessor if they
// hold equal values. It returns the resulting interval containing x.
func (m *Map[T]) MergeLeft(x uint64) Interval[T] {
	m.mergeLeft(m.at(x).start)
	return m.Find(x)
}

func (m *Map[T]) mergeLeft(start uint64) {
	if start == 0 {
		return
	}
	b, ok := m.tree.Get(boundary[T]{start: start})
	if !ok {
		return
	}
	if m.at(start-1).value == b.value {
		m.tree.Delete(b)
	}
}

// Update replaces the value v of every offset in span with compose(v, value).
// Update is a no-op if span is empty.
func (m *Map[T]) Update(span U64Span, value T, compose func(old, value T) T) {
	if span.Empty() {
		return
	}
	m.Split(span.Start)
	m.Split(span.End)

	covered := []boundary[T]{}
	m.tree.AscendRange(boundary[T]{start: span.Start}, boundary[T]{start: span.End}, func(b boundary[T]) bool {
		covered = append(covered, b)
		return true
	})
	for _, b := range covered {
		b.value = compose(b.value, value)
		m.tree.ReplaceOrInsert(b)
		m.mergeLeft(b.start)
	}
	if span.End < MaxOffset {
		m.mergeLeft(span.End)
	}
}

// Set assigns value to every offset in span.
func (m *Map[T]) Set(span U64Span, value T) {
	m.Update(span, value, func(_, value T) T { return value })
}

// Merge folds other into m: the value v of every offset in m is replaced with
// compose(v, w), where w is the value other holds at the same offset.
func (m *Map[T]) Merge(other *Map[T], compose func(old, value T) T) {
	for _, i := range other.Intervals() {
		m.Update(i.Span, i.Value, compose)
	}
}

// Each calls f for every interval of the map in ascending order, stopping
// early if f returns false.
func (m *Map[T]) Each(f func(Interval[T]) bool) {
	m.Overlapping(U64Span{Start: 0, End: MaxOffset}, f)
}

// Overlapping calls f, in ascending order, for every interval that overlaps
// span. The intervals passed to f are clipped to span.
func (m *Map[T]) Overlapping(span U64Span, f func(Interval[T]) bool) {
	if span.Empty() {
		return
	}
	clip := func(b boundary[T], end uint64) Interval[T] {
		s := U64Span{Start: u64.Max(b.start, span.Start), End: u64.Min(end, span.End)}
		return Interval[T]{Span: s, Value: b.value}
	}
	var prev boundary[T]
	pending := false
	m.tree.AscendGreaterOrEqual(m.at(span.Start), func(b boundary[T]) bool {
		if pending && !f(clip(prev, b.start)) {
			pending = false
			return false
		}
		if b.start >= span.End {
			pending = false
			return false
		}
		prev, pending = b, true
		return true
	})
	if pending {
		f(clip(prev, MaxOffset))
	}
}

// Intervals returns every interval of the map in ascending order.
func (m *Map[T]) Intervals() []Interval[T] {
	out := make([]Interval[T], 0, m.Len())
	m.Each(func(i Interval[T]) bool {
		out = append(out, i)
		return true
	})
	return out
}

func (m *Map[T]) String() string {
	buf := bytes.Buffer{}
	m.Each(func(i Interval[T]) bool {
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(i.String())
		return true
	})
	return buf.String()
}
