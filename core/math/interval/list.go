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
	"sort"

	"github.com/baldurk/renderdoc-sub050/core/math/u64"
)

// List is the interface to an object that can be used as an interval list by
// the algorithms in this package. Spans must be sorted and must not overlap.
type List interface {
	// Length returns the number of elements in the list
	Length() int
	// GetSpan returns the span for the element at index in the list
	GetSpan(index int) U64Span
}

// Predicate is used as the condition for a Search.
type Predicate func(test U64Span) bool

// Search finds the first interval in the list that the supplied predicate
// returns true for. If no interval matches the predicate, it returns the
// length of the list.
func Search(l List, t Predicate) int {
	return sort.Search(l.Length(), func(i int) bool { return t(l.GetSpan(i)) })
}

// IndexOf returns the index of the span that contains value, or -1 if no
// span contains it.
func IndexOf(l List, value uint64) int {
	i := Search(l, func(test U64Span) bool { return value < test.End })
	if i < l.Length() && l.GetSpan(i).Start <= value {
		return i
	}
	return -1
}

// Intersect finds the spans of l that overlap span. It returns the index of the
// first overlapping span and the number of overlapping spans.
func Intersect(l List, span U64Span) (first, count int) {
	return intersect(l, span, false)
}

// intersect is Intersect, where expand also includes spans that only touch.
func intersect(l List, span U64Span, expand bool) (first, count int) {
	if expand {
		first = Search(l, func(test U64Span) bool { return span.Start <= test.End })
		count = Search(l, func(test U64Span) bool { return span.End < test.Start }) - first
	} else {
		first = Search(l, func(test U64Span) bool { return span.Start < test.End })
		count = Search(l, func(test U64Span) bool { return span.End <= test.Start }) - first
	}
	if count < 0 {
		count = 0
	}
	return first, count
}

// Merge adds span to the list, unioning it with every span it overlaps.
// If joinAdj is true, spans that only touch span are joined as well.
// It returns the index of the merged span.
func Merge(l *U64SpanList, span U64Span, joinAdj bool) int {
	first, count := intersect(*l, span, joinAdj)
	if count > 0 {
		span.Start = u64.Min(span.Start, (*l)[first].Start)
		span.End = u64.Max(span.End, (*l)[first+count-1].End)
	}
	out := append((*l)[:first:first], span)
	*l = append(out, (*l)[first+count:]...)
	return first
}

// Remove cuts span out of every span in the list.
func Remove(l *U64SpanList, span U64Span) {
	first, count := intersect(*l, span, false)
	if count == 0 {
		return
	}
	low, high := (*l)[first], (*l)[first+count-1]
	out := (*l)[:first:first]
	if low.Start < span.Start {
		out = append(out, U64Span{low.Start, span.Start})
	}
	if span.End < high.End {
		out = append(out, U64Span{span.End, high.End})
	}
	*l = append(out, (*l)[first+count:]...)
}
