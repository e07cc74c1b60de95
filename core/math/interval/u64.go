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

import "fmt"

// U64Span is the base interval type understood by the algorithms in this package.
// It is a half open interval that includes the lower bound, but not the upper.
type U64Span struct {
	Start uint64 // the value at which the interval begins
	End   uint64 // the next value not included in the interval.
}

// U64Range is an interval specified by a beginning and size.
type U64Range struct {
	First uint64 // the first value in the interval
	Count uint64 // the count of values in the interval
}

// U64SpanList is a sorted list of non-overlapping spans.
type U64SpanList []U64Span

// Range converts a U64Span to a U64Range
func (s U64Span) Range() U64Range { return U64Range{First: s.Start, Count: s.End - s.Start} }

// Span converts a U64Range to a U64Span
func (r U64Range) Span() U64Span { return U64Span{Start: r.First, End: r.First + r.Count} }

// Empty returns true if the span covers no values.
func (s U64Span) Empty() bool { return s.End <= s.Start }

// Contains returns true if x lies within the span.
func (s U64Span) Contains(x uint64) bool { return s.Start <= x && x < s.End }

// Overlaps returns true if the two spans share at least one value. Spans that
// only touch do not overlap.
func (s U64Span) Overlaps(o U64Span) bool {
	return !s.Empty() && !o.Empty() && s.Start < o.End && o.Start < s.End
}

func (s U64Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

func (l U64SpanList) Length() int               { return len(l) }
func (l U64SpanList) GetSpan(index int) U64Span { return l[index] }
