/*
Copyright © 2018 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package coverage

import (
	"fmt"
	"sort"
	"time"
)

// Interval is the half-open time interval [Start, End). A zero Start
// means the interval is unbounded in the past and a zero End means it is
// unbounded in the future.
type Interval struct {
	Start, End time.Time
}

// Forever returns the interval covering all time.
func Forever() Interval { return Interval{} }

// Since returns the interval starting at t with no end.
func Since(t time.Time) Interval { return Interval{Start: t} }

// Until returns the interval ending (exclusively) at t with no start.
func Until(t time.Time) Interval { return Interval{End: t} }

// MonthInterval returns the interval covering the given month of the
// given year in UTC.
func MonthInterval(year int, month time.Month) Interval {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearInterval returns the interval covering the given year in UTC.
func YearInterval(year int) Interval {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(1, 0, 0)}
}

// Empty returns whether iv contains no instants.
func (iv Interval) Empty() bool {
	return !startBeforeEnd(iv.Start, iv.End)
}

// Contains returns whether t falls within iv.
func (iv Interval) Contains(t time.Time) bool {
	return (iv.Start.IsZero() || !t.Before(iv.Start)) &&
		(iv.End.IsZero() || t.Before(iv.End))
}

func (iv Interval) String() string {
	start, end := "-inf", "+inf"
	if !iv.Start.IsZero() {
		start = iv.Start.Format(time.RFC3339Nano)
	}
	if !iv.End.IsZero() {
		end = iv.End.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("[%s, %s)", start, end)
}

// startBeforeEnd returns whether start s is strictly before end e.
func startBeforeEnd(s, e time.Time) bool {
	if s.IsZero() || e.IsZero() {
		return true
	}
	return s.Before(e)
}

// compareStarts orders two start values, treating zero as -inf.
func compareStarts(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return -1
	case b.IsZero():
		return 1
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareEnds orders two end values, treating zero as +inf.
func compareEnds(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func laterStart(a, b time.Time) time.Time {
	if compareStarts(a, b) >= 0 {
		return a
	}
	return b
}

func earlierEnd(a, b time.Time) time.Time {
	if compareEnds(a, b) <= 0 {
		return a
	}
	return b
}

// Temporal is the Strategy for IntervalKind dimensions. Intervals that
// only touch do not intersect.
type Temporal struct{}

func (Temporal) interval(v interface{}) Interval {
	switch iv := v.(type) {
	case Interval:
		return iv
	case *Interval:
		return *iv
	default:
		panic(fmt.Errorf("coverage: %T is not an Interval", v))
	}
}

// Validate implements Strategy.
func (Temporal) Validate(v interface{}) error {
	var iv Interval
	switch vv := v.(type) {
	case Interval:
		iv = vv
	case *Interval:
		if vv == nil {
			return fmt.Errorf("coverage: nil interval")
		}
		iv = *vv
	default:
		return fmt.Errorf("coverage: %T is not an Interval", v)
	}
	if iv.Empty() {
		return fmt.Errorf("coverage: empty interval %v", iv)
	}
	return nil
}

// Copy implements Strategy. It always returns an Interval.
func (t Temporal) Copy(v interface{}) interface{} { return t.interval(v) }

// Intersects implements Strategy.
func (t Temporal) Intersects(a, b interface{}) (bool, error) {
	ia, ib := t.interval(a), t.interval(b)
	return startBeforeEnd(laterStart(ia.Start, ib.Start), earlierEnd(ia.End, ib.End)), nil
}

// Intersection implements Strategy.
func (t Temporal) Intersection(a, b interface{}) ([]interface{}, error) {
	ia, ib := t.interval(a), t.interval(b)
	o := Interval{Start: laterStart(ia.Start, ib.Start), End: earlierEnd(ia.End, ib.End)}
	if o.Empty() {
		return nil, nil
	}
	return []interface{}{o}, nil
}

// Subtract implements Strategy.
func (t Temporal) Subtract(a, b interface{}) ([]interface{}, error) {
	if overlap, _ := t.Intersects(a, b); !overlap {
		return []interface{}{a}, nil
	}
	ia, ib := t.interval(a), t.interval(b)
	var o []interface{}
	// ib.Start is bounded whenever it is later than ia.Start, and ib.End is
	// bounded whenever it is earlier than ia.End.
	if compareStarts(ia.Start, ib.Start) < 0 {
		o = append(o, Interval{Start: ia.Start, End: ib.Start})
	}
	if compareEnds(ib.End, ia.End) < 0 {
		o = append(o, Interval{Start: ib.End, End: ia.End})
	}
	return o, nil
}

// Union implements Strategy. Overlapping and adjacent intervals are merged.
func (t Temporal) Union(values []interface{}) ([]interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ivs := make([]Interval, len(values))
	for i, v := range values {
		ivs[i] = t.interval(v)
	}
	sort.Slice(ivs, func(i, j int) bool {
		return compareStarts(ivs[i].Start, ivs[j].Start) < 0
	})
	cur := ivs[0]
	var o []interface{}
	for _, iv := range ivs[1:] {
		// Merge unless there is a gap between cur and iv.
		if cur.End.IsZero() || iv.Start.IsZero() || !cur.End.Before(iv.Start) {
			cur.End = laterEnd(cur.End, iv.End)
			continue
		}
		o = append(o, cur)
		cur = iv
	}
	return append(o, cur), nil
}

func laterEnd(a, b time.Time) time.Time {
	if compareEnds(a, b) >= 0 {
		return a
	}
	return b
}

// Equal implements Strategy.
func (t Temporal) Equal(a, b interface{}) bool {
	ia, ib := t.interval(a), t.interval(b)
	return compareStarts(ia.Start, ib.Start) == 0 && compareEnds(ia.End, ib.End) == 0
}

// Format implements Strategy.
func (t Temporal) Format(v interface{}) string {
	return t.interval(v).String()
}
