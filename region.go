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

// Package coverage represents multi-dimensional regions of interest, such
// as a time interval combined with a geographic footprint, and computes
// the exact difference between two of them as a list of regions that do
// not overlap each other.
//
// A Region is the conjunction of its dimensions: a point is in the region
// if, along every dimension the region has, it falls within at least one of
// that dimension's values. A dimension the region does not have places no
// restriction, so the Region with no dimensions covers everything.
package coverage

import (
	"bytes"
	"fmt"
	"sort"
)

// Version gives the version number of this package.
const Version = "0.1.0"

// Region is an immutable set of values per Dimension. Build Regions with
// a Builder. Regions may be shared between goroutines.
type Region struct {
	values map[Dimension][]interface{}
	dims   []Dimension
}

var universal = &Region{values: map[Dimension][]interface{}{}}

// Universal returns the Region with no dimensions, which covers
// everything.
func Universal() *Region { return universal }

// newRegion copies values into a new Region. It panics if any dimension
// has no values.
func newRegion(values map[Dimension][]interface{}) *Region {
	r := &Region{
		values: make(map[Dimension][]interface{}, len(values)),
		dims:   make([]Dimension, 0, len(values)),
	}
	for d, v := range values {
		if len(v) == 0 {
			panic(fmt.Errorf("coverage: dimension %v has no values", d))
		}
		vv := make([]interface{}, len(v))
		copy(vv, v)
		r.values[d] = vv
		r.dims = append(r.dims, d)
	}
	sortDimensions(r.dims)
	return r
}

func sortDimensions(dims []Dimension) {
	sort.Slice(dims, func(i, j int) bool { return dims[i].less(dims[j]) })
}

// Dimensions returns the dimensions of r in the order used by Subtract.
func (r *Region) Dimensions() []Dimension {
	o := make([]Dimension, len(r.dims))
	copy(o, r.dims)
	return o
}

// Has returns whether r has values for d.
func (r *Region) Has(d Dimension) bool {
	_, ok := r.values[d]
	return ok
}

// IsUniversal returns whether r has no dimensions.
func (r *Region) IsUniversal() bool { return len(r.values) == 0 }

// Values returns copies of the values of r along d, or nil if r does not
// have d.
func (r *Region) Values(d Dimension) []interface{} {
	v, ok := r.values[d]
	if !ok {
		return nil
	}
	return copyValues(mustStrategy(d.Kind), v)
}

// AllValues returns a copy of all of the values in r.
func (r *Region) AllValues() map[Dimension][]interface{} {
	o := make(map[Dimension][]interface{}, len(r.values))
	for d, v := range r.values {
		o[d] = copyValues(mustStrategy(d.Kind), v)
	}
	return o
}

func copyValues(s Strategy, v []interface{}) []interface{} {
	o := make([]interface{}, len(v))
	for i, vv := range v {
		o[i] = s.Copy(vv)
	}
	return o
}

// Equal returns whether r and r2 have the same dimensions and, for each
// dimension, the same values irrespective of order. Values the dimension's
// Strategy cannot compare, such as polygons the clipping library fails on,
// are reported as not equal.
func (r *Region) Equal(r2 *Region) bool {
	if r == r2 {
		return true
	}
	if len(r.values) != len(r2.values) {
		return false
	}
	for d, v := range r.values {
		v2, ok := r2.values[d]
		if !ok {
			return false
		}
		if !sameValues(mustStrategy(d.Kind), v, v2) {
			return false
		}
	}
	return true
}

// sameValues compares two value lists as sets.
func sameValues(s Strategy, a, b []interface{}) bool {
	contains := func(list []interface{}, v interface{}) bool {
		for _, vv := range list {
			if s.Equal(v, vv) {
				return true
			}
		}
		return false
	}
	for _, v := range a {
		if !contains(b, v) {
			return false
		}
	}
	for _, v := range b {
		if !contains(a, v) {
			return false
		}
	}
	return true
}

func (r *Region) String() string {
	if r.IsUniversal() {
		return "{*}"
	}
	b := bytes.NewBufferString("{")
	for i, d := range r.dims {
		if i > 0 {
			b.WriteString("; ")
		}
		s := mustStrategy(d.Kind)
		fmt.Fprintf(b, "%s: ", d.Name)
		for j, v := range r.values[d] {
			if j > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(s.Format(v))
		}
	}
	b.WriteString("}")
	return b.String()
}
