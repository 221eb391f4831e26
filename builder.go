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

// Builder accumulates dimension values and creates Regions from them.
// A Builder is not safe for concurrent use.
type Builder struct {
	values map[Dimension][]interface{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{values: make(map[Dimension][]interface{})}
}

// Add appends a copy of v to the values for d, so later changes to v do
// not affect the Builder or the Regions it creates. Values are not
// deduplicated. Add panics if no Strategy is registered for d's kind or if
// the strategy rejects v.
func (b *Builder) Add(d Dimension, v interface{}) *Builder {
	s := mustStrategy(d.Kind)
	if err := s.Validate(v); err != nil {
		panic(err)
	}
	b.values[d] = append(b.values[d], s.Copy(v))
	return b
}

// ClearDimension removes all values for d.
func (b *Builder) ClearDimension(d Dimension) *Builder {
	delete(b.values, d)
	return b
}

// Clear removes all values.
func (b *Builder) Clear() *Builder {
	b.values = make(map[Dimension][]interface{})
	return b
}

// Populate replaces the contents of b with a copy of the contents of r.
func (b *Builder) Populate(r *Region) *Builder {
	b.values = r.AllValues()
	return b
}

// Create returns a new Region holding the current values. b keeps its
// values, so later calls to Add extend what the next Create returns
// without changing Regions already created.
func (b *Builder) Create() *Region {
	if len(b.values) == 0 {
		return universal
	}
	return newRegion(b.values)
}
