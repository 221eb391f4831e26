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
	"sync"
)

// Kind identifies the type of the values stored along a Dimension.
type Kind string

// These are the built-in dimension kinds.
const (
	// IntervalKind dimensions hold Interval values.
	IntervalKind Kind = "interval"

	// FootprintKind dimensions hold geom.Polygon values.
	FootprintKind Kind = "footprint"
)

// Dimension is one named, typed axis of a Region. Dimensions are compared
// by name and kind, so they can be used directly as map keys.
type Dimension struct {
	Name string
	Kind Kind
}

// These are the dimensions most callers need.
var (
	Time      = Dimension{Name: "time", Kind: IntervalKind}
	Footprint = Dimension{Name: "footprint", Kind: FootprintKind}
)

func (d Dimension) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, d.Kind)
}

// less gives the fixed order in which the difference engine walks
// dimensions: by name, then by kind.
func (d Dimension) less(d2 Dimension) bool {
	if d.Name != d2.Name {
		return d.Name < d2.Name
	}
	return d.Kind < d2.Kind
}

// Strategy holds the set operations for the values of one dimension kind.
// Values passed to a Strategy have already been checked with Validate.
type Strategy interface {
	// Validate returns an error if v is not a well-formed value of this kind.
	Validate(v interface{}) error

	// Copy returns a copy of the valid value v, in the form the other
	// methods return, that shares no memory with v.
	Copy(v interface{}) interface{}

	// Intersects reports whether a and b share any extent.
	Intersects(a, b interface{}) (bool, error)

	// Intersection returns the extent shared by a and b, which may be split
	// into several values. It is empty if a and b do not intersect.
	Intersection(a, b interface{}) ([]interface{}, error)

	// Subtract returns the portion(s) of a not covered by b. It returns
	// []interface{}{a} when they are disjoint and an empty slice when b
	// covers a.
	Subtract(a, b interface{}) ([]interface{}, error)

	// Union merges values into a list of values that do not overlap each
	// other and cover the same extent.
	Union(values []interface{}) ([]interface{}, error)

	// Equal reports whether a and b cover the same extent.
	Equal(a, b interface{}) bool

	// Format returns a human-readable representation of v.
	Format(v interface{}) string
}

var (
	strategies   = make(map[Kind]Strategy)
	strategyLock sync.RWMutex
)

func init() {
	RegisterKind(IntervalKind, Temporal{})
	RegisterKind(FootprintKind, NewSpatial(DefaultTolerance))
}

// RegisterKind sets the Strategy used for dimensions of kind k, replacing
// any Strategy already registered for it.
func RegisterKind(k Kind, s Strategy) {
	if s == nil {
		panic(fmt.Errorf("coverage: nil strategy for kind %q", k))
	}
	strategyLock.Lock()
	strategies[k] = s
	strategyLock.Unlock()
}

// StrategyFor returns the Strategy registered for kind k.
func StrategyFor(k Kind) (Strategy, error) {
	strategyLock.RLock()
	s, ok := strategies[k]
	strategyLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("coverage: no strategy registered for dimension kind %q", k)
	}
	return s, nil
}

// mustStrategy is StrategyFor for callers that have already validated
// the dimension, such as Region construction.
func mustStrategy(k Kind) Strategy {
	s, err := StrategyFor(k)
	if err != nil {
		panic(err)
	}
	return s
}
