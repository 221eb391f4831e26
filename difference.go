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

// Subtract returns the portion of a that is not covered by b as a list of
// Regions that do not overlap each other.
//
// The dimensions of a and b are walked in the order given by
// Region.Dimensions. For each dimension d, the piece where every earlier
// dimension is within the intersection of a and b, d is within a but
// outside of b, and every later dimension is unchanged from a is added to
// the result if it is not empty.
//
// A dimension that only one of the regions has places no restriction on
// the other one, so it never produces a piece of its own and the
// intersection along it is the value of the region that has it.
// Because of this, when a dimension is present on only one side the set
// of points the result covers, and not only how it is split into pieces,
// depends on the dimension order. For example, {time: [0,10)} minus
// {footprint: F; time: [0,5)} is {footprint: F; time: [5,10)}, but if the
// interval dimension is named "date" so that it sorts first, the result
// is {date: [5,10)}.
//
// If a and b do not overlap along some dimension they both have, the
// result is []*Region{a}. If b covers a, the result is empty.
func Subtract(a, b *Region) ([]*Region, error) {
	o, _, err := subtract(a, b)
	return o, err
}

// subtract is Subtract that additionally reports whether a and b overlap,
// i.e. whether the result differs from []*Region{a}.
func subtract(a, b *Region) ([]*Region, bool, error) {
	dims := unionDimensions(a, b)

	// Regions that are disjoint along any shared dimension are disjoint.
	for _, d := range dims {
		av, aok := a.values[d]
		bv, bok := b.values[d]
		if !aok || !bok {
			continue
		}
		ok, err := axisIntersects(mustStrategy(d.Kind), av, bv)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return []*Region{a}, false, nil
		}
	}

	var o []*Region
	carry := make(map[Dimension][]interface{}, len(dims))
	for i, d := range dims {
		av, aok := a.values[d]
		bv, bok := b.values[d]
		var remainder, overlap []interface{}
		switch {
		case !bok:
			overlap = av
		case !aok:
			overlap = bv
		default:
			s := mustStrategy(d.Kind)
			var err error
			if remainder, err = axisSubtract(s, av, bv); err != nil {
				return nil, false, err
			}
			if i < len(dims)-1 {
				if overlap, err = axisIntersection(s, av, bv); err != nil {
					return nil, false, err
				}
			}
		}
		if len(remainder) > 0 {
			piece := make(map[Dimension][]interface{}, len(dims))
			for _, dd := range dims[:i] {
				piece[dd] = carry[dd]
			}
			piece[d] = remainder
			for _, dd := range dims[i+1:] {
				if v, ok := a.values[dd]; ok {
					piece[dd] = v
				}
			}
			o = append(o, newRegion(piece))
		}
		carry[d] = overlap
	}
	return o, true, nil
}

// Intersect returns the portion of space covered by both a and b. The
// second return value is false if they do not overlap.
func Intersect(a, b *Region) (*Region, bool, error) {
	dims := unionDimensions(a, b)
	if len(dims) == 0 {
		return universal, true, nil
	}
	values := make(map[Dimension][]interface{}, len(dims))
	for _, d := range dims {
		av, aok := a.values[d]
		bv, bok := b.values[d]
		switch {
		case !bok:
			values[d] = av
		case !aok:
			values[d] = bv
		default:
			overlap, err := axisIntersection(mustStrategy(d.Kind), av, bv)
			if err != nil {
				return nil, false, err
			}
			if len(overlap) == 0 {
				return nil, false, nil
			}
			values[d] = overlap
		}
	}
	return newRegion(values), true, nil
}

// SubtractAll removes each of removals in turn from pieces, which is
// modified in place. Each removal is applied to the pieces left after the
// previous one. It returns whether any piece was changed. If an error
// occurs, pieces holds the result of the removals applied before it.
// SubtractAll does no locking; the caller must have exclusive access to
// pieces.
func SubtractAll(pieces *[]*Region, removals []*Region) (bool, error) {
	var changed bool
	for _, rm := range removals {
		current := *pieces
		next := make([]*Region, 0, len(current))
		for _, p := range current {
			o, overlap, err := subtract(p, rm)
			if err != nil {
				return changed, err
			}
			if !overlap {
				next = append(next, p)
				continue
			}
			changed = true
			next = append(next, o...)
		}
		*pieces = next
	}
	return changed, nil
}

// unionDimensions returns the dimensions in either a or b, sorted.
func unionDimensions(a, b *Region) []Dimension {
	dims := make([]Dimension, 0, len(a.dims)+len(b.dims))
	dims = append(dims, a.dims...)
	for _, d := range b.dims {
		if !a.Has(d) {
			dims = append(dims, d)
		}
	}
	sortDimensions(dims)
	return dims
}

// axisIntersects returns whether any value in as intersects any value in bs.
func axisIntersects(s Strategy, as, bs []interface{}) (bool, error) {
	for _, a := range as {
		for _, b := range bs {
			ok, err := s.Intersects(a, b)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

// axisIntersection returns the pairwise intersections of as and bs.
func axisIntersection(s Strategy, as, bs []interface{}) ([]interface{}, error) {
	var o []interface{}
	for _, a := range as {
		for _, b := range bs {
			isect, err := s.Intersection(a, b)
			if err != nil {
				return nil, err
			}
			o = append(o, isect...)
		}
	}
	return o, nil
}

// axisSubtract removes the union of bs from each value in as.
func axisSubtract(s Strategy, as, bs []interface{}) ([]interface{}, error) {
	u, err := s.Union(bs)
	if err != nil {
		return nil, err
	}
	var o []interface{}
	for _, a := range as {
		remainder := []interface{}{a}
		for _, b := range u {
			var next []interface{}
			for _, r := range remainder {
				d, err := s.Subtract(r, b)
				if err != nil {
					return nil, err
				}
				next = append(next, d...)
			}
			remainder = next
			if len(remainder) == 0 {
				break
			}
		}
		o = append(o, remainder...)
	}
	return o, nil
}
