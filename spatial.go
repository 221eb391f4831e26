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
	"bytes"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the area below which the registered footprint
// strategy treats a polygon or an overlap as empty.
const DefaultTolerance = 1.0e-10

// GeometryError is returned when the polygon clipping library fails on
// the given input.
type GeometryError struct {
	Op  string
	Err error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("coverage: polygon %s failed: %v", e.Op, e.Err)
}

// BoxPolygon returns the rectangle with corners (x0, y0) and (x1, y1).
func BoxPolygon(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

// Spatial is the Strategy for FootprintKind dimensions. Values are
// geom.Polygon: one outer ring followed by any holes. Results from the
// clipping library are split into separate polygons that do not overlap,
// and polygons with an area of at most Tolerance are dropped, so shared
// edges and slivers never count as overlap.
type Spatial struct {
	Tolerance float64
}

// NewSpatial returns a Spatial strategy with the given area tolerance.
func NewSpatial(tolerance float64) Spatial {
	if tolerance < 0 {
		panic(fmt.Errorf("coverage: negative spatial tolerance %g", tolerance))
	}
	return Spatial{Tolerance: tolerance}
}

func (Spatial) polygon(v interface{}) geom.Polygon {
	switch p := v.(type) {
	case geom.Polygon:
		return p
	case *geom.Polygon:
		return *p
	default:
		panic(fmt.Errorf("coverage: %T is not a geom.Polygon", v))
	}
}

// Validate implements Strategy.
func (s Spatial) Validate(v interface{}) error {
	var p geom.Polygon
	switch pp := v.(type) {
	case geom.Polygon:
		p = pp
	case *geom.Polygon:
		if pp == nil {
			return fmt.Errorf("coverage: nil polygon")
		}
		p = *pp
	default:
		return fmt.Errorf("coverage: %T is not a geom.Polygon", v)
	}
	if len(p) == 0 {
		return fmt.Errorf("coverage: polygon has no rings")
	}
	for i, r := range p {
		if len(r) < 3 {
			return fmt.Errorf("coverage: polygon ring %d has %d points", i, len(r))
		}
		for _, pt := range r {
			if !finite(pt.X) || !finite(pt.Y) {
				return fmt.Errorf("coverage: polygon ring %d has non-finite point %v", i, pt)
			}
		}
	}
	if !(p.Area() > s.Tolerance) {
		return fmt.Errorf("coverage: polygon has no area")
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Copy implements Strategy. It always returns a geom.Polygon.
func (s Spatial) Copy(v interface{}) interface{} {
	p := s.polygon(v)
	o := make(geom.Polygon, len(p))
	for i, r := range p {
		o[i] = append([]geom.Point(nil), r...)
	}
	return o
}

// clip runs a polygon clipping operation, turning any panic from the
// clipping library into a *GeometryError.
func clip(op string, f func() geom.Polygon) (p geom.Polygon, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				e = fmt.Errorf("%v", r)
			}
			p, err = nil, &GeometryError{Op: op, Err: e}
		}
	}()
	return f(), nil
}

// Intersects implements Strategy.
func (s Spatial) Intersects(a, b interface{}) (bool, error) {
	pa, pb := s.polygon(a), s.polygon(b)
	if !pa.Bounds().Overlaps(pb.Bounds()) {
		return false, nil
	}
	isect, err := clip("intersection", func() geom.Polygon { return pa.Intersection(pb) })
	if err != nil {
		return false, err
	}
	return len(s.split(isect)) > 0, nil
}

// Intersection implements Strategy.
func (s Spatial) Intersection(a, b interface{}) ([]interface{}, error) {
	pa, pb := s.polygon(a), s.polygon(b)
	if !pa.Bounds().Overlaps(pb.Bounds()) {
		return nil, nil
	}
	isect, err := clip("intersection", func() geom.Polygon { return pa.Intersection(pb) })
	if err != nil {
		return nil, err
	}
	return s.split(isect), nil
}

// Subtract implements Strategy.
func (s Spatial) Subtract(a, b interface{}) ([]interface{}, error) {
	overlap, err := s.Intersects(a, b)
	if err != nil {
		return nil, err
	}
	if !overlap {
		return []interface{}{a}, nil
	}
	pa, pb := s.polygon(a), s.polygon(b)
	diff, err := clip("difference", func() geom.Polygon { return pa.Difference(pb) })
	if err != nil {
		return nil, err
	}
	return s.split(diff), nil
}

// Union implements Strategy.
func (s Spatial) Union(values []interface{}) ([]interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) == 1 {
		return []interface{}{values[0]}, nil
	}
	acc := s.polygon(values[0])
	for _, v := range values[1:] {
		p := s.polygon(v)
		var err error
		acc, err = clip("union", func() geom.Polygon { return acc.Union(p) })
		if err != nil {
			return nil, err
		}
	}
	return s.split(acc), nil
}

// Equal implements Strategy. Two polygons are equal when the area of
// their symmetric difference is within Tolerance.
func (s Spatial) Equal(a, b interface{}) bool {
	pa, pb := s.polygon(a), s.polygon(b)
	x, err := clip("xor", func() geom.Polygon { return pa.XOr(pb) })
	if err != nil {
		return false
	}
	return floats.EqualWithinAbs(x.Area(), 0, s.Tolerance)
}

// Format implements Strategy, giving the polygon in WKT.
func (s Spatial) Format(v interface{}) string {
	p := s.polygon(v)
	b := bytes.NewBufferString("POLYGON (")
	for i, r := range p {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, pt := range r {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%g %g", pt.X, pt.Y)
		}
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

// Normalize splits p, whose rings may describe several outer boundaries
// as read from a shapefile, into polygons with one outer ring each.
func (s Spatial) Normalize(p geom.Polygon) []geom.Polygon {
	split := s.split(p)
	o := make([]geom.Polygon, len(split))
	for i, v := range split {
		o[i] = v.(geom.Polygon)
	}
	return o
}

// split separates the rings returned by the clipping library, which
// mixes outer rings and holes in one geom.Polygon, into one polygon per
// outer ring with its holes attached. Rings are classified by how many
// other rings enclose them: an even count is an outer ring, an odd count
// is a hole of the enclosing ring one level up.
func (s Spatial) split(p geom.Polygon) []interface{} {
	var rings [][]geom.Point
	for _, r := range p {
		if len(r) < 4 {
			continue
		}
		if (geom.Polygon{r}).Area() <= s.Tolerance {
			continue
		}
		rings = append(rings, r)
	}
	depth := make([]int, len(rings))
	for i, r := range rings {
		for j, r2 := range rings {
			if i != j && ringInside(r, r2) {
				depth[i]++
			}
		}
	}
	outer := make(map[int]int) // ring index -> output index
	var polys []geom.Polygon
	for i, r := range rings {
		if depth[i]%2 == 0 {
			outer[i] = len(polys)
			polys = append(polys, geom.Polygon{r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		for j, r2 := range rings {
			if depth[j] == depth[i]-1 && ringInside(r, r2) {
				k := outer[j]
				polys[k] = append(polys[k], r)
				break
			}
		}
	}
	o := make([]interface{}, 0, len(polys))
	for _, pp := range polys {
		if pp.Area() > s.Tolerance {
			o = append(o, pp)
		}
	}
	return o
}

// ringInside returns whether ring r lies inside ring r2. Vertices on the
// edge of r2 are inconclusive, so the first vertex that is not decides.
func ringInside(r, r2 []geom.Point) bool {
	container := geom.Polygon{r2}
	b := container.Bounds()
	for _, pt := range r {
		if !b.Overlaps(geom.NewBoundsPoint(pt)) {
			return false
		}
		switch pt.Within(container) {
		case geom.Inside:
			return true
		case geom.Outside:
			return false
		}
	}
	// Every vertex is on r2's edge.
	return (geom.Polygon{r}).Area() < container.Area()
}
