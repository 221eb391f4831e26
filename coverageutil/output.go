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

package coverageutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/coverage"
)

type jsonInterval struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type jsonDimension struct {
	Name       string              `json:"name"`
	Kind       string              `json:"kind"`
	Intervals  []jsonInterval      `json:"intervals,omitempty"`
	Footprints []*geojson.Geometry `json:"footprints,omitempty"`
}

type jsonRegion struct {
	Dimensions []jsonDimension `json:"dimensions"`
}

func toJSON(r *coverage.Region) (jsonRegion, error) {
	o := jsonRegion{Dimensions: []jsonDimension{}}
	for _, d := range r.Dimensions() {
		jd := jsonDimension{Name: d.Name, Kind: string(d.Kind)}
		for _, v := range r.Values(d) {
			switch t := v.(type) {
			case coverage.Interval:
				var ji jsonInterval
				if !t.Start.IsZero() {
					s := t.Start
					ji.Start = &s
				}
				if !t.End.IsZero() {
					e := t.End
					ji.End = &e
				}
				jd.Intervals = append(jd.Intervals, ji)
			case geom.Polygon:
				g, err := geojson.ToGeoJSON(t)
				if err != nil {
					return o, err
				}
				jd.Footprints = append(jd.Footprints, g)
			default:
				return o, fmt.Errorf("coverageutil: cannot write %T values of dimension %v", v, d)
			}
		}
		o.Dimensions = append(o.Dimensions, jd)
	}
	return o, nil
}

// WriteJSON writes regions to w as a JSON array. Footprints are written as
// GeoJSON geometries.
func WriteJSON(w io.Writer, regions []*coverage.Region) error {
	o := make([]jsonRegion, len(regions))
	for i, r := range regions {
		jr, err := toJSON(r)
		if err != nil {
			return err
		}
		o[i] = jr
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(o)
}

// shpRecord is the archetype of the records in output shapefiles.
type shpRecord struct {
	geom.Polygon
	Region              int
	Footprint, Interval string
	Start, End          string
}

// shpDimensions returns the single footprint dimension of r and its
// interval dimension, if any. Shapefile records can only hold one of each.
func shpDimensions(r *coverage.Region) (footprint, interval coverage.Dimension, hasInterval bool, err error) {
	var hasFootprint bool
	for _, d := range r.Dimensions() {
		switch d.Kind {
		case coverage.FootprintKind:
			if hasFootprint {
				return footprint, interval, false, fmt.Errorf("more than one footprint dimension")
			}
			footprint, hasFootprint = d, true
		case coverage.IntervalKind:
			if hasInterval {
				return footprint, interval, false, fmt.Errorf("more than one interval dimension")
			}
			interval, hasInterval = d, true
		default:
			return footprint, interval, false, fmt.Errorf("dimension %v cannot be written to a shapefile", d)
		}
	}
	if !hasFootprint {
		return footprint, interval, false, fmt.Errorf("no footprint to write")
	}
	return footprint, interval, hasInterval, nil
}

// WriteShapefile writes regions to the shapefile at path, with one record
// per combination of footprint and time interval in each region. Each
// region must have exactly one footprint dimension and at most one
// interval dimension, whose names are written to the Footprint and
// Interval fields.
func WriteShapefile(path string, regions []*coverage.Region) error {
	type dims struct {
		footprint, interval coverage.Dimension
		hasInterval         bool
	}
	rd := make([]dims, len(regions))
	for i, r := range regions {
		fd, id, ok, err := shpDimensions(r)
		if err != nil {
			return fmt.Errorf("coverageutil: writing region %d to shapefile: %v", i, err)
		}
		rd[i] = dims{footprint: fd, interval: id, hasInterval: ok}
	}

	e, err := shp.NewEncoder(path, shpRecord{})
	if err != nil {
		return fmt.Errorf("coverageutil: creating shapefile: %v", err)
	}
	defer e.Close()
	for i, r := range regions {
		intervals := []interface{}{coverage.Forever()}
		if rd[i].hasInterval {
			intervals = r.Values(rd[i].interval)
		}
		for _, fp := range r.Values(rd[i].footprint) {
			for _, v := range intervals {
				iv := v.(coverage.Interval)
				rec := shpRecord{Polygon: fp.(geom.Polygon), Region: i, Footprint: rd[i].footprint.Name}
				if rd[i].hasInterval {
					rec.Interval = rd[i].interval.Name
				}
				if !iv.Start.IsZero() {
					rec.Start = iv.Start.Format(time.RFC3339)
				}
				if !iv.End.IsZero() {
					rec.End = iv.End.Format(time.RFC3339)
				}
				if err := e.Encode(rec); err != nil {
					return fmt.Errorf("coverageutil: writing shapefile: %v", err)
				}
			}
		}
	}
	return nil
}

// writeOutput writes regions to path, or to w if path is empty. Paths
// ending in .shp are written as shapefiles and anything else as JSON.
func writeOutput(w io.Writer, path string, regions []*coverage.Region) error {
	if path == "" {
		return WriteJSON(w, regions)
	}
	path = os.ExpandEnv(path)
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("coverageutil: the output directory doesn't exist: %v", err)
	}
	if strings.HasSuffix(path, ".shp") {
		return WriteShapefile(path, regions)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("coverageutil: creating output file: %v", err)
	}
	if err := WriteJSON(f, regions); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
