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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/coverage"
)

// RegionFile is the format of a region file. For example:
//
//	[[Region]]
//	  [[Region.Interval]]
//	    Start = 2016-01-01T00:00:00Z
//	    End = 2016-02-01T00:00:00Z
//	  [[Region.Footprint]]
//	    GeoJSON = '{"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}'
//	  [[Region.Footprint]]
//	    Shapefile = "${HOME}/counties.shp"
type RegionFile struct {
	Region []RegionSpec
}

// RegionSpec describes one region.
type RegionSpec struct {
	Interval  []IntervalSpec
	Footprint []FootprintSpec
}

// IntervalSpec is a time interval. A missing Start or End leaves the
// interval unbounded on that side. Dimension defaults to "time".
type IntervalSpec struct {
	Dimension  string
	Start, End time.Time
}

// FootprintSpec is a footprint given either inline as a GeoJSON polygon
// or multipolygon, or as the path to a shapefile whose shapes are all
// included. Dimension defaults to "footprint".
type FootprintSpec struct {
	Dimension string
	GeoJSON   string
	Shapefile string
}

// ReadRegions reads the regions in the TOML region file at path.
// Environment variables in shapefile paths are expanded, and relative
// shapefile paths are relative to the directory holding the region file.
func ReadRegions(path string) ([]*coverage.Region, error) {
	path = os.ExpandEnv(path)
	var rf RegionFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return nil, fmt.Errorf("coverageutil: reading region file %s: %v", path, err)
	}
	dir := filepath.Dir(path)
	o := make([]*coverage.Region, len(rf.Region))
	for i, spec := range rf.Region {
		r, err := spec.build(dir)
		if err != nil {
			return nil, fmt.Errorf("coverageutil: region %d in %s: %v", i, path, err)
		}
		o[i] = r
	}
	return o, nil
}

func (spec RegionSpec) build(dir string) (*coverage.Region, error) {
	b := coverage.NewBuilder()
	for _, iv := range spec.Interval {
		d := coverage.Time
		if iv.Dimension != "" {
			d = coverage.Dimension{Name: iv.Dimension, Kind: coverage.IntervalKind}
		}
		v := coverage.Interval{Start: iv.Start, End: iv.End}
		if v.Empty() {
			return nil, fmt.Errorf("empty interval %v", v)
		}
		b.Add(d, v)
	}
	s, err := coverage.StrategyFor(coverage.FootprintKind)
	if err != nil {
		return nil, err
	}
	for _, fp := range spec.Footprint {
		d := coverage.Footprint
		if fp.Dimension != "" {
			d = coverage.Dimension{Name: fp.Dimension, Kind: coverage.FootprintKind}
		}
		polys, err := fp.polygons(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range polys {
			if err := s.Validate(p); err != nil {
				return nil, err
			}
			b.Add(d, p)
		}
	}
	return b.Create(), nil
}

// polygons returns the polygons described by fp, with one outer ring each.
func (fp FootprintSpec) polygons(dir string) ([]geom.Polygon, error) {
	var raw []geom.Polygon
	switch {
	case fp.GeoJSON != "" && fp.Shapefile != "":
		return nil, fmt.Errorf("footprint has both GeoJSON and Shapefile set")
	case fp.GeoJSON != "":
		g, err := geojson.Decode([]byte(fp.GeoJSON))
		if err != nil {
			return nil, fmt.Errorf("decoding footprint GeoJSON: %v", err)
		}
		p, err := polygonal(g)
		if err != nil {
			return nil, err
		}
		raw = p
	case fp.Shapefile != "":
		p, err := readShapefile(resolve(dir, fp.Shapefile))
		if err != nil {
			return nil, err
		}
		raw = p
	default:
		return nil, fmt.Errorf("footprint has neither GeoJSON nor Shapefile set")
	}
	sp := spatial()
	var o []geom.Polygon
	for i, p := range raw {
		n := sp.Normalize(p)
		if len(n) == 0 {
			return nil, fmt.Errorf("footprint polygon %d has no area", i)
		}
		o = append(o, n...)
	}
	return o, nil
}

func resolve(dir, path string) string {
	path = os.ExpandEnv(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// polygonal returns the polygons in g.
func polygonal(g geom.Geom) ([]geom.Polygon, error) {
	switch t := g.(type) {
	case geom.Polygon:
		return []geom.Polygon{t}, nil
	case geom.MultiPolygon:
		return t, nil
	default:
		return nil, fmt.Errorf("footprint geometry must be a polygon or multipolygon, not %T", g)
	}
}

// readShapefile returns all of the polygons in the shapefile at path.
func readShapefile(path string) ([]geom.Polygon, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening footprint shapefile: %v", err)
	}
	defer d.Close()
	var o []geom.Polygon
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if g == nil {
			continue
		}
		p, err := polygonal(g)
		if err != nil {
			return nil, fmt.Errorf("shapefile %s: %v", path, err)
		}
		o = append(o, p...)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("reading footprint shapefile: %v", err)
	}
	return o, nil
}

// spatial returns the registered footprint strategy.
func spatial() coverage.Spatial {
	s, err := coverage.StrategyFor(coverage.FootprintKind)
	if err != nil {
		panic(err)
	}
	if sp, ok := s.(coverage.Spatial); ok {
		return sp
	}
	return coverage.NewSpatial(coverage.DefaultTolerance)
}
