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
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/coverage"
)

const minuendFile = `
[[Region]]
  [[Region.Interval]]
    Start = 2016-01-01T00:00:00Z
    End = 2016-03-01T00:00:00Z
  [[Region.Footprint]]
    GeoJSON = '{"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}'
`

const timeFile = `
[[Region]]
  [[Region.Interval]]
    Start = 2016-02-01T00:00:00Z
    End = 2016-04-01T00:00:00Z
`

const footprintFile = `
[[Region]]
  [[Region.Footprint]]
    GeoJSON = '{"type": "MultiPolygon", "coordinates": [[[[0,0],[5,0],[5,10],[0,10],[0,0]]]]}'
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func tempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "coverageutil")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

func month(m time.Month) time.Time {
	return time.Date(2016, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestReadRegions(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	regions, err := ReadRegions(writeFile(t, dir, "a.toml", minuendFile))
	if err != nil {
		t.Fatal(err)
	}
	want := coverage.NewBuilder().
		Add(coverage.Time, coverage.Interval{Start: month(time.January), End: month(time.March)}).
		Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 10, 10)).
		Create()
	if len(regions) != 1 {
		t.Fatalf("have %d regions, want 1", len(regions))
	}
	if !regions[0].Equal(want) {
		t.Errorf("have %v, want %v", regions[0], want)
	}

	regions, err = ReadRegions(writeFile(t, dir, "b.toml", timeFile))
	if err != nil {
		t.Fatal(err)
	}
	if regions[0].Has(coverage.Footprint) {
		t.Error("region without footprints should not restrict the footprint")
	}
}

func TestReadRegionsInvalid(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	for name, contents := range map[string]string{
		"empty interval": `
[[Region]]
  [[Region.Interval]]
    Start = 2016-02-01T00:00:00Z
    End = 2016-01-01T00:00:00Z
`,
		"point": `
[[Region]]
  [[Region.Footprint]]
    GeoJSON = '{"type": "Point", "coordinates": [1, 2]}'
`,
		"no geometry": `
[[Region]]
  [[Region.Footprint]]
    Dimension = "land"
`,
		"flat polygon": `
[[Region]]
  [[Region.Footprint]]
    GeoJSON = '{"type": "Polygon", "coordinates": [[[0,0],[10,0],[20,0],[0,0]]]}'
`,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, strings.Replace(name, " ", "_", -1)+".toml", contents)
			if _, err := ReadRegions(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestShapefileRoundTrip(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	r := coverage.NewBuilder().
		Add(coverage.Time, coverage.Interval{Start: month(time.January), End: month(time.February)}).
		Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 1, 1)).
		Add(coverage.Footprint, coverage.BoxPolygon(2, 0, 3, 1)).
		Create()
	shpPath := filepath.Join(dir, "out.shp")
	if err := WriteShapefile(shpPath, []*coverage.Region{r}); err != nil {
		t.Fatal(err)
	}

	d, err := shp.NewDecoder(shpPath)
	if err != nil {
		t.Fatal(err)
	}
	var records int
	for {
		g, fields, more := d.DecodeRowFields("Region", "Start", "End")
		if !more {
			break
		}
		if _, ok := g.(geom.Polygon); !ok {
			t.Errorf("record %d is a %T", records, g)
		}
		if fields["Start"] != "2016-01-01T00:00:00Z" || fields["End"] != "2016-02-01T00:00:00Z" {
			t.Errorf("record %d: fields %v", records, fields)
		}
		records++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	d.Close()
	if records != 2 {
		t.Errorf("have %d records, want 2", records)
	}

	// Read the shapefile back in as a footprint.
	path := writeFile(t, dir, "shp.toml", `
[[Region]]
  [[Region.Footprint]]
    Shapefile = "out.shp"
`)
	regions, err := ReadRegions(path)
	if err != nil {
		t.Fatal(err)
	}
	want := coverage.NewBuilder().
		Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 1, 1)).
		Add(coverage.Footprint, coverage.BoxPolygon(2, 0, 3, 1)).
		Create()
	if !regions[0].Equal(want) {
		t.Errorf("have %v, want %v", regions[0], want)
	}
}

func TestWriteShapefileNoFootprint(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	err := WriteShapefile(filepath.Join(dir, "out.shp"), []*coverage.Region{coverage.Universal()})
	if err == nil {
		t.Error("expected an error")
	}
}

func TestWriteShapefileNamedInterval(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	date := coverage.Dimension{Name: "date", Kind: coverage.IntervalKind}
	r := coverage.NewBuilder().
		Add(date, coverage.Interval{Start: month(time.March), End: month(time.April)}).
		Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 1, 1)).
		Create()
	shpPath := filepath.Join(dir, "out.shp")
	if err := WriteShapefile(shpPath, []*coverage.Region{r}); err != nil {
		t.Fatal(err)
	}

	d, err := shp.NewDecoder(shpPath)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var records int
	for {
		_, fields, more := d.DecodeRowFields("Footprint", "Interval", "Start", "End")
		if !more {
			break
		}
		want := map[string]string{
			"Footprint": "footprint",
			"Interval":  "date",
			"Start":     "2016-03-01T00:00:00Z",
			"End":       "2016-04-01T00:00:00Z",
		}
		for k, v := range want {
			if fields[k] != v {
				t.Errorf("record %d: %s = %q, want %q", records, k, fields[k], v)
			}
		}
		records++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if records != 1 {
		t.Errorf("have %d records, want 1", records)
	}
}

func TestWriteShapefileUnsupportedDimensions(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	box := coverage.BoxPolygon(0, 0, 1, 1)
	iv := coverage.Interval{Start: month(time.March), End: month(time.April)}
	tests := []struct {
		name string
		r    *coverage.Region
	}{
		{
			name: "two intervals",
			r: coverage.NewBuilder().
				Add(coverage.Time, iv).
				Add(coverage.Dimension{Name: "date", Kind: coverage.IntervalKind}, iv).
				Add(coverage.Footprint, box).
				Create(),
		},
		{
			name: "two footprints",
			r: coverage.NewBuilder().
				Add(coverage.Footprint, box).
				Add(coverage.Dimension{Name: "site", Kind: coverage.FootprintKind}, box).
				Create(),
		},
		{
			name: "interval only",
			r:    coverage.NewBuilder().Add(coverage.Time, iv).Create(),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.Replace(test.name, " ", "_", -1)+".shp")
			if err := WriteShapefile(path, []*coverage.Region{test.r}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDiff(t *testing.T) {
	a := []*coverage.Region{coverage.NewBuilder().
		Add(coverage.Time, coverage.Interval{Start: month(time.January), End: month(time.March)}).
		Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 10, 10)).
		Create()}
	b := []*coverage.Region{
		coverage.NewBuilder().Add(coverage.Time, coverage.Interval{Start: month(time.February)}).Create(),
		coverage.NewBuilder().Add(coverage.Footprint, coverage.BoxPolygon(0, 0, 5, 10)).Create(),
	}
	result, err := Diff(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := coverage.NewBuilder().
		Add(coverage.Time, coverage.Interval{Start: month(time.January), End: month(time.February)}).
		Add(coverage.Footprint, coverage.BoxPolygon(5, 0, 10, 10)).
		Create()
	if len(result) != 1 || !result[0].Equal(want) {
		t.Errorf("have %v, want [%v]", result, want)
	}
}

func decodeOutput(t *testing.T, b []byte) []jsonRegion {
	t.Helper()
	var o []jsonRegion
	if err := json.Unmarshal(b, &o); err != nil {
		t.Fatalf("%v: %s", err, b)
	}
	return o
}

func TestDiffCmd(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	Cfg.Set("minuend", writeFile(t, dir, "a.toml", minuendFile))
	Cfg.Set("subtrahend", writeFile(t, dir, "b.toml", timeFile))
	Cfg.Set("output", "")
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"diff"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	o := decodeOutput(t, buf.Bytes())
	if len(o) != 1 {
		t.Fatalf("have %d regions, want 1", len(o))
	}
	dims := o[0].Dimensions
	if len(dims) != 2 || dims[0].Name != "footprint" || dims[1].Name != "time" {
		t.Fatalf("dimensions: %+v", dims)
	}
	if len(dims[0].Footprints) != 1 || dims[0].Footprints[0].Type != "Polygon" {
		t.Errorf("footprints: %+v", dims[0].Footprints)
	}
	ivs := dims[1].Intervals
	if len(ivs) != 1 || ivs[0].Start == nil || ivs[0].End == nil ||
		!ivs[0].Start.Equal(month(time.January)) || !ivs[0].End.Equal(month(time.February)) {
		t.Errorf("intervals: %+v", ivs)
	}
}

func TestMissingCmd(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	outPath := filepath.Join(dir, "missing.json")
	Cfg.Set("minuend", writeFile(t, dir, "a.toml", minuendFile))
	Cfg.Set("subtrahend", writeFile(t, dir, "b.toml", footprintFile))
	Cfg.Set("output", outPath)
	defer Cfg.Set("output", "")
	Root.SetArgs([]string{"missing"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	b, err := ioutil.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	o := decodeOutput(t, b)
	if len(o) != 1 {
		t.Fatalf("have %d regions, want 1", len(o))
	}
	if fp := o[0].Dimensions[0].Footprints; len(fp) != 1 {
		t.Errorf("footprints: %+v", fp)
	}
}

func TestMissingCmdShapefile(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	outPath := filepath.Join(dir, "missing.shp")
	Cfg.Set("minuend", writeFile(t, dir, "a.toml", minuendFile))
	Cfg.Set("subtrahend", writeFile(t, dir, "b.toml", footprintFile))
	Cfg.Set("output", outPath)
	defer Cfg.Set("output", "")
	Root.SetArgs([]string{"missing"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatal(err)
	}
}

func TestDiffCmdNoMinuend(t *testing.T) {
	Cfg.Set("minuend", "")
	Root.SetArgs([]string{"diff"})
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	if err := Root.Execute(); err == nil {
		t.Error("expected an error")
	}
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "coverage v" + coverage.Version + "\n"; buf.String() != want {
		t.Errorf("have %q, want %q", buf.String(), want)
	}
}

func TestTolerance(t *testing.T) {
	Cfg.Set("tolerance", -1.0)
	if err := Root.PersistentPreRunE(nil, nil); err == nil {
		t.Error("expected an error for a negative tolerance")
	}
	Cfg.Set("tolerance", 1.0e-6)
	defer func() {
		Cfg.Set("tolerance", coverage.DefaultTolerance)
		if err := Root.PersistentPreRunE(nil, nil); err != nil {
			t.Fatal(err)
		}
	}()
	if err := Root.PersistentPreRunE(nil, nil); err != nil {
		t.Fatal(err)
	}
	s, err := coverage.StrategyFor(coverage.FootprintKind)
	if err != nil {
		t.Fatal(err)
	}
	if tol := s.(coverage.Spatial).Tolerance; tol != 1.0e-6 {
		t.Errorf("have tolerance %g, want 1e-6", tol)
	}
}
