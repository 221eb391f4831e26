/*
Copyright © 2019 the InMAP authors.
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
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash creates cache keys for coverage regions.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/spatialmodel/coverage"
)

// Hash returns a hash key for the specified object.
func Hash(object interface{}) string {
	h := fnv.New128a()

	e := gob.NewEncoder(h)
	if err := e.Encode(object); err == nil {
		bKey := h.Sum([]byte{})
		return fmt.Sprintf("%x", bKey[0:h.Size()])
	}
	// If there is an error (e.g., the object has no exported fields)
	// use spew instead of gob.
	h.Reset()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", object)
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

type axis struct {
	Name, Kind string
	Values     []string
}

// Region returns a hash key for r. Regions holding the same values in a
// different order have the same key.
func Region(r *coverage.Region) string {
	dims := r.Dimensions()
	axes := make([]axis, len(dims))
	for i, d := range dims {
		s, err := coverage.StrategyFor(d.Kind)
		if err != nil {
			panic(err)
		}
		values := r.Values(d)
		a := axis{Name: d.Name, Kind: string(d.Kind), Values: make([]string, len(values))}
		for j, v := range values {
			a.Values[j] = s.Format(v)
		}
		sort.Strings(a.Values)
		axes[i] = a
	}
	return Hash(axes)
}
