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

// Package tracker keeps track of which coverage has already been fetched
// and determines which parts of a query are still missing.
package tracker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/coverage"
	"github.com/spatialmodel/coverage/internal/hash"
)

// Tracker holds the coverage that is currently available. It is safe for
// concurrent use.
type Tracker struct {
	// Log receives debugging information. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger

	mu sync.RWMutex

	// covered holds the available coverage.
	covered []*coverage.Region

	// index holds the regions in covered that have a footprint, keyed by
	// the bounds of their footprints. Regions without a footprint are
	// in unindexed.
	index     *rtree.Rtree
	unindexed []*coverage.Region

	// generation is incremented every time covered changes, so that cached
	// Missing results from earlier generations are not reused.
	generation int

	processors, cacheEntries int
	missingCache             *requestcache.Cache
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used by the Tracker.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Tracker) { t.Log = log }
}

// WithCache sets the number of goroutines computing Missing results and
// the number of results kept in memory.
func WithCache(processors, entries int) Option {
	return func(t *Tracker) {
		t.processors = processors
		t.cacheEntries = entries
	}
}

// New creates a Tracker with no coverage.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		Log:          logrus.StandardLogger(),
		index:        rtree.NewTree(25, 50),
		processors:   runtime.GOMAXPROCS(-1),
		cacheEntries: 100,
	}
	for _, o := range opts {
		o(t)
	}
	if t.processors < 1 {
		panic(fmt.Errorf("tracker: invalid number of processors %d", t.processors))
	}
	if t.cacheEntries < 1 {
		panic(fmt.Errorf("tracker: invalid number of cache entries %d", t.cacheEntries))
	}
	t.missingCache = requestcache.NewCache(t.missing, t.processors,
		requestcache.Deduplicate(), requestcache.Memory(t.cacheEntries))
	return t
}

// entry is a tracked region stored in the spatial index.
type entry struct {
	geom.Polygon
	region *coverage.Region
}

// footprintBounds returns the bounds of the footprints of r, or false
// if r has no footprint.
func footprintBounds(r *coverage.Region) (*geom.Bounds, bool) {
	if !r.Has(coverage.Footprint) {
		return nil, false
	}
	b := geom.NewBounds()
	for _, v := range r.Values(coverage.Footprint) {
		b.Extend(v.(geom.Polygon).Bounds())
	}
	return b, true
}

// insert adds r to the index. The caller must hold the write lock.
func (t *Tracker) insert(r *coverage.Region) {
	b, ok := footprintBounds(r)
	if !ok {
		t.unindexed = append(t.unindexed, r)
		return
	}
	t.index.Insert(&entry{
		Polygon: coverage.BoxPolygon(b.Min.X, b.Min.Y, b.Max.X, b.Max.Y),
		region:  r,
	})
}

// reindex rebuilds the index from covered. The caller must hold the
// write lock.
func (t *Tracker) reindex() {
	t.index = rtree.NewTree(25, 50)
	t.unindexed = nil
	for _, r := range t.covered {
		t.insert(r)
	}
}

// Add records r as available coverage.
func (t *Tracker) Add(r *coverage.Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.covered = append(t.covered, r)
	t.insert(r)
	t.generation++
	t.Log.WithFields(logrus.Fields{
		"region":     r.String(),
		"generation": t.generation,
		"regions":    len(t.covered),
	}).Debug("tracker: added coverage")
}

// Evict removes r from the available coverage and returns whether any
// tracked coverage was affected. If the subtraction fails, the error is
// returned unchanged and the tracked coverage is left as it was.
func (t *Tracker) Evict(r *coverage.Region) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.covered)
	pieces := append([]*coverage.Region(nil), t.covered...)
	changed, err := coverage.SubtractAll(&pieces, []*coverage.Region{r})
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	t.covered = pieces
	t.reindex()
	t.generation++
	t.Log.WithFields(logrus.Fields{
		"region":     r.String(),
		"generation": t.generation,
		"before":     before,
		"after":      len(t.covered),
	}).Debug("tracker: evicted coverage")
	return true, nil
}

// Covered returns a snapshot of the available coverage.
func (t *Tracker) Covered() []*coverage.Region {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*coverage.Region(nil), t.covered...)
}

// Len returns the number of tracked regions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.covered)
}

// candidates returns the tracked regions that may overlap q. The caller
// must hold the read lock.
func (t *Tracker) candidates(q *coverage.Region) []*coverage.Region {
	b, ok := footprintBounds(q)
	if !ok {
		return t.covered
	}
	o := append([]*coverage.Region(nil), t.unindexed...)
	for _, g := range t.index.SearchIntersect(b) {
		o = append(o, g.(*entry).region)
	}
	return o
}

type missingRequest struct {
	query      *coverage.Region
	generation int
}

// missingResult carries errors in the payload because duplicate requests
// waiting on a failed request are never released by the cache.
type missingResult struct {
	regions []*coverage.Region
	err     error
}

// missing is the requestcache.ProcessFunc behind Missing.
func (t *Tracker) missing(_ context.Context, payload interface{}) (interface{}, error) {
	req := payload.(missingRequest)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if req.generation != t.generation {
		return missingResult{err: fmt.Errorf("tracker: coverage changed while the query was waiting")}, nil
	}
	cands := t.candidates(req.query)
	pieces := []*coverage.Region{req.query}
	_, err := coverage.SubtractAll(&pieces, cands)
	t.Log.WithFields(logrus.Fields{
		"query":      req.query.String(),
		"candidates": len(cands),
		"missing":    len(pieces),
		"generation": req.generation,
	}).Debug("tracker: computed missing coverage")
	return missingResult{regions: pieces, err: err}, nil
}

// Missing returns the parts of q that are not covered by the available
// coverage, as regions that do not overlap each other. The result is
// empty if q is fully covered.
func (t *Tracker) Missing(ctx context.Context, q *coverage.Region) ([]*coverage.Region, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.mu.RLock()
		gen := t.generation
		t.mu.RUnlock()

		key := fmt.Sprintf("%d_%s", gen, hash.Region(q))
		res, err := t.missingCache.NewRequest(ctx, missingRequest{query: q, generation: gen}, key).Result()
		if err != nil {
			return nil, err
		}
		r := res.(missingResult)
		if r.err != nil {
			t.mu.RLock()
			stale := gen != t.generation
			t.mu.RUnlock()
			if stale {
				// Coverage changed before the request ran; try again
				// with the new generation.
				continue
			}
			return nil, r.err
		}
		return append([]*coverage.Region(nil), r.regions...), nil
	}
}
