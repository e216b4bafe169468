// Package navigation owns the live route graph, refreshes it from the wormhole
// feeds and answers route queries against it.
package navigation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"shortcircuit/internal/feed"
	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/sde"
)

const routeCacheSize = 512

// snapshot is one published graph. gen increases with every publish and keys
// the route cache.
type snapshot struct {
	g   *graph.Graph
	gen uint64
}

// Navigator serves route queries against the most recently published graph.
// Queries never lock: the live graph is swapped as a whole and is read-only
// once published.
type Navigator struct {
	data    *sde.Data
	sources []feed.Source

	live  atomic.Pointer[snapshot]
	pubMu sync.Mutex // orders publishes so generations never go backwards
	gen   uint64
	group singleflight.Group
	cache *lru.Cache[string, *Route]

	lastRefresh atomic.Pointer[RefreshResult]
}

// New creates a Navigator over data and publishes the gate-only graph.
// Feeds are applied in the order given.
func New(data *sde.Data, sources ...feed.Source) *Navigator {
	cache, err := lru.New[string, *Route](routeCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	n := &Navigator{data: data, sources: sources, cache: cache}
	n.Reset()
	return n
}

// Data returns the reference data the navigator was built from.
func (n *Navigator) Data() *sde.Data { return n.data }

// Graph returns the live graph.
func (n *Navigator) Graph() *graph.Graph { return n.live.Load().g }

// Generation returns the number of graphs published so far.
func (n *Navigator) Generation() uint64 { return n.live.Load().gen }

// Sources returns the names of the registered feeds.
func (n *Navigator) Sources() []string {
	names := make([]string, len(n.sources))
	for i, s := range n.sources {
		names[i] = s.Name()
	}
	return names
}

// LastRefresh returns the result of the most recent refresh, or nil.
func (n *Navigator) LastRefresh() *RefreshResult { return n.lastRefresh.Load() }

// Reset publishes a fresh graph with gates only, dropping every wormhole.
func (n *Navigator) Reset() {
	n.Publish(n.data.NewGraph())
}

// Publish makes g the live graph. g must not be modified afterwards.
func (n *Navigator) Publish(g *graph.Graph) {
	n.pubMu.Lock()
	defer n.pubMu.Unlock()
	n.gen++
	n.live.Store(&snapshot{g: g, gen: n.gen})
}

// FeedResult is the outcome of one feed during a refresh.
type FeedResult struct {
	Name  string
	Count int // wormhole records observed; meaningless when Err is set
	Err   error
}

// RefreshResult collects the per-feed outcomes of a refresh, in registration
// order.
type RefreshResult struct {
	Feeds     []FeedResult
	Published bool
	Duration  time.Duration
}

// Succeeded reports whether at least one feed was read.
func (r *RefreshResult) Succeeded() bool {
	for _, f := range r.Feeds {
		if f.Err == nil {
			return true
		}
	}
	return false
}

// Count returns the record count for the named feed, or -1 when that feed
// failed or is not registered.
func (r *RefreshResult) Count(name string) int {
	for _, f := range r.Feeds {
		if f.Name == name {
			if f.Err != nil {
				return -1
			}
			return f.Count
		}
	}
	return -1
}

// Build fetches every feed concurrently and applies the results, in
// registration order, to a new gate-only graph. The live graph is not touched.
// A failing feed does not affect the others.
func (n *Navigator) Build(ctx context.Context) (*graph.Graph, *RefreshResult) {
	start := time.Now()
	batches := make([]*feed.Batch, len(n.sources))
	errs := make([]error, len(n.sources))

	var eg errgroup.Group
	for i, src := range n.sources {
		eg.Go(func() error {
			batches[i], errs[i] = src.Fetch(ctx)
			return nil
		})
	}
	eg.Wait()

	g := n.data.NewGraph()
	res := &RefreshResult{Feeds: make([]FeedResult, len(n.sources))}
	for i, src := range n.sources {
		fr := FeedResult{Name: src.Name(), Err: errs[i]}
		if errs[i] != nil {
			logger.Warn("Refresh", fmt.Sprintf("%s failed: %v", fr.Name, errs[i]))
		} else {
			added := feed.Apply(g, batches[i])
			fr.Count = batches[i].Observed
			logger.Info("Refresh", fmt.Sprintf("%s: %d signatures, %d wormholes", fr.Name, fr.Count, added))
		}
		res.Feeds[i] = fr
	}
	res.Duration = time.Since(start)
	return g, res
}

// Refresh builds a new graph and publishes it if at least one feed succeeded.
// When every feed fails the live graph is left as it was. Concurrent calls
// share one build.
func (n *Navigator) Refresh(ctx context.Context) *RefreshResult {
	v, _, _ := n.group.Do("refresh", func() (interface{}, error) {
		g, res := n.Build(ctx)
		if res.Succeeded() {
			n.Publish(g)
			res.Published = true
			logger.Success("Refresh", fmt.Sprintf("Published graph with %d wormholes in %s", g.WormholeCount(), res.Duration.Round(time.Millisecond)))
		} else if len(res.Feeds) > 0 {
			logger.Error("Refresh", "All feeds failed, keeping current graph")
		}
		n.lastRefresh.Store(res)
		return res, nil
	})
	return v.(*RefreshResult)
}
