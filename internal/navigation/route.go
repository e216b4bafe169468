package navigation

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/sde"
)

var (
	ErrUnknownSystem = errors.New("unknown system")
	ErrNoRoute       = errors.New("no route")
	ErrInvalidRisk   = errors.New("invalid risk table")
)

// Request describes a route query by system name.
type Request struct {
	Source       string
	Destination  string
	Avoid        []string
	Restrictions graph.Restrictions
}

// RiskTable assigns a danger value to entering each risk bucket.
type RiskTable struct {
	HS     float64 `json:"hs" toml:"hs"`
	LS     float64 `json:"ls" toml:"ls"`
	NS     float64 `json:"ns" toml:"ns"`
	WSpace float64 `json:"wh" toml:"wh"`
}

// DefaultRisk prefers high-sec and treats every wormhole jump as the most
// dangerous move.
func DefaultRisk() RiskTable {
	return RiskTable{HS: 1, LS: 10, NS: 20, WSpace: 50}
}

// Validate rejects negative or non-finite entries.
func (t RiskTable) Validate() error {
	for _, v := range []float64{t.HS, t.LS, t.NS, t.WSpace} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidRisk, v)
		}
	}
	return nil
}

// For returns the risk of bucket b.
func (t RiskTable) For(b sde.RiskBucket) float64 {
	switch b {
	case sde.RiskHS:
		return t.HS
	case sde.RiskLS:
		return t.LS
	case sde.RiskNS:
		return t.NS
	}
	return t.WSpace
}

// CostFunc prices a gate hop by the bucket of the system entered and every
// wormhole hop as wormhole space.
func (t RiskTable) CostFunc(data *sde.Data) graph.CostFunc {
	return func(to int32, e graph.Edge) float64 {
		if _, ok := e.(graph.Wormhole); ok {
			return t.WSpace
		}
		return t.For(data.ClassOf(to).RiskBucket())
	}
}

// query is a Request resolved to system ids.
type query struct {
	source, dest int32
	avoid        map[int32]bool
	admit        graph.EdgeFilter
}

func (n *Navigator) resolve(req Request) (*query, error) {
	source, ok := n.data.SystemID(req.Source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, req.Source)
	}
	dest, ok := n.data.SystemID(req.Destination)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, req.Destination)
	}
	q := &query{source: source, dest: dest, avoid: make(map[int32]bool, len(req.Avoid)), admit: req.Restrictions.Filter()}
	for _, name := range req.Avoid {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, ok := n.data.SystemID(name)
		if !ok {
			logger.Warn("Route", fmt.Sprintf("Ignoring unknown avoided system %q", name))
			continue
		}
		q.avoid[id] = true
	}
	return q, nil
}

// Route finds the route with the fewest jumps.
func (n *Navigator) Route(req Request) (*Route, error) {
	q, err := n.resolve(req)
	if err != nil {
		return nil, err
	}
	snap := n.live.Load()
	key := cacheKey(snap.gen, "hops", q, req.Restrictions, nil)
	if r, ok := n.cache.Get(key); ok {
		return r, nil
	}
	path := graph.ShortestPath(snap.g, q.source, q.dest, q.avoid, q.admit)
	if path == nil {
		return nil, n.noRoute(q)
	}
	r := Format(snap.g, n.data, path)
	n.cache.Add(key, r)
	return r, nil
}

// RouteWeighted finds the route with the lowest total risk under table.
func (n *Navigator) RouteWeighted(req Request, table RiskTable) (*Route, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	q, err := n.resolve(req)
	if err != nil {
		return nil, err
	}
	snap := n.live.Load()
	key := cacheKey(snap.gen, "risk", q, req.Restrictions, &table)
	if r, ok := n.cache.Get(key); ok {
		return r, nil
	}
	cost := table.CostFunc(n.data)
	path := graph.ShortestPathWeighted(snap.g, q.source, q.dest, q.avoid, q.admit, cost)
	if path == nil {
		return nil, n.noRoute(q)
	}
	r := Format(snap.g, n.data, path)
	r.Risk, _ = graph.PathCost(snap.g, path, cost)
	n.cache.Add(key, r)
	return r, nil
}

// noRoute names both endpoints by their canonical spelling.
func (n *Navigator) noRoute(q *query) error {
	from, _ := n.data.SystemName(q.source)
	to, _ := n.data.SystemName(q.dest)
	return fmt.Errorf("%w: %s to %s", ErrNoRoute, from, to)
}

func cacheKey(gen uint64, mode string, q *query, r graph.Restrictions, table *RiskTable) string {
	avoid := make([]int32, 0, len(q.avoid))
	for id := range q.avoid {
		avoid = append(avoid, id)
	}
	slices.Sort(avoid)

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%d|%d|%d|%t|%t|%g|", gen, mode, q.source, q.dest, r.Sizes, r.IgnoreEOL, r.IgnoreMassCrit, r.AgeThreshold)
	for _, id := range avoid {
		b.WriteString(strconv.Itoa(int(id)))
		b.WriteByte(',')
	}
	if table != nil {
		fmt.Fprintf(&b, "|%g,%g,%g,%g", table.HS, table.LS, table.NS, table.WSpace)
	}
	return b.String()
}
