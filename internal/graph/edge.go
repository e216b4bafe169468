package graph

import "strings"

// Size is a wormhole size class; it limits the ship hulls that may pass.
type Size int

const (
	Small Size = iota
	Medium
	Large
	XLarge
)

func (s Size) String() string {
	switch s {
	case Small:
		return "Small"
	case Medium:
		return "Medium"
	case Large:
		return "Large"
	case XLarge:
		return "X-large"
	}
	return "Unknown"
}

// Valid reports whether s is one of the four known size classes.
func (s Size) Valid() bool { return s >= Small && s <= XLarge }

// ParseSize accepts a size name ("small", "X-large", "xl", ...) or its index.
func ParseSize(name string) (Size, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "small", "s", "0":
		return Small, true
	case "medium", "m", "1":
		return Medium, true
	case "large", "l", "2":
		return Large, true
	case "x-large", "xlarge", "xl", "3":
		return XLarge, true
	}
	return 0, false
}

// Life is the lifetime state of a wormhole.
type Life int

const (
	LifeStable Life = iota
	LifeCritical // end-of-life timer
)

func (l Life) String() string {
	if l == LifeStable {
		return "Stable"
	}
	return "Critical"
}

// Mass is the remaining-mass state of a wormhole.
type Mass int

const (
	MassStable Mass = iota
	MassDestabilized
	MassCritical
)

func (m Mass) String() string {
	switch m {
	case MassStable:
		return "Stable"
	case MassDestabilized:
		return "Destab"
	}
	return "Critical"
}

// SizeSet is a set of size classes.
type SizeSet uint8

// AllSizes admits every size class.
const AllSizes SizeSet = 1<<Small | 1<<Medium | 1<<Large | 1<<XLarge

// NewSizeSet builds a set from the given sizes; invalid sizes are ignored.
func NewSizeSet(sizes ...Size) SizeSet {
	var s SizeSet
	for _, sz := range sizes {
		if sz.Valid() {
			s |= 1 << sz
		}
	}
	return s
}

// Has reports whether sz is in the set.
func (s SizeSet) Has(sz Size) bool {
	return sz.Valid() && s&(1<<sz) != 0
}


// Edge is the connection from one system to a neighbour as seen from that
// system. It is either Gate or Wormhole.
type Edge interface {
	isEdge()
}

// Gate is a permanent stargate connection.
type Gate struct{}

// Wormhole is one side of a wormhole connection. Signature and Code belong to
// the side the edge is stored on; Size, Life, Mass and AgeHours are shared with
// the opposite side.
type Wormhole struct {
	Signature string
	Code      string
	Size      Size
	Life      Life
	Mass      Mass
	AgeHours  float64
}

func (Gate) isEdge()     {}
func (Wormhole) isEdge() {}

// EdgeFilter decides whether a search may traverse an edge.
type EdgeFilter func(Edge) bool

// Restrictions is the standard wormhole admissibility rule set.
// Gate edges always pass.
type Restrictions struct {
	Sizes          SizeSet
	IgnoreEOL      bool    // reject end-of-life wormholes
	IgnoreMassCrit bool    // reject mass-critical wormholes
	AgeThreshold   float64 // hours; <= 0 disables the age check
}

// Admits applies the restrictions to e.
func (r Restrictions) Admits(e Edge) bool {
	wh, ok := e.(Wormhole)
	if !ok {
		return true
	}
	if !r.Sizes.Has(wh.Size) {
		return false
	}
	if r.IgnoreEOL && wh.Life == LifeCritical {
		return false
	}
	if r.IgnoreMassCrit && wh.Mass == MassCritical {
		return false
	}
	if r.AgeThreshold > 0 && wh.AgeHours > r.AgeThreshold {
		return false
	}
	return true
}

// Filter returns Admits as an EdgeFilter.
func (r Restrictions) Filter() EdgeFilter { return r.Admits }
