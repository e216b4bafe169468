package navigation

import (
	"fmt"
	"strings"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/sde"
)

// Hop is one row of a formatted route.
type Hop struct {
	SystemID     int32   `json:"system_id"`
	Name         string  `json:"name"`
	Class        string  `json:"class"`
	Security     float64 `json:"security"`
	Instructions string  `json:"instructions"`
	Info         string  `json:"info,omitempty"`
}

// Route is a formatted path. Routes returned by a Navigator may be shared
// between callers and must not be modified.
type Route struct {
	Hops      []Hop   `json:"hops"`
	Short     string  `json:"short"`
	Jumps     int     `json:"jumps"`
	Wormholes int     `json:"wormholes"`
	Risk      float64 `json:"risk,omitempty"`
}

// Format renders path as one row per system plus a one-line summary in which
// runs of gate jumps collapse to "..." and every wormhole is shown with its
// signature.
func Format(g *graph.Graph, data *sde.Data, path []int32) *Route {
	r := &Route{Hops: make([]Hop, 0, len(path))}
	if len(path) > 0 {
		r.Jumps = len(path) - 1
	}

	var short strings.Builder
	// gateStart is the system a running gate chain began at.
	var gateStart int32
	inGates := false
	dots := func(idx int) {
		if inGates && gateStart != path[idx-1] {
			short.WriteString("...-->")
		}
	}

	for idx, id := range path {
		hop := Hop{SystemID: id, Name: fmt.Sprint(id), Class: sde.ClassUnknown.String()}
		if sys := data.System(id); sys != nil {
			hop.Name = sys.Name
			hop.Class = sys.Class.String()
			hop.Security = sys.Security
		}

		if idx == len(path)-1 {
			hop.Instructions = "Destination reached"
			if idx > 0 {
				dots(idx)
			}
			short.WriteString(hop.Name)
			r.Hops = append(r.Hops, hop)
			break
		}

		next := path[idx+1]
		edge, _ := g.Edge(id, next)
		switch e := edge.(type) {
		case graph.Wormhole:
			r.Wormholes++
			hop.Instructions = fmt.Sprintf("Jump wormhole %s[%s]", e.Signature, e.Code)
			if back, ok := g.Edge(next, id); ok {
				hop.Info = returnInfo(back)
			}
			if idx > 0 {
				dots(idx)
			}
			fmt.Fprintf(&short, "%s[%s]~~>", hop.Name, e.Signature)
			inGates = false
		default:
			hop.Instructions = "Jump gate"
			if !inGates {
				short.WriteString(hop.Name + "-->")
				gateStart = id
				inGates = true
			}
		}
		r.Hops = append(r.Hops, hop)
	}
	r.Short = short.String()
	return r
}

// returnInfo describes the far side of a wormhole, as seen when coming back.
func returnInfo(e graph.Edge) string {
	wh, ok := e.(graph.Wormhole)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Return sig: %s[%s], Size: %s, Life: %s, Mass: %s, Updated: %.1fh ago",
		wh.Signature, wh.Code, wh.Size, wh.Life, wh.Mass, wh.AgeHours)
}
