// Package feed defines the contract shared by the wormhole signature feeds and
// the normalization helpers they use to turn wire records into graph edges.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
)

// Connection is one wormhole reported by a feed, already normalized.
type Connection struct {
	Source     int32
	Dest       int32
	SigSource  string
	CodeSource string
	SigDest    string
	CodeDest   string
	Size       graph.Size
	Life       graph.Life
	Mass       graph.Mass
	AgeHours   float64
}

// Batch is the result of one successful feed fetch. Observed counts every
// wormhole record the feed reported, including those that could not be turned
// into a Connection.
type Batch struct {
	Observed    int
	Connections []Connection
}

// Source is a wormhole feed. A non-nil error means the feed could not be read
// at all; an empty Batch with a nil error is a legitimate empty result.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Batch, error)
}

// SizeResolver determines a wormhole's size from its type codes, falling back
// to the classes of the connected systems.
type SizeResolver interface {
	WormholeSize(codeSource, codeDest string, source, dest int32) (graph.Size, bool)
}

// ErrUnreachable wraps transport and HTTP status failures.
var ErrUnreachable = errors.New("feed unreachable")

// Apply inserts every connection of b into g and returns how many edges were
// added.
func Apply(g *graph.Graph, b *Batch) int {
	if b == nil {
		return 0
	}
	added := 0
	for _, c := range b.Connections {
		err := g.AddWormhole(c.Source, c.Dest, graph.WormholeLink{
			SigA: c.SigSource, CodeA: c.CodeSource,
			SigB: c.SigDest, CodeB: c.CodeDest,
			Size: c.Size, Life: c.Life, Mass: c.Mass, AgeHours: c.AgeHours,
		})
		if err != nil {
			logger.Warn("Feed", fmt.Sprintf("Skipping wormhole %d -> %d: %v", c.Source, c.Dest, err))
			continue
		}
		added++
	}
	return added
}

// Augment fetches from src and adds the result to g. It returns the number of
// wormhole records the feed reported.
func Augment(ctx context.Context, src Source, g *graph.Graph) (int, error) {
	b, err := src.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	Apply(g, b)
	return b.Observed, nil
}

// ID is a system identifier that tolerates the loose typing of feed JSON:
// numbers, numeric strings and null are accepted, anything malformed decodes
// to zero.
type ID int32

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = 0
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		if v == math.Trunc(v) && v > 0 && v <= math.MaxInt32 {
			*id = ID(v)
		}
	case string:
		*id = ID(ParseID(v))
	}
	return nil
}

// Text is a string field that also accepts JSON numbers and null.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		*t = Text(strings.TrimSpace(v))
	case float64:
		*t = Text(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return nil
}

func (t Text) String() string { return string(t) }

// ParseID converts a decimal system id. Malformed or out-of-range values
// return 0.
func ParseID(s string) int32 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || n < 0 {
		return 0
	}
	return int32(n)
}

// AgeHours returns the hours elapsed between then and now, rounded to one
// decimal place.
func AgeHours(now, then time.Time) float64 {
	h := now.Sub(then).Hours()
	return math.Round(h*10) / 10
}
