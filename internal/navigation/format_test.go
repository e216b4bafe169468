package navigation

import (
	"strings"
	"testing"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/sde"
)

func TestFormat_Mixed(t *testing.T) {
	systems := `1;One;HS;1.0
2;Two;HS;0.9
3;Three;LS;0.2
4;Four;C2;-1.0
5;Five;C2;-1.0
6;Six;C5;-1.0
`
	data, err := sde.Parse(strings.NewReader(""), strings.NewReader(systems), strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	g := data.NewGraph()
	g.AddGate(1, 2)
	g.AddGate(2, 3)
	g.AddWormhole(3, 4, graph.WormholeLink{
		SigA: "AAA", CodeA: "N110", SigB: "BBB", CodeB: "K162",
		Size: graph.Large, Life: graph.LifeCritical, Mass: graph.MassDestabilized, AgeHours: 3.0,
	})
	g.AddGate(4, 5)
	g.AddGate(5, 6)

	r := Format(g, data, []int32{1, 2, 3, 4, 5, 6})
	if want := "One-->...-->Three[AAA]~~>Four-->...-->Six"; r.Short != want {
		t.Errorf("Short = %q, want %q", r.Short, want)
	}
	if r.Jumps != 5 || r.Wormholes != 1 {
		t.Errorf("Jumps=%d Wormholes=%d", r.Jumps, r.Wormholes)
	}

	wh := r.Hops[2]
	if wh.Instructions != "Jump wormhole AAA[N110]" {
		t.Errorf("Instructions = %q", wh.Instructions)
	}
	if want := "Return sig: BBB[K162], Size: Large, Life: Critical, Mass: Destab, Updated: 3.0h ago"; wh.Info != want {
		t.Errorf("Info = %q, want %q", wh.Info, want)
	}
	if wh.Class != "LS" || wh.Security != 0.2 {
		t.Errorf("hop = %+v", wh)
	}
	if r.Hops[0].Instructions != "Jump gate" || r.Hops[0].Info != "" {
		t.Errorf("gate hop = %+v", r.Hops[0])
	}
	if last := r.Hops[5]; last.Instructions != "Destination reached" || last.Name != "Six" {
		t.Errorf("last hop = %+v", last)
	}
}

func TestFormat_Short(t *testing.T) {
	systems := `1;One;HS;1.0
2;Two;HS;1.0
3;Three;C1;-1.0
4;Four;C1;-1.0
`
	data, err := sde.Parse(strings.NewReader("1;2\n"), strings.NewReader(systems), strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	g := data.NewGraph()
	wh := graph.WormholeLink{SigA: "S1", SigB: "S2", Size: graph.Medium}
	g.AddWormhole(2, 3, wh)
	wh.SigA, wh.SigB = "S3", "S4"
	g.AddWormhole(3, 4, wh)

	tests := []struct {
		path []int32
		want string
	}{
		{[]int32{1}, "One"},
		{[]int32{1, 2}, "One-->Two"},
		{[]int32{2, 3}, "Two[S1]~~>Three"},
		{[]int32{1, 2, 3}, "One-->Two[S1]~~>Three"},
		{[]int32{2, 3, 4}, "Two[S1]~~>Three[S3]~~>Four"},
		{[]int32{4, 3, 2, 1}, "Four[S4]~~>Three[S2]~~>Two-->One"},
	}
	for _, tt := range tests {
		if got := Format(g, data, tt.path).Short; got != tt.want {
			t.Errorf("Format(%v).Short = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRiskTable_CostFunc(t *testing.T) {
	systems := "1;Hi;HS;1.0\n2;Lo;LS;0.2\n3;Null;NS;-0.5\n4;Hole;C4;-1.0\n"
	data, err := sde.Parse(strings.NewReader(""), strings.NewReader(systems), strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	cost := RiskTable{HS: 1, LS: 2, NS: 3, WSpace: 4}.CostFunc(data)
	tests := []struct {
		to   int32
		edge graph.Edge
		want float64
	}{
		{1, graph.Gate{}, 1},
		{2, graph.Gate{}, 2},
		{3, graph.Gate{}, 3},
		{4, graph.Gate{}, 4},
		{1, graph.Wormhole{}, 4},
		{99, graph.Gate{}, 4},
	}
	for _, tt := range tests {
		if got := cost(tt.to, tt.edge); got != tt.want {
			t.Errorf("cost(%d, %T) = %v, want %v", tt.to, tt.edge, got, tt.want)
		}
	}
}
