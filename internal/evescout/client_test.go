package evescout

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"shortcircuit/internal/feed"
	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type codeSizes struct{}

func (codeSizes) WormholeSize(codeSource, codeDest string, source, dest int32) (graph.Size, bool) {
	if codeSource == "Q063" || codeDest == "Q063" {
		return graph.Small, true
	}
	if source == 666 || dest == 666 {
		return 0, false
	}
	return graph.XLarge, true
}

const theraJSON = `[
	{"sourceSolarSystem": {"id": 31000005}, "destinationSolarSystem": {"id": 30002187},
	 "signatureId": "AAA-001", "sourceWormholeType": {"name": "K162"},
	 "wormholeDestinationSignatureId": "BBB-002", "destinationWormholeType": {"name": "Q063"},
	 "wormholeEol": "stable", "updatedAt": "2024-05-01T10:00:00.000Z"},
	{"sourceSolarSystem": {"id": 31000005}, "destinationSolarSystem": {"id": "30000142"},
	 "signatureId": "CCC-003", "sourceWormholeType": {"name": "K162"},
	 "wormholeDestinationSignatureId": "DDD-004", "destinationWormholeType": {"name": "H296"},
	 "wormholeEol": "critical", "wormholeMass": "destab", "updatedAt": "2024-05-01T11:00:00.000Z"},
	{"sourceSolarSystem": {"id": 31000005}, "destinationSolarSystem": {"id": 0},
	 "signatureId": "EEE-005", "wormholeEol": "stable", "updatedAt": "2024-05-01T11:00:00.000Z"},
	{"sourceSolarSystem": {"id": 31000005}, "destinationSolarSystem": {"id": 666},
	 "signatureId": "FFF-006", "wormholeEol": "stable", "updatedAt": "2024-05-01T11:00:00.000Z"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, codeSizes{}, time.Second)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request without user agent")
		}
		w.Write([]byte(theraJSON))
	})

	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if batch.Observed != 4 {
		t.Errorf("Observed = %d, want 4", batch.Observed)
	}
	if len(batch.Connections) != 2 {
		t.Fatalf("Connections = %d, want 2", len(batch.Connections))
	}

	first := batch.Connections[0]
	if first.Source != 31000005 || first.Dest != 30002187 {
		t.Errorf("endpoints = %d/%d", first.Source, first.Dest)
	}
	if first.Size != graph.Small || first.Life != graph.LifeStable || first.Mass != graph.MassStable {
		t.Errorf("first = %v/%v/%v", first.Size, first.Life, first.Mass)
	}
	if first.AgeHours != 2.0 {
		t.Errorf("AgeHours = %v, want 2.0", first.AgeHours)
	}
	if first.SigDest != "BBB-002" || first.CodeDest != "Q063" {
		t.Errorf("dest sig = %s[%s]", first.SigDest, first.CodeDest)
	}

	second := batch.Connections[1]
	if second.Life != graph.LifeCritical || second.Mass != graph.MassDestabilized {
		t.Errorf("second = %v/%v", second.Life, second.Mass)
	}
	if second.Dest != 30000142 {
		t.Errorf("string id dest = %d", second.Dest)
	}
}

func TestFetch_Augment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(theraJSON))
	})
	g := graph.New()
	n, err := feed.Augment(context.Background(), c, g)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
	if g.WormholeCount() != 2 {
		t.Errorf("WormholeCount = %d, want 2", g.WormholeCount())
	}
}

func TestFetch_MalformedRecordSkipped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"sourceSolarSystem": {"id": 31000005}, "destinationSolarSystem": {"id": 30002187},
			 "signatureId": "AAA-001", "sourceWormholeType": {"name": "K162"},
			 "destinationWormholeType": {"name": "Q063"},
			 "wormholeEol": "stable", "updatedAt": "2024-05-01T10:00:00.000Z"},
			{"sourceSolarSystem": "bogus", "destinationSolarSystem": {"id": 30000142},
			 "signatureId": "BAD-000", "wormholeEol": "stable", "updatedAt": "2024-05-01T10:00:00.000Z"},
			"not a record"
		]`))
	})
	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if batch.Observed != 3 {
		t.Errorf("Observed = %d, want 3", batch.Observed)
	}
	if len(batch.Connections) != 1 || batch.Connections[0].SigSource != "AAA-001" {
		t.Errorf("Connections = %+v, want AAA-001 only", batch.Connections)
	}
}

func TestFetch_EmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if batch.Observed != 0 {
		t.Errorf("Observed = %d, want 0", batch.Observed)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		unreach bool
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) }, true},
		{"not json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, feed.ErrUnreachable); got != tt.unreach {
				t.Errorf("ErrUnreachable = %v, want %v (%v)", got, tt.unreach, err)
			}
		})
	}
}

func TestParseMass(t *testing.T) {
	tests := []struct {
		mass, eol string
		want      graph.Mass
	}{
		{"", "stable", graph.MassStable},
		{"", "destab", graph.MassDestabilized},
		{"", "critical", graph.MassCritical},
		{"Stable", "critical", graph.MassStable},
		{"destabilized", "stable", graph.MassDestabilized},
	}
	for _, tt := range tests {
		if got := parseMass(tt.mass, tt.eol); got != tt.want {
			t.Errorf("parseMass(%q, %q) = %v, want %v", tt.mass, tt.eol, got, tt.want)
		}
	}
}
