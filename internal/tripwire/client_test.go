package tripwire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
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

// codeSizes resolves H296 and E004 by code; everything else falls back to Medium
// unless the system is 666, which has no known class.
type codeSizes struct{}

func (codeSizes) WormholeSize(codeSource, codeDest string, source, dest int32) (graph.Size, bool) {
	for _, c := range []string{codeSource, codeDest} {
		switch c {
		case "H296":
			return graph.XLarge, true
		case "E004":
			return graph.Small, true
		}
	}
	if source == 666 || dest == 666 {
		return 0, false
	}
	return graph.Medium, true
}

const chainJSON = `{"chain": {"map": [
	{"type": "GATE", "systemID": "30000142", "connectionID": "30000144", "signatureID": "", "life": "Stable", "mass": "Stable", "time": "2024-05-01 10:00:00"},
	{"type": "H296", "systemID": "30000142", "connectionID": "31000005", "signatureID": "ABC", "sig2ID": "XYZ", "sig2Type": "K162", "life": "Stable", "mass": "Destab", "time": "2024-05-01 10:00:00"},
	{"type": "????", "systemID": "31000005", "connectionID": "31000001", "signatureID": "DEF", "sig2ID": "GHI", "sig2Type": "E004", "life": "Critical", "mass": "Critical", "time": "2024-05-01 11:30:00"},
	{"type": "K162", "systemID": "J-not-a-number", "connectionID": "31000001", "signatureID": "JKL", "life": "Stable", "mass": "Stable", "time": "2024-05-01 11:00:00"},
	{"type": "K162", "systemID": 31000002, "connectionID": 0, "signatureID": "MNO", "life": "Stable", "mass": "Stable", "time": "2024-05-01 11:00:00"},
	{"type": "K162", "systemID": "31000003", "connectionID": "31000004", "signatureID": "PQR", "life": "Stable", "mass": "Stable", "time": "yesterday"},
	{"type": "K162", "systemID": "666", "connectionID": "31000004", "signatureID": "STU", "life": "Stable", "mass": "Stable", "time": "2024-05-01 11:00:00"}
]}}`

type fakeServer struct {
	*httptest.Server
	logins   atomic.Int32
	refresh  atomic.Int32
	expireAt atomic.Int32 // reject the session once on this refresh call
	body     string
}

func newFakeServer(t *testing.T, body string) *fakeServer {
	fs := &fakeServer{body: body}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tw/login.php", func(w http.ResponseWriter, r *http.Request) {
		fs.logins.Add(1)
		if r.FormValue("username") != "pilot" || r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Referer") == "" {
			t.Error("login request without referer")
		}
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "s1", Path: "/"})
	})
	mux.HandleFunc("GET /tw/refresh.php", func(w http.ResponseWriter, r *http.Request) {
		n := fs.refresh.Add(1)
		if r.URL.Query().Get("mode") != "init" {
			t.Errorf("mode = %q", r.URL.Query().Get("mode"))
		}
		if c, err := r.Cookie("PHPSESSID"); err != nil || c.Value != "s1" || n == fs.expireAt.Load() {
			w.Write([]byte("<html>login</html>"))
			return
		}
		w.Write([]byte(fs.body))
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestClient(t *testing.T, url, password string) *Client {
	t.Helper()
	c, err := NewClient(url+"/tw", "pilot", password, codeSizes{}, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetch_NormalizesChain(t *testing.T) {
	srv := newFakeServer(t, chainJSON)
	c := newTestClient(t, srv.URL, "secret")

	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// GATE excluded; the six wormhole records all count.
	if batch.Observed != 6 {
		t.Errorf("Observed = %d, want 6", batch.Observed)
	}
	if len(batch.Connections) != 2 {
		t.Fatalf("Connections = %d, want 2: %+v", len(batch.Connections), batch.Connections)
	}

	thera := batch.Connections[0]
	if thera.Source != 30000142 || thera.Dest != 31000005 {
		t.Errorf("endpoints = %d/%d", thera.Source, thera.Dest)
	}
	if thera.SigSource != "ABC" || thera.CodeSource != "H296" || thera.SigDest != "XYZ" || thera.CodeDest != "K162" {
		t.Errorf("signatures = %+v", thera)
	}
	if thera.Size != graph.XLarge || thera.Life != graph.LifeStable || thera.Mass != graph.MassDestabilized {
		t.Errorf("metadata = %v/%v/%v", thera.Size, thera.Life, thera.Mass)
	}
	if thera.AgeHours != 2.0 {
		t.Errorf("AgeHours = %v, want 2.0", thera.AgeHours)
	}

	// Unknown source code falls through to the destination code.
	shattered := batch.Connections[1]
	if shattered.Size != graph.Small || shattered.Life != graph.LifeCritical || shattered.Mass != graph.MassCritical {
		t.Errorf("second connection = %+v", shattered)
	}
	if shattered.AgeHours != 0.5 {
		t.Errorf("AgeHours = %v, want 0.5", shattered.AgeHours)
	}
}

func TestAugment_CountsAndEdges(t *testing.T) {
	srv := newFakeServer(t, chainJSON)
	c := newTestClient(t, srv.URL, "secret")

	g := graph.New()
	g.AddGate(30000142, 30000144)
	n, err := feed.Augment(context.Background(), c, g)
	if err != nil {
		t.Fatalf("Augment: %v", err)
	}
	if n != 6 {
		t.Errorf("count = %d, want 6", n)
	}
	if g.WormholeCount() != 2 {
		t.Errorf("WormholeCount = %d, want 2", g.WormholeCount())
	}
	if _, ok := g.Edge(30000144, 30000142); !ok {
		t.Error("gate edge lost")
	}
	back, ok := g.Edge(31000005, 30000142)
	if !ok {
		t.Fatal("missing return edge")
	}
	if wh := back.(graph.Wormhole); wh.Signature != "XYZ" || wh.Code != "K162" {
		t.Errorf("return edge = %+v", wh)
	}
}

func TestFetch_EmptyChainIsSuccess(t *testing.T) {
	srv := newFakeServer(t, `{"chain": {"map": []}}`)
	c := newTestClient(t, srv.URL, "secret")
	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if batch.Observed != 0 || len(batch.Connections) != 0 {
		t.Errorf("batch = %+v", batch)
	}
}

func TestFetch_MalformedSignatureSkipped(t *testing.T) {
	body := `{"chain": {"map": [
		{"type": "H296", "systemID": "30000142", "connectionID": "31000005", "signatureID": "ABC", "sig2ID": "XYZ", "sig2Type": "K162", "life": "Stable", "mass": "Stable", "time": "2024-05-01 10:00:00"},
		"garbage",
		42
	]}}`
	srv := newFakeServer(t, body)
	c := newTestClient(t, srv.URL, "secret")

	batch, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if batch.Observed != 3 {
		t.Errorf("Observed = %d, want 3", batch.Observed)
	}
	if len(batch.Connections) != 1 || batch.Connections[0].SigSource != "ABC" {
		t.Errorf("Connections = %+v, want the ABC signature only", batch.Connections)
	}
	if got := srv.logins.Load(); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}
}

func TestFetch_LoginRejected(t *testing.T) {
	srv := newFakeServer(t, chainJSON)
	c := newTestClient(t, srv.URL, "wrong")
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrLogin) {
		t.Errorf("err = %v, want ErrLogin", err)
	}
}

func TestFetch_ReusesSessionAndRelogsOnExpiry(t *testing.T) {
	srv := newFakeServer(t, chainJSON)
	c := newTestClient(t, srv.URL, "secret")

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if got := srv.logins.Load(); got != 1 {
		t.Errorf("logins = %d, want 1", got)
	}

	srv.expireAt.Store(3)
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch after expiry: %v", err)
	}
	if got := srv.logins.Load(); got != 2 {
		t.Errorf("logins after expiry = %d, want 2", got)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := newFakeServer(t, chainJSON)
	url := srv.URL
	srv.Close()
	c := newTestClient(t, url, "secret")
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, feed.ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

func TestNewClient_BadURL(t *testing.T) {
	if _, err := NewClient("ftp://example.com", "u", "p", codeSizes{}, 0); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
