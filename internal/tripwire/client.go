// Package tripwire reads wormhole chains from a Tripwire mapping server.
package tripwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"shortcircuit/internal/feed"
	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
)

const (
	userAgent = "shortcircuit/1.0 (github.com)"
	// timeLayout is the signature timestamp format; values are UTC.
	timeLayout = "2006-01-02 15:04:05"
	// DefaultTimeout bounds a single login or chain request.
	DefaultTimeout = 5 * time.Second
)

// ErrLogin is returned when the server rejects the login request.
var ErrLogin = errors.New("tripwire: login failed")

// Signature is one record of a Tripwire chain.
type Signature struct {
	Type         feed.Text `json:"type"` // wormhole type code on this side, or "GATE"
	SystemID     feed.ID   `json:"systemID"`
	ConnectionID feed.ID   `json:"connectionID"`
	SignatureID  feed.Text `json:"signatureID"`
	Sig2ID       feed.Text `json:"sig2ID"`
	Sig2Type     feed.Text `json:"sig2Type"`
	Life         feed.Text `json:"life"` // "Stable" or end of life
	Mass         feed.Text `json:"mass"` // "Stable", "Destab" or critical
	Time         feed.Text `json:"time"`
}

// Chain is the refresh.php payload. Map entries are kept raw so that one
// malformed signature does not invalidate the rest of the chain.
type Chain struct {
	Chain struct {
		Map []json.RawMessage `json:"map"`
	} `json:"chain"`
}

// Client holds an authenticated Tripwire session.
type Client struct {
	http     *http.Client
	base     *url.URL
	username string
	password string
	sizes    feed.SizeResolver
	now      func() time.Time

	mu       sync.Mutex
	loggedIn bool
}

// NewClient creates a client for the Tripwire server at baseURL. A timeout of
// zero selects DefaultTimeout.
func NewClient(baseURL, username, password string, sizes feed.SizeResolver, timeout time.Duration) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("tripwire url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("tripwire url: unsupported scheme %q", base.Scheme)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Timeout: timeout, Jar: jar},
		base:     base,
		username: username,
		password: password,
		sizes:    sizes,
		now:      time.Now,
	}, nil
}

// Name identifies the feed in logs and refresh results.
func (c *Client) Name() string { return "Tripwire" }

func (c *Client) loginLocked(ctx context.Context) error {
	c.loggedIn = false
	loginURL := c.base.ResolveReference(&url.URL{Path: "login.php"}).String()
	form := url.Values{"username": {c.username}, "password": {c.password}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", feed.ErrUnreachable, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrLogin, resp.StatusCode)
	}
	c.loggedIn = true
	return nil
}

// Chain fetches the current chain map, logging in first if needed. A rejected
// chain request triggers one fresh login.
func (c *Client) Chain(ctx context.Context) (*Chain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		if err := c.loginLocked(ctx); err != nil {
			return nil, err
		}
	}
	chain, err := c.getChain(ctx)
	if err == nil || ctx.Err() != nil {
		return chain, err
	}
	logger.Warn("Tripwire", fmt.Sprintf("Chain request failed (%v), logging in again", err))
	if err := c.loginLocked(ctx); err != nil {
		return nil, err
	}
	return c.getChain(ctx)
}

func (c *Client) getChain(ctx context.Context) (*Chain, error) {
	u := c.base.ResolveReference(&url.URL{Path: "refresh.php", RawQuery: url.Values{"mode": {"init"}}.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: tripwire %d: %s", feed.ErrUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	// An expired session answers with the HTML login page.
	var chain Chain
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	return &chain, nil
}

// Fetch reads the chain and normalizes every wormhole signature. GATE records
// are ignored; every other record is counted in Observed even when it cannot
// be turned into a connection.
func (c *Client) Fetch(ctx context.Context) (*feed.Batch, error) {
	chain, err := c.Chain(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	batch := &feed.Batch{}
	skipped := 0
	for i, raw := range chain.Chain.Map {
		var sig Signature
		if err := json.Unmarshal(raw, &sig); err != nil {
			logger.Warn("Tripwire", fmt.Sprintf("Signature %d: %v", i, err))
			batch.Observed++
			skipped++
			continue
		}
		if strings.EqualFold(sig.Type.String(), "GATE") {
			continue
		}
		batch.Observed++
		conn, ok := c.normalize(sig, now)
		if !ok {
			skipped++
			continue
		}
		batch.Connections = append(batch.Connections, conn)
	}
	if skipped > 0 {
		logger.Warn("Tripwire", fmt.Sprintf("Skipped %d of %d signatures", skipped, batch.Observed))
	}
	return batch, nil
}

func (c *Client) normalize(sig Signature, now time.Time) (feed.Connection, bool) {
	source, dest := int32(sig.SystemID), int32(sig.ConnectionID)
	if source == 0 || dest == 0 {
		return feed.Connection{}, false
	}
	updated, err := time.ParseInLocation(timeLayout, sig.Time.String(), time.UTC)
	if err != nil {
		return feed.Connection{}, false
	}
	code, code2 := sig.Type.String(), sig.Sig2Type.String()
	size, ok := c.sizes.WormholeSize(code, code2, source, dest)
	if !ok {
		return feed.Connection{}, false
	}
	return feed.Connection{
		Source:     source,
		Dest:       dest,
		SigSource:  sig.SignatureID.String(),
		CodeSource: code,
		SigDest:    sig.Sig2ID.String(),
		CodeDest:   code2,
		Size:       size,
		Life:       parseLife(sig.Life.String()),
		Mass:       parseMass(sig.Mass.String()),
		AgeHours:   feed.AgeHours(now, updated),
	}, true
}

func parseLife(s string) graph.Life {
	if s == "Stable" {
		return graph.LifeStable
	}
	return graph.LifeCritical
}

func parseMass(s string) graph.Mass {
	switch s {
	case "Stable":
		return graph.MassStable
	case "Destab":
		return graph.MassDestabilized
	}
	return graph.MassCritical
}
