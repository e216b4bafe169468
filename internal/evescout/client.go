// Package evescout reads the public Eve-Scout Thera connection list.
package evescout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortcircuit/internal/feed"
	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
)

const (
	DefaultURL     = "https://www.eve-scout.com/api/wormholes"
	DefaultTimeout = 2 * time.Second

	userAgent  = "shortcircuit/1.0 (github.com)"
	timeLayout = "2006-01-02T15:04:05"
)

type system struct {
	ID feed.ID `json:"id"`
}

type wormholeType struct {
	Name feed.Text `json:"name"`
}

// Record is one Thera connection as served by Eve-Scout.
type Record struct {
	Source      system       `json:"sourceSolarSystem"`
	Destination system       `json:"destinationSolarSystem"`
	SignatureID feed.Text    `json:"signatureId"`
	SourceType  wormholeType `json:"sourceWormholeType"`
	DestSig     feed.Text    `json:"wormholeDestinationSignatureId"`
	DestType    wormholeType `json:"destinationWormholeType"`
	EOL         feed.Text    `json:"wormholeEol"`
	Mass        feed.Text    `json:"wormholeMass"`
	UpdatedAt   feed.Text    `json:"updatedAt"`
}

// Client fetches Thera connections.
type Client struct {
	http  *http.Client
	url   string
	sizes feed.SizeResolver
	now   func() time.Time
}

// NewClient creates a client for url. An empty url selects DefaultURL and a
// zero timeout selects DefaultTimeout.
func NewClient(url string, sizes feed.SizeResolver, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		url:   url,
		sizes: sizes,
		now:   time.Now,
	}
}

func (c *Client) Name() string { return "Eve-Scout" }

// list returns the connection list with each record still undecoded.
func (c *Client) list(ctx context.Context) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
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
		return nil, fmt.Errorf("%w: eve-scout %d: %s", feed.ErrUnreachable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode eve-scout: %w", err)
	}
	return records, nil
}

// Fetch reads the connection list. Every record counts towards Observed,
// including records of the wrong shape.
func (c *Client) Fetch(ctx context.Context) (*feed.Batch, error) {
	records, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	batch := &feed.Batch{Observed: len(records)}
	for i, raw := range records {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			logger.Warn("EveScout", fmt.Sprintf("Record %d: %v", i, err))
			continue
		}
		conn, ok := c.normalize(r, now)
		if !ok {
			continue
		}
		batch.Connections = append(batch.Connections, conn)
	}
	if skipped := batch.Observed - len(batch.Connections); skipped > 0 {
		logger.Warn("EveScout", fmt.Sprintf("Skipped %d of %d connections", skipped, batch.Observed))
	}
	return batch, nil
}

func (c *Client) normalize(r Record, now time.Time) (feed.Connection, bool) {
	source, dest := int32(r.Source.ID), int32(r.Destination.ID)
	if source == 0 || dest == 0 {
		return feed.Connection{}, false
	}
	stamp := r.UpdatedAt.String()
	if len(stamp) > len(timeLayout) {
		stamp = stamp[:len(timeLayout)]
	}
	updated, err := time.ParseInLocation(timeLayout, stamp, time.UTC)
	if err != nil {
		return feed.Connection{}, false
	}
	code, code2 := r.SourceType.Name.String(), r.DestType.Name.String()
	size, ok := c.sizes.WormholeSize(code, code2, source, dest)
	if !ok {
		return feed.Connection{}, false
	}
	eol := strings.ToLower(r.EOL.String())
	life := graph.LifeCritical
	if eol == "stable" {
		life = graph.LifeStable
	}
	return feed.Connection{
		Source:     source,
		Dest:       dest,
		SigSource:  r.SignatureID.String(),
		CodeSource: code,
		SigDest:    r.DestSig.String(),
		CodeDest:   code2,
		Size:       size,
		Life:       life,
		Mass:       parseMass(r.Mass.String(), eol),
		AgeHours:   feed.AgeHours(now, updated),
	}, true
}

// parseMass prefers the explicit mass field. Without one the mass is derived
// from the end-of-life marker.
func parseMass(mass, eol string) graph.Mass {
	s := strings.ToLower(mass)
	if s == "" {
		s = eol
	}
	switch {
	case s == "stable":
		return graph.MassStable
	case strings.HasPrefix(s, "destab"):
		return graph.MassDestabilized
	}
	return graph.MassCritical
}
