// Package version checks GitHub for a newer release.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Current is the running release.
var Current = "0.4.0"

const (
	DefaultURL = "https://api.github.com/repos/secondfry/shortcircuit/releases/latest"
	timeout    = 3100 * time.Millisecond
)

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Release describes the latest published release.
type Release struct {
	Tag   string `json:"tag"`
	URL   string `json:"url"`
	Newer bool   `json:"newer"`
}

// Check fetches the latest release from url and compares it with Current.
func Check(ctx context.Context, url string) (*Release, error) {
	if url == "" {
		url = DefaultURL
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "shortcircuit/"+Current)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("version check: HTTP %d", resp.StatusCode)
	}
	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}
	if rel.TagName == "" {
		return nil, fmt.Errorf("version check: empty tag")
	}
	return &Release{Tag: rel.TagName, URL: rel.HTMLURL, Newer: Newer(Current, rel.TagName)}, nil
}

// Newer reports whether latest is a higher dotted version than current.
// A leading "v" and any suffix after "-" are ignored.
func Newer(current, latest string) bool {
	c, l := parts(current), parts(latest)
	for i := 0; i < len(c) || i < len(l); i++ {
		var a, b int
		if i < len(c) {
			a = c[i]
		}
		if i < len(l) {
			b = l[i]
		}
		if a != b {
			return b > a
		}
	}
	return false
}

func parts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexByte(v, '-'); i >= 0 {
		v = v[:i]
	}
	var out []int
	for _, p := range strings.Split(v, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
