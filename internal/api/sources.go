package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ethanolivertroy/attack-tui/internal/assets"
)

const (
	DefaultEnterpriseURL = "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json"
	DefaultPreAttackURL  = "https://raw.githubusercontent.com/mitre/cti/master/pre-attack/pre-attack.json"
	DefaultMobileURL     = "https://raw.githubusercontent.com/mitre/cti/master/mobile-attack/mobile-attack.json"
	DefaultTacticsURL    = "assets/tacticsData.json"
)

// Sources holds the four dataset locations. A location is an http(s) URL,
// a file:// URL or a bare path.
type Sources struct {
	Enterprise string `json:"enterprise"`
	PreAttack  string `json:"pre_attack"`
	Mobile     string `json:"mobile"`
	Tactics    string `json:"tactics"`
}

// DefaultSources returns the mitre/cti locations and the bundled tactic order
func DefaultSources() Sources {
	return Sources{
		Enterprise: DefaultEnterpriseURL,
		PreAttack:  DefaultPreAttackURL,
		Mobile:     DefaultMobileURL,
		Tactics:    DefaultTacticsURL,
	}
}

// SetURLs overrides all four dataset locations. Results already memoized
// are kept until the next refresh.
func (c *Client) SetURLs(enterprise, preAttack, mobile, tactics string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = Sources{
		Enterprise: enterprise,
		PreAttack:  preAttack,
		Mobile:     mobile,
		Tactics:    tactics,
	}
}

// URLs returns the current dataset locations
func (c *Client) URLs() Sources {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// open returns a reader for a dataset location
func (c *Client) open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case location == "":
		return nil, errors.New("empty dataset location")

	case isHTTP(location):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, &StatusError{URL: location, StatusCode: resp.StatusCode}
		}
		return resp.Body, nil

	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL %s: %w", location, err)
		}
		return os.Open(u.Path)

	default:
		f, err := os.Open(location)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, fs.ErrNotExist) && assets.IsAsset(location) {
			data, aerr := assets.Read(location)
			if aerr != nil {
				return nil, fmt.Errorf("failed to read bundled %s: %w", location, aerr)
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		return nil, err
	}
}
