package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

// Client fetches the ATT&CK datasets and memoizes one shared result per
// dataset until a caller asks for a refresh.
type Client struct {
	httpClient *http.Client
	log        *logger.Logger

	mu         sync.Mutex
	sources    Sources
	enterprise *pending[DomainData]
	mobile     *pending[DomainData]
	tactics    *pending[[]model.TacticPhase]

	tracker *matrix.Tracker
	// tactics result last written into tracker
	orderMu  sync.Mutex
	recorded *pending[[]model.TacticPhase]
}

// NewClient creates a new API client with default settings
func NewClient() *Client {
	return NewClientWithHTTPClient(&http.Client{
		Timeout: 60 * time.Second,
	})
}

// NewClientWithHTTPClient creates a client that uses hc for http(s) locations
func NewClientWithHTTPClient(hc *http.Client) *Client {
	return &Client{
		httpClient: hc,
		log:        logger.Global().WithComponent("api"),
		sources:    DefaultSources(),
		tracker:    matrix.NewTracker(),
	}
}

// SetLogger replaces the client's logger
func (c *Client) SetLogger(l *logger.Logger) {
	c.log = l.WithComponent("api")
}

// Tracker returns the tactic-order tracker fed by Matrix
func (c *Client) Tracker() *matrix.Tracker {
	return c.tracker
}

// EnterpriseData returns the enterprise bundle joined with the PRE-ATT&CK bundle
func (c *Client) EnterpriseData(ctx context.Context, refresh bool) (DomainData, error) {
	return c.domainSource(model.DomainEnterprise, refresh).wait(ctx)
}

// MobileData returns the mobile bundle joined with the PRE-ATT&CK bundle
func (c *Client) MobileData(ctx context.Context, refresh bool) (DomainData, error) {
	return c.domainSource(model.DomainMobile, refresh).wait(ctx)
}

// Tactics returns the tactic-order list
func (c *Client) Tactics(ctx context.Context, refresh bool) ([]model.TacticPhase, error) {
	return c.tacticsSource(refresh).wait(ctx)
}

// Refresh replaces every memoized source with a new fetch and waits for all of them
func (c *Client) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.EnterpriseData(gctx, true)
		return err
	})
	g.Go(func() error {
		_, err := c.MobileData(gctx, true)
		return err
	})
	g.Go(func() error {
		_, err := c.Tactics(gctx, true)
		return err
	})
	return g.Wait()
}

func (c *Client) domainSource(domain model.Domain, refresh bool) *pending[DomainData] {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := &c.enterprise
	location := c.sources.Enterprise
	if domain == model.DomainMobile {
		slot = &c.mobile
		location = c.sources.Mobile
	}

	if *slot != nil && !refresh {
		c.log.Debug().Str("domain", string(domain)).Bool("ready", (*slot).ready()).Msg("using cached source")
		return *slot
	}

	preAttack := c.sources.PreAttack
	*slot = start(func() (DomainData, error) {
		return c.fetchDomain(domain, location, preAttack)
	})
	return *slot
}

func (c *Client) tacticsSource(refresh bool) *pending[[]model.TacticPhase] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tactics != nil && !refresh {
		c.log.Debug().Bool("ready", c.tactics.ready()).Msg("using cached tactic order")
		return c.tactics
	}

	location := c.sources.Tactics
	c.tactics = start(func() ([]model.TacticPhase, error) {
		var list []model.TacticPhase
		if err := c.fetchJSON(context.Background(), location, &list); err != nil {
			c.log.WithError(err).Warn().Str("url", location).Msg("tactics fetch failed")
			return nil, fmt.Errorf("failed to fetch tactics: %w", err)
		}
		return list, nil
	})
	return c.tactics
}

// fetchDomain downloads a domain bundle and the PRE-ATT&CK bundle concurrently.
// The shared fetch is not tied to any one caller's context.
func (c *Client) fetchDomain(domain model.Domain, location, preAttackLocation string) (DomainData, error) {
	started := time.Now()
	log := c.log.WithDomain(string(domain))
	log.Debug().Str("url", location).Str("pre_attack", preAttackLocation).Msg("fetching domain data")

	data := DomainData{Domain: domain}
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		b, err := c.fetchBundle(ctx, location)
		if err != nil {
			return fmt.Errorf("failed to fetch %s data: %w", domain, err)
		}
		data.Data = b
		return nil
	})
	g.Go(func() error {
		b, err := c.fetchBundle(ctx, preAttackLocation)
		if err != nil {
			return fmt.Errorf("failed to fetch pre-attack data: %w", err)
		}
		data.PreAttack = b
		return nil
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn().Msg("domain fetch failed")
		return DomainData{}, err
	}

	log.Debug().
		Int("objects", len(data.Data.Objects)).
		Int("pre_attack_objects", len(data.PreAttack.Objects)).
		Dur("elapsed", time.Since(started)).
		Msg("fetched domain data")
	return data, nil
}

func (c *Client) fetchBundle(ctx context.Context, location string) (*Bundle, error) {
	var b Bundle
	if err := c.fetchJSON(ctx, location, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) fetchJSON(ctx context.Context, location string, v any) error {
	rc, err := c.open(ctx, location)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return nil
}
