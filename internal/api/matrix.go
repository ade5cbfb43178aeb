package api

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Matrix builds the techniques-by-tactic view of a domain. The tactic order is
// written into the tracker once per fetched tactics list.
func (c *Client) Matrix(ctx context.Context, domain model.Domain, refresh bool) (matrix.Matrix, error) {
	fetched := model.DomainEnterprise
	switch domain {
	case model.DomainEnterprise, model.DomainPreAttack:
	case model.DomainMobile:
		fetched = model.DomainMobile
	default:
		return matrix.Matrix{}, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	order := c.tacticsSource(refresh)
	source := c.domainSource(fetched, refresh)

	var data DomainData
	var list []model.TacticPhase
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = source.wait(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = order.wait(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return matrix.Matrix{}, err
	}

	var techniques []model.Technique
	var tactics []model.Tactic
	if domain == model.DomainPreAttack {
		techniques = ParseTechniques(data.PreAttack, model.DomainPreAttack)
		tactics = ParseTactics(data.PreAttack, model.DomainPreAttack)
	} else {
		techniques = mergeTechniques(
			ParseTechniques(data.Data, domain),
			ParseTechniques(data.PreAttack, model.DomainPreAttack),
		)
		tactics = append(ParseTactics(data.Data, domain), ParseTactics(data.PreAttack, model.DomainPreAttack)...)
	}

	c.orderMu.Lock()
	c.recordOrder(order, list)
	m := matrix.Build(domain, techniques, c.tracker)
	c.orderMu.Unlock()

	m.Info = make(map[string]model.Tactic, len(tactics))
	for _, t := range tactics {
		if _, ok := m.Info[t.ShortName]; !ok {
			m.Info[t.ShortName] = t
		}
	}

	c.log.Debug().
		Str("domain", string(domain)).
		Int("techniques", len(techniques)).
		Int("columns", len(m.Columns)).
		Msg("built matrix")
	return m, nil
}

// recordOrder must be called with orderMu held. A result from a tactics
// source that a refresh has since replaced is only recorded while the
// tracker is still empty.
func (c *Client) recordOrder(src *pending[[]model.TacticPhase], list []model.TacticPhase) {
	c.mu.Lock()
	current := c.tactics
	c.mu.Unlock()

	if c.recorded == src || (src != current && c.recorded != nil) {
		return
	}
	c.tracker.Reset()
	c.tracker.SetTacticOrder(list)
	c.recorded = src
}

// mergeTechniques concatenates lists, dropping repeated STIX ids
func mergeTechniques(lists ...[]model.Technique) []model.Technique {
	seen := make(map[string]bool)
	out := []model.Technique{}
	for _, list := range lists {
		for _, t := range list {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}

// TacticOrder makes sure the memoized tactic order is recorded and returns the tracker
func (c *Client) TacticOrder(ctx context.Context, refresh bool) (*matrix.Tracker, error) {
	src := c.tacticsSource(refresh)
	list, err := src.wait(ctx)
	if err != nil {
		return nil, err
	}
	c.orderMu.Lock()
	c.recordOrder(src, list)
	c.orderMu.Unlock()
	return c.tracker, nil
}
