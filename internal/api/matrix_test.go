package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

func columnNames(t *testing.T, c *Client, domain model.Domain) []string {
	t.Helper()
	m, err := c.Matrix(context.Background(), domain, false)
	require.NoError(t, err)
	names := []string{}
	for _, col := range m.Columns {
		names = append(names, col.Tactic)
	}
	return names
}

func TestMatrixEnterprise(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	m, err := c.Matrix(context.Background(), model.DomainEnterprise, false)
	require.NoError(t, err)

	assert.Equal(t, model.DomainEnterprise, m.Domain)
	require.Len(t, m.Columns, 3)
	assert.Equal(t, "technical-information-gathering", m.Columns[0].Tactic)
	assert.Equal(t, model.PhasePrepare, m.Columns[0].Phase)
	assert.Equal(t, "initial-access", m.Columns[1].Tactic)
	assert.Equal(t, "execution", m.Columns[2].Tactic)
	assert.Len(t, m.Techniques, 3)
	assert.Equal(t, "Initial Access", m.TacticName("initial-access"))
	assert.Equal(t, "TA0002", m.Info["execution"].ID)

	tech, ok := m.Find("T1247")
	require.True(t, ok)
	assert.Equal(t, model.DomainPreAttack, tech.Domain)
}

func TestMatrixDomains(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	assert.Equal(t, []string{"technical-information-gathering", "initial-access"}, columnNames(t, c, model.DomainMobile))
	assert.Equal(t, []string{"technical-information-gathering"}, columnNames(t, c, model.DomainPreAttack))

	// pre-attack reuses the enterprise fetch
	assert.Equal(t, 1, srv.count("/enterprise.json"))
	assert.Equal(t, 1, srv.count("/mobile.json"))
}

func TestMatrixUnknownDomain(t *testing.T) {
	c := NewClient()
	_, err := c.Matrix(context.Background(), model.Domain("ics-attack"), false)
	assert.ErrorIs(t, err, ErrUnknownDomain)
}

func TestMatrixRecordsOrderOnce(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	_ = columnNames(t, c, model.DomainEnterprise)
	_ = columnNames(t, c, model.DomainMobile)
	assert.Equal(t, len(tacticOrder), c.Tracker().Len())

	_, err := c.Matrix(context.Background(), model.DomainEnterprise, true)
	require.NoError(t, err)
	assert.Equal(t, len(tacticOrder), c.Tracker().Len(), "a refreshed order replaces the old one")
	assert.Equal(t, 2, srv.count("/tactics.json"))
}

func TestTacticOrder(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	tr, err := c.TacticOrder(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"technical-information-gathering"}, tr.Prepare())
	assert.Equal(t, []string{"initial-access", "execution"}, tr.Act())
}

func TestMatrixFetchError(t *testing.T) {
	srv := &ctiServer{}
	srv.setFail("/tactics.json", 404)
	c := setupTestServer(t, srv)

	_, err := c.Matrix(context.Background(), model.DomainEnterprise, false)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMatrixKeepsOrderFromRefreshedTactics(t *testing.T) {
	dir := t.TempDir()
	pre := writeJSON(t, dir, "pre.json", preAttackBundle)
	mobile := writeJSON(t, dir, "mobile.json", mobileBundle)
	oldOrder := writeJSON(t, dir, "tactics-old.json", []model.TacticPhase{
		{Tactic: "execution", Phase: model.PhaseAct},
		{Tactic: "initial-access", Phase: model.PhaseAct},
	})
	newOrder := writeJSON(t, dir, "tactics-new.json", []model.TacticPhase{
		{Tactic: "initial-access", Phase: model.PhaseAct},
		{Tactic: "execution", Phase: model.PhaseAct},
	})

	srv := &ctiServer{gate: make(chan struct{})}
	c := setupTestServer(t, srv)
	c.SetURLs("https://cti.test/enterprise.json", pre, mobile, oldOrder)

	ctx := context.Background()
	_, err := c.TacticOrder(ctx, false)
	require.NoError(t, err)

	type result struct {
		names []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		m, err := c.Matrix(ctx, model.DomainEnterprise, false)
		names := []string{}
		for _, col := range m.Columns {
			names = append(names, col.Tactic)
		}
		done <- result{names, err}
	}()

	// the slow matrix call holds the old tactics source once its enterprise request is in flight
	require.Eventually(t, func() bool { return srv.count("/enterprise.json") == 1 }, 2*time.Second, 5*time.Millisecond)

	c.SetURLs("https://cti.test/enterprise.json", pre, mobile, newOrder)
	tr, err := c.TacticOrder(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"initial-access", "execution"}, tr.Total())

	close(srv.gate)
	res := <-done
	require.NoError(t, res.err)

	want := []string{"initial-access", "execution"}
	assert.Equal(t, want, c.Tracker().Total(), "tracker must follow the cached tactics source")
	assert.Equal(t, want, res.names)

	cached, err := c.Tactics(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "initial-access", cached[0].Tactic)
}

func TestStaleOrderRecordedWhenTrackerEmpty(t *testing.T) {
	c := NewClient()
	stale := start(func() ([]model.TacticPhase, error) { return tacticOrder, nil })
	_, _ = stale.wait(context.Background())

	c.orderMu.Lock()
	c.recordOrder(stale, tacticOrder)
	c.orderMu.Unlock()
	assert.Equal(t, len(tacticOrder), c.Tracker().Len())
}
