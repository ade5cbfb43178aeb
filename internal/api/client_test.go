package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

// --- Test helpers ---

// rewriteTransport is a custom http.RoundTripper that redirects all requests
// to a test server, preserving the original path and query string.
type rewriteTransport struct {
	targetURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	host := strings.TrimPrefix(t.targetURL, "http://")
	host = strings.TrimPrefix(host, "https://")
	req.URL.Host = host
	return http.DefaultTransport.RoundTrip(req)
}

// setupTestServer creates a test server and a Client wired to route all
// requests through it. The server is cleaned up when the test ends.
func setupTestServer(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	transport := &rewriteTransport{targetURL: ts.URL}
	client := NewClientWithHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   5 * time.Second,
	})
	client.SetURLs(
		"https://cti.test/enterprise.json",
		"https://cti.test/pre.json",
		"https://cti.test/mobile.json",
		"https://cti.test/tactics.json",
	)
	t.Cleanup(func() { http.DefaultTransport.(*http.Transport).CloseIdleConnections() })
	return client
}

// --- Fixture builders ---

func attackPattern(stixID, extID, name string, tactics ...string) Object {
	phases := make([]KillChainPhase, 0, len(tactics))
	for _, tactic := range tactics {
		phases = append(phases, KillChainPhase{KillChainName: "mitre-attack", PhaseName: tactic})
	}
	return Object{
		Type:            "attack-pattern",
		ID:              stixID,
		Name:            name,
		Description:     name + " description",
		Platforms:       []string{"Windows"},
		KillChainPhases: phases,
		ExternalReferences: []ExternalReference{
			{SourceName: "mitre-attack", ExternalID: extID, URL: "https://attack.mitre.org/techniques/" + extID},
		},
	}
}

func tacticObject(stixID, extID, name, short string) Object {
	return Object{
		Type:      "x-mitre-tactic",
		ID:        stixID,
		Name:      name,
		ShortName: short,
		ExternalReferences: []ExternalReference{
			{SourceName: "mitre-attack", ExternalID: extID},
		},
	}
}

func makeBundle(objects ...Object) Bundle {
	return Bundle{Type: "bundle", ID: "bundle--test", Objects: objects}
}

var (
	enterpriseBundle = makeBundle(
		attackPattern("attack-pattern--1", "T1566", "Phishing", "initial-access"),
		attackPattern("attack-pattern--2", "T1059", "Command and Scripting Interpreter", "execution"),
		tacticObject("x-mitre-tactic--1", "TA0001", "Initial Access", "initial-access"),
		tacticObject("x-mitre-tactic--2", "TA0002", "Execution", "execution"),
	)
	mobileBundle = makeBundle(
		attackPattern("attack-pattern--10", "T1660", "Phishing", "initial-access"),
	)
	preAttackBundle = makeBundle(
		attackPattern("attack-pattern--20", "T1247", "Acquire OSINT data sets", "technical-information-gathering"),
	)
	tacticOrder = []model.TacticPhase{
		{Tactic: "technical-information-gathering", Phase: "prepare"},
		{Tactic: "initial-access", Phase: "act"},
		{Tactic: "execution", Phase: "act"},
	}
)

// ctiServer serves the fixture datasets and counts hits per path
type ctiServer struct {
	hits sync.Map // path -> *atomic.Int32
	// gate, when set, blocks every response until closed
	gate chan struct{}
	// fail maps a path to the status it should answer with
	fail map[string]int
	mu   sync.Mutex
}

func (s *ctiServer) count(path string) int {
	v, ok := s.hits.Load(path)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int32).Load())
}

func (s *ctiServer) setFail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail == nil {
		s.fail = make(map[string]int)
	}
	if status == 0 {
		delete(s.fail, path)
		return
	}
	s.fail[path] = status
}

func (s *ctiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v, _ := s.hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
	v.(*atomic.Int32).Add(1)

	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	status := s.fail[r.URL.Path]
	s.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	var body any
	switch r.URL.Path {
	case "/enterprise.json":
		body = enterpriseBundle
	case "/mobile.json":
		body = mobileBundle
	case "/pre.json":
		body = preAttackBundle
	case "/tactics.json":
		body = tacticOrder
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// --- Tests ---

func TestNewClient(t *testing.T) {
	c := NewClient()
	require.NotNil(t, c)
	require.NotNil(t, c.httpClient)
	assert.Equal(t, 60*time.Second, c.httpClient.Timeout)
	assert.Equal(t, DefaultSources(), c.URLs())
	assert.Equal(t, 0, c.Tracker().Len())
}

func TestSetURLs(t *testing.T) {
	c := NewClient()
	c.SetURLs("e", "p", "m", "t")
	assert.Equal(t, Sources{Enterprise: "e", PreAttack: "p", Mobile: "m", Tactics: "t"}, c.URLs())
}

func TestFetchFailureIsLogged(t *testing.T) {
	srv := &ctiServer{}
	srv.setFail("/enterprise.json", http.StatusInternalServerError)
	srv.setFail("/tactics.json", http.StatusNotFound)
	c := setupTestServer(t, srv)

	var buf bytes.Buffer
	c.SetLogger(logger.New(logger.Config{Level: "warn", Format: "json", Output: &buf}))

	_, err := c.EnterpriseData(context.Background(), false)
	require.Error(t, err)
	_, err = c.Tactics(context.Background(), false)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var domainEntry, tacticsEntry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &domainEntry))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &tacticsEntry))

	assert.Equal(t, "domain fetch failed", domainEntry["message"])
	assert.Equal(t, "enterprise-attack", domainEntry["domain"])
	assert.Contains(t, domainEntry["error"], "unexpected status code 500")

	assert.Equal(t, "tactics fetch failed", tacticsEntry["message"])
	assert.Contains(t, tacticsEntry["error"], "unexpected status code 404")
}

func TestEnterpriseData(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)
	ctx := context.Background()

	data, err := c.EnterpriseData(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, model.DomainEnterprise, data.Domain)
	require.NotNil(t, data.Data)
	require.NotNil(t, data.PreAttack)
	assert.Len(t, data.Data.Objects, 4)
	assert.Len(t, data.PreAttack.Objects, 1)

	again, err := c.EnterpriseData(ctx, false)
	require.NoError(t, err)
	assert.Same(t, data.Data, again.Data, "memoized calls share one result")
	assert.Equal(t, 1, srv.count("/enterprise.json"))
	assert.Equal(t, 1, srv.count("/pre.json"))

	refreshed, err := c.EnterpriseData(ctx, true)
	require.NoError(t, err)
	assert.NotSame(t, data.Data, refreshed.Data)
	assert.Equal(t, 2, srv.count("/enterprise.json"))
	assert.Equal(t, 2, srv.count("/pre.json"))
}

func TestMobileData(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	data, err := c.MobileData(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, model.DomainMobile, data.Domain)
	assert.Len(t, data.Data.Objects, 1)
	assert.Equal(t, 1, srv.count("/mobile.json"))
	assert.Equal(t, 1, srv.count("/pre.json"))
	assert.Equal(t, 0, srv.count("/enterprise.json"))
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	srv := &ctiServer{gate: make(chan struct{})}
	c := setupTestServer(t, srv)

	const callers = 10
	results := make([]DomainData, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.EnterpriseData(context.Background(), false)
		}(i)
	}

	// let the callers queue up on the pending fetch before releasing it
	time.Sleep(50 * time.Millisecond)
	close(srv.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0].Data, results[i].Data)
	}
	assert.Equal(t, 1, srv.count("/enterprise.json"))
}

func TestErrorIsMemoizedUntilRefresh(t *testing.T) {
	srv := &ctiServer{}
	srv.setFail("/pre.json", http.StatusInternalServerError)
	c := setupTestServer(t, srv)
	ctx := context.Background()

	_, err := c.EnterpriseData(ctx, false)
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	srv.setFail("/pre.json", 0)

	_, err2 := c.EnterpriseData(ctx, false)
	assert.Equal(t, err, err2, "the same error is replayed without a new fetch")
	assert.Equal(t, 1, srv.count("/pre.json"))

	data, err := c.EnterpriseData(ctx, true)
	require.NoError(t, err)
	assert.NotNil(t, data.PreAttack)
	assert.Equal(t, 2, srv.count("/pre.json"))
}

func TestCallerCancelDoesNotCancelSharedFetch(t *testing.T) {
	srv := &ctiServer{gate: make(chan struct{})}
	c := setupTestServer(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Tactics(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)

	close(srv.gate)
	list, err := c.Tactics(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, tacticOrder, list)
	assert.Equal(t, 1, srv.count("/tactics.json"))
}

func TestInvalidJSON(t *testing.T) {
	c := setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{invalid json`))
	}))

	_, err := c.Tactics(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	c := NewClientWithHTTPClient(&http.Client{
		Transport: &rewriteTransport{targetURL: ts.URL},
		Timeout:   1 * time.Second,
	})

	_, err := c.MobileData(context.Background(), false)
	require.Error(t, err)
}

func TestTacticsFromBundledAsset(t *testing.T) {
	c := NewClient()

	list, err := c.Tactics(context.Background(), false)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, model.TacticPhase{Tactic: "reconnaissance", Phase: "prepare"}, list[0])
}

func TestLocalLocations(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, v any) string {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	enterprise := write("enterprise.json", enterpriseBundle)
	pre := write("pre.json", preAttackBundle)
	tactics := write("tactics.json", tacticOrder)

	c := NewClient()
	c.SetURLs("file://"+enterprise, pre, "", tactics)

	data, err := c.EnterpriseData(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, data.Data.Objects, 4)

	list, err := c.Tactics(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = c.MobileData(context.Background(), false)
	assert.Error(t, err, "empty location")
}

func TestMissingLocalFile(t *testing.T) {
	c := NewClient()
	c.SetURLs(filepath.Join(t.TempDir(), "missing.json"), "x", "y", "assets/missing.json")

	_, err := c.EnterpriseData(context.Background(), false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.Tactics(context.Background(), false)
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	srv := &ctiServer{}
	c := setupTestServer(t, srv)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 2, srv.count("/enterprise.json"))
	assert.Equal(t, 2, srv.count("/mobile.json"))
	assert.Equal(t, 4, srv.count("/pre.json"))
	assert.Equal(t, 2, srv.count("/tactics.json"))
}
