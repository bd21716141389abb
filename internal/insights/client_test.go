package insights_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/testsupport"
)

// scriptedResponse is one canned reply from the stub analytics service.
type scriptedResponse struct {
	status  int
	body    string
	headers map[string]string
}

// scriptedTransport replays canned responses in order, repeating the last
// one when the script runs out.
type scriptedTransport struct {
	mu        sync.Mutex
	script    []scriptedResponse
	calls     int
	lastBody  string
	lastAuth  string
	onRequest func()
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		s.lastBody = string(raw)
	}
	s.lastAuth = req.Header.Get("Authorization")

	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	if s.onRequest != nil {
		s.onRequest()
	}

	resp := s.script[idx]
	header := make(http.Header)
	for k, v := range resp.headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: resp.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Request:    req,
	}, nil
}

// recordingSleeper skips real sleeps and records requested delays so retry
// tests stay inside a bounded wall clock.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func newTestClient(t *testing.T, transport *scriptedTransport, sleeper *recordingSleeper) *insights.Client {
	t.Helper()
	return insights.NewClient(insights.Config{
		BaseURL:        "http://insights.test",
		APIKey:         "test-key",
		QueryKind:      "HogQLQuery",
		Timeout:        time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 10 * time.Millisecond,
	}, testsupport.NewTestLogger(),
		insights.WithTransport(transport),
		insights.WithSleeper(sleeper.sleep),
	)
}

func TestExecuteDecodesRows(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 200, body: `{"results":[["/dashboard",42,7],["/pricing",10,null]]}`},
	}}
	client := newTestClient(t, transport, &recordingSleeper{})

	rows, err := client.Execute(context.Background(), insights.Query{
		Text:   "SELECT path, views, visitors FROM events",
		Values: map[string]any{"path": "/dashboard"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "/dashboard", rows[0].String(0))
	assert.Equal(t, 42.0, rows[0].Number(1))
	assert.Equal(t, 7.0, rows[0].Number(2))
	// Nulls coerce to zero, never panic.
	assert.Equal(t, 0.0, rows[1].Number(2))

	assert.Equal(t, "Bearer test-key", transport.lastAuth)
	assert.Contains(t, transport.lastBody, `"kind":"HogQLQuery"`)
	assert.Contains(t, transport.lastBody, `"path":"/dashboard"`)
}

func TestExecuteRetriesThrottledThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 429, headers: map[string]string{"Retry-After": "1"}},
		{status: 429},
		{status: 200, body: `{"results":[["/x",1,1]]}`},
	}}
	sleeper := &recordingSleeper{}
	client := newTestClient(t, transport, sleeper)

	rows, err := client.Execute(context.Background(), insights.Query{Text: "q"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 3, transport.calls)
	// Exactly two recorded retries, the first honoring the Retry-After hint.
	require.Len(t, sleeper.delays, 2)
	assert.GreaterOrEqual(t, sleeper.delays[0], time.Second)
}

func TestExecuteServerErrorsExhaustCeiling(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 502, body: "bad gateway"},
	}}
	sleeper := &recordingSleeper{}
	client := newTestClient(t, transport, sleeper)

	_, err := client.Execute(context.Background(), insights.Query{Text: "q"})
	require.Error(t, err)

	var serverErr *insights.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 502, serverErr.Status)
	// 1 initial attempt + 3 retries, then terminal. Never unbounded.
	assert.Equal(t, 4, transport.calls)
	assert.Len(t, sleeper.delays, 3)
}

func TestExecuteClientErrorNeverRetries(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 400, body: `{"detail":"syntax error near SELECT"}`},
	}}
	sleeper := &recordingSleeper{}
	client := newTestClient(t, transport, sleeper)

	_, err := client.Execute(context.Background(), insights.Query{Text: "q"})
	require.Error(t, err)

	var clientErr *insights.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 400, clientErr.Status)
	assert.Contains(t, clientErr.Body, "syntax error")
	assert.Equal(t, 1, transport.calls)
	assert.Empty(t, sleeper.delays)
	assert.False(t, insights.IsRetryable(err))
}

func TestExecuteMissingAPIKey(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{{status: 200, body: `{}`}}}
	client := insights.NewClient(insights.Config{
		BaseURL: "http://insights.test",
	}, testsupport.NewTestLogger(), insights.WithTransport(transport))

	_, err := client.Execute(context.Background(), insights.Query{Text: "q"})
	var clientErr *insights.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 0, transport.calls)
}

func TestExecuteStopsOnCancellationBeforeBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := &scriptedTransport{
		script:    []scriptedResponse{{status: 500}},
		onRequest: cancel,
	}
	sleeper := &recordingSleeper{}
	client := newTestClient(t, transport, sleeper)

	_, err := client.Execute(ctx, insights.Query{Text: "q"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, transport.calls)
}

func TestExecuteAllFailsTheWholeSet(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 403, body: "forbidden"},
	}}
	client := newTestClient(t, transport, &recordingSleeper{})

	_, err := client.ExecuteAll(context.Background(), map[string]insights.Query{
		"stats":      {Text: "q1"},
		"timeseries": {Text: "q2"},
	})
	require.Error(t, err)

	var clientErr *insights.ClientError
	assert.True(t, errors.As(err, &clientErr) || errors.Is(err, context.Canceled))
}

func TestExecuteAllReturnsEverySet(t *testing.T) {
	transport := &scriptedTransport{script: []scriptedResponse{
		{status: 200, body: `{"results":[["a",1]]}`},
	}}
	client := newTestClient(t, transport, &recordingSleeper{})

	sets, err := client.ExecuteAll(context.Background(), map[string]insights.Query{
		"current":  {Text: "q1"},
		"previous": {Text: "q2"},
	})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Len(t, sets["current"], 1)
	assert.Len(t, sets["previous"], 1)
}
