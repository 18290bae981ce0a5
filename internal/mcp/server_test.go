package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/legco-tools/legco-search-mcp/internal/config"
	"github.com/legco-tools/legco-search-mcp/internal/monitoring"
	"github.com/legco-tools/legco-search-mcp/internal/ratelimit"
	"github.com/legco-tools/legco-search-mcp/internal/scrape"
)

// newFixtureUpstream serves a fixed JSON body for every request.
func newFixtureUpstream(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, rateCapacity int) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	limiter := ratelimit.New(60*time.Second, rateCapacity, 10000)
	rt := NewRouter(NewRegistry(),
		&stubSearcher{result: json.RawMessage(`{"d":{"results":[]}}`)},
		&stubMeetings{result: &scrape.Result{}},
		limiter, monitoring.NewMetrics())

	srv := httptest.NewServer(NewServer(cfg, rt).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestMCPGetReturnsUsageHint(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Get(srv.URL + "/mcp")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var hint map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hint))
	assert.Equal(t, "legco-search-mcp", hint["name"])
	assert.Contains(t, hint["usage"], "JSON-RPC")
}

func TestMCPPostRoundTrip(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, config.ProtocolVersion, body.Result["protocolVersion"])
}

func TestMCPPostMapsErrorStatuses(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{broken`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMCPPostNotificationAccepted(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestMCPPostRateLimitStatus(t *testing.T) {
	srv := newTestServer(t, 1)

	post := func() *http.Response {
		resp, err := http.Post(srv.URL+"/mcp", "application/json",
			strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
		require.NoError(t, err)
		return resp
	}

	first := post()
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second := post()
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, config.ServerVersion, health["version"])
}

func TestStatsEndpointLoopbackOnly(t *testing.T) {
	srv := newTestServer(t, 1000)

	// httptest serves on 127.0.0.1, so the request arrives from loopback.
	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Contains(t, stats, "requests")
	assert.Contains(t, stats, "uptime")
}

func TestSSEStreamOpensWithCapabilities(t *testing.T) {
	srv := newTestServer(t, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	eventLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: message\n", eventLine)

	dataLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataLine, "data: "))

	payload := gjson.Parse(strings.TrimPrefix(strings.TrimSpace(dataLine), "data: "))
	assert.Equal(t, "notifications/initialized", payload.Get("method").String())
	assert.Equal(t, config.ProtocolVersion, payload.Get("params.protocolVersion").String())
}

func TestSSEPostBehavesLikeMCP(t *testing.T) {
	srv := newTestServer(t, 1000)

	resp, err := http.Post(srv.URL+"/sse", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Result struct {
			Tools []ToolInfo `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Result.Tools, 5)
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := newTestServer(t, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	err = conn.Write(ctx, websocket.MessageText,
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)
	assert.Len(t, gjson.GetBytes(data, "result.tools").Array(), 5)

	// Responses stay in order on one connection.
	err = conn.Write(ctx, websocket.MessageText,
		[]byte(`{"jsonrpc":"2.0","id":2,"method":"ping"}`))
	require.NoError(t, err)
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.GetBytes(data, "id").Int())
}

func TestWebSocketMalformedFrame(t *testing.T) {
	srv := newTestServer(t, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{broken`)))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-32700), gjson.GetBytes(data, "error.code").Int())

	// The socket survives the malformed frame.
	require.NoError(t, conn.Write(ctx, websocket.MessageText,
		[]byte(`{"jsonrpc":"2.0","id":3,"method":"ping"}`)))
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.GetBytes(data, "id").Int())
}

func TestCallerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", callerID(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", callerID(req))
}
