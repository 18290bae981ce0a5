package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/legco-tools/legco-search-mcp/internal/config"
	"github.com/legco-tools/legco-search-mcp/internal/jsonrpc"
	"github.com/legco-tools/legco-search-mcp/internal/legco"
	"github.com/legco-tools/legco-search-mcp/internal/monitoring"
	"github.com/legco-tools/legco-search-mcp/internal/ratelimit"
	"github.com/legco-tools/legco-search-mcp/internal/scrape"
	"github.com/legco-tools/legco-search-mcp/internal/upstream"
)

// Error categories carried in the error data block, used by the HTTP
// adapter for status mapping and by clients for classification.
const (
	categoryValidation = "validation"
	categoryRateLimit  = "rate_limit"
	categoryUpstream   = "upstream"
	categoryInternal   = "internal"
)

// Searcher executes one OData-backed tool call.
type Searcher interface {
	Search(ctx context.Context, toolName string, rawParams map[string]any) (json.RawMessage, error)
}

// MeetingLister serves the meeting summaries tool.
type MeetingLister interface {
	MeetingSummaries(ctx context.Context, year int, date string) (*scrape.Result, error)
}

// Router dispatches JSON-RPC methods to handlers, applying the rate limiter
// before any method runs. One inbound message produces at most one response;
// notifications produce none.
type Router struct {
	registry *Registry
	searcher Searcher
	meetings MeetingLister
	limiter  *ratelimit.Limiter
	metrics  *monitoring.Metrics
}

// NewRouter wires the router. The limiter is injected rather than global so
// tests and multi-instance deployments control their own budgets.
func NewRouter(registry *Registry, searcher Searcher, meetings MeetingLister, limiter *ratelimit.Limiter, metrics *monitoring.Metrics) *Router {
	return &Router{
		registry: registry,
		searcher: searcher,
		meetings: meetings,
		limiter:  limiter,
		metrics:  metrics,
	}
}

// TextContent is one content item of a tools/call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the tools/call result envelope.
type CallResult struct {
	Content []TextContent `json:"content"`
}

// Handle processes one inbound message and returns the encoded response, or
// nil for notifications.
func (rt *Router) Handle(ctx context.Context, data []byte, callerID string) []byte {
	var req jsonrpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return jsonrpc.NewError(nil, jsonrpc.CodeParseError, "parse error", nil).Encode()
	}

	if req.IsNotification() {
		// notifications/initialized and friends are accepted silently.
		log.Debug().Str("method", req.Method).Msg("notification received")
		return nil
	}

	requestID := uuid.NewString()
	resp := rt.dispatch(ctx, &req, callerID, requestID)

	success := resp.Error == nil
	rt.metrics.RecordRequest(success)
	event := log.Info()
	if !success {
		event = log.Warn().Int("code", resp.Error.Code)
	}
	event.Str("request_id", requestID).
		Str("method", req.Method).
		Str("caller", callerID).
		Msg("request handled")

	return resp.Encode()
}

func (rt *Router) dispatch(ctx context.Context, req *jsonrpc.Request, callerID, requestID string) *jsonrpc.Response {
	if !rt.limiter.Admit(callerID) {
		rt.metrics.RecordRateLimited()
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, "rate limit exceeded", map[string]any{
			"category":   categoryRateLimit,
			"retryAfter": rt.limiter.RetryAfter(),
			"requestId":  requestID,
		})
	}

	switch req.Method {
	case "initialize":
		return rt.handleInitialize(req, requestID)
	case "tools/list":
		return jsonrpc.NewResult(req.ID, map[string]any{"tools": rt.registry.List()})
	case "tools/call":
		return rt.handleToolsCall(ctx, req, requestID)
	case "ping":
		return jsonrpc.NewResult(req.ID, map[string]any{})
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "method not found: "+req.Method, map[string]any{
			"requestId": requestID,
		})
	}
}

var protocolVersionPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (rt *Router) handleInitialize(req *jsonrpc.Request, requestID string) *jsonrpc.Response {
	if len(req.Params) > 0 {
		if pv := gjson.GetBytes(req.Params, "protocolVersion"); pv.Exists() &&
			!protocolVersionPattern.MatchString(pv.String()) {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams,
				"invalid protocol version: "+pv.String(), map[string]any{
					"category":  categoryValidation,
					"requestId": requestID,
				})
		}
	}
	return jsonrpc.NewResult(req.ID, InitializePayload())
}

// InitializePayload is the static initialize result. The SSE adapter reuses
// it for the connection-open notification.
func InitializePayload() map[string]any {
	return map[string]any{
		"protocolVersion": config.ProtocolVersion,
		"capabilities": map[string]any{
			"tools":   map[string]any{"listChanged": false},
			"logging": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    config.ServerName,
			"version": config.ServerVersion,
		},
	}
}

func (rt *Router) handleToolsCall(ctx context.Context, req *jsonrpc.Request, requestID string) *jsonrpc.Response {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "invalid params", map[string]any{
				"category":  categoryValidation,
				"requestId": requestID,
			})
		}
	}
	if params.Name == "" {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "tool name is required", map[string]any{
			"category":  categoryValidation,
			"requestId": requestID,
		})
	}
	if _, ok := rt.registry.Lookup(params.Name); !ok {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "tool not found: "+params.Name, map[string]any{
			"requestId": requestID,
		})
	}
	if params.Arguments == nil {
		params.Arguments = make(map[string]any)
	}

	result, err := rt.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return rt.toError(req.ID, err, requestID)
	}
	return jsonrpc.NewResult(req.ID, CallResult{
		Content: []TextContent{{Type: "text", Text: string(result)}},
	})
}

// callTool runs one tool and returns its JSON-encoded payload.
func (rt *Router) callTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if name == legco.ToolMeetingSummaries {
		def, _ := rt.registry.Lookup(name)
		params, err := legco.ValidateParams(def, args)
		if err != nil {
			return nil, err
		}
		year, _ := params["year"].(int)
		date, _ := params["date"].(string)
		result, err := rt.meetings.MeetingSummaries(ctx, year, date)
		rt.metrics.RecordUpstreamCall(err != nil)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}

	result, err := rt.searcher.Search(ctx, name, args)
	if err == nil || reachedNetwork(err) {
		rt.metrics.RecordUpstreamCall(err != nil)
	}
	return result, err
}

// reachedNetwork reports whether a search failure happened after the query
// went out. Validation and query-build rejections stay out of the upstream
// counters so they cannot skew the health degradation ratio.
func reachedNetwork(err error) bool {
	var vErr *legco.ValidationError
	var qErr *legco.QueryBuildError
	return !errors.As(err, &vErr) && !errors.As(err, &qErr)
}

// toError converts the error taxonomy into a JSON-RPC error response. This
// is the single conversion point; transport adapters carry no error-mapping
// logic of their own.
func (rt *Router) toError(id any, err error, requestID string) *jsonrpc.Response {
	var vErr *legco.ValidationError
	if errors.As(err, &vErr) {
		rt.metrics.RecordValidationFailure()
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, vErr.Error(), map[string]any{
			"category":  categoryValidation,
			"field":     vErr.Field,
			"requestId": requestID,
		})
	}

	var uErr *upstream.Error
	if errors.As(err, &uErr) {
		data := map[string]any{
			"category":  categoryUpstream,
			"endpoint":  uErr.Endpoint,
			"requestId": requestID,
		}
		if uErr.StatusCode > 0 {
			data["statusCode"] = uErr.StatusCode
		}
		return jsonrpc.NewError(id, jsonrpc.CodeInternalError, uErr.Error(), data)
	}

	var qErr *legco.QueryBuildError
	if errors.As(err, &qErr) {
		log.Error().Str("endpoint", qErr.Endpoint).Msg("query build failure, registry bug")
	}
	return jsonrpc.NewError(id, jsonrpc.CodeInternalError, err.Error(), map[string]any{
		"category":  categoryInternal,
		"requestId": requestID,
	})
}

// HTTPStatus maps an encoded response to the HTTP status the plain-HTTP
// adapter should use, plus the Retry-After value for rate limit rejections
// (zero otherwise).
func HTTPStatus(encoded []byte) (status, retryAfter int) {
	code := gjson.GetBytes(encoded, "error.code")
	if !code.Exists() {
		return 200, 0
	}
	if gjson.GetBytes(encoded, "error.data.category").String() == categoryRateLimit {
		return 429, int(gjson.GetBytes(encoded, "error.data.retryAfter").Int())
	}
	switch code.Int() {
	case jsonrpc.CodeInvalidParams, jsonrpc.CodeParseError, jsonrpc.CodeInvalidRequest:
		return 400, 0
	default:
		if gjson.GetBytes(encoded, "error.data.category").String() == categoryUpstream {
			return 502, 0
		}
		return 500, 0
	}
}
