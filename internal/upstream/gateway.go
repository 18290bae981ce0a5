package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/legco-tools/legco-search-mcp/internal/legco"
)

// Error reports an upstream failure: a non-success status that was not
// retry-eligible, or an exhausted retry budget. For exhausted retries Err
// carries the last attempt's error verbatim and StatusCode its HTTP status
// (zero when the final attempt failed at the network layer).
type Error struct {
	StatusCode int
	Endpoint   string
	Err        error
}

func (e *Error) Error() string {
	target := "upstream"
	if e.Endpoint != "" {
		target = "upstream " + e.Endpoint
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", target, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s returned HTTP %d", target, e.StatusCode)
	default:
		return fmt.Sprintf("%s unreachable", target)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// WrapError stamps the endpoint onto a fetch failure. Errors the client
// already classified keep their retry detail; anything else is wrapped as-is.
func WrapError(err error, endpoint string) *Error {
	var uerr *Error
	if errors.As(err, &uerr) {
		uerr.Endpoint = endpoint
		return uerr
	}
	return &Error{Endpoint: endpoint, Err: err}
}

// Gateway composes the query builder and the resilient client into per-tool
// search operations against the OData collections.
type Gateway struct {
	client   *Client
	baseURLs map[string]string
}

// NewGateway creates a gateway. overrides replaces individual endpoint base
// URLs, keyed by endpoint key; unset keys keep the production URLs.
func NewGateway(client *Client, overrides map[string]string) *Gateway {
	urls := make(map[string]string, len(legco.BaseURLs))
	for key, u := range legco.BaseURLs {
		urls[key] = u
	}
	for key, u := range overrides {
		if _, known := urls[key]; known && u != "" {
			urls[key] = u
		}
	}
	return &Gateway{client: client, baseURLs: urls}
}

// Search validates rawParams against the tool's schema, resolves the target
// endpoint, and executes the query. JSON responses come back annotated with
// a _metadata block; XML responses are wrapped with their raw text and
// record count.
//
// Validation failures are returned before any network call is made.
func (g *Gateway) Search(ctx context.Context, toolName string, rawParams map[string]any) (json.RawMessage, error) {
	def, ok := legco.ToolByName(toolName)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}

	params, err := legco.ValidateParams(def, rawParams)
	if err != nil {
		return nil, err
	}

	endpoint, err := legco.ResolveEndpoint(toolName, params)
	if err != nil {
		return nil, err
	}
	query, err := legco.BuildQuery(endpoint, params)
	if err != nil {
		return nil, err
	}

	base, ok := g.baseURLs[endpoint]
	if !ok {
		return nil, &legco.QueryBuildError{Endpoint: endpoint}
	}
	requestURL := base + "?" + query.Encode()
	wantXML := params["format"] == "xml"

	log.Debug().Str("tool", toolName).Str("endpoint", endpoint).
		Str("filter", query.Get("$filter")).Msg("querying upstream")

	res, err := g.client.Get(ctx, requestURL, wantXML)
	if err != nil {
		return nil, WrapError(err, endpoint)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &Error{StatusCode: res.StatusCode, Endpoint: endpoint}
	}

	if wantXML {
		return wrapXML(res, endpoint)
	}
	return annotateJSON(res.Body, endpoint, params)
}

// annotateJSON attaches the _metadata block to the upstream JSON body
// without re-encoding the payload itself.
func annotateJSON(body []byte, endpoint string, params map[string]any) (json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON from endpoint %s", endpoint)
	}

	meta := map[string]any{
		"endpoint": endpoint,
		"params":   params,
	}
	if count := gjson.GetBytes(body, "d.__count"); count.Exists() {
		meta["total_available"] = count.String()
	}

	annotated, err := sjson.SetBytes(body, "_metadata", meta)
	if err != nil {
		return nil, fmt.Errorf("annotating response: %w", err)
	}
	return annotated, nil
}

// wrapXML packages an XML response body with its content type and the
// record count from the inlinecount directive.
func wrapXML(res *Result, endpoint string) (json.RawMessage, error) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/xml"
	}
	wrapped := map[string]any{
		"data":         string(res.Body),
		"format":       "xml",
		"content_type": contentType,
		"endpoint":     endpoint,
	}
	if count, ok := extractXMLCount(res.Body); ok {
		wrapped["total_records"] = count
	}
	return json.Marshal(wrapped)
}

var xmlCountPattern = regexp.MustCompile(`<m:count>(\d+)</m:count>`)

// extractXMLCount pulls the inlinecount total out of an OData XML response.
// A targeted regexp is deliberately used over full XML parsing; the element
// has a fixed shape and the body may otherwise be arbitrarily large.
func extractXMLCount(body []byte) (int, bool) {
	match := xmlCountPattern.FindSubmatch(body)
	if match == nil {
		return 0, false
	}
	count, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return 0, false
	}
	return count, true
}
