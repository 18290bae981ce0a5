package mcp

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/legco-tools/legco-search-mcp/internal/config"
	"github.com/legco-tools/legco-search-mcp/internal/jsonrpc"
)

// handleWS is the WebSocket adapter. Each inbound text frame is one
// JSON-RPC request, answered with exactly one outbound text frame. Frames
// are handled synchronously within the connection's goroutine, so responses
// on one connection come back in request order.
//
// Malformed frames produce a parse-error frame; the socket stays open.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection dropped")

	conn.SetReadLimit(config.MaxRequestBodySize)
	caller := callerID(r)
	ctx := r.Context()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			// Normal closure and client disconnects both land here.
			log.Debug().Err(err).Str("caller", caller).Msg("websocket closed")
			return
		}
		if msgType != websocket.MessageText {
			frame := jsonrpc.NewError(nil, jsonrpc.CodeInvalidRequest, "text frames only", nil).Encode()
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
			continue
		}

		resp := s.router.Handle(ctx, data, caller)
		if resp == nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, resp); err != nil {
			return
		}
	}
}
