package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	wsadapter "github.com/touka-aoi/tanzbot/server/adapter/websocket"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// AcceptHandler は人間のクライアントのwebsocket接続を受け付け、Roomにつなぎます。
type AcceptHandler struct {
	room           domain.RoomGateway
	originPatterns []string
}

func NewAcceptHandler(room domain.RoomGateway, originPatterns []string) *AcceptHandler {
	return &AcceptHandler{room: room, originPatterns: originPatterns}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	connection := domain.NewConnection(session.ID(), wsadapter.NewTransportFrom(conn))
	endpoint, err := domain.NewSessionEndpoint(session, connection, h.room)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "endpoint init failed")
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "sessionID", session.ID())
	if err := endpoint.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "session endpoint stopped", "sessionID", session.ID(), "err", err)
	}
}
