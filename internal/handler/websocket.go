package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/report"
	"github.com/sakif/codesphere/internal/service"
)

// maxPendingRuns bounds how many runs one connection may have in flight.
const maxPendingRuns = 8

var upgrader = websocket.Upgrader{
	// Access is controlled by the bearer token middleware, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsIncoming is a run request from the client. ID is echoed back so the
// client can match results to requests.
type wsIncoming struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// wsOutgoing is a message to the client: "started", "result" or "error".
type wsOutgoing struct {
	Type    string                    `json:"type"`
	ID      string                    `json:"id,omitempty"`
	RunID   string                    `json:"runId,omitempty"`
	Output  string                    `json:"output,omitempty"`
	Error   bool                      `json:"error,omitempty"`
	Message string                    `json:"message,omitempty"`
	Result  *executor.ExecutionResult `json:"result,omitempty"`
}

type pendingRun struct {
	clientID string
	task     *executor.Task
}

// WebSocketHandler runs programs over a WebSocket connection.
type WebSocketHandler struct {
	svc    *service.ExecutionService
	logger *slog.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(svc *service.ExecutionService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, logger: logger}
}

// HandleWebSocket accepts run requests as JSON messages and answers each
// with a "started" message and later a "result" message. Results arrive in
// request order. Closing the connection cancels unfinished runs.
//
// HTTP: GET /api/ws
//
// The connection has one reader goroutine; every write happens on the
// handler goroutine, which also consumes task completions.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	// Frames share the HTTP body cap; an oversized frame ends the session.
	conn.SetReadLimit(maxBodyBytes)
	// The server's read and write timeouts still apply to the hijacked
	// connection; a session lasts as long as the client keeps it open.
	conn.NetConn().SetDeadline(time.Time{})
	h.logger.Debug("websocket session opened", clientAttr(r))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	incoming := make(chan wsIncoming)
	go h.readLoop(ctx, conn, incoming)

	var pending []pendingRun
	for {
		var next <-chan struct{}
		if len(pending) > 0 {
			next = pending[0].task.Done()
		}

		select {
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			if len(pending) >= maxPendingRuns {
				h.write(conn, wsOutgoing{Type: "error", ID: msg.ID, Message: "too many pending runs"})
				continue
			}
			task := h.svc.Start(ctx, msg.Code, msg.Language)
			pending = append(pending, pendingRun{clientID: msg.ID, task: task})
			h.write(conn, wsOutgoing{Type: "started", ID: msg.ID, RunID: task.ID()})

		case <-next:
			head := pending[0]
			pending = pending[1:]
			res, err := head.task.Result()
			h.write(conn, wsOutgoing{
				Type:   "result",
				ID:     head.clientID,
				RunID:  head.task.ID(),
				Output: report.Of(res, err),
				Error:  report.Failed(res, err),
				Result: res,
			})
		}
	}
}

// readLoop forwards decoded messages until the connection fails, then
// closes out.
func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- wsIncoming) {
	defer close(out)
	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if _, ok := err.(*json.SyntaxError); ok {
				// The frame was consumed; the connection is still usable.
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", slog.String("error", err.Error()))
			}
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg wsOutgoing) {
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", slog.String("error", err.Error()))
	}
}
