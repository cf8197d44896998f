package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"edubattle/internal/model"
	"edubattle/internal/service"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin policy is handled at the edge
	},
}

// Handler serves battle state over a websocket. It runs the same bounded
// watch loop as the SSE endpoint, so both transports share one delivery
// contract and one lifetime budget.
type Handler struct {
	notifier *service.Notifier
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(notifier *service.Notifier, logger *zap.Logger) *Handler {
	return &Handler{notifier: notifier, logger: logger}
}

// Frame is the websocket envelope: one of "message", "error", "heartbeat".
type Frame struct {
	Type   string        `json:"type"`
	Battle *model.Battle `json:"battle,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// BattleWS handles GET /v1/battles/{code}/ws
func (h *Handler) BattleWS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain reads so the close handshake and disconnects are observed.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	sink := &wsSink{conn: conn}
	if err := h.notifier.Watch(ctx, code, sink); err != nil {
		h.logger.Debug("websocket stream ended", zap.String("code", code), zap.Error(err))
	}

	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) write(f Frame) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

func (s *wsSink) SendState(battle *model.Battle) error {
	return s.write(Frame{Type: "message", Battle: battle})
}

func (s *wsSink) SendHeartbeat() error {
	return s.write(Frame{Type: "heartbeat"})
}

func (s *wsSink) SendError(message string) error {
	return s.write(Frame{Type: "error", Error: message})
}
