package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"acfsgateway/internal/eventhub"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReplayDepth  = 20
)

var upgrader = websocket.Upgrader{
	// Browser clients hit this from whatever origin serves the UI; CORS
	// on the REST side already constrains who can reach the gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEnvelope struct {
	Channel   string    `json:"channel"`
	ChannelID string    `json:"channelId,omitempty"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket upgrades to a WebSocket connection and streams events
// from the requested channels. Clients select channels via repeated
// ?channel=maintenance&channel=session:<id> query params (type:id, id
// optional for system-wide channels).
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	channels := parseChannelParams(c.QueryArray("channel"))
	if len(channels) == 0 {
		channels = []eventhub.Channel{eventhub.System(eventhub.ChannelSystem)}
	}

	out := make(chan wsEnvelope, 256)
	var unsubscribes []func()
	for _, ch := range channels {
		ch := ch
		unsub := s.deps.Hub.Subscribe(ch, wsReplayDepth, func(ev eventhub.Event) {
			envelope := wsEnvelope{
				Channel:   string(ev.Channel.Type),
				ChannelID: ev.Channel.ID,
				Type:      ev.Type,
				Payload:   ev.Payload,
				Seq:       ev.Seq,
				Timestamp: ev.EnqueuedAt,
			}
			select {
			case out <- envelope:
			default:
				s.logger.Warn("websocket outbound queue full, dropping event", "channel", ch.Type)
			}
		})
		unsubscribes = append(unsubscribes, unsub)
	}
	defer func() {
		for _, unsub := range unsubscribes {
			unsub()
		}
	}()

	done := make(chan struct{})
	go s.drainInboundControlFrames(conn, done)

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case envelope := <-out:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			data, err := json.Marshal(envelope)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// drainInboundControlFrames reads and discards client frames so the
// underlying connection's read pump keeps servicing pings/closes; it
// closes done once the client disconnects.
func (s *Server) drainInboundControlFrames(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func parseChannelParams(raw []string) []eventhub.Channel {
	out := make([]eventhub.Channel, 0, len(raw))
	for _, r := range raw {
		typ, id := splitChannelParam(r)
		if typ == "" {
			continue
		}
		out = append(out, eventhub.Channel{Type: eventhub.ChannelType(typ), ID: id})
	}
	return out
}

func splitChannelParam(raw string) (typ, id string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
