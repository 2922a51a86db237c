package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/chatter/internal/presence"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "ws.io").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "ws.io").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws.io").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws.io").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes one connection's inbound frames sequentially, so each
// connection's own requests apply in submission order.
func (ctl *Controller) readPump(ctx context.Context, id presence.ConnID, c *Conn) {
	defer func() {
		log.Debug().Str("module", "ws.io").Str("conn", string(id)).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "ws.io").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(id, data)
		}
	}
}

type inboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *Controller) handleFrame(id presence.ConnID, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws.io").Str("conn", string(id)).Msg("bad frame")
		return
	}

	switch env.Event {
	case "enterRoom":
		ctl.handleEnterRoom(id, env.Payload)
	case "message":
		ctl.handleMessage(id, env.Payload)
	case "activity":
		ctl.handleActivity(id, env.Payload)
	default:
		log.Warn().Str("module", "ws.io").Str("event", env.Event).Msg("unknown event")
	}
}

func (ctl *Controller) handleEnterRoom(id presence.ConnID, payload json.RawMessage) {
	var p struct {
		Name string `json:"name"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws.io").Msg("bad enterRoom payload")
		return
	}
	events, err := ctl.Engine.EnterRoom(id, p.Name, p.Room)
	if err != nil {
		// Malformed requests are rejected locally, nothing reaches clients.
		log.Warn().Err(err).Str("module", "ws.io").Str("conn", string(id)).Msg("enterRoom rejected")
		return
	}
	ctl.Hub.Dispatch(events)
}

func (ctl *Controller) handleMessage(id presence.ConnID, payload json.RawMessage) {
	var p struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws.io").Msg("bad message payload")
		return
	}
	ctl.Hub.Dispatch(ctl.Engine.Message(id, p.Name, p.Text))
}

func (ctl *Controller) handleActivity(id presence.ConnID, payload json.RawMessage) {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		log.Warn().Err(err).Str("module", "ws.io").Msg("bad activity payload")
		return
	}
	ctl.Hub.Dispatch(ctl.Engine.Activity(id, name))
}
