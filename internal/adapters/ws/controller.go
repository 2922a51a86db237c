package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/chatter/internal/chat"
	"github.com/dkeye/chatter/internal/config"
	"github.com/dkeye/chatter/internal/presence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	Cfg    *config.Config
	Gate   *chat.Gate
	Engine *chat.Engine
	Hub    *Hub
}

func NewController(cfg *config.Config, gate *chat.Gate, engine *chat.Engine, hub *Hub) *Controller {
	return &Controller{Cfg: cfg, Gate: gate, Engine: engine, Hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bearerToken extracts the credential presented at connection establishment:
// a `token` query parameter or an Authorization bearer header.
func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// HandleWS admits one connection: upgrade, authenticate, register, pump.
// An auth failure closes the transport immediately and leaves no state.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "ws.controller").Err(err).Msg("ws upgrade")
		return
	}
	if ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	id := presence.ConnID(uuid.NewString())
	conn := newConn(ws, ctl.Cfg.SendBuffer)

	user, welcome, err := ctl.Gate.Admit(id, bearerToken(c))
	if err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	log.Info().Str("module", "ws.controller").Str("conn", string(id)).Str("user", string(user.ID)).Msg("connection established")

	ctl.Hub.Register(id, conn)
	// Welcome goes only to the admitted connection. Queued before the read
	// loop starts, so no room event can overtake it.
	ctl.Hub.Dispatch(welcome)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, id, conn)
		ctl.Hub.Unregister(id)
		ctl.Hub.Dispatch(ctl.Engine.Disconnect(id))
		log.Info().Str("module", "ws.controller").Str("conn", string(id)).Msg("connection closed")
	}()
}
