// Package signal carries chat frames over websocket connections.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

// Options tune a websocket connection.
type Options struct {
	ReadLimit  int64
	SendQueue  int
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  1 << 20,
		SendQueue:  32,
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  5 * time.Second,
	}
}

type ChatWSController struct {
	Orch *orch.Orchestrator
	Opts Options

	upgrader websocket.Upgrader
}

func NewChatWSController(o *orch.Orchestrator, opts Options) *ChatWSController {
	return &ChatWSController{
		Orch: o,
		Opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsSignalConn is the transport end of one session.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, queue int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, queue)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleChat upgrades the request into a session with the counter-party named
// by the :room path parameter. The viewer must already be resolved.
func (ctl *ChatWSController) HandleChat(ctx context.Context, c *gin.Context, viewer *domain.User) {
	peerName := c.Param("room")
	peer, err := ctl.Orch.ResolveCounterpart(c.Request.Context(), viewer, peerName)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrIdentityNotFound) {
			status = http.StatusNotFound
		}
		log.Warn().Err(err).Str("module", "signal").Str("user", viewer.Username).Str("room", peerName).Msg("refusing upgrade")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Opts.ReadLimit)

	sid := core.SessionID(uuid.NewString())
	conn := newWsSignalConn(ws, ctl.Opts.SendQueue)
	sess := core.NewMemberSession(sid, viewer, peer, conn)

	connCtx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Open(sess, cancel); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("open session")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", viewer.Username).Str("room", sess.RoomKey().String()).Msg("new WS connection")

	go ctl.writePump(connCtx, sid, conn)
	go ctl.readPump(connCtx, sid, conn)
}
