package signal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Calls/internal/app/orch"
	"github.com/dkeye/Calls/internal/core"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	SendBuffer int

	// AllowedOrigins are accepted in addition to the server's own host.
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.PongWait <= o.PingPeriod {
		o.PongWait = o.PingPeriod * 10 / 9
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// checkOrigin lets non-browser clients (no Origin header), same-host pages
// and the configured origins open a socket. The session cookie rides along
// on cross-site requests, so anything else is refused.
func (o Options) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range o.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Hub     *Hub
	Limiter *RateLimiter
	Opts    Options

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, limiter *RateLimiter, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch:     o,
		Hub:      hub,
		Limiter:  limiter,
		Opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.checkOrigin},
	}
}

// WsSignalConn is one client socket. Close only closes the send queue; the
// write pump flushes what is left and then closes the socket.
type WsSignalConn struct {
	sid  core.SessionID
	uid  domain.UserID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
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
}

// HandleSignal upgrades the request and serves one signaling session for the
// already-authenticated principal uid.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, uid domain.UserID) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(uid)).Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		sid:  sid,
		uid:  uid,
		conn: ws,
		send: make(chan core.Frame, ctl.Opts.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Attach(sid, conn)
	ctl.connect(conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

// connect joins the principal to presence and retires any older session.
func (ctl *SignalWSController) connect(conn *WsSignalConn) {
	if old, ok := ctl.Orch.Connect(conn.uid, conn.sid); ok {
		ctl.Hub.Retire(old)
	}
}
