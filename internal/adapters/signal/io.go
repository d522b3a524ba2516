package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(c.sid)).Str("user", string(c.uid)).Msg("readPump closing")
		ctl.Hub.Detach(c.sid)
		ctl.Orch.Disconnect(c.sid)
		c.Close()
		cancel()
	}()

	c.conn.SetReadLimit(ctl.Opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(c.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
			ctl.handleSignal(c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(c.sid)).Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(c, data)
	case "keepalive":
		ctl.handleKeepAlive(c, data)
	case "ping":
		ctl.handlePing(c)
	case "call.invite":
		ctl.handleInvite(c, data)
	case "call.accept":
		ctl.handleAccept(c, data)
	case "call.reject":
		ctl.handleReject(c, data)
	case "call.hangup":
		ctl.handleHangup(c, data)
	case "signal.offer", "signal.answer", "signal.ice":
		ctl.handleRelay(c, env.Type, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, "unknown_type")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code string) {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": code,
	})
}
