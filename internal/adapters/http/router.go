package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dkeye/Calls/internal/adapters/signal"
	"github.com/dkeye/Calls/internal/app/orch"
	"github.com/dkeye/Calls/internal/config"
	"github.com/dkeye/Calls/internal/domain"
	"github.com/dkeye/Calls/internal/history"
	"github.com/dkeye/Calls/internal/observability"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	principalKey   = "principal"
	sessionUserKey = "user_id"
	userHeader     = "X-User-ID"
)

type Deps struct {
	Orch     *orch.Orchestrator
	Signal   *signal.SignalWSController
	History  history.Store
	Gatherer prometheus.Gatherer
}

// PrincipalMiddleware takes the authenticated user from the session cookie.
// With trustHeader the header set by an authenticating gateway is accepted
// as well. Requests without a principal never reach the signaling core.
func PrincipalMiddleware(trustHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := sessions.Default(c).Get(sessionUserKey).(string)
		if raw == "" && trustHeader {
			raw = c.GetHeader(userHeader)
		}
		uid, err := domain.ParseUserID(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(principalKey, uid)
		c.Next()
	}
}

func principal(c *gin.Context) domain.UserID {
	uid, _ := c.Get(principalKey)
	id, _ := uid.(domain.UserID)
	return id
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CallSessions", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(observability.MetricsHandler(deps.Gatherer)))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// Viewer-count query for the rest of the platform.
	api.GET("/presence/count", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"onlineCount": deps.Orch.OnlineCount()})
	})

	if cfg.Mode == "debug" {
		api.POST("/session", func(c *gin.Context) {
			var req struct {
				UserID string `json:"userId"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
			uid, err := domain.ParseUserID(req.UserID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			sess := sessions.Default(c)
			sess.Set(sessionUserKey, string(uid))
			if err := sess.Save(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "session save failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": uid})
		})
	}

	authed := api.Group("", PrincipalMiddleware(cfg.TrustUserHeader))

	authed.GET("/ws/signal", func(c *gin.Context) {
		uid := principal(c)
		log.Info().Str("module", "adapters.http").Str("user", string(uid)).Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c, uid)
	})

	authed.GET("/presence/:userId", func(c *gin.Context) {
		uid, err := domain.ParseUserID(c.Param("userId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": uid, "online": deps.Orch.Presence.IsOnline(uid)})
	})

	// Active calls the principal takes part in.
	authed.GET("/calls", func(c *gin.Context) {
		uid := principal(c)
		rooms := make([]domain.CallRoom, 0)
		for _, room := range deps.Orch.Rooms.List() {
			if room.IsParticipant(uid) {
				rooms = append(rooms, room)
			}
		}
		c.JSON(http.StatusOK, gin.H{"calls": rooms})
	})

	authed.GET("/calls/history", func(c *gin.Context) {
		if deps.History == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "history disabled"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		entries, err := deps.History.ListByUser(c.Request.Context(), principal(c), limit)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("list call history")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": entries})
	})

	return r
}
