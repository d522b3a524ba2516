package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Calls/internal/adapters/http"
	sig "github.com/dkeye/Calls/internal/adapters/signal"
	"github.com/dkeye/Calls/internal/app"
	"github.com/dkeye/Calls/internal/app/orch"
	"github.com/dkeye/Calls/internal/config"
	"github.com/dkeye/Calls/internal/history"
	"github.com/dkeye/Calls/internal/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.TrustUserHeader {
		log.Warn().Msg("trusting X-User-ID header; run only behind an authenticating gateway")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.Metrics.Namespace, reg)

	store, err := history.NewStore(ctx, cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.History.Driver).Msg("failed to open call history")
	}
	calls := history.NewAsync(store, cfg.History.QueueSize, cfg.History.Timeout, metrics.IncHistoryFailure)

	presence := app.NewPresenceRegistry()
	hub := sig.NewHub(presence, app.PolicyByName(cfg.Backpressure), metrics)
	app.NewPresenceBroadcaster(presence, hub, metrics)

	o := &orch.Orchestrator{
		Presence:    presence,
		Rooms:       app.NewCallRoomStore(),
		Router:      app.NewSignalingRouter(presence, hub, metrics),
		Notifier:    hub,
		History:     calls,
		Metrics:     metrics,
		RingTimeout: cfg.RingTimeout,
	}
	o.StartReaper(ctx, cfg.ReaperInterval)

	ctl := sig.NewSignalWSController(o, hub, sig.NewRateLimiter(cfg.InviteLimit, cfg.InviteInterval), sig.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		SendBuffer: cfg.SendBuffer,

		AllowedOrigins: cfg.AllowedOrigins,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Signal:   ctl,
		History:  store,
		Gatherer: reg,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Call signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := calls.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("call history queue not drained")
	}
	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("call history close")
	}
	log.Info().Msg("Server exited gracefully")
}
