package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/relabs/matchcast/internal/adapters/http"
	"github.com/relabs/matchcast/internal/adapters/rtc"
	sig "github.com/relabs/matchcast/internal/adapters/signal"
	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/app/orch"
	"github.com/relabs/matchcast/internal/config"
	"github.com/relabs/matchcast/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	engine, err := rtc.NewEngine(cfg.StunServers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start media engine")
	}

	table := app.NewMatchTable()
	hub := sig.NewHub()
	coord := orch.New(table, engine, app.FirstAvailablePolicy{})
	coord.Events = hub
	reporter := app.NewStatusReporter(table)
	metrics.RegisterMatchGauge(table.Len)

	r := router.SetupRouter(ctx, cfg, coord, reporter, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Matchcast server started")
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
	log.Info().Msg("Server exited gracefully")
}
