package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/archive"
	"github.com/robalobadob/wortkunst/internal/config"
	"github.com/robalobadob/wortkunst/internal/httpserver"
	"github.com/robalobadob/wortkunst/internal/scoring"
	"github.com/robalobadob/wortkunst/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// `wortkunst admin-token` prints a 24h admin bearer token and exits.
	if len(os.Args) > 1 && os.Args[1] == "admin-token" {
		tok, exp, err := httpserver.IssueAdminToken(cfg.AdminJWTSecret, "cli", 24*time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("issue admin token")
		}
		fmt.Println(tok)
		log.Info().Time("expires", exp).Msg("admin token issued")
		return
	}

	queue := scoring.NewQueue(cfg.MaxConcurrent, &http.Client{Timeout: cfg.LLMTimeout})
	defer queue.Close()

	opts := httpserver.Options{
		Store:             store.NewMemoryStore(),
		Catalog:           cfg.Catalog(),
		Evaluator:         queue,
		ClientOrigin:      cfg.ClientOrigin,
		AdminSecret:       cfg.AdminJWTSecret,
		PublicBaseURL:     cfg.PublicBaseURL,
		EndPenaltyPerTile: cfg.EndPenaltyPerTile,
	}
	if cfg.ArchiveEnabled() {
		arc, err := archive.Open(cfg.ArchiveDSN)
		if err != nil {
			log.Warn().Err(err).Str("dsn", cfg.ArchiveDSN).Msg("archive disabled")
		} else {
			defer arc.Close()
			opts.Archive = arc
		}
	}

	srv := httpserver.New(opts)
	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Str("provider", cfg.DefaultProvider).
			Int("maxConcurrent", cfg.MaxConcurrent).Msg("starting wortkunst")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
