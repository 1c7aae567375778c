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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/asken-backend/internal/config"
	"github.com/DoyleJ11/asken-backend/internal/engine"
	"github.com/DoyleJ11/asken-backend/internal/httpapi"
	"github.com/DoyleJ11/asken-backend/internal/hub"
	"github.com/DoyleJ11/asken-backend/internal/logging"
	"github.com/DoyleJ11/asken-backend/internal/store"
	"github.com/DoyleJ11/asken-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL, cfg.RoomTTL)
		if err != nil {
			return err
		}
		defer pg.Close()
		backend = pg
		log.Info("room store: postgres")
	} else {
		log.Info("room store: memory only")
	}
	rooms := store.NewCached(backend, log)

	h := hub.NewHub(ctx, hub.Config{
		Store:         rooms,
		Logger:        log,
		Rules:         engine.Rules{DisconnectGrace: cfg.DisconnectGrace, IdleTTL: cfg.RoomTTL},
		BotDelay:      cfg.BotPace(),
		SweepInterval: cfg.RoomSweepInterval,
	})
	if n, err := h.Restore(ctx); err != nil {
		log.Warn("could not restore rooms", zap.Error(err))
	} else {
		log.Info("rooms restored", zap.Int("rooms", n))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, rooms, ws.Options{Logger: log, ReadTimeout: cfg.ReadTimeout}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rooms.Run(gctx, cfg.StoreSyncInterval)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}
