package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradequest/internal/api"
	"tradequest/internal/catalog"
	"tradequest/internal/config"
	"tradequest/internal/notify"
	"tradequest/internal/slots"
	"tradequest/internal/store"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.DefaultPath())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cat, err := catalog.LoadDir(cfg.CatalogDir)
	if err != nil {
		logger.Error("catalogue load failed", "err", err)
		os.Exit(1)
	}
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store open failed", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	hub := notify.NewHub(64)
	mgr := slots.NewManager(st, cat, slots.Options{
		Tuning: cfg.Tuning,
		Seed:   cfg.Seed,
		Sink:   hub,
		Logger: logger,
	})

	server := api.New(cfg.Server, logger, mgr, hub)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("tradequest api listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "catalogue", cat.Digest)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
