package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"tradequest/internal/catalog"
	"tradequest/internal/config"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/slots"
	"tradequest/internal/store"
)

// autoplay advances one save on a schedule so the clock keeps moving while
// the player is away. Unlocked achievements land in the outbox file and are
// shown by the next tq command.
type autoplay struct {
	cfg    config.AutoplayConfig
	mgr    *slots.Manager
	toasts *notify.Queue
	logger *slog.Logger
}

func (a *autoplay) tick(ctx context.Context) error {
	var res game.AdvanceResult
	err := a.mgr.Update(ctx, a.cfg.Slot, func(e *game.Engine) error {
		var err error
		res, err = e.Advance(a.cfg.Hours)
		return err
	})
	if pending := a.toasts.Drain(); len(pending) > 0 {
		if err := notify.AppendOutbox(a.cfg.Outbox, pending...); err != nil {
			a.logger.Error("outbox write failed", "err", err)
		}
	}
	if err != nil {
		return err
	}
	a.logger.Info("autoplay tick complete",
		"slot", a.cfg.Slot,
		"hours", res.Hours,
		"phase", res.Phase.String(),
		"settled", res.Settlement != nil,
		"unlocked", len(res.Unlocked),
	)
	return nil
}

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

	if strings.TrimSpace(cfg.Autoplay.Slot) == "" {
		logger.Error("autoplay.slot is not set")
		os.Exit(1)
	}
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

	toasts := notify.NewQueue(256)
	ap := &autoplay{
		cfg:    cfg.Autoplay,
		toasts: toasts,
		logger: logger,
		mgr: slots.NewManager(st, cat, slots.Options{
			Tuning: cfg.Tuning,
			Seed:   cfg.Seed,
			Sink:   toasts,
			Logger: logger,
		}),
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("TQ_AUTOPLAY_RUN_ONCE")), "true")
	if runOnce {
		if err := ap.tick(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("autoplay run-once completed")
		return
	}

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(cfg.Autoplay.Cron, func() {
		err := ap.tick(ctx)
		switch {
		case errors.Is(err, game.ErrGameOver):
			logger.Info("save has ended, stopping autoplay", "slot", cfg.Autoplay.Slot)
			stop()
		case err != nil:
			logger.Error("autoplay tick failed", "err", err)
		}
	})
	if err != nil {
		logger.Error("invalid autoplay schedule", "cron", cfg.Autoplay.Cron, "err", err)
		os.Exit(1)
	}

	logger.Info("autoplay started", "slot", cfg.Autoplay.Slot, "cron", cfg.Autoplay.Cron, "hours", cfg.Autoplay.Hours)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("autoplay shutdown")
}
