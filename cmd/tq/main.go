package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tradequest/internal/catalog"
	cl "tradequest/internal/cli"
	"tradequest/internal/config"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/slots"
	"tradequest/internal/store"
)

// app holds everything a command needs. It is filled in by the root
// command's pre-run hook.
type app struct {
	cfgPath  string
	slotFlag string
	remote   string
	verbose  bool

	cfg     *config.Config
	log     *slog.Logger
	cat     *catalog.Catalog
	store   store.Store
	mgr     *slots.Manager
	toasts  *notify.Queue
	profile cl.Profile
}

func main() {
	_ = godotenv.Load()

	a := &app{}
	root := &cobra.Command{
		Use:          "tq",
		Short:        "TradeQuest: a life and markets simulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.flushToasts()
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().StringVar(&a.slotFlag, "slot", "", "save slot (defaults to the active one)")
	root.PersistentFlags().StringVar(&a.remote, "remote", os.Getenv("TQ_REMOTE"), "tq-server base URL for remote play")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "show engine logs")

	root.AddCommand(
		newNewCmd(a),
		newSavesCmd(a),
		newUseCmd(a),
		newStatusCmd(a),
		newAdvanceCmd(a),
		newMarketCmd(a),
		newBuyCmd(a),
		newSellCmd(a),
		newPropertyCmd(a),
		newVehicleCmd(a),
		newValuableCmd(a),
		newLoanCmd(a),
		newCourseCmd(a),
		newJobCmd(a),
		newEventCmd(a),
		newDeathCheckCmd(a),
		newHistoryCmd(a),
		newAchievementsCmd(a),
		newToastsCmd(a),
		newPlayCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		if level, err = cfg.SlogLevel(); err != nil {
			return err
		}
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if a.profile, err = cl.LoadProfile(config.HomeDir()); err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	if a.remote == "" {
		a.remote = a.profile.ServerURL
	}

	if a.cat, err = catalog.LoadDir(cfg.CatalogDir); err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}
	if a.store, err = store.Open(ctx, cfg.Store, a.log); err != nil {
		return err
	}
	a.toasts = notify.NewQueue(64)
	a.mgr = slots.NewManager(a.store, a.cat, slots.Options{
		Tuning: cfg.Tuning,
		Seed:   cfg.Seed,
		Sink:   a.toasts,
		Logger: a.log,
	})
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) slot() (string, error) {
	slot := strings.TrimSpace(a.slotFlag)
	if slot == "" {
		slot = a.profile.Slot
	}
	if slot == "" {
		return "", errors.New("no active save: run `tq new` or `tq use <slot>`")
	}
	return slot, nil
}

func (a *app) client() *cl.Client {
	return cl.NewClient(a.remote)
}

func (a *app) useSlot(slot, serverURL string) error {
	a.profile.Slot = slot
	a.profile.ServerURL = serverURL
	return cl.SaveProfile(config.HomeDir(), a.profile)
}

// engine opens the active slot for a read-only view.
func (a *app) engine(ctx context.Context) (*game.Engine, string, error) {
	slot, err := a.slot()
	if err != nil {
		return nil, "", err
	}
	e, err := a.mgr.Open(ctx, slot)
	if err != nil {
		return nil, "", err
	}
	return e, slot, nil
}

// update runs an action against the active slot and persists it.
func (a *app) update(ctx context.Context, fn func(e *game.Engine) error) error {
	slot, err := a.slot()
	if err != nil {
		return err
	}
	return a.mgr.Update(ctx, slot, fn)
}

func (a *app) flushToasts() {
	if a.toasts != nil {
		renderToasts(a.toasts.Drain())
	}
	if a.cfg == nil {
		return
	}
	pending, err := notify.TakeOutbox(a.cfg.Autoplay.Outbox)
	if err != nil {
		a.log.Warn("read outbox", "err", err)
		return
	}
	renderToasts(pending)
}
