package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tradequest/internal/api"
	"tradequest/internal/game"
	"tradequest/internal/notify"
)

const cmdTimeout = 30 * time.Second

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cmdTimeout)
}

// explain adds a hint for errors the player can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrAccountFrozen):
		printWarn("Your balance is negative. Take a loan (`tq loan offers`) to unfreeze the account.")
	case errors.Is(err, game.ErrGameOver):
		printWarn("This save has ended. Start a new one with `tq new`.")
	}
	return err
}

func newNewCmd(a *app) *cobra.Command {
	var name, surname, dob, difficulty, start string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new save",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if name == "" {
				if name, err = promptRequired("First name"); err != nil {
					return err
				}
			}
			if surname == "" {
				if surname, err = promptOptional("Surname"); err != nil {
					return err
				}
			}
			if dob == "" {
				if dob, err = promptRequired("Date of birth (YYYY-MM-DD)"); err != nil {
					return err
				}
			}
			if difficulty == "" {
				opts := []string{game.DifficultyEasy, game.DifficultyStandard, game.DifficultyRealistic}
				if difficulty, err = promptChoice("Difficulty", opts, game.DifficultyStandard); err != nil {
					return err
				}
			}
			slot := strings.TrimSpace(a.slotFlag)
			if slot == "" {
				slot = uuid.NewString()[:8]
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			if a.remote != "" {
				resp, err := a.client().CreateSave(ctx, api.CreateSaveRequest{
					Slot: slot, PlayerName: name, PlayerSurname: surname,
					DateOfBirth: dob, Difficulty: difficulty, Start: start,
				})
				if err != nil {
					return err
				}
				if err := a.useSlot(resp.Slot, a.remote); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Created remote save %s.", resp.Slot))
				renderStatus(resp.Slot, resp.Phase, resp.State, resp.Aggregates, a.cat)
				return nil
			}

			birth, err := game.ParseDate(dob)
			if err != nil {
				return fmt.Errorf("date of birth: %w", err)
			}
			var startAt time.Time
			if start != "" {
				d, err := game.ParseDate(start)
				if err != nil {
					return fmt.Errorf("start: %w", err)
				}
				startAt = d.Time
			}
			e, err := a.mgr.Create(ctx, slot, game.NewGameInput{
				PlayerName:    name,
				PlayerSurname: surname,
				DateOfBirth:   birth,
				Difficulty:    difficulty,
				Start:         startAt,
			})
			if err != nil {
				return err
			}
			if err := a.useSlot(slot, ""); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Created save %s.", slot))
			v := e.View()
			renderStatus(slot, v.Phase, v.State, v.Aggregates, a.cat)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "first name")
	cmd.Flags().StringVar(&surname, "surname", "", "surname")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, standard or realistic")
	cmd.Flags().StringVar(&start, "start", "", "in-game start date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func newSavesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "saves",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if a.remote != "" {
				list, err := a.client().ListSaves(ctx)
				if err != nil {
					return err
				}
				renderSaves(list, a.profile.Slot)
				return nil
			}
			list, err := a.store.List(ctx)
			if err != nil {
				return err
			}
			renderSaves(list, a.profile.Slot)
			return nil
		},
	}
}

func newUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <slot>",
		Short: "Make a slot the active save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			slot := args[0]
			if a.remote != "" {
				if _, err := a.client().Snapshot(ctx, slot); err != nil {
					return err
				}
			} else if _, err := a.mgr.Open(ctx, slot); err != nil {
				return err
			}
			if err := a.useSlot(slot, a.remote); err != nil {
				return err
			}
			printSuccess("Active save: " + slot)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the player dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if a.remote != "" {
				slot, err := a.slot()
				if err != nil {
					return err
				}
				resp, err := a.client().Snapshot(ctx, slot)
				if err != nil {
					return err
				}
				renderStatus(slot, resp.Phase, resp.State, resp.Aggregates, a.cat)
				return nil
			}
			e, slot, err := a.engine(ctx)
			if err != nil {
				return err
			}
			v := e.View()
			renderStatus(slot, v.Phase, v.State, v.Aggregates, a.cat)
			return nil
		},
	}
}

func newAdvanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <hour|day|week|month|N>",
		Short: "Move the clock forward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := game.ParseStep(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if a.remote != "" {
				slot, err := a.slot()
				if err != nil {
					return err
				}
				res, err := a.client().Advance(ctx, slot, hours, uuid.NewString())
				if err != nil {
					return err
				}
				renderAdvance(res, a.cat)
				return nil
			}
			var res game.AdvanceResult
			err = a.update(ctx, func(e *game.Engine) error {
				var err error
				res, err = e.Advance(hours)
				return err
			})
			if err != nil {
				return explain(err)
			}
			renderAdvance(res, a.cat)
			return nil
		},
	}
}

func newMarketCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "market [stocks|crypto]",
		Short: "Show market prices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only := ""
			if len(args) == 1 {
				only = strings.ToLower(args[0])
				if err := game.ValidateAssetClass(only); err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, _, err := a.engine(ctx)
			if err != nil {
				return err
			}
			renderMarket(e.Snapshot(), only)
			return nil
		},
	}
}

func tradeCmd(a *app, side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " <stocks|crypto> <symbol> <amount>",
		Short: strings.ToUpper(side[:1]) + side[1:] + " an asset at the current price",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, symbol := strings.ToLower(args[0]), strings.ToUpper(args[1])
			amount, err := parsePositiveFloat(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			var trade game.Trade
			if a.remote != "" {
				slot, err := a.slot()
				if err != nil {
					return err
				}
				trade, err = a.client().Trade(ctx, slot, api.TradeRequest{Side: side, Class: class, Symbol: symbol, Amount: amount})
				if err != nil {
					return err
				}
			} else {
				err = a.update(ctx, func(e *game.Engine) error {
					var err error
					if side == "buy" {
						trade, err = e.BuyAsset(class, symbol, amount)
					} else {
						trade, err = e.SellAsset(class, symbol, amount)
					}
					return err
				})
				if err != nil {
					return explain(err)
				}
			}
			verb := "Bought"
			if side == "sell" {
				verb = "Sold"
			}
			printSuccess(fmt.Sprintf("%s %g %s @ %.2f for %s", verb, trade.Amount, trade.Symbol, trade.Price, formatMoney(trade.Total)))
			return nil
		},
	}
}

func newBuyCmd(a *app) *cobra.Command  { return tradeCmd(a, "buy") }
func newSellCmd(a *app) *cobra.Command { return tradeCmd(a, "sell") }

// action runs a single engine mutation against the active save.
func action(a *app, done string, fn func(e *game.Engine, id string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		id := args[0]
		if err := a.update(ctx, func(e *game.Engine) error { return fn(e, id) }); err != nil {
			return explain(err)
		}
		printSuccess(fmt.Sprintf(done, id))
		return nil
	}
}

func listCmd(a *app, short string, render func(st *game.State)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, _, err := a.engine(ctx)
			if err != nil {
				return err
			}
			render(e.Snapshot())
			return nil
		},
	}
}

func newPropertyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "property", Short: "Real estate"}
	cmd.AddCommand(
		listCmd(a, "List properties", func(st *game.State) { renderProperties(st, a.cat) }),
		&cobra.Command{
			Use: "buy <id>", Short: "Buy a property", Args: cobra.ExactArgs(1),
			RunE: action(a, "Bought property %s.", (*game.Engine).BuyProperty),
		},
		&cobra.Command{
			Use: "primary <id>", Short: "Make an owned property your home", Args: cobra.ExactArgs(1),
			RunE: action(a, "%s is now your primary home.", (*game.Engine).SetPrimaryHome),
		},
	)
	return cmd
}

func newVehicleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "vehicle", Short: "Vehicles"}
	cmd.AddCommand(
		listCmd(a, "List vehicles", func(st *game.State) { renderVehicles(st, a.cat) }),
		&cobra.Command{
			Use: "buy <id>", Short: "Buy a vehicle", Args: cobra.ExactArgs(1),
			RunE: action(a, "Bought vehicle %s.", (*game.Engine).BuyVehicle),
		},
	)
	return cmd
}

func newValuableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "valuable", Short: "Collectibles and jewellery"}
	cmd.AddCommand(
		listCmd(a, "List valuables", func(st *game.State) { renderValuables(st, a.cat) }),
		&cobra.Command{
			Use: "buy <id>", Short: "Buy a valuable", Args: cobra.ExactArgs(1),
			RunE: action(a, "Bought valuable %s.", (*game.Engine).BuyValuable),
		},
	)
	return cmd
}

func newLoanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Bank loans"}
	offers := &cobra.Command{
		Use:   "offers",
		Short: "Show loan offers priced for your current debt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, _, err := a.engine(ctx)
			if err != nil {
				return err
			}
			var quotes []game.LoanQuote
			for _, o := range a.cat.LoanOffers {
				q, err := e.QuoteLoan(o.ID)
				if err != nil {
					return err
				}
				quotes = append(quotes, q)
			}
			renderLoanOffers(quotes, a.cat)
			return nil
		},
	}
	take := &cobra.Command{
		Use: "take <offer>", Short: "Take a loan", Args: cobra.ExactArgs(1),
		RunE: action(a, "Loan %s credited.", func(e *game.Engine, id string) error {
			_, err := e.TakeLoan(id)
			return err
		}),
	}
	repay := &cobra.Command{
		Use:   "repay <n> <installments>",
		Short: "Prepay installments of a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("installments must be a positive number, got %q", args[1])
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.update(ctx, func(e *game.Engine) error { return e.RepayLoan(idx, n) }); err != nil {
				return explain(err)
			}
			printSuccess(fmt.Sprintf("Paid %d installment(s) on loan %s.", n, args[0]))
			return nil
		},
	}
	payoff := &cobra.Command{
		Use:   "payoff <n>",
		Short: "Pay a loan off early",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.update(ctx, func(e *game.Engine) error { return e.RepayLoanEarly(idx) }); err != nil {
				return explain(err)
			}
			printSuccess(fmt.Sprintf("Loan %s paid off.", args[0]))
			return nil
		},
	}
	cmd.AddCommand(offers, listCmd(a, "List active loans", renderLoans), take, repay, payoff)
	return cmd
}

func newCourseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "course", Short: "Education"}
	cmd.AddCommand(
		listCmd(a, "List courses", func(st *game.State) { renderCourses(st, a.cat) }),
		&cobra.Command{
			Use: "enroll <id>", Short: "Enroll in a course", Args: cobra.ExactArgs(1),
			RunE: action(a, "Enrolled in %s.", (*game.Engine).EnrollCourse),
		},
	)
	return cmd
}

func newJobCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "job", Short: "Employment"}
	cmd.AddCommand(
		listCmd(a, "List jobs", func(st *game.State) { renderJobs(st, a.cat) }),
		&cobra.Command{
			Use: "apply <id>", Short: "Take a job", Args: cobra.ExactArgs(1),
			RunE: action(a, "You now work as %s.", (*game.Engine).ApplyJob),
		},
	)
	return cmd
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "event", Short: "Market events"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalogue events",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderEvents(a.cat.EventList())
			return nil
		},
	}
	trigger := &cobra.Command{
		Use:   "trigger <id>",
		Short: "Fire an event now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if a.remote != "" {
				slot, err := a.slot()
				if err != nil {
					return err
				}
				if _, err := a.client().TriggerEvent(ctx, slot, args[0]); err != nil {
					return err
				}
				printSuccess("Triggered " + args[0])
				return nil
			}
			err := a.update(ctx, func(e *game.Engine) error {
				ev, err := e.TriggerEvent(args[0])
				if err == nil {
					printWarn(fmt.Sprintf("Breaking news: %s. %s", ev.Name, ev.Description))
				}
				return err
			})
			return explain(err)
		},
	}
	cmd.AddCommand(list, trigger)
	return cmd
}

func newDeathCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "death-check",
		Short: "Roll the dice on your mortality",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if a.remote != "" {
				slot, err := a.slot()
				if err != nil {
					return err
				}
				dc, err := a.client().DeathCheck(ctx, slot)
				if err != nil {
					return err
				}
				renderDeathCheck(dc)
				return nil
			}
			var dc game.DeathCheck
			err := a.update(ctx, func(e *game.Engine) error {
				var err error
				dc, err = e.CheckDeathChance()
				return err
			})
			if err != nil {
				return explain(err)
			}
			renderDeathCheck(dc)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, _, err := a.engine(ctx)
			if err != nil {
				return err
			}
			renderHistory(e.Snapshot(), limit)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	return cmd
}

func newAchievementsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "List unlocked achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			e, _, err := a.engine(ctx)
			if err != nil {
				return err
			}
			renderAchievements(e.Snapshot(), a.cat)
			return nil
		},
	}
}

func newToastsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toasts",
		Short: "Show achievements unlocked by background autoplay",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := notify.TakeOutbox(a.cfg.Autoplay.Outbox)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				printInfo("No pending toasts.")
				return nil
			}
			renderToasts(pending)
			return nil
		},
	}
}
