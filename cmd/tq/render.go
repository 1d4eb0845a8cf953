package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"tradequest/internal/catalog"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/store"
)

func renderStatus(slot string, phase game.Phase, st *game.State, agg game.Aggregates, cat *catalog.Catalog) {
	name := st.PlayerName()
	if name == "" {
		name = "(unnamed)"
	}
	accent.Printf("\n== %s [%s] ==\n", name, slot)
	fmt.Printf("Date:          %s\n", st.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Age:           %d\n", game.ProfileAge(st.CreatedAt, st.DateOfBirth))
	fmt.Printf("Difficulty:    %s\n", st.Difficulty)
	switch phase {
	case game.PhaseFrozen:
		fmt.Printf("Status:        %s\n", danger.Sprint("FROZEN (negative balance)"))
	case game.PhaseTerminal:
		fmt.Printf("Status:        %s\n", danger.Sprint("DECEASED"))
	default:
		fmt.Printf("Status:        %s\n", success.Sprint("active"))
	}
	fmt.Printf("Balance:       %s\n", colorizeMoney(st.Balance))
	fmt.Printf("Portfolio:     %s\n", formatMoney(agg.PortfolioValue))
	fmt.Printf("Net worth:     %s\n", formatMoney(agg.NetWorth))
	fmt.Printf("Prestige:      %d\n", agg.Prestige)

	job := "unemployed"
	if j, ok := cat.Job(st.CurrentJob); ok {
		job = fmt.Sprintf("%s at %s (%d months)", j.Title, j.Company, st.JobMonths)
	}
	fmt.Printf("Job:           %s\n", job)
	if c := st.ActiveCourse; c != nil {
		fmt.Printf("Course:        %s (%dh left)\n", c.Name, c.RemainingHours)
	}
	if st.PrimaryHome != "" {
		if p, ok := cat.Property(st.PrimaryHome); ok {
			fmt.Printf("Home:          %s, %s\n", p.Name, p.Location)
		}
	}
	if len(st.ActiveLoans) > 0 {
		total := decimal.Zero
		for _, l := range st.ActiveLoans {
			total = total.Add(l.Outstanding())
		}
		fmt.Printf("Loans:         %d active, %s outstanding\n", len(st.ActiveLoans), formatMoney(total))
	}
	if len(st.ActiveEvents) > 0 {
		fmt.Println()
		accent.Println("Active events")
		for _, ae := range st.ActiveEvents {
			fmt.Printf("  %-24s %3d days left  x%.2f\n", truncate(ae.Event.Name, 24), ae.Remaining, ae.Event.Impact)
		}
	}
	if st.Estate != nil {
		fmt.Println()
		renderEstate(st.Estate)
	}
	fmt.Println()
}

func renderAdvance(res game.AdvanceResult, cat *catalog.Catalog) {
	printSuccess(fmt.Sprintf("Advanced %d hours (%d days).", res.Hours, res.Days))
	if res.CourseCompleted != "" {
		name := res.CourseCompleted
		if c, ok := cat.Course(name); ok {
			name = c.Name
		}
		printSuccess("Course completed: " + name)
	}
	if s := res.Settlement; s != nil {
		accent.Printf("Month end (%s)\n", s.Month)
		fmt.Printf("  Salary:     %s\n", colorizeMoney(s.Salary))
		fmt.Printf("  Upkeep:     %s\n", colorizeMoney(s.Upkeep.Neg()))
		fmt.Printf("  Loans:      %s\n", colorizeMoney(s.Loans.Neg()))
		fmt.Printf("  Dividends:  %s\n", colorizeMoney(s.Dividends))
		fmt.Printf("  Net:        %s\n", colorizeMoney(s.Net))
		if s.LoansClosed > 0 {
			printSuccess(fmt.Sprintf("  %d loan(s) fully repaid.", s.LoansClosed))
		}
	}
	if ev := res.TriggeredEvent; ev != nil {
		printWarn(fmt.Sprintf("Breaking news: %s. %s", ev.Name, ev.Description))
	}
	if res.Died {
		printError("You have died.")
		if res.Estate != nil {
			renderEstate(res.Estate)
		}
	}
	if res.Phase == game.PhaseFrozen {
		printWarn("Your account is frozen. Take a loan to continue.")
	}
}

func renderEstate(e *game.EstateReport) {
	accent.Println("Estate")
	fmt.Printf("  Died:       %s at age %d\n", e.DiedAt.Format("2006-01-02"), e.Age)
	fmt.Printf("  Cash:       %s\n", formatMoney(e.Cash))
	fmt.Printf("  Properties: %s\n", formatMoney(e.Properties))
	fmt.Printf("  Vehicles:   %s\n", formatMoney(e.Vehicles))
	fmt.Printf("  Valuables:  %s\n", formatMoney(e.Valuables))
	fmt.Printf("  Net worth:  %s\n", formatMoney(e.NetWorth))
	fmt.Printf("  Prestige:   %d\n", e.Prestige)
}

func renderDeathCheck(dc game.DeathCheck) {
	fmt.Printf("Age %d: %.4f%% per year, %.6f%% per day\n", dc.Age, dc.AnnualChance, dc.DailyChance)
	if dc.Died {
		printError("The dice were not kind. You have died.")
		if dc.Estate != nil {
			renderEstate(dc.Estate)
		}
		return
	}
	printSuccess("You survived the check.")
}

func dailyChange(e game.MarketEntry) float64 {
	if len(e.History) < 2 {
		return 0
	}
	prev := e.History[len(e.History)-2].Price
	if prev == 0 {
		return 0
	}
	return (e.CurrentPrice - prev) / prev * 100
}

func renderMarket(st *game.State, only string) {
	for _, class := range slices.Sorted(maps.Keys(st.Market)) {
		if only != "" && !strings.EqualFold(only, class) {
			continue
		}
		entries := st.Market[class]
		accent.Printf("\n%s\n", strings.ToUpper(class))
		fmt.Printf("%-9s %-24s %-14s %12s %9s %12s\n", "SYMBOL", "NAME", "SECTOR", "PRICE", "1D", "HOLDING")
		for _, sym := range slices.Sorted(maps.Keys(entries)) {
			e := entries[sym]
			held := ""
			if h, ok := st.Portfolio[class][sym]; ok {
				held = fmt.Sprintf("%.4f", h.Amount)
			}
			fmt.Printf("%-9s %-24s %-14s %12.2f %9s %12s\n",
				sym, truncate(e.Name, 24), truncate(e.Sector, 14), e.CurrentPrice, colorizePercent(dailyChange(e)), held)
		}
	}
	fmt.Println()
}

func renderHistory(st *game.State, limit int) {
	if len(st.Transactions) == 0 {
		printInfo("No transactions yet.")
		return
	}
	fmt.Printf("%-10s %-12s %-40s %14s\n", "DATE", "CATEGORY", "DESCRIPTION", "AMOUNT")
	for i, tx := range st.Transactions {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Printf("%-10s %-12s %-40s %14s\n", tx.Date.Format("2006-01-02"), tx.Category, truncate(tx.Description, 40), colorizeMoney(tx.Amount))
	}
}

func renderAchievements(st *game.State, cat *catalog.Catalog) {
	unlocked := map[string]bool{}
	for _, id := range st.Achievements {
		unlocked[id] = true
	}
	accent.Printf("\nAchievements (%d/%d)\n", len(unlocked), len(cat.Achievements))
	for _, a := range cat.Achievements {
		mark := neutral.Sprint("[ ]")
		if unlocked[a.ID] {
			mark = success.Sprint("[x]")
		}
		fmt.Printf("%s %-26s %s\n", mark, a.Name, a.Description)
	}
	fmt.Println()
}

func renderSaves(list []store.SlotInfo, active string) {
	if len(list) == 0 {
		printInfo("No saves yet. Run `tq new` to start one.")
		return
	}
	fmt.Printf("  %-16s %-24s %-10s %14s %s\n", "SLOT", "PLAYER", "DATE", "BALANCE", "")
	for _, s := range list {
		marker := " "
		if s.Slot == active {
			marker = "*"
		}
		note := ""
		if s.Deceased {
			note = danger.Sprint("deceased")
		}
		fmt.Printf("%s %-16s %-24s %-10s %14s %s\n", marker, s.Slot, truncate(s.Player, 24), s.GameDate.Format("2006-01-02"), s.Balance, note)
	}
}

func renderToasts(toasts []notify.Toast) {
	for _, t := range toasts {
		success.Printf("Achievement unlocked: %s", t.Title)
		if t.Slot != "" {
			neutral.Printf(" [%s]", t.Slot)
		}
		fmt.Println()
	}
}
