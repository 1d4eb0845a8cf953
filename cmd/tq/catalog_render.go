package main

import (
	"fmt"
	"slices"

	"tradequest/internal/catalog"
	"tradequest/internal/game"
)

func ownedMark(owned bool) string {
	if owned {
		return success.Sprint("owned")
	}
	return ""
}

func renderProperties(st *game.State, cat *catalog.Catalog) {
	fmt.Printf("%-10s %-28s %-16s %14s %12s %5s\n", "ID", "NAME", "LOCATION", "PRICE", "UPKEEP/MO", "PRS")
	for _, p := range cat.Properties {
		mark := ownedMark(slices.Contains(st.OwnedProperties, p.ID))
		if p.ID == st.PrimaryHome {
			mark = accent.Sprint("home")
		}
		fmt.Printf("%-10s %-28s %-16s %14s %12s %5d %s\n",
			p.ID, truncate(p.Name, 28), truncate(p.Location, 16), formatMoney(p.Price), formatMoney(p.Upkeep), p.Prestige, mark)
	}
}

func renderVehicles(st *game.State, cat *catalog.Catalog) {
	fmt.Printf("%-8s %-28s %-12s %14s %5s\n", "ID", "NAME", "CLASS", "PRICE", "PRS")
	for _, v := range cat.Vehicles {
		fmt.Printf("%-8s %-28s %-12s %14s %5d %s\n",
			v.ID, truncate(v.Name, 28), truncate(v.Class, 12), formatMoney(v.Price), v.Prestige, ownedMark(slices.Contains(st.OwnedVehicles, v.ID)))
	}
}

func renderValuables(st *game.State, cat *catalog.Catalog) {
	fmt.Printf("%-8s %-28s %-12s %14s %5s\n", "ID", "NAME", "KIND", "PRICE", "PRS")
	for _, v := range cat.Valuables {
		fmt.Printf("%-8s %-28s %-12s %14s %5d %s\n",
			v.ID, truncate(v.Name, 28), truncate(v.Kind, 12), formatMoney(v.Price), v.Prestige, ownedMark(slices.Contains(st.OwnedValuables, v.ID)))
	}
}

func renderLoanOffers(quotes []game.LoanQuote, cat *catalog.Catalog) {
	fmt.Printf("%-10s %-22s %14s %7s %9s %14s %12s\n", "ID", "NAME", "AMOUNT", "MONTHS", "RATE", "TOTAL", "MONTHLY")
	for _, q := range quotes {
		name := q.OfferID
		if o, ok := cat.LoanOffer(q.OfferID); ok {
			name = o.Name
		}
		fmt.Printf("%-10s %-22s %14s %7d %8.2f%% %14s %12s\n",
			q.OfferID, truncate(name, 22), formatMoney(q.Amount), q.Months, q.AdjustedInterest*100, formatMoney(q.TotalToPay), formatMoney(q.MonthlyRate))
	}
}

func renderLoans(st *game.State) {
	if len(st.ActiveLoans) == 0 {
		printInfo("No active loans.")
		return
	}
	fmt.Printf("%-3s %-10s %12s %8s %14s %14s\n", "#", "TYPE", "MONTHLY", "LEFT", "PAID", "OUTSTANDING")
	for i, l := range st.ActiveLoans {
		fmt.Printf("%-3d %-10s %12s %8d %14s %14s\n",
			i+1, l.Type, formatMoney(l.MonthlyRate), l.RemainingMonths, formatMoney(l.PaidAmount), formatMoney(l.Outstanding()))
	}
}

func renderCourses(st *game.State, cat *catalog.Catalog) {
	fmt.Printf("%-14s %-32s %5s %12s\n", "ID", "NAME", "DAYS", "COST")
	for _, c := range cat.Courses {
		mark := ""
		switch {
		case slices.Contains(st.CompletedCourses, c.ID):
			mark = success.Sprint("done")
		case st.ActiveCourse != nil && st.ActiveCourse.ID == c.ID:
			mark = warn.Sprintf("%dh left", st.ActiveCourse.RemainingHours)
		}
		fmt.Printf("%-14s %-32s %5d %12s %s\n", c.ID, truncate(c.Name, 32), c.Days, formatMoney(c.Cost), mark)
	}
}

func renderJobs(st *game.State, cat *catalog.Catalog) {
	fmt.Printf("%-8s %-28s %-20s %12s %s\n", "ID", "TITLE", "COMPANY", "SALARY/MO", "REQUIRES")
	for _, j := range cat.Jobs {
		req := j.ReqCourse
		if req != "" && !slices.Contains(st.CompletedCourses, req) {
			req = danger.Sprint(req)
		}
		line := fmt.Sprintf("%-8s %-28s %-20s %12s %s", j.ID, truncate(j.Title, 28), truncate(j.Company, 20), formatMoney(j.BaseSalary), req)
		if j.ID == st.CurrentJob {
			accent.Println(line + " (current)")
			continue
		}
		fmt.Println(line)
	}
}

func renderEvents(events []catalog.Event) {
	fmt.Printf("%-12s %-30s %-8s %-14s %6s %5s\n", "ID", "NAME", "TARGET", "ON", "IMPACT", "DAYS")
	for _, ev := range events {
		fmt.Printf("%-12s %-30s %-8s %-14s %6.2f %5d\n",
			ev.ID, truncate(ev.Name, 30), ev.TargetType, truncate(ev.TargetID, 14), ev.Impact, ev.Duration)
	}
}
