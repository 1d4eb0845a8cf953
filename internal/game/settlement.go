package game

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"tradequest/internal/catalog"
)

type SettlementReport struct {
	Month       time.Month      `json:"month"`
	Salary      decimal.Decimal `json:"salary"`
	Upkeep      decimal.Decimal `json:"upkeep"`
	Loans       decimal.Decimal `json:"loans"`
	Dividends   decimal.Decimal `json:"dividends"`
	Net         decimal.Decimal `json:"net"`
	LoansClosed int             `json:"loans_closed"`
}

// Settle runs the month-end cycle: salary, upkeep, loan installments,
// dividends, then a single balance update. Ledger entries are written in
// that order, each one becoming the newest.
func Settle(st *State, cat Catalog, tuning Tuning) SettlementReport {
	tuning = tuning.WithDefaults()
	rep := SettlementReport{Month: st.CreatedAt.Month()}

	var jobTitle string
	rep.Salary, jobTitle = payroll(st, cat)
	rep.Upkeep = upkeep(st, cat, tuning)
	rep.Loans, rep.LoansClosed = amortizeLoans(st)
	rep.Dividends = dividends(st, tuning)

	rep.Net = rep.Salary.Add(rep.Dividends).Sub(rep.Upkeep).Sub(rep.Loans)
	st.Balance = st.Balance.Add(rep.Net)

	if !rep.Salary.IsZero() {
		st.logTransaction(CategorySalary, fmt.Sprintf("Salary: %s", jobTitle), rep.Salary)
	}
	if !rep.Upkeep.IsZero() {
		st.logTransaction(CategoryHousehold, "Property upkeep", rep.Upkeep.Neg())
	}
	if !rep.Loans.IsZero() {
		st.logTransaction(CategoryBank, "Loan installments", rep.Loans.Neg())
	}
	if !rep.Dividends.IsZero() {
		st.logTransaction(CategoryMarket, "Quarterly dividends", rep.Dividends)
	}
	return rep
}

// payroll bumps tenure and pays base salary plus every milestone reached.
func payroll(st *State, cat Catalog) (decimal.Decimal, string) {
	if st.CurrentJob == "" {
		return decimal.Zero, ""
	}
	st.JobMonths++
	job, ok := cat.Job(st.CurrentJob)
	if !ok {
		return decimal.Zero, ""
	}
	return salaryFor(job.BaseSalary, job.Milestones, st.JobMonths), job.Title
}

// salaryFor stacks every milestone bonus whose tenure has been reached.
func salaryFor(base decimal.Decimal, milestones []catalog.Milestone, months int) decimal.Decimal {
	total := base
	for _, m := range milestones {
		if m.Months <= months {
			total = total.Add(m.Bonus)
		}
	}
	return total
}

func upkeep(st *State, cat Catalog, tuning Tuning) decimal.Decimal {
	share := decimal.NewFromFloat(tuning.SecondaryUpkeepShare)
	total := decimal.Zero
	for _, id := range st.OwnedProperties {
		p, ok := cat.Property(id)
		if !ok {
			continue
		}
		if id == st.PrimaryHome {
			total = total.Add(p.Upkeep)
		} else {
			total = total.Add(p.Upkeep.Mul(share))
		}
	}
	return total.Round(2)
}

// amortizeLoans charges one installment per loan. A loan taken during the
// month is skipped once.
func amortizeLoans(st *State) (decimal.Decimal, int) {
	total := decimal.Zero
	closed := 0
	kept := st.ActiveLoans[:0]
	for _, l := range st.ActiveLoans {
		if l.IsNew {
			l.IsNew = false
			kept = append(kept, l)
			continue
		}
		l.RemainingMonths--
		l.PaidAmount = l.PaidAmount.Add(l.MonthlyRate)
		total = total.Add(l.MonthlyRate)
		if l.RemainingMonths > 0 {
			kept = append(kept, l)
		} else {
			closed++
		}
	}
	st.ActiveLoans = kept
	return total.Round(2), closed
}

func dividends(st *State, tuning Tuning) decimal.Decimal {
	if !tuning.isDividendMonth(st.CreatedAt.Month()) {
		return decimal.Zero
	}
	total := decimal.Zero
	holdings := st.Portfolio[ClassStocks]
	for _, sym := range slices.Sorted(maps.Keys(holdings)) {
		h := holdings[sym]
		if h.Amount <= 0 {
			continue
		}
		e, ok := st.marketEntry(ClassStocks, sym)
		if !ok || e.DividendRate <= 0 {
			continue
		}
		total = total.Add(decimal.NewFromFloat(h.Amount * e.CurrentPrice * e.DividendRate))
	}
	return total.Round(2)
}
