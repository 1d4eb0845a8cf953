package game

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type Trade struct {
	Class  string          `json:"class"`
	Symbol string          `json:"symbol"`
	Amount float64         `json:"amount"`
	Price  float64         `json:"price"`
	Total  decimal.Decimal `json:"total"`
}

// guard rejects every action once the player is dead. Caller holds e.mu.
func (e *Engine) guard() error {
	if e.phase == PhaseTerminal {
		return ErrGameOver
	}
	return nil
}

// settle is the common tail of a state-changing action.
func (e *Engine) settle() {
	CheckAll(e.st, e.cat, e.notifier)
	e.syncPhase()
}

func (e *Engine) charge(cost decimal.Decimal) error {
	if e.st.Balance.LessThan(cost) {
		return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), e.st.Balance.StringFixed(2))
	}
	e.st.Balance = e.st.Balance.Sub(cost)
	return nil
}

func (e *Engine) BuyAsset(class, symbol string, amount float64) (Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return Trade{}, err
	}
	if err := ValidateAssetClass(class); err != nil {
		return Trade{}, err
	}
	if amount <= 0 {
		return Trade{}, ErrInvalidAmount
	}
	entry, ok := e.st.marketEntry(class, symbol)
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	h := e.st.holding(class, symbol)
	total := h.Amount + amount
	if total < DustAmount {
		return Trade{}, fmt.Errorf("%w: %g %s is below the minimum holding", ErrInvalidAmount, amount, symbol)
	}
	cost := Money(amount * entry.CurrentPrice)
	if err := e.charge(cost); err != nil {
		return Trade{}, err
	}

	h.AvgPrice = (h.Amount*h.AvgPrice + amount*entry.CurrentPrice) / total
	h.Amount = total
	e.st.setHolding(class, symbol, h)

	e.st.logTransaction(CategoryMarket, fmt.Sprintf("Bought %g %s @ %.2f", amount, symbol, entry.CurrentPrice), cost.Neg())
	e.settle()
	return Trade{Class: class, Symbol: symbol, Amount: amount, Price: entry.CurrentPrice, Total: cost}, nil
}

func (e *Engine) SellAsset(class, symbol string, amount float64) (Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return Trade{}, err
	}
	if err := ValidateAssetClass(class); err != nil {
		return Trade{}, err
	}
	if amount <= 0 {
		return Trade{}, ErrInvalidAmount
	}
	entry, ok := e.st.marketEntry(class, symbol)
	if !ok {
		return Trade{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	h := e.st.holding(class, symbol)
	if h.Amount+1e-9 < amount {
		return Trade{}, fmt.Errorf("%w: have %g %s", ErrInsufficientHoldings, h.Amount, symbol)
	}
	revenue := Money(amount * entry.CurrentPrice)
	e.st.Balance = e.st.Balance.Add(revenue)
	h.Amount -= amount
	e.st.setHolding(class, symbol, h)

	e.st.logTransaction(CategoryMarket, fmt.Sprintf("Sold %g %s @ %.2f", amount, symbol, entry.CurrentPrice), revenue)
	e.settle()
	return Trade{Class: class, Symbol: symbol, Amount: amount, Price: entry.CurrentPrice, Total: revenue}, nil
}

// BuyProperty purchases real estate. The first home bought becomes primary.
func (e *Engine) BuyProperty(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	p, ok := e.cat.Property(id)
	if !ok {
		return fmt.Errorf("%w: property %s", ErrUnknownItem, id)
	}
	if slices.Contains(e.st.OwnedProperties, id) {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, id)
	}
	if err := e.charge(p.Price); err != nil {
		return err
	}
	e.st.OwnedProperties = append(e.st.OwnedProperties, id)
	if e.st.PrimaryHome == "" || !slices.Contains(e.st.OwnedProperties, e.st.PrimaryHome) {
		e.st.PrimaryHome = id
	}
	e.st.logTransaction(CategoryRealty, "Bought "+p.Name, p.Price.Neg())
	e.settle()
	return nil
}

func (e *Engine) SetPrimaryHome(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	if !slices.Contains(e.st.OwnedProperties, id) {
		return fmt.Errorf("%w: %s", ErrNotOwned, id)
	}
	e.st.PrimaryHome = id
	e.settle()
	return nil
}

func (e *Engine) BuyVehicle(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	v, ok := e.cat.Vehicle(id)
	if !ok {
		return fmt.Errorf("%w: vehicle %s", ErrUnknownItem, id)
	}
	if slices.Contains(e.st.OwnedVehicles, id) {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, id)
	}
	if err := e.charge(v.Price); err != nil {
		return err
	}
	e.st.OwnedVehicles = append(e.st.OwnedVehicles, id)
	e.st.logTransaction(CategoryVehicles, "Bought "+v.Name, v.Price.Neg())
	e.settle()
	return nil
}

func (e *Engine) BuyValuable(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	v, ok := e.cat.Valuable(id)
	if !ok {
		return fmt.Errorf("%w: valuable %s", ErrUnknownItem, id)
	}
	if slices.Contains(e.st.OwnedValuables, id) {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, id)
	}
	if err := e.charge(v.Price); err != nil {
		return err
	}
	e.st.OwnedValuables = append(e.st.OwnedValuables, id)
	e.st.logTransaction(CategoryValuables, "Bought "+v.Name, v.Price.Neg())
	e.settle()
	return nil
}

type LoanQuote struct {
	OfferID          string          `json:"offer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Months           int             `json:"months"`
	BaseInterest     float64         `json:"base_interest"`
	AdjustedInterest float64         `json:"adjusted_interest"`
	TotalToPay       decimal.Decimal `json:"total_to_pay"`
	MonthlyRate      decimal.Decimal `json:"monthly_rate"`
}

// quoteLoan raises the offer's interest by a fixed share for every loan
// already running.
func quoteLoan(st *State, cat Catalog, tuning Tuning, offerID string) (LoanQuote, error) {
	offer, ok := cat.LoanOffer(offerID)
	if !ok {
		return LoanQuote{}, fmt.Errorf("%w: offer %s", ErrUnknownLoan, offerID)
	}
	adjusted := offer.Interest * (1 + float64(len(st.ActiveLoans))*tuning.LoanPenaltyPerActive)
	total := offer.Amount.Mul(decimal.NewFromFloat(1 + adjusted)).Round(2)
	return LoanQuote{
		OfferID:          offer.ID,
		Amount:           offer.Amount,
		Months:           offer.Months,
		BaseInterest:     offer.Interest,
		AdjustedInterest: adjusted,
		TotalToPay:       total,
		MonthlyRate:      total.Div(decimal.NewFromInt(int64(offer.Months))).Round(2),
	}, nil
}

func (e *Engine) QuoteLoan(offerID string) (LoanQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return quoteLoan(e.st, e.cat, e.tuning, offerID)
}

// TakeLoan credits the principal now; the first installment is due one
// settlement later. Allowed while frozen.
func (e *Engine) TakeLoan(offerID string) (Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return Loan{}, err
	}
	q, err := quoteLoan(e.st, e.cat, e.tuning, offerID)
	if err != nil {
		return Loan{}, err
	}
	loan := Loan{
		Type:            q.OfferID,
		Principal:       q.Amount,
		TotalToPay:      q.TotalToPay,
		MonthlyRate:     q.MonthlyRate,
		RemainingMonths: q.Months,
		PaidAmount:      decimal.Zero,
		IsNew:           true,
	}
	e.st.ActiveLoans = append(e.st.ActiveLoans, loan)
	e.st.Balance = e.st.Balance.Add(q.Amount)
	e.st.logTransaction(CategoryBank, fmt.Sprintf("Loan taken: %s (rate %.1f%%)", q.Amount.StringFixed(0), q.AdjustedInterest*100), q.Amount)
	e.settle()
	return loan, nil
}

func (e *Engine) loanAt(index int) (*Loan, error) {
	if index < 0 || index >= len(e.st.ActiveLoans) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownLoan, index)
	}
	return &e.st.ActiveLoans[index], nil
}

func (e *Engine) RepayLoan(index, installments int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	if installments <= 0 {
		return ErrInvalidAmount
	}
	loan, err := e.loanAt(index)
	if err != nil {
		return err
	}
	if installments > loan.RemainingMonths {
		return fmt.Errorf("%w: %d installments left", ErrInvalidAmount, loan.RemainingMonths)
	}
	cost := decimal.Min(loan.MonthlyRate.Mul(decimal.NewFromInt(int64(installments))), loan.Outstanding())
	if err := e.charge(cost); err != nil {
		return err
	}
	loan.PaidAmount = loan.PaidAmount.Add(cost)
	loan.RemainingMonths -= installments
	if loan.RemainingMonths <= 0 {
		e.st.ActiveLoans = slices.Delete(e.st.ActiveLoans, index, index+1)
	}
	e.st.logTransaction(CategoryBank, fmt.Sprintf("Extra repayment (%d inst.)", installments), cost.Neg())
	e.settle()
	return nil
}

func (e *Engine) RepayLoanEarly(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	loan, err := e.loanAt(index)
	if err != nil {
		return err
	}
	remaining := loan.Outstanding()
	if err := e.charge(remaining); err != nil {
		return err
	}
	e.st.ActiveLoans = slices.Delete(e.st.ActiveLoans, index, index+1)
	e.st.logTransaction(CategoryBank, "Early loan repayment", remaining.Neg())
	e.settle()
	return nil
}

// EnrollCourse pays for a course up front. Only one course runs at a time.
func (e *Engine) EnrollCourse(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	if e.st.ActiveCourse != nil {
		return fmt.Errorf("%w: %s", ErrCourseInProgress, e.st.ActiveCourse.Name)
	}
	c, ok := e.cat.Course(id)
	if !ok {
		return fmt.Errorf("%w: course %s", ErrUnknownItem, id)
	}
	if e.st.courseCompleted(id) {
		return fmt.Errorf("%w: %s", ErrAlreadyOwned, id)
	}
	if err := e.charge(c.Cost); err != nil {
		return err
	}
	e.st.ActiveCourse = &ActiveCourse{ID: c.ID, Name: c.Name, RemainingHours: c.Days * HoursPerDay}
	e.st.logTransaction(CategoryEducation, "Enrolled: "+c.Name, c.Cost.Neg())
	e.settle()
	return nil
}

// ApplyJob switches jobs; tenure starts over.
func (e *Engine) ApplyJob(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	job, ok := e.cat.Job(id)
	if !ok {
		return fmt.Errorf("%w: job %s", ErrUnknownItem, id)
	}
	if job.ReqCourse != "" && !e.st.courseCompleted(job.ReqCourse) {
		return fmt.Errorf("%w: %s", ErrCourseRequired, job.ReqCourse)
	}
	e.st.CurrentJob = job.ID
	e.st.JobMonths = 0
	e.settle()
	return nil
}
