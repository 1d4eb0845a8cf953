package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyAndSellAsset(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))

	trade, err := e.BuyAsset(ClassStocks, "ACME", 4)
	require.NoError(t, err)
	assert.True(t, trade.Total.Equal(dec(200)))

	snap := e.Snapshot()
	assert.True(t, snap.Balance.Equal(dec(9800)))
	assert.Equal(t, Holding{Amount: 4, AvgPrice: 50}, snap.Portfolio[ClassStocks]["ACME"])
	assert.Equal(t, CategoryMarket, snap.Transactions[0].Category)

	_, err = e.SellAsset(ClassStocks, "ACME", 5)
	require.ErrorIs(t, err, ErrInsufficientHoldings)

	_, err = e.SellAsset(ClassStocks, "ACME", 3.9995)
	require.NoError(t, err)
	snap = e.Snapshot()
	_, still := snap.Portfolio[ClassStocks]["ACME"]
	assert.False(t, still, "dust should be pruned")
	assert.Contains(t, snap.Achievements, "first_dollar")
}

func TestBuyAssetWeightedAverage(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Portfolio[ClassStocks] = map[string]Holding{"ACME": {Amount: 2, AvgPrice: 20}}
	e, _ := newTestEngine(t, st, cat, constRand(0.5))

	_, err := e.BuyAsset(ClassStocks, "ACME", 2)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, e.Snapshot().Portfolio[ClassStocks]["ACME"].AvgPrice, 1e-9)
}

func TestBuyRejectsWithoutMutation(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Balance = dec(10)
	e, _ := newTestEngine(t, st, cat, constRand(0.5))

	_, err := e.BuyAsset(ClassCrypto, "COIN", 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, e.BuyProperty("prop_a"), ErrInsufficientFunds)
	require.ErrorIs(t, e.BuyVehicle("veh_27"), ErrInsufficientFunds)
	require.ErrorIs(t, e.BuyValuable("nope"), ErrUnknownItem)
	_, err = e.BuyAsset("bonds", "X", 1)
	require.ErrorIs(t, err, ErrUnknownAssetClass)

	snap := e.Snapshot()
	assert.True(t, snap.Balance.Equal(dec(10)))
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.OwnedProperties)
}

func TestFirstPropertyBecomesPrimary(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Balance = dec(1_000_000)
	e, _ := newTestEngine(t, st, cat, constRand(0.5))

	require.NoError(t, e.BuyProperty("prop_b"))
	require.NoError(t, e.BuyProperty("prop_a"))
	assert.Equal(t, "prop_b", e.Snapshot().PrimaryHome)
	require.ErrorIs(t, e.BuyProperty("prop_a"), ErrAlreadyOwned)

	require.NoError(t, e.SetPrimaryHome("prop_a"))
	assert.Equal(t, "prop_a", e.Snapshot().PrimaryHome)
	require.ErrorIs(t, e.SetPrimaryHome("prop_11"), ErrNotOwned)
	assert.Contains(t, e.Snapshot().Achievements, "homeless_no_more")
}

func TestLoanPenaltyGrowsWithActiveLoans(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))

	q, err := e.QuoteLoan("small")
	require.NoError(t, err)
	assert.InDelta(t, 0.10, q.AdjustedInterest, 1e-12)
	assert.True(t, q.TotalToPay.Equal(dec(11000)))
	assert.True(t, q.MonthlyRate.Equal(dec(1100)))

	_, err = e.TakeLoan("small")
	require.NoError(t, err)
	q, err = e.QuoteLoan("small")
	require.NoError(t, err)
	assert.InDelta(t, 0.175, q.AdjustedInterest, 1e-12)
	assert.True(t, q.TotalToPay.Equal(dec(11750)), "total=%s", q.TotalToPay)

	snap := e.Snapshot()
	assert.True(t, snap.Balance.Equal(dec(20000)))
	assert.Equal(t, CategoryBank, snap.Transactions[0].Category)
}

func TestRepayLoan(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))
	_, err := e.TakeLoan("small")
	require.NoError(t, err)

	require.NoError(t, e.RepayLoan(0, 3))
	snap := e.Snapshot()
	require.Len(t, snap.ActiveLoans, 1)
	assert.Equal(t, 7, snap.ActiveLoans[0].RemainingMonths)
	assert.True(t, snap.ActiveLoans[0].PaidAmount.Equal(dec(3300)))

	require.ErrorIs(t, e.RepayLoan(4, 1), ErrUnknownLoan)
	require.NoError(t, e.RepayLoanEarly(0))
	snap = e.Snapshot()
	assert.Empty(t, snap.ActiveLoans)
	assert.True(t, snap.Balance.Equal(dec(9000)), "balance=%s", snap.Balance)
}

func TestRepayLoanNeedsFunds(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Balance = dec(0)
	st.ActiveLoans = []Loan{{Type: "small", MonthlyRate: dec(100), RemainingMonths: 2, TotalToPay: dec(200), PaidAmount: dec(0)}}
	e, _ := newTestEngine(t, st, cat, constRand(0.5))

	require.ErrorIs(t, e.RepayLoan(0, 1), ErrInsufficientFunds)
	assert.Equal(t, 2, e.Snapshot().ActiveLoans[0].RemainingMonths)
}

func TestCoursesAndJobs(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))

	require.ErrorIs(t, e.ApplyJob("job_20"), ErrCourseRequired)
	require.NoError(t, e.EnrollCourse("course_mba"))
	require.ErrorIs(t, e.EnrollCourse("course_excel"), ErrCourseInProgress)

	_, err := e.Advance(2 * HoursPerDay)
	require.NoError(t, err)
	require.NoError(t, e.ApplyJob("job_20"))

	snap := e.Snapshot()
	assert.Equal(t, "job_20", snap.CurrentJob)
	assert.Equal(t, 0, snap.JobMonths)
	assert.Contains(t, snap.Achievements, "ceo_status")
	assert.Equal(t, CategoryEducation, snap.Transactions[0].Category)
}

func TestNewGameDifficulty(t *testing.T) {
	cat := testCatalog(t)
	dob := NewDate(2000, time.January, 1)
	for diff, want := range map[string]float64{"easy": 50000, "": 10000, "Realistic": 2500} {
		st, err := NewGame(NewGameInput{DateOfBirth: dob, Difficulty: diff, Start: testStart}, cat, DefaultTuning())
		require.NoError(t, err)
		assert.True(t, st.Balance.Equal(dec(want)), "%q balance=%s", diff, st.Balance)
		assert.Len(t, st.Market[ClassStocks], 1)
		assert.Len(t, st.Market[ClassCrypto], 1)
	}

	_, err := NewGame(NewGameInput{DateOfBirth: dob, Difficulty: "nightmare", Start: testStart}, cat, DefaultTuning())
	require.ErrorIs(t, err, ErrUnknownDifficulty)
	_, err = NewGame(NewGameInput{DateOfBirth: NewDate(2030, time.January, 1), Start: testStart}, cat, DefaultTuning())
	require.ErrorIs(t, err, ErrInvalidBirthDate)
}

func TestBuyBelowMinimumHoldingIsRejected(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))

	_, err := e.BuyAsset(ClassCrypto, "COIN", 0.0009)
	require.ErrorIs(t, err, ErrInvalidAmount)

	snap := e.Snapshot()
	assert.True(t, snap.Balance.Equal(dec(10000)), "balance=%s", snap.Balance)
	assert.Empty(t, snap.Transactions)
	_, held := snap.Portfolio[ClassCrypto]["COIN"]
	assert.False(t, held)
}

func TestSmallBuyOnTopOfHoldingIsKept(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Portfolio[ClassCrypto] = map[string]Holding{"COIN": {Amount: 0.5, AvgPrice: 100}}
	e, _ := newTestEngine(t, st, cat, constRand(0.5))

	_, err := e.BuyAsset(ClassCrypto, "COIN", 0.0009)
	require.NoError(t, err)
	assert.InDelta(t, 0.5009, e.Snapshot().Portfolio[ClassCrypto]["COIN"].Amount, 1e-12)
}

func TestRepayLoanCannotExceedRemainingMonths(t *testing.T) {
	cat := testCatalog(t)
	e, _ := newTestEngine(t, newTestState(t, cat), cat, constRand(0.5))
	_, err := e.TakeLoan("small")
	require.NoError(t, err)

	require.ErrorIs(t, e.RepayLoan(0, 15), ErrInvalidAmount)
	snap := e.Snapshot()
	assert.True(t, snap.Balance.Equal(dec(20000)))
	require.Len(t, snap.ActiveLoans, 1)
	assert.Equal(t, 10, snap.ActiveLoans[0].RemainingMonths)

	require.NoError(t, e.RepayLoan(0, 10))
	snap = e.Snapshot()
	assert.Empty(t, snap.ActiveLoans)
	assert.True(t, snap.Balance.Equal(dec(9000)), "balance=%s", snap.Balance)
}
