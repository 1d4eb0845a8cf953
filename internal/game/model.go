package game

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	HoursPerDay   = 24
	HoursPerWeek  = 7 * HoursPerDay
	HoursPerMonth = 30 * HoursPerDay

	MinPrice   = 0.01
	DustAmount = 0.001 // holdings below this are pruned after a sale
)

const (
	ClassStocks = "stocks"
	ClassCrypto = "crypto"
)

// Ledger categories.
const (
	CategorySalary    = "Salary"
	CategoryHousehold = "Household"
	CategoryBank      = "Bank"
	CategoryMarket    = "Market"
	CategoryEducation = "Education"
	CategoryRealty    = "Real Estate"
	CategoryVehicles  = "Vehicles"
	CategoryValuables = "Valuables"
)

const (
	DifficultyEasy      = "easy"
	DifficultyStandard  = "standard"
	DifficultyRealistic = "realistic"
)

var (
	ErrAccountFrozen        = errors.New("account frozen: balance is negative")
	ErrGameOver             = errors.New("game over")
	ErrInvalidHours         = errors.New("hours must be > 0")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrUnknownAssetClass    = errors.New("unknown asset class")
	ErrUnknownSymbol        = errors.New("unknown symbol")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrEventActive          = errors.New("event is already active")
	ErrUnknownItem          = errors.New("unknown item")
	ErrAlreadyOwned         = errors.New("already owned")
	ErrNotOwned             = errors.New("not owned")
	ErrCourseInProgress     = errors.New("a course is already in progress")
	ErrCourseRequired       = errors.New("required course not completed")
	ErrUnknownLoan          = errors.New("unknown loan")
	ErrUnknownDifficulty    = errors.New("unknown difficulty")
	ErrInvalidBirthDate     = errors.New("date of birth must be before the start date")
)

func ValidateAssetClass(class string) error {
	switch class {
	case ClassStocks, ClassCrypto:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAssetClass, class)
	}
}

// ParseStep turns "hour", "day", "week", "month" or a plain hour count into hours.
func ParseStep(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "hour":
		return 1, nil
	case "d", "day":
		return HoursPerDay, nil
	case "w", "week":
		return HoursPerWeek, nil
	case "m", "month":
		return HoursPerMonth, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("step must be hour, day, week, month or a number of hours: %q", s)
	}
	if n <= 0 {
		return 0, ErrInvalidHours
	}
	return n, nil
}

func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// Money converts a float market value into cents-rounded currency.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
