package game

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradequest/internal/catalog"
)

func init() {
	// Save files keep money as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = Date{t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

type Holding struct {
	Amount   float64 `json:"amount"`
	AvgPrice float64 `json:"avg_price"`
}

type PricePoint struct {
	Date  Date    `json:"date"`
	Price float64 `json:"price"`
}

type MarketEntry struct {
	Name         string       `json:"name,omitempty"`
	Sector       string       `json:"category,omitempty"`
	CurrentPrice float64      `json:"current_price"`
	DividendRate float64      `json:"dividend_rate,omitempty"`
	History      []PricePoint `json:"history"`
}

type Loan struct {
	Type            string          `json:"type"`
	Principal       decimal.Decimal `json:"principal"`
	TotalToPay      decimal.Decimal `json:"total_to_pay"`
	MonthlyRate     decimal.Decimal `json:"monthly_rate"`
	RemainingMonths int             `json:"remaining_months"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	IsNew           bool            `json:"is_new"`
}

// Outstanding is what an early payoff costs.
func (l Loan) Outstanding() decimal.Decimal {
	return l.TotalToPay.Sub(l.PaidAmount)
}

type ActiveCourse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	RemainingHours int    `json:"remaining_hours"`
}

type Transaction struct {
	ID          string          `json:"id,omitempty"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type ActiveEvent struct {
	Event     catalog.Event `json:"event"`
	Remaining int           `json:"remaining"`
}

type EstateReport struct {
	DiedAt     time.Time       `json:"died_at"`
	Age        int             `json:"age"`
	Cash       decimal.Decimal `json:"cash"`
	Properties decimal.Decimal `json:"properties"`
	Vehicles   decimal.Decimal `json:"vehicles"`
	Valuables  decimal.Decimal `json:"valuables"`
	NetWorth   decimal.Decimal `json:"net_worth"`
	Prestige   int             `json:"prestige"`
}

// State is the whole save record. Keys the engine does not know about are
// kept in Extra and written back untouched.
type State struct {
	Balance           decimal.Decimal                   `json:"balance"`
	CreatedAt         time.Time                         `json:"created_at"` // in-game clock
	DateOfBirth       Date                              `json:"date_of_birth"`
	Difficulty        string                            `json:"difficulty,omitempty"`
	Portfolio         map[string]map[string]Holding     `json:"portfolio"`
	Market            map[string]map[string]MarketEntry `json:"market_data"`
	OwnedProperties   []string                          `json:"owned_properties"`
	OwnedVehicles     []string                          `json:"owned_vehicles"`
	OwnedValuables    []string                          `json:"owned_valuables"`
	PrimaryHome       string                            `json:"primary_home,omitempty"`
	ActiveLoans       []Loan                            `json:"active_loans"`
	ActiveCourse      *ActiveCourse                     `json:"active_course,omitempty"`
	CompletedCourses  []string                          `json:"completed_courses"`
	CurrentJob        string                            `json:"current_job,omitempty"`
	JobMonths         int                               `json:"job_months"`
	Transactions      []Transaction                     `json:"transaction_history"`
	Achievements      []string                          `json:"unlocked_achievements"`
	Prestige          int                               `json:"prestige"`
	ActiveEvents      []ActiveEvent                     `json:"active_events"`
	EventCooldownDays int                               `json:"event_cooldown_days"`
	Deceased          bool                              `json:"deceased,omitempty"`
	Estate            *EstateReport                     `json:"estate,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type stateFields State

var stateKeys = jsonKeys(reflect.TypeOf(stateFields{}))

func jsonKeys(t reflect.Type) map[string]bool {
	keys := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

func (s State) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(stateFields(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return known, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if !stateKeys[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (s *State) UnmarshalJSON(b []byte) error {
	var known stateFields
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	*s = State(known)
	for k, v := range all {
		if stateKeys[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = map[string]json.RawMessage{}
		}
		s.Extra[k] = v
	}
	s.Normalize()
	return nil
}

// Normalize fills nil collections so older saves behave like fresh ones.
func (s *State) Normalize() {
	if s.Portfolio == nil {
		s.Portfolio = map[string]map[string]Holding{}
	}
	if s.Market == nil {
		s.Market = map[string]map[string]MarketEntry{}
	}
	if s.OwnedProperties == nil {
		s.OwnedProperties = []string{}
	}
	if s.OwnedVehicles == nil {
		s.OwnedVehicles = []string{}
	}
	if s.OwnedValuables == nil {
		s.OwnedValuables = []string{}
	}
	if s.ActiveLoans == nil {
		s.ActiveLoans = []Loan{}
	}
	if s.CompletedCourses == nil {
		s.CompletedCourses = []string{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
	if s.ActiveEvents == nil {
		s.ActiveEvents = []ActiveEvent{}
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyStandard
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Portfolio = make(map[string]map[string]Holding, len(s.Portfolio))
	for class, holdings := range s.Portfolio {
		c.Portfolio[class] = maps.Clone(holdings)
	}
	c.Market = make(map[string]map[string]MarketEntry, len(s.Market))
	for class, entries := range s.Market {
		cp := make(map[string]MarketEntry, len(entries))
		for sym, e := range entries {
			e.History = slices.Clone(e.History)
			cp[sym] = e
		}
		c.Market[class] = cp
	}
	c.OwnedProperties = slices.Clone(s.OwnedProperties)
	c.OwnedVehicles = slices.Clone(s.OwnedVehicles)
	c.OwnedValuables = slices.Clone(s.OwnedValuables)
	c.ActiveLoans = slices.Clone(s.ActiveLoans)
	if s.ActiveCourse != nil {
		ac := *s.ActiveCourse
		c.ActiveCourse = &ac
	}
	c.CompletedCourses = slices.Clone(s.CompletedCourses)
	c.Transactions = slices.Clone(s.Transactions)
	c.Achievements = slices.Clone(s.Achievements)
	c.ActiveEvents = slices.Clone(s.ActiveEvents)
	if s.Estate != nil {
		e := *s.Estate
		c.Estate = &e
	}
	if s.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return &c
}

// ExtraString reads a pass-through string field such as player_name.
func (s *State) ExtraString(key string) string {
	raw, ok := s.Extra[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func (s *State) SetExtraString(key, value string) {
	if stateKeys[key] {
		return
	}
	raw, _ := json.Marshal(value)
	if s.Extra == nil {
		s.Extra = map[string]json.RawMessage{}
	}
	s.Extra[key] = raw
}

func (s *State) PlayerName() string {
	return strings.TrimSpace(s.ExtraString("player_name") + " " + s.ExtraString("player_surname"))
}

func (s *State) logTransaction(category, description string, amount decimal.Decimal) {
	tx := Transaction{
		ID:          uuid.NewString(),
		Date:        s.CreatedAt,
		Category:    category,
		Description: description,
		Amount:      amount,
	}
	s.Transactions = append([]Transaction{tx}, s.Transactions...)
}

func (s *State) holding(class, symbol string) Holding {
	return s.Portfolio[class][symbol]
}

func (s *State) setHolding(class, symbol string, h Holding) {
	if h.Amount < DustAmount {
		delete(s.Portfolio[class], symbol)
		return
	}
	if s.Portfolio[class] == nil {
		s.Portfolio[class] = map[string]Holding{}
	}
	s.Portfolio[class][symbol] = h
}

func (s *State) hasAchievement(id string) bool {
	return slices.Contains(s.Achievements, id)
}

func (s *State) courseCompleted(id string) bool {
	return slices.Contains(s.CompletedCourses, id)
}

func (s *State) eventActive(id string) bool {
	for _, a := range s.ActiveEvents {
		if strings.EqualFold(a.Event.ID, id) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}
