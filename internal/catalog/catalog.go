package catalog

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

//go:embed data/*.json schemas/*.json
var embedded embed.FS

const schemaBase = "https://tradequest.local/schemas/"

var ErrEmptyID = errors.New("empty id")

// Catalog holds the static game data. Lookups never fail hard: a missing id
// returns ok=false and callers treat it as zero.
type Catalog struct {
	Jobs         []Job         `json:"jobs"`
	Courses      []Course      `json:"courses"`
	Properties   []Property    `json:"properties"`
	Vehicles     []Vehicle     `json:"vehicles"`
	Valuables    []Valuable    `json:"valuables"`
	Events       []Event       `json:"events"`
	Achievements []Achievement `json:"achievements"`
	LoanOffers   []LoanOffer   `json:"loans"`
	Market       []Symbol      `json:"market"`
	Digest       string        `json:"digest"`

	jobs         map[string]Job
	courses      map[string]Course
	properties   map[string]Property
	vehicles     map[string]Vehicle
	valuables    map[string]Valuable
	events       map[string]Event
	achievements map[string]Achievement
	loans        map[string]LoanOffer
}

type Job struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Company    string          `json:"company"`
	BaseSalary decimal.Decimal `json:"base_salary"`
	ReqCourse  string          `json:"req_course,omitempty"`
	Milestones []Milestone     `json:"milestones,omitempty"`
}

// Milestone bonuses stack: every milestone reached keeps paying.
type Milestone struct {
	Months int             `json:"months"`
	Bonus  decimal.Decimal `json:"bonus"`
}

type Course struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Days int             `json:"days"`
	Cost decimal.Decimal `json:"cost"`
}

type Property struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Location string          `json:"location"`
	Price    decimal.Decimal `json:"price"`
	Upkeep   decimal.Decimal `json:"upkeep"`
	Prestige int             `json:"prestige"`
}

type Vehicle struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Class    string          `json:"class"`
	Price    decimal.Decimal `json:"price"`
	Prestige int             `json:"prestige"`
}

type Valuable struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Price    decimal.Decimal `json:"price"`
	Prestige int             `json:"prestige"`
}

const (
	TargetGlobal = "global"
	TargetSector = "sector"
	TargetSingle = "single"
)

type Event struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    int     `json:"duration"`
	TargetType  string  `json:"target_type"`
	TargetID    string  `json:"target_id,omitempty"`
	Impact      float64 `json:"impact"`
	Weight      float64 `json:"weight"`
}

type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoanOffer struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Months   int             `json:"months"`
	Interest float64         `json:"interest"`
}

// Symbol seeds one tradable instrument in a fresh save.
type Symbol struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Class        string  `json:"class"`
	Sector       string  `json:"sector"`
	Price        float64 `json:"price"`
	DividendRate float64 `json:"dividend_rate"`
}

// Defs is the raw content of a catalogue before indexing.
type Defs struct {
	Jobs         []Job
	Courses      []Course
	Properties   []Property
	Vehicles     []Vehicle
	Valuables    []Valuable
	Events       []Event
	Achievements []Achievement
	LoanOffers   []LoanOffer
	Market       []Symbol
}

// Default returns the catalogue compiled into the binary.
func Default() (*Catalog, error) {
	data, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// LoadDir reads catalogue files from dir. Files missing from dir fall back to
// the embedded copy so a mod directory can override only what it needs.
func LoadDir(dir string) (*Catalog, error) {
	if strings.TrimSpace(dir) == "" {
		return Default()
	}
	data, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(overlayFS{top: os.DirFS(dir), base: data})
}

func Load(fsys fs.FS) (*Catalog, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	var defs Defs
	digest := sha256.New()
	files := []struct {
		name string
		out  any
	}{
		{"jobs", &defs.Jobs},
		{"courses", &defs.Courses},
		{"properties", &defs.Properties},
		{"vehicles", &defs.Vehicles},
		{"valuables", &defs.Valuables},
		{"events", &defs.Events},
		{"achievements", &defs.Achievements},
		{"loans", &defs.LoanOffers},
		{"market", &defs.Market},
	}
	for _, f := range files {
		raw, err := fs.ReadFile(fsys, f.name+".json")
		if err != nil {
			return nil, fmt.Errorf("%s.json: %w", f.name, err)
		}
		digest.Write(raw)

		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s.json: %w", f.name, err)
		}
		if err := schemas[f.name].Validate(doc); err != nil {
			return nil, fmt.Errorf("%s.json: %w", f.name, err)
		}
		if err := json.Unmarshal(raw, f.out); err != nil {
			return nil, fmt.Errorf("%s.json: %w", f.name, err)
		}
	}

	c, err := New(defs)
	if err != nil {
		return nil, err
	}
	c.Digest = hex.EncodeToString(digest.Sum(nil))
	return c, nil
}

// New indexes already-decoded definitions. Ids must be unique per kind.
func New(defs Defs) (*Catalog, error) {
	c := &Catalog{
		Jobs:         defs.Jobs,
		Courses:      defs.Courses,
		Properties:   defs.Properties,
		Vehicles:     defs.Vehicles,
		Valuables:    defs.Valuables,
		Events:       defs.Events,
		Achievements: defs.Achievements,
		LoanOffers:   defs.LoanOffers,
		Market:       defs.Market,
	}
	var err error
	if c.jobs, err = index("jobs", defs.Jobs, func(v Job) string { return v.ID }); err != nil {
		return nil, err
	}
	if c.courses, err = index("courses", defs.Courses, func(v Course) string { return v.ID }); err != nil {
		return nil, err
	}
	if c.properties, err = index("properties", defs.Properties, func(v Property) string { return v.ID }); err != nil {
		return nil, err
	}
	if c.vehicles, err = index("vehicles", defs.Vehicles, func(v Vehicle) string { return v.ID }); err != nil {
		return nil, err
	}
	if c.valuables, err = index("valuables", defs.Valuables, func(v Valuable) string { return v.ID }); err != nil {
		return nil, err
	}
	// Event ids are matched case-insensitively.
	if c.events, err = index("events", defs.Events, func(v Event) string { return strings.ToUpper(v.ID) }); err != nil {
		return nil, err
	}
	if c.achievements, err = index("achievements", defs.Achievements, func(v Achievement) string { return v.ID }); err != nil {
		return nil, err
	}
	if c.loans, err = index("loans", defs.LoanOffers, func(v LoanOffer) string { return v.ID }); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, s := range defs.Market {
		if s.Symbol == "" {
			return nil, fmt.Errorf("market: %w", ErrEmptyID)
		}
		key := s.Class + "/" + s.Symbol
		if seen[key] {
			return nil, fmt.Errorf("market: duplicate symbol %s", key)
		}
		seen[key] = true
	}
	return c, nil
}

func index[T any](kind string, defs []T, id func(T) string) (map[string]T, error) {
	out := make(map[string]T, len(defs))
	for _, d := range defs {
		key := id(d)
		if key == "" {
			return nil, fmt.Errorf("%s: %w", kind, ErrEmptyID)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%s: duplicate id %q", kind, key)
		}
		out[key] = d
	}
	return out, nil
}

func (c *Catalog) Job(id string) (Job, bool) {
	v, ok := c.jobs[id]
	return v, ok
}

func (c *Catalog) Course(id string) (Course, bool) {
	v, ok := c.courses[id]
	return v, ok
}

func (c *Catalog) Property(id string) (Property, bool) {
	v, ok := c.properties[id]
	return v, ok
}

func (c *Catalog) Vehicle(id string) (Vehicle, bool) {
	v, ok := c.vehicles[id]
	return v, ok
}

func (c *Catalog) Valuable(id string) (Valuable, bool) {
	v, ok := c.valuables[id]
	return v, ok
}

func (c *Catalog) Event(id string) (Event, bool) {
	v, ok := c.events[strings.ToUpper(strings.TrimSpace(id))]
	return v, ok
}

func (c *Catalog) Achievement(id string) (Achievement, bool) {
	v, ok := c.achievements[id]
	return v, ok
}

func (c *Catalog) LoanOffer(id string) (LoanOffer, bool) {
	v, ok := c.loans[id]
	return v, ok
}

func (c *Catalog) EventList() []Event {
	return c.Events
}

func (c *Catalog) MarketSeed() []Symbol {
	return c.Market
}

// AchievementTitle returns the display name, or the id when unknown.
func (c *Catalog) AchievementTitle(id string) string {
	if a, ok := c.achievements[id]; ok && a.Name != "" {
		return a.Name
	}
	return id
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	entries, err := fs.ReadDir(embedded, "schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		raw, err := embedded.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(schemaBase+e.Name(), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
	}
	out := map[string]*jsonschema.Schema{}
	for _, name := range []string{"jobs", "courses", "properties", "vehicles", "valuables", "events", "achievements", "loans", "market"} {
		s, err := compiler.Compile(schemaBase + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

type overlayFS struct {
	top  fs.FS
	base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.top.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.base.Open(name)
	}
	return nil, err
}
