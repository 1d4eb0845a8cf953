package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradequest/internal/config"
	"tradequest/internal/game"
	"tradequest/internal/notify"
	"tradequest/internal/slots"
	"tradequest/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Server struct {
	cfg      config.ServerConfig
	log      *slog.Logger
	slots    *slots.Manager
	hub      *notify.Hub
	limiter  *rate.Limiter
	replay   *replayCache
	upgrader websocket.Upgrader
	mux      *chi.Mux
}

func New(cfg config.ServerConfig, logger *slog.Logger, mgr *slots.Manager, hub *notify.Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		slots:  mgr,
		hub:    hub,
		replay: newReplayCache(1024),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: chi.NewRouter(),
	}
	if cfg.RatePerSecond > 0 {
		burst := max(cfg.Burst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", s.handleToasts)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(s.rateLimit)
			r.Get("/catalog", s.handleCatalog)
			r.Get("/saves", s.handleListSaves)
			r.Post("/saves", s.handleCreateSave)

			r.Route("/saves/{slot}", func(r chi.Router) {
				r.Use(s.idempotent)
				r.Get("/", s.handleSnapshot)
				r.Delete("/", s.handleDeleteSave)
				r.Post("/advance", s.handleAdvance)
				r.Post("/events/{id}/trigger", s.handleTriggerEvent)
				r.Post("/death-check", s.handleDeathCheck)
				r.Post("/trades", s.handleTrade)
				r.Post("/properties/{id}/buy", s.handleBuyProperty)
				r.Post("/properties/{id}/primary", s.handlePrimaryHome)
				r.Post("/vehicles/{id}/buy", s.handleBuyVehicle)
				r.Post("/valuables/{id}/buy", s.handleBuyValuable)
				r.Get("/loans/{offer}/quote", s.handleLoanQuote)
				r.Post("/loans", s.handleTakeLoan)
				r.Post("/loans/{index}/repay", s.handleRepayLoan)
				r.Post("/loans/{index}/payoff", s.handlePayoffLoan)
				r.Post("/courses/{id}/enroll", s.handleEnroll)
				r.Post("/jobs/{id}/apply", s.handleApplyJob)
			})
		})
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type SnapshotResponse struct {
	Slot       string          `json:"slot"`
	Phase      game.Phase      `json:"phase"`
	Aggregates game.Aggregates `json:"aggregates"`
	State      *game.State     `json:"state"`
}

func snapshotOf(slot string, e *game.Engine) SnapshotResponse {
	v := e.View()
	return SnapshotResponse{
		Slot:       slot,
		Phase:      v.Phase,
		Aggregates: v.Aggregates,
		State:      v.State,
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.slots.Catalog())
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	list, err := s.slots.Store().List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saves": list})
}

type CreateSaveRequest struct {
	Slot          string `json:"slot"`
	PlayerName    string `json:"player_name"`
	PlayerSurname string `json:"player_surname"`
	Gender        string `json:"gender"`
	Avatar        string `json:"avatar"`
	DateOfBirth   string `json:"date_of_birth"`
	Difficulty    string `json:"difficulty"`
	Start         string `json:"start"`
}

func (s *Server) handleCreateSave(w http.ResponseWriter, r *http.Request) {
	var in CreateSaveRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dob, err := game.ParseDate(in.DateOfBirth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_of_birth: "+err.Error())
		return
	}
	var start time.Time
	if in.Start != "" {
		d, err := game.ParseDate(in.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start: "+err.Error())
			return
		}
		start = d.Time
	}
	slot := strings.TrimSpace(in.Slot)
	if slot == "" {
		slot = uuid.NewString()[:8]
	}
	e, err := s.slots.Create(r.Context(), slot, game.NewGameInput{
		PlayerName:    in.PlayerName,
		PlayerSurname: in.PlayerSurname,
		Gender:        in.Gender,
		Avatar:        in.Avatar,
		DateOfBirth:   dob,
		Difficulty:    in.Difficulty,
		Start:         start,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshotOf(slot, e))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	e, err := s.slots.Open(r.Context(), slot)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotOf(slot, e))
}

func (s *Server) handleDeleteSave(w http.ResponseWriter, r *http.Request) {
	if err := s.slots.Delete(r.Context(), chi.URLParam(r, "slot")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AdvanceRequest struct {
	Hours int    `json:"hours"`
	Step  string `json:"step"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var in AdvanceRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours := in.Hours
	if in.Step != "" {
		n, err := game.ParseStep(in.Step)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hours = n
	}
	var res game.AdvanceResult
	err := s.slots.Update(r.Context(), chi.URLParam(r, "slot"), func(e *game.Engine) error {
		var err error
		res, err = e.Advance(hours)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTriggerEvent(w http.ResponseWriter, r *http.Request) {
	var out any
	err := s.slots.Update(r.Context(), chi.URLParam(r, "slot"), func(e *game.Engine) error {
		ev, err := e.TriggerEvent(chi.URLParam(r, "id"))
		out = ev
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": out})
}

func (s *Server) handleDeathCheck(w http.ResponseWriter, r *http.Request) {
	var out game.DeathCheck
	err := s.slots.Update(r.Context(), chi.URLParam(r, "slot"), func(e *game.Engine) error {
		var err error
		out, err = e.CheckDeathChance()
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type TradeRequest struct {
	Side   string  `json:"side"`
	Class  string  `json:"class"`
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var in TradeRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var trade game.Trade
	err := s.slots.Update(r.Context(), chi.URLParam(r, "slot"), func(e *game.Engine) error {
		var err error
		switch strings.ToLower(in.Side) {
		case "buy":
			trade, err = e.BuyAsset(in.Class, in.Symbol, in.Amount)
		case "sell":
			trade, err = e.SellAsset(in.Class, in.Symbol, in.Amount)
		default:
			err = errBadRequest("side must be buy or sell")
		}
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// itemAction runs a parameterless engine action keyed by the {id} URL param
// and answers with the fresh snapshot.
func (s *Server) itemAction(action func(e *game.Engine, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot := chi.URLParam(r, "slot")
		var snap SnapshotResponse
		err := s.slots.Update(r.Context(), slot, func(e *game.Engine) error {
			if err := action(e, chi.URLParam(r, "id")); err != nil {
				return err
			}
			snap = snapshotOf(slot, e)
			return nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) handleBuyProperty(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).BuyProperty)(w, r)
}

func (s *Server) handlePrimaryHome(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).SetPrimaryHome)(w, r)
}

func (s *Server) handleBuyVehicle(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).BuyVehicle)(w, r)
}

func (s *Server) handleBuyValuable(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).BuyValuable)(w, r)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).EnrollCourse)(w, r)
}

func (s *Server) handleApplyJob(w http.ResponseWriter, r *http.Request) {
	s.itemAction((*game.Engine).ApplyJob)(w, r)
}

func (s *Server) handleLoanQuote(w http.ResponseWriter, r *http.Request) {
	e, err := s.slots.Open(r.Context(), chi.URLParam(r, "slot"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	q, err := e.QuoteLoan(chi.URLParam(r, "offer"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleTakeLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Offer string `json:"offer"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var loan game.Loan
	err := s.slots.Update(r.Context(), chi.URLParam(r, "slot"), func(e *game.Engine) error {
		var err error
		loan, err = e.TakeLoan(in.Offer)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func loanIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, errBadRequest("invalid loan index")
	}
	return idx, nil
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	idx, err := loanIndex(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var in struct {
		Installments int `json:"installments"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.itemAction(func(e *game.Engine, _ string) error {
		return e.RepayLoan(idx, in.Installments)
	})(w, r)
}

func (s *Server) handlePayoffLoan(w http.ResponseWriter, r *http.Request) {
	idx, err := loanIndex(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.itemAction(func(e *game.Engine, _ string) error {
		return e.RepayLoanEarly(idx)
	})(w, r)
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad),
		errors.Is(err, store.ErrInvalidSlot),
		errors.Is(err, game.ErrInvalidHours),
		errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrUnknownAssetClass),
		errors.Is(err, game.ErrUnknownDifficulty),
		errors.Is(err, game.ErrInvalidBirthDate):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, game.ErrUnknownEvent),
		errors.Is(err, game.ErrUnknownSymbol),
		errors.Is(err, game.ErrUnknownItem),
		errors.Is(err, game.ErrUnknownLoan):
		return http.StatusNotFound
	case errors.Is(err, slots.ErrSlotExists),
		errors.Is(err, game.ErrEventActive),
		errors.Is(err, game.ErrAlreadyOwned),
		errors.Is(err, game.ErrNotOwned),
		errors.Is(err, game.ErrCourseInProgress),
		errors.Is(err, game.ErrCourseRequired):
		return http.StatusConflict
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientHoldings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrAccountFrozen):
		return http.StatusLocked
	case errors.Is(err, game.ErrGameOver):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
