package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradequest/internal/api"
	"tradequest/internal/game"
	"tradequest/internal/store"
)

// Client talks to a running tq-server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func slotPath(slot string, parts ...string) string {
	p := "/v1/saves/" + url.PathEscape(slot)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) Health(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil, "")
}

func (c *Client) ListSaves(ctx context.Context) ([]store.SlotInfo, error) {
	var out struct {
		Saves []store.SlotInfo `json:"saves"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/saves", nil, &out, "")
	return out.Saves, err
}

func (c *Client) CreateSave(ctx context.Context, in api.CreateSaveRequest) (api.SnapshotResponse, error) {
	var out api.SnapshotResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/saves", in, &out, "")
	return out, err
}

func (c *Client) Snapshot(ctx context.Context, slot string) (api.SnapshotResponse, error) {
	var out api.SnapshotResponse
	err := c.jsonRequest(ctx, http.MethodGet, slotPath(slot), nil, &out, "")
	return out, err
}

// Advance sends one idempotent advance request; retrying with the same key
// never advances twice.
func (c *Client) Advance(ctx context.Context, slot string, hours int, idem string) (game.AdvanceResult, error) {
	if idem == "" {
		idem = uuid.NewString()
	}
	var out game.AdvanceResult
	err := c.jsonRequest(ctx, http.MethodPost, slotPath(slot, "advance"), api.AdvanceRequest{Hours: hours}, &out, idem)
	return out, err
}

func (c *Client) TriggerEvent(ctx context.Context, slot, eventID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, slotPath(slot, "events", eventID, "trigger"), nil, &out, uuid.NewString())
	return out, err
}

func (c *Client) DeathCheck(ctx context.Context, slot string) (game.DeathCheck, error) {
	var out game.DeathCheck
	err := c.jsonRequest(ctx, http.MethodPost, slotPath(slot, "death-check"), nil, &out, uuid.NewString())
	return out, err
}

func (c *Client) Trade(ctx context.Context, slot string, in api.TradeRequest) (game.Trade, error) {
	var out game.Trade
	err := c.jsonRequest(ctx, http.MethodPost, slotPath(slot, "trades"), in, &out, uuid.NewString())
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
