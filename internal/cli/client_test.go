package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest/internal/api"
)

func TestClientAdvanceSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotPath string
	var gotBody api.AdvanceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hours":48,"days":2,"died":false,"phase":"running"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL+"/").Advance(context.Background(), "main", 48, "key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Days)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "/v1/saves/main/advance", gotPath)
	assert.Equal(t, 48, gotBody.Hours)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusLocked)
		_, _ = w.Write([]byte(`{"error":"account frozen"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).DeathCheck(context.Background(), "main")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusLocked))
	assert.Equal(t, "api status 423: account frozen", err.Error())
}

func TestProfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProfile(dir)
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	require.NoError(t, SaveProfile(dir, Profile{Slot: "main", ServerURL: "http://localhost:8080/"}))
	p, err = LoadProfile(dir)
	require.NoError(t, err)
	assert.Equal(t, Profile{Slot: "main", ServerURL: "http://localhost:8080"}, p)
}
