package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacySave = `{
  "player_name": "Jan",
  "player_surname": "Kowalski",
  "knowledge_level": 1,
  "settings": {"theme": "dark", "volume": [1, 2]},
  "balance": 1234.5,
  "created_at": "2025-05-01T10:00:00Z",
  "date_of_birth": "1995-07-20",
  "portfolio": {"stocks": {"ACME": {"amount": 2, "avg_price": 40}}},
  "owned_vehicles": ["veh_01"]
}`

func TestStateKeepsUnknownFields(t *testing.T) {
	var st State
	require.NoError(t, json.Unmarshal([]byte(legacySave), &st))

	assert.True(t, st.Balance.Equal(dec(1234.5)))
	assert.Equal(t, "Jan Kowalski", st.PlayerName())
	assert.Equal(t, NewDate(1995, time.July, 20), st.DateOfBirth)
	assert.Equal(t, 2.0, st.Portfolio[ClassStocks]["ACME"].Amount)
	assert.NotNil(t, st.ActiveLoans)
	assert.Equal(t, DifficultyStandard, st.Difficulty)

	out, err := json.Marshal(st)
	require.NoError(t, err)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &round))
	assert.JSONEq(t, `{"theme": "dark", "volume": [1, 2]}`, string(round["settings"]))
	assert.JSONEq(t, `1`, string(round["knowledge_level"]))
	assert.JSONEq(t, `1234.5`, string(round["balance"]))
	assert.JSONEq(t, `"1995-07-20"`, string(round["date_of_birth"]))
}

func TestExtraCannotShadowKnownFields(t *testing.T) {
	st := State{}
	st.Normalize()
	st.SetExtraString("balance", "lots")
	assert.Empty(t, st.Extra)
}

func TestCloneIsDeep(t *testing.T) {
	cat := testCatalog(t)
	st := newTestState(t, cat)
	st.Portfolio[ClassStocks] = map[string]Holding{"ACME": {Amount: 1}}
	st.ActiveCourse = &ActiveCourse{ID: "c", RemainingHours: 10}

	c := st.Clone()
	c.Portfolio[ClassStocks]["ACME"] = Holding{Amount: 99}
	entry := c.Market[ClassStocks]["ACME"]
	entry.History[0].Price = -1
	c.ActiveCourse.RemainingHours = 0
	c.Extra["player_name"] = json.RawMessage(`"Mallory"`)

	assert.Equal(t, 1.0, st.Portfolio[ClassStocks]["ACME"].Amount)
	assert.Equal(t, 50.0, st.Market[ClassStocks]["ACME"].History[0].Price)
	assert.Equal(t, 10, st.ActiveCourse.RemainingHours)
	assert.Equal(t, "Ada Lovelace", st.PlayerName())
}

func TestDateAcceptsTimestamps(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2001-02-03T04:05:06Z"`), &d))
	assert.Equal(t, NewDate(2001, time.February, 3), d)

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}
