package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Digest)

	for _, id := range []string{"job_01", "job_20"} {
		_, ok := c.Job(id)
		assert.True(t, ok, id)
	}
	for _, id := range []string{"prop_11", "prop_20"} {
		_, ok := c.Property(id)
		assert.True(t, ok, id)
	}
	for _, id := range []string{"veh_14", "veh_27", "veh_28", "veh_30"} {
		_, ok := c.Vehicle(id)
		assert.True(t, ok, id)
	}
	for _, id := range []string{"val_27", "val_30"} {
		_, ok := c.Valuable(id)
		assert.True(t, ok, id)
	}
	for _, id := range []string{"small", "medium", "large"} {
		_, ok := c.LoanOffer(id)
		assert.True(t, ok, id)
	}
	assert.NotEmpty(t, c.MarketSeed())
}

func TestEveryJobRequirementIsACourse(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	for _, j := range c.Jobs {
		if j.ReqCourse == "" {
			continue
		}
		_, ok := c.Course(j.ReqCourse)
		assert.True(t, ok, "job %s requires unknown course %s", j.ID, j.ReqCourse)
	}
}

func TestEventLookupIgnoresCase(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ev, ok := c.Event("g_crash_01")
	require.True(t, ok)
	assert.Equal(t, "G_CRASH_01", ev.ID)

	_, ok = c.Event("NOPE")
	assert.False(t, ok)
}

func TestNewRejectsDuplicateAndEmptyIDs(t *testing.T) {
	_, err := New(Defs{Jobs: []Job{{ID: "a"}, {ID: "a"}}})
	require.Error(t, err)

	_, err = New(Defs{Vehicles: []Vehicle{{ID: ""}}})
	require.ErrorIs(t, err, ErrEmptyID)
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	base, err := fs.Sub(embedded, "data")
	require.NoError(t, err)

	bad := fstest.MapFS{
		"events.json": &fstest.MapFile{Data: []byte(`[{"id":"X","name":"x","duration":0,"target_type":"planet","impact":1}]`)},
	}
	_, err = Load(overlayFS{top: bad, base: base})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.json")
}

func TestLoadDirOverridesSingleFile(t *testing.T) {
	dir := t.TempDir()
	override := `[{"id":"small","name":"Tiny","amount":500,"months":2,"interest":0.05}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loans.json"), []byte(override), 0o600))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, c.LoanOffers, 1)
	assert.Equal(t, "Tiny", c.LoanOffers[0].Name)

	// untouched files still come from the embedded set
	_, ok := c.Job("job_20")
	assert.True(t, ok)
}
