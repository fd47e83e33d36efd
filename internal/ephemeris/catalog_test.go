package ephemeris

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sky_coords.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `name,kind,arg1,arg2
Sun,sun
Moon,moon
CasA,radec,23:23:24,58:48:54
TauA,radec,5.576,22.014
`)

	entries, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Name: "Sun", Kind: KindSun}, entries[0])
	assert.Equal(t, Entry{Name: "Moon", Kind: KindMoon}, entries[1])

	casA := entries[2]
	assert.Equal(t, KindRADec, casA.Kind)
	assert.InDelta(t, 23.39, casA.RAHours, 0.01)
	assert.InDelta(t, 58.815, casA.DecDeg, 0.01)

	tauA := entries[3]
	assert.InDelta(t, 5.576, tauA.RAHours, 1e-9)
	assert.InDelta(t, 22.014, tauA.DecDeg, 1e-9)
}

func TestLoadCatalogSkipsCommentsAndHeader(t *testing.T) {
	path := writeCatalog(t, `name,kind,arg1,arg2
# a comment line
Orion,radec,05:35:17,-05:23:28
`)

	entries, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Orion", entries[0].Name)
	// The negative declination keeps its sign through the sexagesimal parse.
	assert.InDelta(t, -5.391, entries[0].DecDeg, 0.001)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(writeCatalog(t, "CasA,radec,23:23:24\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "X,planet,1,2\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(writeCatalog(t, "CasA,radec,noon,58\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestTrackerPositions(t *testing.T) {
	path := writeCatalog(t, `name,kind,arg1,arg2
Sun,sun
CasA,radec,23:23:24,58:48:54
`)

	tracker, err := NewTracker(Location{Lat: 42.5, Lon: -71.5}, path, nil)
	require.NoError(t, err)

	positions := tracker.Positions()
	require.Contains(t, positions, "Sun")
	require.Contains(t, positions, "CasA")

	for name, p := range positions {
		assert.GreaterOrEqual(t, p.Az, 0.0, name)
		assert.Less(t, p.Az, 360.0, name)
		assert.GreaterOrEqual(t, p.El, -90.0, name)
		assert.LessOrEqual(t, p.El, 90.0, name)
	}

	// Positions returns a copy; mutating it must not leak back.
	positions["Sun"] = positions["CasA"]
	fresh := tracker.Positions()
	assert.NotEqual(t, positions["Sun"], fresh["Sun"])
}
