package ephemeris

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/large-farva/srt-control/internal/rotor"
)

// Tracker owns the object catalog and the current apparent positions. One
// UpdateAll per refresh cycle recomputes every object; Positions hands out a
// copy so callers never share the internal map.
type Tracker struct {
	loc Location
	log *log.Logger

	entries []Entry
	sats    map[string]*satTracker

	mu        sync.Mutex
	positions map[string]rotor.Pose
}

// NewTracker loads the catalog and primes positions for the current time.
func NewTracker(loc Location, catalogPath string, logger *log.Logger) (*Tracker, error) {
	entries, err := LoadCatalog(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	t := &Tracker{
		loc:       loc,
		log:       logger,
		entries:   entries,
		sats:      make(map[string]*satTracker),
		positions: make(map[string]rotor.Pose, len(entries)),
	}

	for _, e := range entries {
		if e.Kind != KindSatellite {
			continue
		}
		tle, err := loadTLE(e.TLEFile)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", e.Name, err)
		}
		t.sats[e.Name] = &satTracker{name: e.Name, tle: tle}
	}

	t.UpdateAll(time.Now())
	return t, nil
}

// UpdateAll recomputes the apparent position of every catalog object at the
// given time and atomically replaces the position map.
func (t *Tracker) UpdateAll(now time.Time) {
	fresh := make(map[string]rotor.Pose, len(t.entries))
	for _, e := range t.entries {
		switch e.Kind {
		case KindRADec:
			fresh[e.Name] = radecToAzEl(e.RAHours, e.DecDeg, now, t.loc)
		case KindSun:
			ra, dec := sunRADec(now)
			fresh[e.Name] = radecToAzEl(ra, dec, now, t.loc)
		case KindMoon:
			ra, dec := moonRADec(now)
			fresh[e.Name] = radecToAzEl(ra, dec, now, t.loc)
		case KindSatellite:
			st := t.sats[e.Name]
			if err := st.refresh(now, t.loc); err != nil {
				if t.log != nil {
					t.log.Printf("ephemeris: %v", err)
				}
			}
			fresh[e.Name] = st.position(now)
		}
	}

	t.mu.Lock()
	t.positions = fresh
	t.mu.Unlock()
}

// Positions returns a copy of the latest object positions.
func (t *Tracker) Positions() map[string]rotor.Pose {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]rotor.Pose, len(t.positions))
	for k, v := range t.positions {
		out[k] = v
	}
	return out
}

// Passes returns upcoming satellite transits across all TLE catalog entries,
// sorted by AOS ascending.
func (t *Tracker) Passes(now time.Time) []Pass {
	var all []Pass
	for _, st := range t.sats {
		if err := st.refresh(now, t.loc); err != nil {
			if t.log != nil {
				t.log.Printf("ephemeris: %v", err)
			}
			continue
		}
		for _, p := range st.passes {
			if p.LOS.After(now) {
				all = append(all, p)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AOS.Before(all[j].AOS) })
	return all
}

// ResolveLocation determines the station position. When useGPSD is set it
// tries gpsd first and falls back to the configured values.
func ResolveLocation(lat, lon float64, useGPSD bool, gpsdHost string, logger *log.Logger) Location {
	if useGPSD {
		loc, err := LocationFromGPSD(gpsdHost, 10*time.Second)
		if err != nil {
			if logger != nil {
				logger.Printf("ephemeris: gpsd failed (%v), falling back to config", err)
			}
		} else {
			return loc
		}
	}
	return Location{Lat: lat, Lon: lon}
}
