package ephemeris

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EntryKind distinguishes how an object's position is computed.
type EntryKind int

const (
	// KindRADec is a fixed celestial source with catalog RA/Dec.
	KindRADec EntryKind = iota
	// KindSun is the Sun, computed analytically.
	KindSun
	// KindMoon is the Moon, computed analytically.
	KindMoon
	// KindSatellite is an Earth satellite propagated from a TLE file.
	KindSatellite
)

// Entry is one row of the sky_coords.csv catalog.
type Entry struct {
	Name    string
	Kind    EntryKind
	RAHours float64
	DecDeg  float64
	TLEFile string
}

// LoadCatalog parses sky_coords.csv. Rows are
//
//	name,kind,arg1,arg2
//
// where kind is one of radec (arg1 = RA hours, arg2 = Dec degrees), sun,
// moon, or tle (arg1 = TLE file name relative to the catalog). Blank lines
// and lines starting with # are skipped; a leading header row is detected by
// its "name" first field.
func LoadCatalog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	var entries []Entry
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		name := strings.TrimSpace(rec[0])
		if name == "" || (i == 0 && strings.EqualFold(name, "name")) {
			continue
		}
		kind := "radec"
		if len(rec) > 1 {
			kind = strings.ToLower(strings.TrimSpace(rec[1]))
		}

		e := Entry{Name: name}
		switch kind {
		case "radec":
			if len(rec) < 4 {
				return nil, fmt.Errorf("%s line %d: radec entry needs ra and dec", path, i+1)
			}
			ra, err := parseRA(rec[2])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			dec, err := parseDec(rec[3])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			e.Kind, e.RAHours, e.DecDeg = KindRADec, ra, dec
		case "sun":
			e.Kind = KindSun
		case "moon":
			e.Kind = KindMoon
		case "tle":
			if len(rec) < 3 {
				return nil, fmt.Errorf("%s line %d: tle entry needs a file name", path, i+1)
			}
			e.Kind = KindSatellite
			e.TLEFile = filepath.Join(dir, strings.TrimSpace(rec[2]))
		default:
			return nil, fmt.Errorf("%s line %d: unknown entry kind %q", path, i+1, kind)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseRA accepts decimal hours ("5.576") or sexagesimal "hh:mm:ss".
func parseRA(s string) (float64, error) {
	v, err := parseSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("bad RA %q: %w", s, err)
	}
	return v, nil
}

// parseDec accepts decimal degrees ("-5.39") or sexagesimal "dd:mm:ss".
func parseDec(s string) (float64, error) {
	v, err := parseSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("bad Dec %q: %w", s, err)
	}
	return v, nil
}

// parseSexagesimal parses either a plain float or a colon-separated
// value:minutes:seconds triple, preserving the sign of the leading field.
func parseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		return strconv.ParseFloat(s, 64)
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many fields in %q", s)
	}
	whole, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	sign := 1.0
	if strings.HasPrefix(strings.TrimSpace(parts[0]), "-") {
		sign = -1
	}
	total := whole * sign // accumulate magnitude, re-apply sign at the end
	scale := 60.0
	for _, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		total += v / scale
		scale *= 60
	}
	return sign * total, nil
}
