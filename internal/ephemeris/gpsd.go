package ephemeris

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// gpsd TPV mode values: 2 and up mean a usable position fix.
const gpsdMode2D = 2

// tpvReport is the subset of a gpsd TPV JSON object we need.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"altMSL"`
}

// LocationFromGPSD asks a local gpsd for the station position. It speaks
// the gpsd JSON protocol: enable watch mode, then consume TPV reports until
// one carries at least a 2D fix. The whole exchange is bounded by timeout.
func LocationFromGPSD(addr string, timeout time.Duration) (Location, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Location{}, fmt.Errorf("gpsd connect: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Location{}, fmt.Errorf("gpsd set deadline: %w", err)
	}

	if _, err := fmt.Fprint(conn, `?WATCH={"enable":true,"json":true};`); err != nil {
		return Location{}, fmt.Errorf("gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// gpsd interleaves VERSION, DEVICES, and SKY objects with TPV;
		// anything that isn't a TPV fix report is skipped, as is any line
		// that isn't valid JSON.
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < gpsdMode2D {
			continue
		}
		return Location{
			Lat: report.Lat,
			Lon: report.Lon,
			Alt: report.Alt,
		}, nil
	}

	// Distinguish a broken stream from a healthy one that simply never
	// produced a fix before the deadline.
	if err := scanner.Err(); err != nil {
		return Location{}, fmt.Errorf("gpsd read: %w", err)
	}
	return Location{}, fmt.Errorf("gpsd: no fix before timeout")
}
