// Package weather holds the values passed between the data sources, the
// renderer and the orchestrator.
package weather

import (
	"time"
)

// Position is kept as the decimal strings the forecast API is queried with.
type Position struct {
	Longitude string `json:"longitude"`
	Latitude  string `json:"latitude"`
}

func (p Position) Known() bool {
	return p.Longitude != "" && p.Latitude != ""
}

// AuthEvent is one authorization redirect: the code and the redirect URI it
// was issued for.
type AuthEvent struct {
	Code     string
	Redirect string
}

type Temperature struct {
	Now float64 `json:"now"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Rain struct {
	LastHour float64 `json:"last_hour"`
	LastDay  float64 `json:"last_day"`
}

// MeasuredData is one reading of the weather station.
type MeasuredData struct {
	Time     time.Time    `json:"time"`
	Indoor   Temperature  `json:"indoor"`
	Outdoor  *Temperature `json:"outdoor,omitempty"`
	Rain     *Rain        `json:"rain,omitempty"`
	Position Position     `json:"position"`
}

// DataPoint is one hour of forecast.
type DataPoint struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	Wind        float64   `json:"wind"`
	Gust        float64   `json:"gust"`
	Rain        float64   `json:"rain"`
}
