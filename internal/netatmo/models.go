package netatmo

import (
	"time"
)

// Session is the OAuth token pair. It only ever lives in memory.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type dashboard struct {
	Time        int64    `json:"time_utc"`
	Temperature *float64 `json:"Temperature"`
	MinTemp     *float64 `json:"min_temp"`
	MaxTemp     *float64 `json:"max_temp"`
	SumRain1    *float64 `json:"sum_rain_1"`
	SumRain24   *float64 `json:"sum_rain_24"`
}

type module struct {
	ID        string     `json:"_id"`
	Type      string     `json:"type"`
	Dashboard *dashboard `json:"dashboard_data"`
}

type stationsResponse struct {
	Status string `json:"status"`
	Body   struct {
		Devices []struct {
			ID        string     `json:"_id"`
			Dashboard *dashboard `json:"dashboard_data"`
			Place     struct {
				Location []float64 `json:"location"`
			} `json:"place"`
			Modules []module `json:"modules"`
		} `json:"devices"`
	} `json:"body"`
}
