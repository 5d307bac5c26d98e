package smhi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ukko/internal/fetch"
	"ukko/internal/weather"
	"ukko/pkg/dump"
)

const forecastPayload = `{
  "approvedTime": "2024-01-01T11:00:00Z",
  "timeSeries": [
    {"validTime": "2024-01-01T12:00:00Z", "parameters": [
      {"name": "t", "levelType": "hl", "level": 2, "unit": "Cel", "values": [-1.5]},
      {"name": "ws", "values": [3.2]},
      {"name": "gust", "values": [7.9]},
      {"name": "pmean", "values": [0.4]},
      {"name": "Wsymb2", "values": [6]}
    ]},
    {"validTime": "2024-01-01T13:00:00Z", "parameters": [
      {"name": "t", "values": [-2]}
    ]}
  ]
}`

func TestRetrieve(t *testing.T) {
	fs := afero.NewMemMapFs()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/category/pmp3g/version/2/geotype/point/lon/18.068581/lat/59.329323/data.json", r.URL.Path)
		_, _ = w.Write([]byte(forecastPayload))
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL:   srv.URL,
		Store:     dump.NewWithFs(fs, zaptest.NewLogger(t)),
		StoreFile: "forecast.json",
	}, fetch.New("smhi", fetch.BackoffConfig{InitialInterval: time.Millisecond}, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	points, err := c.Retrieve(context.Background(), weather.Position{Longitude: "18.0685808", Latitude: "59.3293231"})
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, weather.DataPoint{
		Time:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Temperature: -1.5,
		Wind:        3.2,
		Gust:        7.9,
		Rain:        0.4,
	}, points[0])
	assert.Equal(t, -2.0, points[1].Temperature)

	exists, err := afero.Exists(fs, "forecast.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRetrieveFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "forecast.json", []byte(forecastPayload), 0644))

	c := New(Options{Store: dump.NewWithFs(fs, zaptest.NewLogger(t)), LoadFile: "forecast.json"}, nil, zaptest.NewLogger(t))

	points, err := c.Retrieve(context.Background(), weather.Position{})
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestRetrieveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/category/pmp3g/version/2/geotype/point/lon/1/lat/2/data.json" {
			_, _ = w.Write([]byte(`{"timeSeries": []}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, fetch.New("smhi", fetch.BackoffConfig{InitialInterval: time.Millisecond}, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	tests := []struct {
		name string
		pos  weather.Position
	}{
		{"bad coordinate", weather.Position{Longitude: "east", Latitude: "1"}},
		{"not found", weather.Position{Longitude: "3", Latitude: "4"}},
		{"empty series", weather.Position{Longitude: "1", Latitude: "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Retrieve(context.Background(), tt.pos)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}
