package screen

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ukko/internal/weather"
	"ukko/pkg/dump"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestRenderer(t *testing.T, store *dump.Store, file string) *Renderer {
	r, err := New(Options{
		Width:     800,
		Height:    480,
		Store:     store,
		StoreFile: file,
		Now:       func() time.Time { return now },
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

func forecast(n int) []weather.DataPoint {
	points := make([]weather.DataPoint, n)
	for i := range points {
		points[i] = weather.DataPoint{
			Time:        now.Add(time.Duration(i-2) * time.Hour),
			Temperature: float64(i%5) - 2,
			Rain:        float64(i%3) * 0.7,
			Wind:        float64(i%4) + 0.4,
			Gust:        float64(i%4) + 3.6,
		}
	}
	return points
}

func ink(frame []byte) int {
	n := 0
	for _, b := range frame {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderGeometry(t *testing.T) {
	r := newTestRenderer(t, nil, "")

	tests := []struct {
		name     string
		data     *weather.MeasuredData
		forecast []weather.DataPoint
	}{
		{"nothing", nil, nil},
		{"weather only", &weather.MeasuredData{Indoor: weather.Temperature{Now: 21.5}}, nil},
		{"everything", &weather.MeasuredData{
			Indoor:  weather.Temperature{Now: 21.5, Min: 20, Max: 22},
			Outdoor: &weather.Temperature{Now: -3.2, Min: -5, Max: 1.5},
			Rain:    &weather.Rain{LastHour: 0.3, LastDay: 4.2},
		}, forecast(24)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := r.Render(tt.data, tt.forecast)
			require.NoError(t, err)
			assert.Len(t, frame, 100*480)
			assert.Greater(t, ink(frame), 0)
		})
	}
}

func TestRenderShowsMoreWithData(t *testing.T) {
	r := newTestRenderer(t, nil, "")

	empty, err := r.Render(nil, nil)
	require.NoError(t, err)
	full, err := r.Render(&weather.MeasuredData{Indoor: weather.Temperature{Now: 21.5}}, forecast(12))
	require.NoError(t, err)

	assert.Greater(t, ink(full), ink(empty))

	dry := forecast(12)
	for i := range dry {
		dry[i].Rain = 0
	}
	withoutRain, err := r.Render(nil, dry)
	require.NoError(t, err)
	withRain, err := r.Render(nil, forecast(12))
	require.NoError(t, err)

	assert.Greater(t, ink(withRain), ink(withoutRain))
}

func TestForecastRows(t *testing.T) {
	points := []weather.DataPoint{
		{Time: time.Date(2024, 1, 1, 13, 0, 0, 0, time.Local), Wind: 3.4, Gust: 7.6, Rain: 0.3},
		{Time: time.Date(2024, 1, 1, 14, 0, 0, 0, time.Local), Wind: 0.2, Gust: 1.5},
	}

	rows := forecastRows(points)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"13", "14"}, rows[0].values)
	assert.Equal(t, "wind m/s", rows[1].label)
	assert.Equal(t, []string{"3", "0"}, rows[1].values)
	assert.Equal(t, "gust m/s", rows[2].label)
	assert.Equal(t, []string{"8", "2"}, rows[2].values)
	assert.Equal(t, "rain mm", rows[3].label)
	assert.Equal(t, []string{"0.3", ""}, rows[3].values)
}

func TestRenderStoresPNG(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestRenderer(t, dump.NewWithFs(fs, zaptest.NewLogger(t)), "render.png")

	_, err := r.Render(nil, forecast(3))
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "render.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBounds(t *testing.T) {
	low, high := bounds([]float64{-1.5, 3.2, 0})
	assert.Equal(t, -2.0, low)
	assert.Equal(t, 4.0, high)

	low, high = bounds([]float64{5, 5})
	assert.Equal(t, 5.0, low)
	assert.Equal(t, 6.0, high)
}
