package netatmo

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

const stationsPayload = `{
  "status": "ok",
  "body": {
    "devices": [{
      "_id": "70:ee:50:00:00:01",
      "dashboard_data": {"time_utc": 1700000000, "Temperature": 21.5, "min_temp": 20.1, "max_temp": 22.3},
      "place": {"location": [18.0686, 59.3293]},
      "modules": [
        {"_id": "02:00:00:00:00:01", "type": "NAModule1", "dashboard_data": {"Temperature": -3.2, "min_temp": -5, "max_temp": 1.5}},
        {"_id": "05:00:00:00:00:01", "type": "NAModule3", "dashboard_data": {"Rain": 0, "sum_rain_1": 0.3, "sum_rain_24": 4.2}}
      ]
    }]
  }
}`

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	opts.Now = func() time.Time { return epoch }
	if opts.ClientID == "" {
		opts.ClientID = "client"
		opts.ClientSecret = "secret"
	}

	backoff := fetch.BackoffConfig{InitialInterval: time.Millisecond}
	return New(opts, fetch.New("netatmo", backoff, zaptest.NewLogger(t)), zaptest.NewLogger(t))
}

func tokenHandler(t *testing.T, wantGrant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") != wantGrant {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		assert.Equal(t, "read_station", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","expires_in":10800}`))
	}
}

func TestAuthenticate(t *testing.T) {
	var form map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		tokenHandler(t, "authorization_code")(w, r)
	}, Options{})

	err := c.Authenticate(context.Background(), weather.AuthEvent{Code: "qwerty", Redirect: "http://ukko.local"})
	require.NoError(t, err)

	assert.Equal(t, "qwerty", form["code"])
	assert.Equal(t, "http://ukko.local", form["redirect_uri"])
	assert.Equal(t, "client", form["client_id"])
	assert.Equal(t, "secret", form["client_secret"])

	s := c.Session()
	assert.Equal(t, "access-2", s.AccessToken)
	assert.Equal(t, "refresh-2", s.RefreshToken)
	assert.Equal(t, epoch.Add(3*time.Hour), s.Expiry)
}

func TestAuthenticateRejected(t *testing.T) {
	c := newTestClient(t, tokenHandler(t, "none"), Options{})

	err := c.Authenticate(context.Background(), weather.AuthEvent{Code: "bad"})
	assert.ErrorIs(t, err, ErrAuth)
	assert.Empty(t, c.Session().AccessToken)
}

func TestRefresh(t *testing.T) {
	c := newTestClient(t, tokenHandler(t, "refresh_token"), Options{})

	assert.ErrorIs(t, c.RefreshAuthentication(context.Background()), ErrNoSession)

	c.session = Session{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: epoch}
	require.NoError(t, c.RefreshAuthentication(context.Background()))
	assert.Equal(t, "refresh-2", c.Session().RefreshToken)
}

func TestCheckSleep(t *testing.T) {
	c := New(Options{Now: func() time.Time { return epoch }}, nil, zaptest.NewLogger(t))

	tests := []struct {
		name   string
		expiry time.Time
		want   time.Duration
	}{
		{"no session", time.Time{}, 60 * time.Minute},
		{"expires in 3h", epoch.Add(3 * time.Hour), 60 * time.Minute},
		{"expires in 15m", epoch.Add(15 * time.Minute), 5 * time.Minute},
		{"expires in 70m30s", epoch.Add(70*time.Minute + 30*time.Second), 60 * time.Minute},
		{"expires in 40m30s", epoch.Add(40*time.Minute + 30*time.Second), 30 * time.Minute},
		{"inside margin", epoch.Add(5 * time.Minute), 0},
		{"expired", epoch.Add(-time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.session = Session{Expiry: tt.expiry}
			assert.Equal(t, tt.want, c.CheckSleep(60*time.Minute))
		})
	}
}

func TestRetrieve(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := dump.NewWithFs(fs, zaptest.NewLogger(t))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/getstationsdata", r.URL.Path)
		assert.Equal(t, "70:ee:50:00:00:01", r.URL.Query().Get("device_id"))
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(stationsPayload))
	}, Options{DeviceID: "70:ee:50:00:00:01", Store: store, StoreFile: "device.json"})

	_, err := c.Retrieve(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	c.session = Session{AccessToken: "access-1"}
	data, err := c.Retrieve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, weather.Temperature{Now: 21.5, Min: 20.1, Max: 22.3}, data.Indoor)
	require.NotNil(t, data.Outdoor)
	assert.Equal(t, weather.Temperature{Now: -3.2, Min: -5, Max: 1.5}, *data.Outdoor)
	require.NotNil(t, data.Rain)
	assert.Equal(t, weather.Rain{LastHour: 0.3, LastDay: 4.2}, *data.Rain)
	assert.Equal(t, weather.Position{Longitude: "18.0686", Latitude: "59.3293"}, data.Position)
	assert.Equal(t, time.Unix(1700000000, 0), data.Time)

	stored, err := afero.ReadFile(fs, "device.json")
	require.NoError(t, err)
	assert.JSONEq(t, stationsPayload, string(stored))
}

func TestRetrieveModuleByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(stationsPayload))
	}, Options{OutdoorModule: "ff:ff", RainModule: "05:00:00:00:00:01"})
	c.session = Session{AccessToken: "a"}

	data, err := c.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data.Outdoor)
	assert.NotNil(t, data.Rain)
}

func TestRetrieveFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "device.json", []byte(stationsPayload), 0644))
	store := dump.NewWithFs(fs, zaptest.NewLogger(t))

	c := New(Options{Store: store, LoadFile: "device.json"}, nil, zaptest.NewLogger(t))

	assert.True(t, c.CanAuthenticate())
	require.NoError(t, c.Authenticate(context.Background(), weather.AuthEvent{}))
	data, err := c.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21.5, data.Indoor.Now)
}

func TestRetrieveMalformed(t *testing.T) {
	for _, payload := range []string{`not json`, `{"body":{"devices":[]}}`, `{"body":{"devices":[{"dashboard_data":{}}]}}`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		}, Options{})
		c.session = Session{AccessToken: "a"}

		_, err := c.Retrieve(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable, payload)
	}
}

func TestCanAuthenticate(t *testing.T) {
	assert.False(t, New(Options{}, nil, zaptest.NewLogger(t)).CanAuthenticate())
	assert.False(t, New(Options{ClientID: "id"}, nil, zaptest.NewLogger(t)).CanAuthenticate())
	assert.True(t, New(Options{ClientID: "id", ClientSecret: "s"}, nil, zaptest.NewLogger(t)).CanAuthenticate())
}

func TestAuthorizeURL(t *testing.T) {
	c := New(Options{ClientID: "id"}, nil, zaptest.NewLogger(t))
	u := c.AuthorizeURL("http://ukko:8080", "abc")
	assert.Equal(t, "https://api.netatmo.com/oauth2/authorize?client_id=id&redirect_uri=http%3A%2F%2Fukko%3A8080&scope=read_station&state=abc", u)
}
