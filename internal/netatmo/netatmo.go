package netatmo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ukko/internal/fetch"
	"ukko/internal/weather"
	"ukko/pkg/dump"
)

const (
	DefaultBaseURL = "https://api.netatmo.com"
	scope          = "read_station"

	// ExpiryMargin is how long before expiry the session gets refreshed.
	ExpiryMargin = 10 * time.Minute

	outdoorType = "NAModule1"
	rainType    = "NAModule3"
)

var (
	ErrAuth        = errors.New("netatmo: authentication failed")
	ErrNoSession   = errors.New("netatmo: no session to refresh")
	ErrUnavailable = errors.New("netatmo: station data unavailable")
)

type Options struct {
	ClientID      string
	ClientSecret  string
	DeviceID      string
	OutdoorModule string
	RainModule    string
	BaseURL       string

	Store     *dump.Store
	StoreFile string
	LoadFile  string

	Now func() time.Time
}

func New(opts Options, client *fetch.Client, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{opts: opts, http: client, logger: logger}
}

// Client is the weather source. It holds the session and is used from the
// orchestrator goroutine only.
type Client struct {
	opts    Options
	http    *fetch.Client
	logger  *zap.Logger
	session Session
}

func (c *Client) Session() Session {
	return c.session
}

// AuthorizeURL is where the user logs in to grant access. Netatmo redirects
// back to redirect with a code and the given state.
func (c *Client) AuthorizeURL(redirect, state string) string {
	q := url.Values{}
	q.Set("client_id", c.opts.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("scope", scope)
	q.Set("state", state)
	return c.opts.BaseURL + "/oauth2/authorize?" + q.Encode()
}

// CanAuthenticate reports whether a session can ever be obtained.
func (c *Client) CanAuthenticate() bool {
	if c.opts.LoadFile != "" {
		return true
	}
	return c.opts.ClientID != "" && c.opts.ClientSecret != ""
}

func (c *Client) Authenticate(ctx context.Context, ev weather.AuthEvent) error {
	if c.opts.LoadFile != "" {
		return nil
	}

	return c.token(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.opts.ClientID,
		"client_secret": c.opts.ClientSecret,
		"redirect_uri":  ev.Redirect,
		"code":          ev.Code,
		"scope":         scope,
	})
}

func (c *Client) RefreshAuthentication(ctx context.Context) error {
	if c.opts.LoadFile != "" {
		return nil
	}
	if c.session.RefreshToken == "" {
		return ErrNoSession
	}

	return c.token(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": c.session.RefreshToken,
		"client_id":     c.opts.ClientID,
		"client_secret": c.opts.ClientSecret,
		"scope":         scope,
	})
}

// CheckSleep shortens d so the session is refreshed ExpiryMargin before it
// expires. Without a session d is returned unchanged.
func (c *Client) CheckSleep(d time.Duration) time.Duration {
	if c.session.Expiry.IsZero() {
		return d
	}

	left := c.session.Expiry.Add(-ExpiryMargin).Sub(c.opts.Now()).Truncate(time.Minute)
	if left < 0 {
		left = 0
	}
	if left < d {
		return left
	}
	return d
}

func (c *Client) Retrieve(ctx context.Context) (*weather.MeasuredData, error) {
	var bs []byte

	if c.opts.LoadFile != "" {
		var err error
		if bs, err = c.opts.Store.Read(c.opts.LoadFile); err != nil {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
	} else {
		if c.session.AccessToken == "" {
			return nil, errors.Wrap(ErrUnavailable, "not authenticated")
		}

		req := c.http.R(ctx).
			SetAuthToken(c.session.AccessToken).
			SetQueryParam("device_id", c.opts.DeviceID)
		resp, err := c.http.Do(req, http.MethodGet, c.opts.BaseURL+"/api/getstationsdata")
		if err != nil {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
		bs = resp.Body()

		if c.opts.StoreFile != "" {
			if err := c.opts.Store.Write(c.opts.StoreFile, bs); err != nil {
				c.logger.With(zap.Error(err)).Warn("store-device-data")
			}
		}
	}

	data, err := c.parse(bs)
	if err != nil {
		return nil, err
	}

	c.logger.With(
		zap.Float64("indoor", data.Indoor.Now),
		zap.Bool("outdoor", data.Outdoor != nil),
		zap.Bool("rain", data.Rain != nil),
	).Info("retrieved")

	return data, nil
}

func (c *Client) token(ctx context.Context, form map[string]string) error {
	req := c.http.R(ctx).
		SetFormData(form).
		SetResult(&tokenResponse{})

	resp, err := c.http.Do(req, http.MethodPost, c.opts.BaseURL+"/oauth2/token")
	if err != nil {
		return errors.Wrapf(ErrAuth, "%s: %v", form["grant_type"], err)
	}

	tok := resp.Result().(*tokenResponse)
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return errors.Wrapf(ErrAuth, "%s: incomplete token response", form["grant_type"])
	}

	c.session = Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       c.opts.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}

	c.logger.With(
		zap.String("grant", form["grant_type"]),
		zap.Time("expiry", c.session.Expiry),
	).Info("authenticated")

	return nil
}

func (c *Client) parse(bs []byte) (*weather.MeasuredData, error) {
	var r stationsResponse
	if err := json.Unmarshal(bs, &r); err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if len(r.Body.Devices) == 0 {
		return nil, errors.Wrap(ErrUnavailable, "no devices")
	}

	dev := r.Body.Devices[0]
	if dev.Dashboard == nil || dev.Dashboard.Temperature == nil {
		return nil, errors.Wrap(ErrUnavailable, "no indoor reading")
	}

	data := &weather.MeasuredData{
		Time:   time.Unix(dev.Dashboard.Time, 0),
		Indoor: temperature(dev.Dashboard),
	}

	if loc := dev.Place.Location; len(loc) >= 2 {
		data.Position = weather.Position{
			Longitude: strconv.FormatFloat(loc[0], 'f', -1, 64),
			Latitude:  strconv.FormatFloat(loc[1], 'f', -1, 64),
		}
	}

	if m := findModule(dev.Modules, c.opts.OutdoorModule, outdoorType); m != nil && m.Dashboard.Temperature != nil {
		t := temperature(m.Dashboard)
		data.Outdoor = &t
	}

	if m := findModule(dev.Modules, c.opts.RainModule, rainType); m != nil && m.Dashboard.SumRain1 != nil {
		data.Rain = &weather.Rain{LastHour: *m.Dashboard.SumRain1}
		if m.Dashboard.SumRain24 != nil {
			data.Rain.LastDay = *m.Dashboard.SumRain24
		}
	}

	return data, nil
}

func findModule(modules []module, id, typ string) *module {
	for i := range modules {
		m := &modules[i]
		if m.Dashboard == nil {
			continue
		}
		if id != "" && m.ID == id {
			return m
		}
		if id == "" && m.Type == typ {
			return m
		}
	}
	return nil
}

func temperature(d *dashboard) weather.Temperature {
	t := weather.Temperature{Now: *d.Temperature, Min: *d.Temperature, Max: *d.Temperature}
	if d.MinTemp != nil {
		t.Min = *d.MinTemp
	}
	if d.MaxTemp != nil {
		t.Max = *d.MaxTemp
	}
	return t
}
