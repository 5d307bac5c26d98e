package smhi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ukko/internal/fetch"
	"ukko/internal/weather"
	"ukko/pkg/dump"
)

const DefaultBaseURL = "https://opendata-download-metfcst.smhi.se"

var ErrUnavailable = errors.New("smhi: forecast unavailable")

type Options struct {
	BaseURL string

	Store     *dump.Store
	StoreFile string
	LoadFile  string
}

type response struct {
	TimeSeries []struct {
		ValidTime  time.Time `json:"validTime"`
		Parameters []struct {
			Name   string    `json:"name"`
			Values []float64 `json:"values"`
		} `json:"parameters"`
	} `json:"timeSeries"`
}

func New(opts Options, client *fetch.Client, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Client{opts: opts, http: client, logger: logger}
}

// Client fetches the point forecast of the pmp3g model.
type Client struct {
	opts   Options
	http   *fetch.Client
	logger *zap.Logger
}

func (c *Client) Retrieve(ctx context.Context, pos weather.Position) ([]weather.DataPoint, error) {
	var bs []byte

	if c.opts.LoadFile != "" {
		var err error
		if bs, err = c.opts.Store.Read(c.opts.LoadFile); err != nil {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
	} else {
		lon, err := coordinate(pos.Longitude)
		if err != nil {
			return nil, err
		}
		lat, err := coordinate(pos.Latitude)
		if err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/api/category/pmp3g/version/2/geotype/point/lon/%s/lat/%s/data.json", c.opts.BaseURL, lon, lat)
		resp, err := c.http.Do(c.http.R(ctx), http.MethodGet, url)
		if err != nil {
			return nil, errors.Wrap(ErrUnavailable, err.Error())
		}
		bs = resp.Body()

		if c.opts.StoreFile != "" {
			if err := c.opts.Store.Write(c.opts.StoreFile, bs); err != nil {
				c.logger.With(zap.Error(err)).Warn("store-forecast")
			}
		}
	}

	points, err := parse(bs)
	if err != nil {
		return nil, err
	}

	c.logger.With(zap.Int("points", len(points))).Info("retrieved")
	return points, nil
}

func parse(bs []byte) ([]weather.DataPoint, error) {
	var r response
	if err := json.Unmarshal(bs, &r); err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if len(r.TimeSeries) == 0 {
		return nil, errors.Wrap(ErrUnavailable, "empty time series")
	}

	points := make([]weather.DataPoint, 0, len(r.TimeSeries))
	for _, ts := range r.TimeSeries {
		p := weather.DataPoint{Time: ts.ValidTime}
		for _, param := range ts.Parameters {
			if len(param.Values) == 0 {
				continue
			}
			v := param.Values[0]
			switch param.Name {
			case "t":
				p.Temperature = v
			case "ws":
				p.Wind = v
			case "gust":
				p.Gust = v
			case "pmean":
				p.Rain = v
			}
		}
		points = append(points, p)
	}

	return points, nil
}

// coordinate limits a decimal degree to the six decimals the API accepts.
func coordinate(s string) (string, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", errors.Wrapf(ErrUnavailable, "coordinate %q", s)
	}
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64), nil
}
