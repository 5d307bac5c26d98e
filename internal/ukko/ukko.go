// Package ukko runs the duty cycle of the appliance: refresh the weather and
// the forecast when they are due, redraw the panel when anything changed, and
// keep the weather service session alive while waiting for the next cycle.
package ukko

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ukko/internal/weather"
	"ukko/pkg/proto"
)

var (
	ErrNoPosition      = errors.New("ukko: no position and no way to authenticate")
	ErrTooManyFailures = errors.New("ukko: too many consecutive authentication failures")
)

// WeatherSource is the live weather station and owner of the session.
type WeatherSource interface {
	Retrieve(ctx context.Context) (*weather.MeasuredData, error)
	Authenticate(ctx context.Context, ev weather.AuthEvent) error
	RefreshAuthentication(ctx context.Context) error
	CanAuthenticate() bool
	CheckSleep(d time.Duration) time.Duration
}

type ForecastSource interface {
	Retrieve(ctx context.Context, pos weather.Position) ([]weather.DataPoint, error)
}

type Renderer interface {
	Render(data *weather.MeasuredData, forecast []weather.DataPoint) ([]byte, error)
}

// Events delivers authorization callbacks, waiting no later than deadline.
type Events interface {
	Pop(ctx context.Context, deadline time.Time) (weather.AuthEvent, bool)
}

type Config struct {
	Cycles            int
	Sleep             time.Duration
	WeatherFrequency  time.Duration
	ForecastFrequency time.Duration
	Backoff           Backoff
	// Position is used until the weather station reports one.
	Position weather.Position
}

type Deps struct {
	Weather  WeatherSource
	Forecast ForecastSource
	Renderer Renderer
	Panel    proto.Panel
	Events   Events
	// IsNoSession tells a refresh that had nothing to refresh from a failed
	// one.
	IsNoSession func(error) bool
	Now         func() time.Time
}

// fetched is when a source last succeeded. ok stays false until the first
// success, whatever the clock reads.
type fetched struct {
	at time.Time
	ok bool
}

func (f fetched) due(every time.Duration, now time.Time) bool {
	return !f.ok || !now.Before(f.at.Add(every))
}

func (f *fetched) mark(now time.Time) {
	f.at, f.ok = now, true
}

type schedule struct {
	weather  fetched
	forecast fetched
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Ukko {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNoSession == nil {
		deps.IsNoSession = func(error) bool { return false }
	}
	return &Ukko{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		position: cfg.Position,
		backoff:  cfg.Backoff.start(),
	}
}

// Ukko owns the panel and the data caches. Run must only be called once.
type Ukko struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	schedule schedule
	position weather.Position
	weather  *weather.MeasuredData
	forecast []weather.DataPoint
	backoff  *failures
	draws    int
}

// Draws is the number of completed panel updates.
func (u *Ukko) Draws() int {
	return u.draws
}

func (u *Ukko) Run(ctx context.Context) error {
	for cycle := 1; u.cfg.Cycles == 0 || cycle <= u.cfg.Cycles; cycle++ {
		if err := u.iterate(ctx, cycle); err != nil {
			return err
		}
		if ctx.Err() != nil {
			u.logger.Info("stopped")
			return nil
		}
	}

	u.logger.With(zap.Int("cycles", u.cfg.Cycles)).Info("done")
	return nil
}

func (u *Ukko) iterate(ctx context.Context, cycle int) error {
	now := u.deps.Now()
	updated := false

	log := u.logger.With(zap.Int("cycle", cycle))

	if u.schedule.weather.due(u.cfg.WeatherFrequency, now) {
		data, err := u.deps.Weather.Retrieve(ctx)
		if err != nil {
			log.With(zap.Error(err)).Warn("weather unavailable")
			u.weather = nil
		} else {
			u.weather = data
			u.schedule.weather.mark(now)
			updated = true
			if !u.position.Known() && data.Position.Known() {
				u.position = data.Position
				log.With(
					zap.String("longitude", u.position.Longitude),
					zap.String("latitude", u.position.Latitude),
				).Info("position")
			}
		}
	}

	if !u.position.Known() && !u.deps.Weather.CanAuthenticate() {
		return ErrNoPosition
	}

	if u.position.Known() && u.schedule.forecast.due(u.cfg.ForecastFrequency, now) {
		points, err := u.deps.Forecast.Retrieve(ctx, u.position)
		if err != nil {
			log.With(zap.Error(err)).Warn("forecast unavailable, keeping previous")
		} else {
			u.forecast = points
			u.schedule.forecast.mark(now)
			updated = true
		}
	}

	if updated {
		if err := u.draw(ctx); err != nil {
			return err
		}
	}

	wait := u.deps.Weather.CheckSleep(u.cfg.Sleep)
	if u.backoff.count > 0 && u.cfg.Backoff.RetrySleep < wait {
		wait = u.cfg.Backoff.RetrySleep
	}
	if wait < 0 {
		wait = 0
	}

	log.With(zap.Duration("wait", wait), zap.Bool("updated", updated)).Debug("sleeping")

	if ev, ok := u.deps.Events.Pop(ctx, now.Add(wait)); ok {
		err := u.deps.Weather.Authenticate(ctx, ev)
		return u.authenticated(log, "authenticate", err)
	}

	if ctx.Err() != nil {
		return nil
	}

	err := u.deps.Weather.RefreshAuthentication(ctx)
	if err != nil && u.deps.IsNoSession(err) {
		log.Debug("no session yet, waiting for login")
		return nil
	}
	return u.authenticated(log, "refresh", err)
}

func (u *Ukko) authenticated(log *zap.Logger, what string, err error) error {
	if err == nil {
		u.backoff.reset()
		log.Info(what)
		return nil
	}

	log.With(zap.Error(err), zap.Int("failures", u.backoff.count+1)).Warn(what + " failed")
	if u.backoff.fail() {
		return errors.Wrapf(ErrTooManyFailures, "%d in a row, last: %v", u.backoff.count, err)
	}
	return nil
}

func (u *Ukko) draw(ctx context.Context) error {
	frame, err := u.deps.Renderer.Render(u.weather, u.forecast)
	if err != nil {
		return errors.Wrap(err, "ukko: render")
	}

	panel := u.deps.Panel
	steps := []struct {
		name string
		fn   func() error
	}{
		{"init", func() error { return panel.Init(ctx) }},
		{"clear", func() error { return panel.Clear(ctx) }},
		{"render", func() error { return panel.Render(frame) }},
		{"draw", func() error { return panel.Draw(ctx) }},
		{"sleep", func() error { return panel.EnterSleep(ctx) }},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			return errors.Wrapf(err, "ukko: panel %s", s.name)
		}
	}

	u.draws++
	u.logger.With(zap.Int("draws", u.draws)).Info("drawn")
	return nil
}
