package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"ukko/internal/config"
	"ukko/internal/fetch"
	"ukko/internal/netatmo"
	"ukko/internal/screen"
	"ukko/internal/smhi"
	"ukko/internal/ukko"
	"ukko/internal/weather"
	"ukko/internal/web"
	"ukko/pkg/device/epd7in5"
	"ukko/pkg/dump"
	"ukko/pkg/gpio"
	"ukko/pkg/hwif"
	"ukko/pkg/proto"
	"ukko/pkg/queue"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	result := make(chan error, 1)

	fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Supply(cfg, logger),
		fx.Provide(
			openStore,
			openDriver,
			newPanel,
			queue.New[weather.AuthEvent],
			newNetatmo,
			newSMHI,
			newScreen,
			newServer,
			newUkko,
		),
		fx.Invoke(
			web.Register,
			func(u *ukko.Ukko, lifecycle fx.Lifecycle, shutdowner fx.Shutdowner) {
				run(u, lifecycle, shutdowner, result, logger.Named("main"))
			},
		),
	).Run()

	select {
	case err := <-result:
		if err != nil {
			logger.With(zap.Error(err)).Fatal("exited")
		}
	default:
	}
	logger.Info("exited")
}

func openStore(cfg *config.Config, logger *zap.Logger) (*dump.Store, error) {
	return dump.New(cfg.DataDir, logger.Named("dump"))
}

// openDriver wires the controller to real lines and SPI, or to virtual ones on
// a dry run.
func openDriver(cfg *config.Config, logger *zap.Logger, lifecycle fx.Lifecycle) (*hwif.Driver, error) {
	var pins *gpio.Pins
	var bus proto.Bus

	if cfg.DryRun {
		pins = gpio.VirtualPins(logger.Named("gpio"))
		bus = proto.Virtual(logger.Named("spi"))
	} else {
		var err error
		pins, err = gpio.OpenPins(gpio.PinConfig{
			Chip:   cfg.GPIOChip,
			Reset:  cfg.ResetPin,
			Select: cfg.SelectPin,
			Busy:   cfg.BusyPin,
		}, logger.Named("gpio"))
		if err != nil {
			return nil, err
		}

		s := proto.NewSPI(cfg.SPIDevice, logger.Named("spi"))
		if err := s.Open(&proto.Options{
			Speed: physic.Frequency(cfg.SPISpeed) * physic.Hertz,
			Mode:  spi.Mode0,
			Bits:  8,
		}); err != nil {
			_ = pins.Close()
			return nil, err
		}
		bus = s
	}

	drv := hwif.New(bus, pins, hwif.Options{BusyTimeout: cfg.BusyTimeout}, logger.Named("hwif"))
	lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return drv.Close()
		},
	})
	return drv, nil
}

func newPanel(drv *hwif.Driver, logger *zap.Logger) proto.Panel {
	return epd7in5.New(drv, logger.Named("display"))
}

func newNetatmo(cfg *config.Config, store *dump.Store, logger *zap.Logger) *netatmo.Client {
	return netatmo.New(netatmo.Options{
		ClientID:      cfg.Netatmo.ClientID,
		ClientSecret:  cfg.Netatmo.ClientSecret,
		DeviceID:      cfg.Netatmo.DeviceID,
		OutdoorModule: cfg.Netatmo.OutdoorModule,
		RainModule:    cfg.Netatmo.RainModule,
		Store:         store,
		StoreFile:     cfg.Files.StoreDeviceData,
		LoadFile:      cfg.Files.LoadDeviceData,
	}, fetch.New("netatmo", fetch.DefaultBackoff, logger.Named("fetch")), logger.Named("weather"))
}

func newSMHI(cfg *config.Config, store *dump.Store, logger *zap.Logger) *smhi.Client {
	return smhi.New(smhi.Options{
		Store:     store,
		StoreFile: cfg.Files.StoreForecast,
		LoadFile:  cfg.Files.LoadForecast,
	}, fetch.New("smhi", fetch.DefaultBackoff, logger.Named("fetch")), logger.Named("forecast"))
}

func newScreen(cfg *config.Config, store *dump.Store, logger *zap.Logger) (*screen.Renderer, error) {
	return screen.New(screen.Options{
		Width:     epd7in5.Width,
		Height:    epd7in5.Height,
		Store:     store,
		StoreFile: cfg.Files.StoreRender,
	}, logger.Named("screen"))
}

func newServer(cfg *config.Config, station *netatmo.Client, events *queue.Queue[weather.AuthEvent], logger *zap.Logger) *web.Server {
	return web.New(cfg.Listen, cfg.Hostname, station, events.Push, logger.Named("webserver"))
}

func newUkko(
	cfg *config.Config,
	station *netatmo.Client,
	forecast *smhi.Client,
	renderer *screen.Renderer,
	panel proto.Panel,
	events *queue.Queue[weather.AuthEvent],
	logger *zap.Logger,
) *ukko.Ukko {
	return ukko.New(ukko.Config{
		Cycles:            cfg.Cycles,
		Sleep:             cfg.Sleep,
		WeatherFrequency:  cfg.WeatherFrequency,
		ForecastFrequency: cfg.ForecastFrequency,
		Backoff: ukko.Backoff{
			MaxFailures: cfg.MaxFailures,
			RetrySleep:  cfg.RetrySleep,
		},
		Position: weather.Position{Longitude: cfg.Longitude, Latitude: cfg.Latitude},
	}, ukko.Deps{
		Weather:  station,
		Forecast: forecast,
		Renderer: renderer,
		Panel:    panel,
		Events:   events,
		IsNoSession: func(err error) bool {
			return errors.Is(err, netatmo.ErrNoSession)
		},
	}, logger.Named("ukko"))
}

type looper interface {
	Run(ctx context.Context) error
}

// run drives the loop in the background and stops the application when it
// returns. The loop's error is delivered on result.
func run(u looper, lifecycle fx.Lifecycle, shutdowner fx.Shutdowner, result chan<- error, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(exited)
				result <- u.Run(ctx)
				if err := shutdowner.Shutdown(); err != nil {
					logger.With(zap.Error(err)).Info("shutdown failed")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("shutting down")
			cancel()
			select {
			case <-exited:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
