package main

import (
	"context"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"ukko/pkg/bitmap"
	"ukko/pkg/device/epd7in5"
	"ukko/pkg/gpio"
	"ukko/pkg/hwif"
	"ukko/pkg/proto"
)

var device = flag.String("spi-device", "/dev/spidev0.0", "spi device of the panel")
var chip = flag.String("gpio-chip", "gpiochip0", "gpio chip of the panel lines")
var dryRun = flag.BoolP("dry-run", "n", false, "log hardware access instead of performing it")
var image = flag.String("image", "", "png to show, the panel is cleared when empty")
var fill = flag.Bool("fill", false, "crop the image to fill the panel instead of fitting it")
var busyTimeout = flag.Duration("busy-timeout", time.Minute, "give up waiting for the panel after this long")

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.With(zap.Error(err)).Fatal("failed")
	}
	logger.Info("done")
}

// run owns the driver and always closes it, also on failure.
func run(logger *zap.Logger) (err error) {
	drv, err := openDriver(logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, drv.Close())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return show(ctx, epd7in5.New(drv, logger.Named("display")))
}

func openDriver(logger *zap.Logger) (*hwif.Driver, error) {
	var pins *gpio.Pins
	var bus proto.Bus

	if *dryRun {
		pins = gpio.VirtualPins(logger.Named("gpio"))
		bus = proto.Virtual(logger.Named("spi"))
	} else {
		var err error
		pins, err = gpio.OpenPins(gpio.PinConfig{Chip: *chip, Reset: 17, Select: 25, Busy: 24}, logger.Named("gpio"))
		if err != nil {
			return nil, err
		}
		s := proto.NewSPI(*device, logger.Named("spi"))
		if err := s.Open(&proto.Options{Speed: 10 * physic.MegaHertz, Mode: spi.Mode0, Bits: 8}); err != nil {
			return nil, multierr.Append(err, pins.Close())
		}
		bus = s
	}

	return hwif.New(bus, pins, hwif.Options{BusyTimeout: *busyTimeout}, logger.Named("hwif")), nil
}

func show(ctx context.Context, dev proto.Panel) error {
	if err := dev.Init(ctx); err != nil {
		return err
	}
	if err := dev.Clear(ctx); err != nil {
		return err
	}

	if *image != "" {
		img, err := imaging.Open(*image)
		if err != nil {
			return errors.Wrapf(err, "open %s", *image)
		}

		if *fill {
			img = imaging.Fill(img, epd7in5.Width, epd7in5.Height, imaging.Center, imaging.Lanczos)
		} else {
			canvas := imaging.New(epd7in5.Width, epd7in5.Height, color.White)
			fitted := imaging.Fit(img, epd7in5.Width, epd7in5.Height, imaging.Lanczos)
			img = imaging.PasteCenter(canvas, fitted)
		}

		if err := dev.Render(bitmap.Encode(img)); err != nil {
			return err
		}
		if err := dev.Draw(ctx); err != nil {
			return err
		}
	}

	return dev.EnterSleep(ctx)
}
