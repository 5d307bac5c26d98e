package main

import (
	"context"
	"log"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"ukko/internal/netatmo"
	"ukko/internal/screen"
	"ukko/internal/smhi"
	"ukko/internal/weather"
	"ukko/pkg/device/epd7in5"
	"ukko/pkg/device/virtual"
	"ukko/pkg/dump"
)

var dataDir = flag.String("data-dir", ".", "directory holding the stored files")
var deviceData = flag.String("load-device-data", "", "stored weather station response")
var forecastData = flag.String("load-forecast", "", "stored forecast response")
var output = flag.String("output", "render.png", "png to write, relative to the data dir")
var at = flag.String("at", "", "render as of this RFC 3339 time instead of now")
var debug = flag.Bool("debug", false, "set debug")

func main() {
	flag.Parse()

	var logger *zap.Logger
	if *debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer func() { _ = logger.Sync() }()

	now := time.Now
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			log.Fatal(err)
		}
		now = func() time.Time { return t }
	}

	store, err := dump.New(*dataDir, logger.Named("dump"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var data *weather.MeasuredData
	if *deviceData != "" {
		station := netatmo.New(netatmo.Options{Store: store, LoadFile: *deviceData, Now: now}, nil, logger.Named("weather"))
		if data, err = station.Retrieve(ctx); err != nil {
			log.Fatal(err)
		}
	}

	var forecast []weather.DataPoint
	if *forecastData != "" {
		src := smhi.New(smhi.Options{Store: store, LoadFile: *forecastData}, nil, logger.Named("forecast"))
		if forecast, err = src.Retrieve(ctx, weather.Position{}); err != nil {
			log.Fatal(err)
		}
	}

	r, err := screen.New(screen.Options{
		Width:  epd7in5.Width,
		Height: epd7in5.Height,
		Now:    now,
	}, logger.Named("screen"))
	if err != nil {
		log.Fatal(err)
	}

	frame, err := r.Render(data, forecast)
	if err != nil {
		log.Fatal(err)
	}

	panel := virtual.Mock(epd7in5.Width, epd7in5.Height, store, *output, logger.Named("display"))
	steps := []func() error{
		func() error { return panel.Init(ctx) },
		func() error { return panel.Render(frame) },
		func() error { return panel.Draw(ctx) },
		func() error { return panel.EnterSleep(ctx) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			log.Fatal(err)
		}
	}

	logger.With(zap.String("file", *output)).Info("rendered")
}
