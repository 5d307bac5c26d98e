package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

type Netatmo struct {
	ClientID      string
	ClientSecret  string
	DeviceID      string
	OutdoorModule string
	RainModule    string
}

type Files struct {
	StoreDeviceData string
	LoadDeviceData  string
	StoreForecast   string
	LoadForecast    string
	StoreRender     string
}

func (f Files) Any() bool {
	return f.StoreDeviceData != "" || f.LoadDeviceData != "" || f.StoreForecast != "" ||
		f.LoadForecast != "" || f.StoreRender != ""
}

// Config is built once at startup and only read afterwards.
type Config struct {
	DryRun  bool
	Verbose bool
	Debug   bool

	Cycles            int           `validate:"gte=0"`
	Sleep             time.Duration `validate:"gt=0"`
	RetrySleep        time.Duration `validate:"gt=0"`
	MaxFailures       int           `validate:"gte=0"`
	WeatherFrequency  time.Duration `validate:"gt=0"`
	ForecastFrequency time.Duration `validate:"gt=0"`

	SPIDevice   string        `validate:"required"`
	SPISpeed    int64         `validate:"gt=0"`
	GPIOChip    string        `validate:"required"`
	ResetPin    int           `validate:"gte=0"`
	SelectPin   int           `validate:"gte=0"`
	BusyPin     int           `validate:"gte=0"`
	BusyTimeout time.Duration `validate:"gte=0"`

	Listen string `validate:"required"`
	// Hostname is the host:port the browser reaches the web server at. Empty
	// uses the Host header of the request.
	Hostname string

	Netatmo Netatmo

	// Longitude and Latitude are set together or not at all.
	Longitude string `validate:"required_with=Latitude"`
	Latitude  string `validate:"required_with=Longitude"`

	DataDir string
	Files   Files
}

var validate = validator.New()

// Load reads an optional .env file, then the environment, then args. Later
// sources win.
func Load(args []string) (*Config, error) {
	envFile := getenvDefault("UKKO_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config: load %s", envFile)
	}

	cfg := &Config{}
	var err error
	defaults := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"UKKO_SLEEP", "60m", &cfg.Sleep},
		{"UKKO_RETRY_SLEEP", "5m", &cfg.RetrySleep},
		{"UKKO_WEATHER_FREQUENCY", "30m", &cfg.WeatherFrequency},
		{"UKKO_FORECAST_FREQUENCY", "120m", &cfg.ForecastFrequency},
		{"UKKO_BUSY_TIMEOUT", "0s", &cfg.BusyTimeout},
	}
	for _, d := range defaults {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	var position string

	fs := flag.NewFlagSet("ukko", flag.ContinueOnError)
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", getenvBool("UKKO_DRY_RUN", false), "log hardware access instead of performing it")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", getenvBool("UKKO_VERBOSE", false), "verbose output")
	fs.BoolVarP(&cfg.Debug, "debug-log", "V", getenvBool("UKKO_DEBUG", false), "debug output")
	fs.IntVarP(&cfg.Cycles, "cycles", "c", getenvInt("UKKO_CYCLES", 0), "number of cycles to run, 0 runs forever")
	fs.DurationVarP(&cfg.Sleep, "sleep", "s", cfg.Sleep, "time between cycles")
	fs.DurationVar(&cfg.RetrySleep, "retry-sleep", cfg.RetrySleep, "time between cycles after an authentication failure")
	fs.IntVar(&cfg.MaxFailures, "max-failures", getenvInt("UKKO_MAX_FAILURES", 0), "consecutive authentication failures before giving up, 0 never gives up")
	fs.DurationVarP(&cfg.WeatherFrequency, "weather-frequency", "W", cfg.WeatherFrequency, "time between weather updates")
	fs.DurationVarP(&cfg.ForecastFrequency, "forecast-frequency", "Y", cfg.ForecastFrequency, "time between forecast updates")
	fs.StringVar(&cfg.SPIDevice, "spi-device", getenvDefault("UKKO_SPI_DEVICE", "/dev/spidev0.0"), "spi device of the panel")
	fs.Int64Var(&cfg.SPISpeed, "spi-speed", int64(getenvInt("UKKO_SPI_SPEED", 10000000)), "spi clock in Hz")
	fs.StringVar(&cfg.GPIOChip, "gpio-chip", getenvDefault("UKKO_GPIO_CHIP", "gpiochip0"), "gpio chip of the panel lines")
	fs.IntVar(&cfg.ResetPin, "reset-pin", getenvInt("UKKO_RESET_PIN", 17), "reset line")
	fs.IntVar(&cfg.SelectPin, "select-pin", getenvInt("UKKO_SELECT_PIN", 25), "command/data select line")
	fs.IntVar(&cfg.BusyPin, "busy-pin", getenvInt("UKKO_BUSY_PIN", 24), "busy line")
	fs.DurationVar(&cfg.BusyTimeout, "busy-timeout", cfg.BusyTimeout, "give up waiting for the panel after this long, 0 waits forever")
	fs.StringVar(&cfg.Listen, "listen", getenvDefault("UKKO_LISTEN", ":8080"), "address of the authorization web server")
	fs.StringVar(&cfg.Hostname, "hostname", os.Getenv("UKKO_HOSTNAME"), "host (and port) the browser reaches the web server at")
	fs.StringVar(&cfg.Netatmo.ClientID, "netatmo-client-id", os.Getenv("NETATMO_CLIENT_ID"), "netatmo application id")
	fs.StringVar(&cfg.Netatmo.ClientSecret, "netatmo-client-secret", os.Getenv("NETATMO_CLIENT_SECRET"), "netatmo application secret")
	fs.StringVar(&cfg.Netatmo.DeviceID, "netatmo-device-id", os.Getenv("NETATMO_DEVICE_ID"), "weather station id")
	fs.StringVar(&cfg.Netatmo.OutdoorModule, "netatmo-outdoor-module", os.Getenv("NETATMO_OUTDOOR_MODULE"), "outdoor module id")
	fs.StringVar(&cfg.Netatmo.RainModule, "netatmo-rain-module", os.Getenv("NETATMO_RAIN_MODULE"), "rain gauge module id")
	fs.StringVar(&position, "position", os.Getenv("UKKO_POSITION"), "fixed position as lon,lat")
	fs.StringVar(&cfg.DataDir, "data-dir", os.Getenv("UKKO_DATA_DIR"), "directory for stored and loaded files")
	fs.StringVar(&cfg.Files.StoreDeviceData, "store-device-data", "", "store weather station data to file")
	fs.StringVar(&cfg.Files.LoadDeviceData, "load-device-data", "", "load weather station data from file")
	fs.StringVar(&cfg.Files.StoreForecast, "store-forecast", "", "store forecast data to file")
	fs.StringVar(&cfg.Files.LoadForecast, "load-forecast", "", "load forecast data from file")
	fs.StringVar(&cfg.Files.StoreRender, "store-render", "", "store rendered frames as png")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if position != "" {
		parts := strings.Split(position, ",")
		if len(parts) != 2 {
			return nil, errors.Errorf("config: position %q is not lon,lat", position)
		}
		for i, p := range parts {
			if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
				return nil, errors.Wrapf(err, "config: position %q", position)
			}
			parts[i] = strings.TrimSpace(p)
		}
		cfg.Longitude, cfg.Latitude = parts[0], parts[1]
	}

	if cfg.Files.Any() && cfg.DataDir == "" {
		return nil, errors.New("config: --data-dir is required to store or load files")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "config")
	}

	return cfg, nil
}

// Logger builds the process logger for the chosen verbosity.
func (c *Config) Logger() (*zap.Logger, error) {
	switch {
	case c.Debug:
		return zap.NewDevelopment()
	case c.Verbose:
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		return zc.Build()
	}
	return zap.NewProduction()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "config: invalid %s", key)
	}
	return d, nil
}
