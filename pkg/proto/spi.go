package proto

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type Options struct {
	Speed physic.Frequency
	Mode  spi.Mode
	Bits  int
}

func NewSPI(device string, logger *zap.Logger) *SPI {
	return &SPI{device: device, logger: logger}
}

type SPI struct {
	device string
	logger *zap.Logger
	port   spi.PortCloser
	conn   spi.Conn
}

// Open connects the port once. Speed and mode are not changed afterwards.
func (s *SPI) Open(opts *Options) error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "spi: host init")
	}

	port, err := spireg.Open(s.device)
	if err != nil {
		return errors.Wrapf(err, "spi: open %s", s.device)
	}

	conn, err := port.Connect(opts.Speed, opts.Mode, opts.Bits)
	if err != nil {
		_ = port.Close()
		return errors.Wrapf(err, "spi: connect %s", s.device)
	}

	s.logger.With(
		zap.String("device", s.device),
		zap.String("speed", opts.Speed.String()),
		zap.Int("bits", opts.Bits),
	).Info("spi-opened")

	s.port = port
	s.conn = conn
	return nil
}

func (s *SPI) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port, s.conn = nil, nil
	return err
}

func (s *SPI) Write(p []byte) (n int, err error) {
	if s.conn == nil {
		return 0, errors.New("spi: not open")
	}
	if err := s.conn.Tx(p, nil); err != nil {
		return 0, err
	}
	return len(p), nil
}
