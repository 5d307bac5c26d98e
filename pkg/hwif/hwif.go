package hwif

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ukko/pkg/gpio"
	"ukko/pkg/proto"
)

// ChunkSize is the largest single write handed to the bus.
const ChunkSize = 64

const (
	resetSettle = 20 * time.Millisecond
	resetPulse  = 2 * time.Millisecond
)

var (
	ErrTransfer    = errors.New("hwif: transfer failed")
	ErrBusyTimeout = errors.New("hwif: controller stayed busy")
)

type Options struct {
	// BusyTimeout bounds WaitForIdle. Zero waits forever.
	BusyTimeout time.Duration
}

func New(bus proto.Bus, pins *gpio.Pins, opts Options, logger *zap.Logger) *Driver {
	return &Driver{
		bus:    bus,
		pins:   pins,
		opts:   opts,
		logger: logger,
	}
}

// Driver speaks the controller's opcode/parameter protocol. It is not safe for
// concurrent use.
type Driver struct {
	bus    proto.Bus
	pins   *gpio.Pins
	opts   Options
	logger *zap.Logger
}

// Send writes the opcode with the select line held active and then the
// parameters with it released.
func (d *Driver) Send(ctx context.Context, cmd Command, params ...byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.logger.With(zap.Stringer("cmd", cmd), zap.Int("params", len(params))).Debug("send")

	if err := gpio.Hold(d.pins.Select, func() error {
		return d.sendBytes([]byte{byte(cmd)})
	}); err != nil {
		return errors.Wrapf(err, "hwif: %s opcode", cmd)
	}

	if len(params) == 0 {
		return nil
	}

	if err := d.sendBytes(params); err != nil {
		return errors.Wrapf(err, "hwif: %s params", cmd)
	}

	return nil
}

// Reset pulses the reset line. The delays are minimums from the datasheet.
func (d *Driver) Reset(ctx context.Context) error {
	steps := []struct {
		set  func() error
		wait time.Duration
	}{
		{d.pins.Reset.Deactivate, resetSettle},
		{d.pins.Reset.Activate, resetPulse},
		{d.pins.Reset.Deactivate, resetSettle},
	}

	for _, s := range steps {
		if err := s.set(); err != nil {
			return errors.Wrap(err, "hwif: reset")
		}
		if err := sleep(ctx, s.wait); err != nil {
			return err
		}
	}

	d.logger.Debug("reset")
	return nil
}

func (d *Driver) WaitForIdle(ctx context.Context) error {
	if d.opts.BusyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.BusyTimeout)
		defer cancel()
	}

	start := time.Now()
	err := d.pins.Busy.WaitForActive(ctx)
	if errors.Is(err, context.DeadlineExceeded) && d.opts.BusyTimeout > 0 {
		return errors.Wrapf(ErrBusyTimeout, "after %s", d.opts.BusyTimeout)
	} else if err != nil {
		return err
	}

	d.logger.With(zap.Duration("waited", time.Since(start))).Debug("idle")
	return nil
}

// Sleep waits for d unless ctx ends first.
func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	return sleep(ctx, dur)
}

func (d *Driver) Close() error {
	return multierr.Combine(d.bus.Close(), d.pins.Close())
}

func (d *Driver) sendBytes(bytes []byte) error {
	var sent int
	var cost time.Duration

	start := time.Now()
	for _, chunk := range lo.Chunk(bytes, ChunkSize) {
		n, err := d.bus.Write(chunk)
		sent += n
		if err != nil {
			return errors.Wrapf(ErrTransfer, "%d of %d bytes sent: %v", sent, len(bytes), err)
		}
	}
	cost = time.Since(start)

	ext := ""
	if len(bytes) <= 16 {
		ext = fmt.Sprintf("%x", bytes)
	}

	d.logger.With(
		zap.Int("sent", sent),
		zap.String("cost", cost.String()),
		zap.String("data", ext),
	).Debug("transfer")

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
