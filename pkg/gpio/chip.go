package gpio

import (
	"context"

	"github.com/pkg/errors"
	"github.com/warthog618/gpiod"
	"go.uber.org/zap"
)

// Request acquires one line of a gpiochip. The line stays exclusively owned
// until Close.
func Request(chip string, offset int, opts Options, logger *zap.Logger) (Line, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer(opts.Consumer))
	if err != nil {
		return nil, errors.Wrapf(ErrRequest, "open %s: %v", chip, err)
	}

	var lineOpts []gpiod.LineReqOption
	if opts.ActiveLow {
		lineOpts = append(lineOpts, gpiod.AsActiveLow)
	}
	if opts.Output {
		lineOpts = append(lineOpts, gpiod.AsOutput(0))
	} else {
		lineOpts = append(lineOpts, gpiod.AsInput)
	}

	l, err := c.RequestLine(offset, lineOpts...)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(ErrRequest, "line %d on %s: %v", offset, chip, err)
	}

	logger.With(
		zap.String("chip", chip),
		zap.Int("line", offset),
		zap.String("consumer", opts.Consumer),
		zap.Bool("active-low", opts.ActiveLow),
		zap.Bool("output", opts.Output),
	).Debug("line-requested")

	return &chipLine{chip: c, line: l, name: opts.Consumer, logger: logger}, nil
}

type chipLine struct {
	chip   *gpiod.Chip
	line   *gpiod.Line
	name   string
	logger *zap.Logger
}

func (c *chipLine) Activate() error {
	return c.set(1)
}

func (c *chipLine) Deactivate() error {
	return c.set(0)
}

func (c *chipLine) set(v int) error {
	if c.line == nil {
		return errors.Errorf("gpio: %s is closed", c.name)
	}
	if err := c.line.SetValue(v); err != nil {
		return errors.Wrapf(err, "gpio: set %s", c.name)
	}
	return nil
}

func (c *chipLine) WaitForActive(ctx context.Context) error {
	if c.line == nil {
		return errors.Errorf("gpio: %s is closed", c.name)
	}

	return waitFor(ctx, func() (bool, error) {
		v, err := c.line.Value()
		if err != nil {
			return false, errors.Wrapf(err, "gpio: read %s", c.name)
		}
		return v == 1, nil
	})
}

func (c *chipLine) Close() error {
	if c.line == nil {
		return nil
	}

	err1 := c.line.Close()
	err2 := c.chip.Close()
	c.line, c.chip = nil, nil

	if err1 != nil {
		return err1
	}
	return err2
}
