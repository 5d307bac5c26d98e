package gpio

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// PinConfig names the physical lines used by the panel.
type PinConfig struct {
	Chip   string
	Reset  int
	Select int
	Busy   int
}

// Pins are the three lines the display controller needs.
type Pins struct {
	Reset  Line
	Select Line
	Busy   Line
}

// OpenPins requests all three lines. Lines already acquired are released if a
// later request fails.
func OpenPins(cfg PinConfig, logger *zap.Logger) (*Pins, error) {
	reset, err := Request(cfg.Chip, cfg.Reset, Options{Consumer: "eink-reset", ActiveLow: true, Output: true}, logger)
	if err != nil {
		return nil, err
	}

	sel, err := Request(cfg.Chip, cfg.Select, Options{Consumer: "eink-control", ActiveLow: true, Output: true}, logger)
	if err != nil {
		_ = reset.Close()
		return nil, err
	}

	busy, err := Request(cfg.Chip, cfg.Busy, Options{Consumer: "eink-busy"}, logger)
	if err != nil {
		_ = reset.Close()
		_ = sel.Close()
		return nil, err
	}

	return &Pins{Reset: reset, Select: sel, Busy: busy}, nil
}

// VirtualPins returns pins that touch no hardware.
func VirtualPins(logger *zap.Logger) *Pins {
	return &Pins{
		Reset:  Virtual("eink-reset", logger),
		Select: Virtual("eink-control", logger),
		Busy:   Virtual("eink-busy", logger),
	}
}

func (p *Pins) Close() error {
	return multierr.Combine(p.Reset.Close(), p.Select.Close(), p.Busy.Close())
}
