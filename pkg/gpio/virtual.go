package gpio

import (
	"context"

	"go.uber.org/zap"
)

// Virtual returns a line that only logs. Inputs always read active.
func Virtual(name string, logger *zap.Logger) Line {
	return &virtualLine{name: name, l: logger}
}

type virtualLine struct {
	name   string
	active bool
	l      *zap.Logger
}

func (v *virtualLine) Activate() error {
	v.active = true
	v.l.With(zap.String("line", v.name)).Debug("activate")
	return nil
}

func (v *virtualLine) Deactivate() error {
	v.active = false
	v.l.With(zap.String("line", v.name)).Debug("deactivate")
	return nil
}

func (v *virtualLine) WaitForActive(ctx context.Context) error {
	v.l.With(zap.String("line", v.name)).Debug("wait-for-active")
	return waitFor(ctx, func() (bool, error) { return true, nil })
}

func (v *virtualLine) Close() error {
	return nil
}
