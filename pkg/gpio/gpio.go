package gpio

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	pollInterval = 5 * time.Millisecond
	settleDelay  = 5 * time.Millisecond
)

var ErrRequest = errors.New("gpio: line request failed")

// Line is a single digital line with its polarity already applied: Activate
// always drives the active level, whatever the physical level is.
type Line interface {
	Activate() error
	Deactivate() error
	// WaitForActive blocks until an input line reads active. It has no
	// timeout of its own, only ctx can end it early.
	WaitForActive(ctx context.Context) error
	Close() error
}

type Options struct {
	Consumer  string
	ActiveLow bool
	Output    bool
}

// Hold keeps line active while fn runs and releases it on every return path.
func Hold(line Line, fn func() error) (err error) {
	if err = line.Activate(); err != nil {
		return err
	}

	defer func() {
		if derr := line.Deactivate(); derr != nil && err == nil {
			err = derr
		}
	}()

	return fn()
}

func waitFor(ctx context.Context, active func() (bool, error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if ok, err := active(); err != nil {
			return err
		} else if ok {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
		return nil
	}
}
