package epd7in5

import (
	"bytes"
	"context"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ukko/pkg/hwif"
	"ukko/pkg/proto"
)

const (
	Width  = 800
	Height = 480
	Stride = (Width + 7) / 8
	Size   = Stride * Height
)

const (
	powerOnDelay  = 100 * time.Millisecond
	refreshSettle = 100 * time.Millisecond
)

type State int

const (
	Uninitialized State = iota
	Idle
	Drawing
	Asleep
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Asleep:
		return "asleep"
	}
	return "uninitialized"
}

var ErrNotReady = errors.New("epd7in5: panel not initialized")

type step struct {
	cmd    hwif.Command
	params []byte
}

var powerUp = []step{
	{hwif.PowerSettings, []byte{0x17, 0x17, 0x3f, 0x3f, 0x11}},
	{hwif.VCOMDCSetting, []byte{0x24}},
	{hwif.BoosterSoftStart, []byte{0x27, 0x27, 0x2f, 0x17}},
	{hwif.PLLControl, []byte{0x06}},
	{hwif.PowerOn, nil},
}

var waveforms = []step{
	{hwif.LutVcom, lutVcom[:]},
	{hwif.LutBlue, lutWW[:]},
	{hwif.LutWhite, lutBW[:]},
	{hwif.LutGray1, lutWB[:]},
	{hwif.LutGray2, lutBB[:]},
}

var panelSetup = []step{
	{hwif.PanelSettings, []byte{0x3f}},
	{hwif.ResolutionSetting, []byte{Width >> 8, Width & 0xff, Height >> 8, Height & 0xff}},
	{hwif.DualSPI, []byte{0x00}},
	{hwif.VCOMDataIntervalSetting, []byte{0x10, 0x00}},
	{hwif.TCONSetting, []byte{0x22}},
	{hwif.GateSourceStartSetting, []byte{0x00, 0x00, 0x00, 0x00}},
}

func New(drv *hwif.Driver, logger *zap.Logger) proto.Panel {
	return &Display{
		drv:    drv,
		logger: logger,
		fb:     make([]byte, Size),
	}
}

// Display is the 7.5" 800x480 black and white panel. It owns the framebuffer
// sent on Draw.
type Display struct {
	drv    *hwif.Driver
	logger *zap.Logger
	fb     []byte
	state  State
}

func (d *Display) State() State {
	return d.state
}

// Init resets the controller and programs power, waveforms and geometry. It
// is also the only way out of deep sleep.
func (d *Display) Init(ctx context.Context) error {
	d.state = Uninitialized

	if err := d.drv.Reset(ctx); err != nil {
		return err
	}
	if err := d.run(ctx, powerUp); err != nil {
		return err
	}
	if err := d.drv.Sleep(ctx, powerOnDelay); err != nil {
		return err
	}
	if err := d.drv.WaitForIdle(ctx); err != nil {
		return err
	}
	if err := d.run(ctx, waveforms); err != nil {
		return err
	}
	if err := d.run(ctx, panelSetup); err != nil {
		return err
	}
	if err := d.drv.WaitForIdle(ctx); err != nil {
		return err
	}

	d.state = Idle
	d.logger.Info("initialized")
	return nil
}

func (d *Display) Clear(ctx context.Context) error {
	return d.drawing(ctx, func() error {
		if err := d.drv.Send(ctx, hwif.DisplayStartTransmission1, bytes.Repeat([]byte{0xff}, Size)...); err != nil {
			return err
		}
		if err := d.drv.Send(ctx, hwif.DisplayStartTransmission2, make([]byte, Size)...); err != nil {
			return err
		}
		return d.refresh(ctx)
	})
}

// Render copies a packed frame into the framebuffer, reversing the bit order
// of every byte.
func (d *Display) Render(buf []byte) error {
	if len(buf) != Size {
		return errors.Errorf("epd7in5: frame is %d bytes, want %d", len(buf), Size)
	}

	for i, b := range buf {
		d.fb[i] = ReverseBits(b)
	}
	return nil
}

func (d *Display) Draw(ctx context.Context) error {
	return d.drawing(ctx, func() error {
		d.logger.With(zap.String("size", bytesize.New(float64(len(d.fb))).String())).Debug("draw")

		if err := d.drv.Send(ctx, hwif.DisplayStartTransmission2, d.fb...); err != nil {
			return err
		}
		return d.refresh(ctx)
	})
}

func (d *Display) Refresh(ctx context.Context) error {
	return d.drawing(ctx, func() error { return d.refresh(ctx) })
}

// EnterSleep powers the panel down. The image stays visible.
func (d *Display) EnterSleep(ctx context.Context) error {
	if d.state != Idle {
		return errors.Wrapf(ErrNotReady, "sleep while %s", d.state)
	}

	if err := d.drv.Send(ctx, hwif.PowerOff); err != nil {
		d.state = Uninitialized
		return err
	}
	if err := d.drv.WaitForIdle(ctx); err != nil {
		d.state = Uninitialized
		return err
	}
	if err := d.drv.Send(ctx, hwif.DeepSleep, 0xa5); err != nil {
		d.state = Uninitialized
		return err
	}

	d.state = Asleep
	d.logger.Info("asleep")
	return nil
}

func (d *Display) refresh(ctx context.Context) error {
	if err := d.drv.Send(ctx, hwif.DisplayRefresh); err != nil {
		return err
	}
	if err := d.drv.Sleep(ctx, refreshSettle); err != nil {
		return err
	}
	return d.drv.WaitForIdle(ctx)
}

func (d *Display) drawing(ctx context.Context, fn func() error) error {
	if d.state != Idle {
		return errors.Wrapf(ErrNotReady, "draw while %s", d.state)
	}

	d.state = Drawing
	if err := fn(); err != nil {
		d.state = Uninitialized
		return err
	}

	d.state = Idle
	return nil
}

func (d *Display) run(ctx context.Context, steps []step) error {
	for _, s := range steps {
		if err := d.drv.Send(ctx, s.cmd, s.params...); err != nil {
			return err
		}
	}
	return nil
}

// ReverseBits mirrors the bit order of b. It is its own inverse.
func ReverseBits(b byte) byte {
	b = b>>4 | b<<4
	b = (b&0xcc)>>2 | (b&0x33)<<2
	b = (b&0xaa)>>1 | (b&0x55)<<1
	return b
}
