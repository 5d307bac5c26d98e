package proto

import (
	"context"
	"io"
)

// Bus is a write-only byte transport to the display controller.
type Bus interface {
	io.Writer
	Close() error
}

// Panel is a bistable display taking packed 1-bit frames.
type Panel interface {
	Init(ctx context.Context) error
	Clear(ctx context.Context) error
	Render(buf []byte) error
	Draw(ctx context.Context) error
	EnterSleep(ctx context.Context) error
}
