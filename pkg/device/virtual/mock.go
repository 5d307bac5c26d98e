package virtual

import (
	"context"

	"go.uber.org/zap"

	"ukko/pkg/bitmap"
	"ukko/pkg/dump"
	"ukko/pkg/proto"
)

// Mock returns a panel that logs every step and, when a store is given,
// writes each drawn frame to file as PNG.
func Mock(width, height int, store *dump.Store, file string, logger *zap.Logger) proto.Panel {
	return &Mocker{
		width:  width,
		height: height,
		store:  store,
		file:   file,
		l:      logger,
	}
}

type Mocker struct {
	width  int
	height int
	frame  []byte
	store  *dump.Store
	file   string
	l      *zap.Logger
	Draws  int
}

func (m *Mocker) Init(_ context.Context) error {
	m.l.Info("init")
	return nil
}

func (m *Mocker) Clear(_ context.Context) error {
	m.l.Info("clear")
	return nil
}

func (m *Mocker) Render(buf []byte) error {
	m.frame = append(m.frame[:0], buf...)
	m.l.With(zap.Int("len", len(buf))).Info("render")
	return nil
}

func (m *Mocker) Draw(_ context.Context) error {
	m.Draws++
	m.l.With(zap.Int("w", m.width), zap.Int("h", m.height)).Info("draw")

	if m.store == nil || m.file == "" {
		return nil
	}
	return m.store.SaveImage(m.file, bitmap.Decode(m.frame, m.width, m.height))
}

func (m *Mocker) EnterSleep(_ context.Context) error {
	m.l.Info("sleep")
	return nil
}
