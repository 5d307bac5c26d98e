// Package dump keeps snapshots of fetched payloads and rendered frames on
// disk, so a later run can replay them without network or panel.
package dump

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var ErrDisabled = errors.New("dump: no data directory")

func newFs(dir string) (afero.Fs, error) {
	fs := afero.NewOsFs()
	if exists, err := afero.DirExists(fs, dir); err != nil {
		return nil, err
	} else if !exists {
		return nil, errors.Errorf("dump: %s does not exist", dir)
	}
	return afero.NewBasePathFs(fs, dir), nil
}

// New opens dir as the data directory. An empty dir gives a Store that
// writes nothing and loads nothing.
func New(dir string, logger *zap.Logger) (*Store, error) {
	s := &Store{logger: logger}

	if dir == "" {
		return s, nil
	}

	if fs, err := newFs(dir); err != nil {
		return nil, err
	} else {
		s.fs = fs
	}

	return s, nil
}

func NewWithFs(fs afero.Fs, logger *zap.Logger) *Store {
	return &Store{fs: fs, logger: logger}
}

type Store struct {
	fs     afero.Fs
	logger *zap.Logger
}

func (s *Store) Enabled() bool {
	return s != nil && s.fs != nil
}

func (s *Store) Read(name string) ([]byte, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	bs, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, errors.Wrapf(err, "dump: read %s", name)
	}
	return bs, nil
}

func (s *Store) Write(name string, bs []byte) error {
	if !s.Enabled() {
		return nil
	}

	if dir := path.Dir(name); dir != "." {
		if exists, err := afero.DirExists(s.fs, dir); err != nil {
			return err
		} else if !exists {
			if err2 := s.fs.MkdirAll(dir, 0755); err2 != nil {
				return err2
			}
		}
	}

	if err := afero.WriteFile(s.fs, name, bs, 0644); err != nil {
		return errors.Wrapf(err, "dump: write %s", name)
	}

	s.logger.With(zap.String("file", name), zap.Int("size", len(bs))).Debug("stored")
	return nil
}

func (s *Store) LoadJSON(name string, v interface{}) error {
	bs, err := s.Read(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(bs, v), "dump: decode %s", name)
}

func (s *Store) SaveJSON(name string, v interface{}) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return s.Write(name, bs)
}

func (s *Store) LoadImage(name string) (image.Image, error) {
	bs, err := s.Read(name)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(bs))
	return img, errors.Wrapf(err, "dump: decode %s", name)
}

func (s *Store) SaveImage(name string, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return err
	}
	return s.Write(name, buf.Bytes())
}

// IsNotExist reports whether err means the file was never stored.
func IsNotExist(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}
