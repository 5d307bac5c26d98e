package dump

import (
	"image"
	"image/color"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJSONRoundTrip(t *testing.T) {
	s := NewWithFs(afero.NewMemMapFs(), zaptest.NewLogger(t))

	type snapshot struct {
		Temperature float64 `json:"temperature"`
	}

	require.NoError(t, s.SaveJSON("weather/device.json", snapshot{Temperature: 21.5}))

	var got snapshot
	require.NoError(t, s.LoadJSON("weather/device.json", &got))
	assert.Equal(t, 21.5, got.Temperature)
}

func TestMissingFile(t *testing.T) {
	s := NewWithFs(afero.NewMemMapFs(), zaptest.NewLogger(t))

	_, err := s.Read("nope.json")
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestDisabled(t *testing.T) {
	s, err := New("", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, s.Enabled())
	assert.NoError(t, s.Write("x", []byte("y")))
	_, err = s.Read("x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestMissingDir(t *testing.T) {
	_, err := New(t.TempDir()+"/missing", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestImage(t *testing.T) {
	s := NewWithFs(afero.NewMemMapFs(), zaptest.NewLogger(t))

	img := image.NewGray(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.White)
	require.NoError(t, s.SaveImage("render.png", img))

	got, err := s.LoadImage("render.png")
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())
	r, _, _, _ := got.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
