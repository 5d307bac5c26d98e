// Package screen lays out the weather readings and forecast on a 1-bit
// canvas.
package screen

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"ukko/internal/weather"
	"ukko/pkg/bitmap"
	"ukko/pkg/dump"
)

// Samples is how many forecast hours the graph shows.
const Samples = 12

const margin = 24

// rowHeight is the spacing of the value rows under the forecast graph.
const rowHeight = 20

type Options struct {
	Width  int
	Height int

	Store     *dump.Store
	StoreFile string

	Now func() time.Time
}

type faces struct {
	huge  font.Face
	large font.Face
	small font.Face
	tiny  font.Face
}

func New(opts Options, logger *zap.Logger) (*Renderer, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "screen: bold font")
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "screen: regular font")
	}

	face := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}

	var fc faces
	if fc.huge, err = face(bold, 140); err != nil {
		return nil, err
	}
	if fc.large, err = face(bold, 36); err != nil {
		return nil, err
	}
	if fc.small, err = face(regular, 18); err != nil {
		return nil, err
	}
	if fc.tiny, err = face(regular, 14); err != nil {
		return nil, err
	}

	return &Renderer{opts: opts, faces: fc, logger: logger}, nil
}

type Renderer struct {
	opts   Options
	faces  faces
	logger *zap.Logger
}

// Render draws the frame and packs it for the panel. Both inputs may be
// missing; their part of the screen then shows a placeholder.
func (r *Renderer) Render(data *weather.MeasuredData, forecast []weather.DataPoint) ([]byte, error) {
	img := r.Draw(data, forecast)

	if r.opts.StoreFile != "" {
		if err := r.opts.Store.SaveImage(r.opts.StoreFile, img); err != nil {
			r.logger.With(zap.Error(err)).Warn("store-render")
		}
	}

	r.logger.With(zap.Bool("weather", data != nil), zap.Int("forecast", len(forecast))).Info("rendered")
	return bitmap.Encode(img), nil
}

func (r *Renderer) Draw(data *weather.MeasuredData, forecast []weather.DataPoint) image.Image {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	split := float64(r.opts.Height) * 0.55
	r.drawReadings(dc, data, split)

	dc.SetLineWidth(2)
	dc.DrawLine(margin, split, float64(r.opts.Width-margin), split)
	dc.Stroke()

	r.drawForecast(dc, forecast, split+margin)
	return dc.Image()
}

func (r *Renderer) drawReadings(dc *gg.Context, data *weather.MeasuredData, bottom float64) {
	w := float64(r.opts.Width)

	dc.SetFontFace(r.faces.small)
	dc.DrawStringAnchored(r.opts.Now().Format("Mon 2 Jan 15:04"), w-margin, margin, 1, 1)

	if data == nil {
		dc.SetFontFace(r.faces.huge)
		dc.DrawStringAnchored("--", margin, bottom-margin, 0, 0)
		dc.SetFontFace(r.faces.small)
		dc.DrawStringAnchored("no weather data", w-margin, bottom-margin, 1, 0)
		return
	}

	shown := data.Indoor
	if data.Outdoor != nil {
		shown = *data.Outdoor
	}

	dc.SetFontFace(r.faces.huge)
	dc.DrawStringAnchored(degrees(shown.Now), margin, bottom-margin, 0, 0)

	dc.SetFontFace(r.faces.large)
	lines := []string{
		fmt.Sprintf("%s / %s", degrees(shown.Min), degrees(shown.Max)),
		"in " + degrees(data.Indoor.Now),
	}
	if data.Rain != nil {
		lines = append(lines, fmt.Sprintf("%.1f mm/h  %.1f mm", data.Rain.LastHour, data.Rain.LastDay))
	}

	y := bottom - margin
	for i := len(lines) - 1; i >= 0; i-- {
		dc.DrawStringAnchored(lines[i], w-margin, y, 1, 0)
		y -= 48
	}
}

func (r *Renderer) drawForecast(dc *gg.Context, forecast []weather.DataPoint, top float64) {
	w := float64(r.opts.Width)
	h := float64(r.opts.Height)

	from := r.opts.Now().Add(-time.Hour)
	points := lo.Filter(forecast, func(p weather.DataPoint, _ int) bool {
		return p.Time.After(from)
	})
	if len(points) > Samples {
		points = points[:Samples]
	}

	dc.SetFontFace(r.faces.small)
	if len(points) < 2 {
		dc.DrawStringAnchored("no forecast", w/2, (top+h)/2, 0.5, 0.5)
		return
	}

	rows := forecastRows(points)

	left, right := float64(margin+72), w-margin
	graphTop, graphBottom := top+8, h-8-float64(len(rows))*rowHeight

	temps := lo.Map(points, func(p weather.DataPoint, _ int) float64 { return p.Temperature })
	low, high := bounds(temps)

	x := func(i int) float64 {
		return left + (right-left)*float64(i)/float64(len(points)-1)
	}
	y := func(t float64) float64 {
		return graphBottom - (graphBottom-graphTop)*(t-low)/(high-low)
	}

	dc.DrawStringAnchored(degrees(high), left-8, graphTop, 1, 0.5)
	dc.DrawStringAnchored(degrees(low), left-8, graphBottom, 1, 0.5)

	barWidth := (right - left) / float64(len(points)) / 2
	for i, p := range points {
		if p.Rain > 0 {
			bh := math.Min(p.Rain, 5) / 5 * (graphBottom - graphTop)
			dc.DrawRectangle(x(i)-barWidth/2, graphBottom-bh, barWidth, bh)
			dc.Fill()
		}
	}

	dc.SetLineWidth(3)
	for i, t := range temps {
		if i == 0 {
			dc.MoveTo(x(i), y(t))
		} else {
			dc.LineTo(x(i), y(t))
		}
	}
	dc.Stroke()

	dc.SetFontFace(r.faces.tiny)
	for n, row := range rows {
		base := graphBottom + float64(n+1)*rowHeight
		dc.DrawStringAnchored(row.label, margin, base, 0, 0)
		for i, v := range row.values {
			dc.DrawStringAnchored(v, x(i), base, 0.5, 0)
		}
	}
}

type row struct {
	label  string
	values []string
}

// forecastRows formats the hour, wind, gust and rain of every point. Dry
// hours leave the rain cell empty.
func forecastRows(points []weather.DataPoint) []row {
	rows := []row{
		{label: "", values: make([]string, len(points))},
		{label: "wind m/s", values: make([]string, len(points))},
		{label: "gust m/s", values: make([]string, len(points))},
		{label: "rain mm", values: make([]string, len(points))},
	}

	for i, p := range points {
		rows[0].values[i] = p.Time.Local().Format("15")
		rows[1].values[i] = fmt.Sprintf("%.0f", math.Round(p.Wind))
		rows[2].values[i] = fmt.Sprintf("%.0f", math.Round(p.Gust))
		if p.Rain > 0 {
			rows[3].values[i] = fmt.Sprintf("%.1f", p.Rain)
		}
	}
	return rows
}

// bounds returns the value range rounded out to whole degrees, never empty.
func bounds(vs []float64) (float64, float64) {
	low, high := vs[0], vs[0]
	for _, v := range vs[1:] {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	low, high = math.Floor(low), math.Ceil(high)
	if high-low < 1 {
		high = low + 1
	}
	return low, high
}

func degrees(v float64) string {
	return fmt.Sprintf("%.1f°", v)
}
