// Package report renders solar quotations: the electricity cost comparison
// chart (PNG) and the four-page quotation document (PDF).
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/cclenergy/solarquote/pkg/models"
	"github.com/cclenergy/solarquote/pkg/utils"
)

// Chart errors. Callers treat any of them as "no chart" and carry on.
var (
	ErrSeriesLength     = errors.New("cost series must have exactly 10 values")
	ErrInvalidValue     = errors.New("cost series contains a non-finite value")
	ErrDegenerateSeries = errors.New("cost series has no positive magnitude")
)

// Label offsets in data units: above the bar for v >= 0, below for v < 0.
const (
	labelOffsetAbove = 50.0
	labelOffsetBelow = 60.0
)

// ════════════════════════════════════════════════════════════════════
// Chart Configuration
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for the cost comparison chart.
// Lengths are in inches and font sizes in points; pixels follow from DPI.
type ChartConfig struct {
	WidthIn      float64 // canvas width (default: 12)
	HeightIn     float64 // canvas height (default: 8)
	DPI          float64 // raster resolution (default: 300)
	MarginTop    float64 // default: 0.9
	MarginRight  float64 // default: 0.4
	MarginBottom float64 // default: 0.9
	MarginLeft   float64 // default: 1.2
	BarWidth     float64 // fraction of a year slot per bar (default: 0.35)

	Background  color.Color
	BeforeColor color.Color // "Without Solar" bars
	AfterColor  color.Color // "With Solar" bars
	GridColor   color.Color // semi-transparent
	TextColor   color.Color

	TitleSize float64
	AxisSize  float64
	LabelSize float64
	TickSize  float64
}

// DefaultChartConfig returns the standard 12×8 in, 300 DPI chart.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		WidthIn:      12,
		HeightIn:     8,
		DPI:          300,
		MarginTop:    0.9,
		MarginRight:  0.4,
		MarginBottom: 0.9,
		MarginLeft:   1.2,
		BarWidth:     0.35,
		Background:   color.White,
		BeforeColor:  color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff},
		AfterColor:   color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 0xff},
		GridColor:    color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x4d},
		TextColor:    color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
		TitleSize:    16,
		AxisSize:     12,
		LabelSize:    8,
		TickSize:     10,
	}
}

// ChartOption configures a ChartRenderer.
type ChartOption func(*ChartConfig)

// WithDPI sets the raster resolution. Non-positive values are ignored.
func WithDPI(dpi float64) ChartOption {
	return func(c *ChartConfig) {
		if dpi > 0 {
			c.DPI = dpi
		}
	}
}

// WithColors sets the bar colours for the two series.
func WithColors(before, after color.Color) ChartOption {
	return func(c *ChartConfig) { c.BeforeColor, c.AfterColor = before, after }
}

// px converts inches to pixels.
func (c ChartConfig) px(in float64) float64 { return in * c.DPI }

// pt converts points to pixels.
func (c ChartConfig) pt(p float64) float64 { return p * c.DPI / 72 }

// plotArea returns the usable drawing area in pixels.
func (c ChartConfig) plotArea() (x, y, w, h float64) {
	return c.px(c.MarginLeft), c.px(c.MarginTop),
		c.px(c.WidthIn - c.MarginLeft - c.MarginRight),
		c.px(c.HeightIn - c.MarginTop - c.MarginBottom)
}

// ════════════════════════════════════════════════════════════════════
// Cost Comparison Bar Chart
// ════════════════════════════════════════════════════════════════════

// ChartRenderer draws the ten-year grouped bar chart comparing annual
// electricity cost without and with solar. It holds no per-render state and
// is safe for concurrent use.
type ChartRenderer struct {
	cfg ChartConfig
}

// NewChartRenderer returns a renderer using DefaultChartConfig with opts applied.
func NewChartRenderer(opts ...ChartOption) *ChartRenderer {
	cfg := DefaultChartConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ChartRenderer{cfg: cfg}
}

// Config returns the renderer's effective configuration.
func (r *ChartRenderer) Config() ChartConfig { return r.cfg }

// RenderSeries renders a CostSeries. See Render.
func (r *ChartRenderer) RenderSeries(s models.CostSeries) ([]byte, error) {
	return r.Render(s.Years, s.Before, s.After, s.BeforeTotal, s.AfterTotal)
}

// Render draws the chart and returns the encoded PNG. years, before and after
// must each have exactly 10 entries and every value must be finite.
func (r *ChartRenderer) Render(years []string, before, after []float64, beforeTotal, afterTotal float64) ([]byte, error) {
	if len(years) != models.SeriesLength || len(before) != models.SeriesLength || len(after) != models.SeriesLength {
		return nil, fmt.Errorf("%w: years=%d before=%d after=%d", ErrSeriesLength, len(years), len(before), len(after))
	}
	for _, v := range append(append([]float64{beforeTotal, afterTotal}, before...), after...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrInvalidValue
		}
	}
	lo, hi, err := YRange(before, after)
	if err != nil {
		return nil, err
	}

	cfg := r.cfg
	faces, err := newChartFaces(cfg)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(int(math.Round(cfg.px(cfg.WidthIn))), int(math.Round(cfg.px(cfg.HeightIn))))
	dc.SetColor(cfg.Background)
	dc.Clear()

	px, py, pw, ph := cfg.plotArea()
	sc := yScale{lo: lo, hi: hi, top: py, height: ph}

	// Gridlines and tick labels
	dc.SetFontFace(faces.tick)
	dc.SetLineWidth(cfg.pt(0.8))
	for _, tick := range niceTicks(lo, hi, 6) {
		y := sc.y(tick)
		dc.SetColor(cfg.GridColor)
		dc.SetDash(cfg.pt(4), cfg.pt(3))
		dc.DrawLine(px, y, px+pw, y)
		dc.Stroke()
		dc.SetDash()

		dc.SetColor(cfg.TextColor)
		dc.DrawStringAnchored(utils.FormatTick(tick), px-cfg.pt(6), y, 1, 0.35)
	}

	// Bars and value labels
	slot := pw / float64(models.SeriesLength)
	barW := slot * cfg.BarWidth
	for i := 0; i < models.SeriesLength; i++ {
		center := px + slot*(float64(i)+0.5)
		for _, bar := range []struct {
			x   float64
			v   float64
			col color.Color
		}{
			{center - barW/2, before[i], cfg.BeforeColor},
			{center + barW/2, after[i], cfg.AfterColor},
		} {
			top, bottom := sc.y(math.Max(bar.v, 0)), sc.y(math.Min(bar.v, 0))
			dc.SetColor(bar.col)
			dc.DrawRectangle(bar.x-barW/2, top, barW, bottom-top)
			dc.Fill()

			ly, below := LabelPosition(bar.v)
			ay := 0.0
			if below {
				ay = 1
			}
			dc.SetColor(cfg.TextColor)
			dc.SetFontFace(faces.label)
			dc.DrawStringAnchored(utils.FormatLabel(bar.v), bar.x, sc.y(ly), 0.5, ay)
		}

		dc.SetFontFace(faces.tick)
		dc.DrawStringAnchored(years[i], center, py+ph+cfg.pt(6), 0.5, 1)
	}

	// Zero reference line and axes
	dc.SetColor(color.Black)
	dc.SetLineWidth(cfg.pt(1))
	dc.DrawLine(px, sc.y(0), px+pw, sc.y(0))
	dc.Stroke()
	dc.SetColor(cfg.TextColor)
	dc.DrawLine(px, py, px, py+ph)
	dc.Stroke()

	// Axis titles
	dc.SetFontFace(faces.axis)
	dc.DrawStringAnchored("Year", px+pw/2, py+ph+cfg.pt(26), 0.5, 1)
	dc.Push()
	ax, ay := cfg.pt(16), py+ph/2
	dc.RotateAbout(gg.Radians(-90), ax, ay)
	dc.DrawStringAnchored("Annual Electricity Cost ($)", ax, ay, 0.5, 1)
	dc.Pop()

	// Title
	dc.SetFontFace(faces.title)
	title := fmt.Sprintf("Electricity Cost Comparison %s-%s", years[0], years[len(years)-1])
	dc.DrawStringAnchored(title, cfg.px(cfg.WidthIn)/2, py/2, 0.5, 0.5)

	r.drawLegend(dc, faces, px+pw, py, []legendEntry{
		{fmt.Sprintf("Without Solar (Total: %s)", utils.FormatLabel(beforeTotal)), cfg.BeforeColor},
		{fmt.Sprintf("With Solar (Total: %s)", utils.FormatLabel(afterTotal)), cfg.AfterColor},
	})

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return buf.Bytes(), nil
}

type legendEntry struct {
	label string
	color color.Color
}

// drawLegend draws a boxed legend anchored to the top-right of the plot.
func (r *ChartRenderer) drawLegend(dc *gg.Context, faces chartFaces, right, top float64, entries []legendEntry) {
	cfg := r.cfg
	dc.SetFontFace(faces.tick)

	pad, swatch, rowH := cfg.pt(6), cfg.pt(10), cfg.pt(16)
	var textW float64
	for _, e := range entries {
		if w, _ := dc.MeasureString(e.label); w > textW {
			textW = w
		}
	}
	boxW := pad*3 + swatch + textW
	boxH := pad*2 + rowH*float64(len(entries))
	x, y := right-boxW-pad, top+pad

	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(x, y, boxW, boxH)
	dc.Fill()
	dc.SetColor(cfg.GridColor)
	dc.SetLineWidth(cfg.pt(0.8))
	dc.DrawRectangle(x, y, boxW, boxH)
	dc.Stroke()

	for i, e := range entries {
		rowY := y + pad + rowH*float64(i) + rowH/2
		dc.SetColor(e.color)
		dc.DrawRectangle(x+pad, rowY-swatch/2, swatch, swatch)
		dc.Fill()
		dc.SetColor(cfg.TextColor)
		dc.DrawStringAnchored(e.label, x+pad*2+swatch, rowY, 0, 0.35)
	}
}

// ════════════════════════════════════════════════════════════════════
// Scale Helpers
// ════════════════════════════════════════════════════════════════════

// YRange returns the value axis range [-maxAbs*0.2, maxAbs*1.3], where
// maxAbs = max(max(before), max(|after|)). It fails when maxAbs <= 0.
func YRange(before, after []float64) (lo, hi float64, err error) {
	if len(before) == 0 || len(after) == 0 {
		return 0, 0, ErrSeriesLength
	}
	maxBefore := before[0]
	for _, v := range before[1:] {
		maxBefore = math.Max(maxBefore, v)
	}
	maxAbs := maxBefore
	for _, v := range after {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if !(maxAbs > 0) || math.IsInf(maxAbs, 0) {
		return 0, 0, ErrDegenerateSeries
	}
	return -maxAbs * 0.2, maxAbs * 1.3, nil
}

// LabelPosition returns the data-space anchor of a bar's value label and
// whether the label hangs below the anchor (negative bars).
func LabelPosition(v float64) (y float64, below bool) {
	if v >= 0 {
		return v + labelOffsetAbove, false
	}
	return v - labelOffsetBelow, true
}

// yScale maps data values to pixel rows; larger values are higher.
type yScale struct {
	lo, hi      float64
	top, height float64
}

func (s yScale) y(v float64) float64 {
	return s.top + s.height*(s.hi-v)/(s.hi-s.lo)
}

// niceTicks returns round tick values covering [lo, hi], about n of them.
func niceTicks(lo, hi float64, n int) []float64 {
	if !(hi > lo) || n < 1 {
		return nil
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag * 10
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if raw <= m*mag {
			step = m * mag
			break
		}
	}

	var ticks []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		// Snap accumulated float error, e.g. 0.30000000000000004 → 0.3.
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks
}
