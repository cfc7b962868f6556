// Package report renders recorded demo sessions as charts.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/socialdrones/crazyflie-scripts/internal/demo"
	"github.com/socialdrones/crazyflie-scripts/internal/mapping"
	"github.com/socialdrones/crazyflie-scripts/internal/security"
)

// ErrNoSamples is returned when a session has nothing to plot.
var ErrNoSamples = errors.New("no samples to plot")

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 8 * vg.Inch
)

var (
	heightColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rawColor    = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// PlotSession writes a two-panel PNG for the session into outputDir: the
// commanded height on top and the raw sensor signal below, with LED
// updates marked in the colour that was sent. It returns the file path.
func PlotSession(samples []demo.Sample, outputDir, sessionID string) (string, error) {
	if len(samples) == 0 {
		return "", ErrNoSamples
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	t0 := samples[0].At
	heightPts := make(plotter.XYs, 0, len(samples))
	rawPts := make(plotter.XYs, 0, len(samples))
	var ledPts plotter.XYs
	var ledColors []color.Color
	ledMax := 0
	for _, s := range samples {
		x := s.At.Sub(t0).Seconds()
		heightPts = append(heightPts, plotter.XY{X: x, Y: s.Setpoint.Z})
		rawPts = append(rawPts, plotter.XY{X: x, Y: s.Raw})
		if s.LED != nil {
			ledPts = append(ledPts, plotter.XY{X: x, Y: s.Raw})
			if m := max(s.LED.R, s.LED.G, s.LED.B); m > ledMax {
				ledMax = m
			}
		}
	}
	for _, s := range samples {
		if s.LED != nil {
			ledColors = append(ledColors, ledToColor(*s.LED, ledMax))
		}
	}

	pHeight := plot.New()
	pHeight.Title.Text = fmt.Sprintf("Session %s - Commanded Height", sessionID)
	pHeight.X.Label.Text = "Time (s)"
	pHeight.Y.Label.Text = "Height (m)"
	pHeight.Add(plotter.NewGrid())
	heightLine, err := plotter.NewLine(heightPts)
	if err != nil {
		return "", fmt.Errorf("failed to create height line: %w", err)
	}
	heightLine.Color = heightColor
	heightLine.Width = vg.Points(1.5)
	pHeight.Add(heightLine)
	pHeight.Legend.Add("z setpoint", heightLine)

	pRaw := plot.New()
	pRaw.Title.Text = "Raw Sensor Signal"
	pRaw.X.Label.Text = "Time (s)"
	pRaw.Y.Label.Text = "ADC"
	pRaw.Add(plotter.NewGrid())
	rawLine, err := plotter.NewLine(rawPts)
	if err != nil {
		return "", fmt.Errorf("failed to create raw line: %w", err)
	}
	rawLine.Color = rawColor
	rawLine.Width = vg.Points(1)
	pRaw.Add(rawLine)
	pRaw.Legend.Add("raw", rawLine)

	if len(ledPts) > 0 {
		scatter, err := plotter.NewScatter(ledPts)
		if err != nil {
			return "", fmt.Errorf("failed to create LED scatter: %w", err)
		}
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: ledColors[i], Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		}
		pRaw.Add(scatter)
		pRaw.Legend.Add("LED update", scatter)
	}

	for _, p := range []*plot.Plot{pHeight, pRaw} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2,
		Cols: 1,
		PadX:      vg.Millimeter,
		PadY:      4 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	plots := [][]*plot.Plot{{pHeight}, {pRaw}}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	file := filepath.Join(outputDir, fmt.Sprintf("session_%s.png", security.SanitizeFilename(sessionID)))
	f, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", file, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return file, nil
}

// ledToColor scales LED intensities, whose full scale is ledMax, to 8 bits.
func ledToColor(c mapping.RGB, ledMax int) color.Color {
	if ledMax <= 0 {
		return color.RGBA{A: 255}
	}
	scale := func(v int) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= ledMax {
			return 255
		}
		return uint8(v * 255 / ledMax)
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 255}
}
