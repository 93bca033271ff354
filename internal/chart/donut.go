package chart

import (
	"bytes"
	"fmt"
	"math"

	svg "github.com/ajstarks/svgo"
	"github.com/fogleman/gg"
)

// Donut geometry shared by every renderer: slices start at 12 o'clock and
// run clockwise; the inner/outer radius ratio stays fixed.
const (
	svgWidth   = 240
	svgHeight  = 150
	donutCX    = 75
	donutCY    = 75
	outerR     = 54.0
	innerR     = 34.0
	legendBox  = 9
	legendGap  = 5
	pngScale   = 2.0
	maxExtent  = 359.999
	sliceStart = -90.0 // degrees from east; -90 is 12 o'clock
)

// Slice is one non-empty donut segment. Angles are degrees measured
// clockwise from 12 o'clock.
type Slice struct {
	Index  int // bucket index into Labels/Palette
	Count  int
	Start  float64
	Extent float64
}

// Slices converts a tally into donut segments in bucket order. Empty
// buckets produce no slice; an empty tally produces none at all.
func Slices(t Tally) []Slice {
	counts := t.Counts()
	total := t.Total()
	if total == 0 {
		return nil
	}

	var out []Slice
	start := 0.0
	for i, n := range counts {
		if n <= 0 {
			continue
		}
		extent := float64(n) / float64(total) * 360.0
		if extent > maxExtent {
			extent = maxExtent
		}
		out = append(out, Slice{Index: i, Count: n, Start: start, Extent: extent})
		start += extent
	}
	return out
}

// ClockPoint maps a clockwise-from-top angle to canvas coordinates
// (y grows downward).
func ClockPoint(cx, cy, r, deg float64) (float64, float64) {
	rad := (deg + sliceStart) * math.Pi / 180.0
	return cx + r*math.Cos(rad), cy + r*math.Sin(rad)
}

// RenderSVG draws the donut and legend as an SVG document.
func RenderSVG(t Tally) []byte {
	buf := &bytes.Buffer{}
	canvas := svg.New(buf)
	canvas.Start(svgWidth, svgHeight)

	for _, s := range Slices(t) {
		canvas.Path(donutPath(donutCX, donutCY, outerR, innerR, s.Start, s.Extent),
			fmt.Sprintf("fill:%s;stroke:none", Palette[s.Index]))
	}

	counts := t.Counts()
	legendX := donutCX + int(outerR) + 16
	legendH := 5*legendBox + 4*legendGap
	legendY := donutCY - legendH/2
	for i, label := range Labels {
		y := legendY + i*(legendBox+legendGap)
		canvas.Rect(legendX, y, legendBox, legendBox, "fill:"+Palette[i])
		canvas.Text(legendX+legendBox+8, y+legendBox-2,
			fmt.Sprintf("%s: %d", label, counts[i]),
			"font-family:Segoe UI, Arial, sans-serif;font-size:12px;fill:#ffffff")
	}

	canvas.End()
	return buf.Bytes()
}

func donutPath(cx, cy, rOuter, rInner, start, extent float64) string {
	end := start + extent
	x0, y0 := ClockPoint(cx, cy, rOuter, start)
	x1, y1 := ClockPoint(cx, cy, rOuter, end)
	x2, y2 := ClockPoint(cx, cy, rInner, end)
	x3, y3 := ClockPoint(cx, cy, rInner, start)
	largeArc := 0
	if extent > 180 {
		largeArc = 1
	}
	return fmt.Sprintf(
		"M %.3f %.3f A %.0f %.0f 0 %d 1 %.3f %.3f L %.3f %.3f A %.0f %.0f 0 %d 0 %.3f %.3f Z",
		x0, y0, rOuter, rOuter, largeArc, x1, y1,
		x2, y2, rInner, rInner, largeArc, x3, y3)
}

// RenderPNG draws the same donut and legend as a raster image at double
// density for sharpness.
func RenderPNG(t Tally) ([]byte, error) {
	w := int(svgWidth * pngScale)
	h := int(svgHeight * pngScale)
	cx := donutCX * pngScale
	cy := donutCY * pngScale
	ro := outerR * pngScale
	ri := innerR * pngScale

	dc := gg.NewContext(w, h)
	// transparent background

	slices := Slices(t)
	if len(slices) == 0 {
		dc.SetRGBA255(200, 210, 230, 255)
		dc.SetLineWidth(2 * pngScale)
		dc.DrawCircle(cx, cy, ro)
		dc.Stroke()
	}
	for _, s := range slices {
		drawDonutSlice(dc, cx, cy, ro, ri, s.Start, s.Extent)
		rgb := PaletteRGB[s.Index]
		dc.SetRGB255(rgb[0], rgb[1], rgb[2])
		dc.Fill()
	}

	counts := t.Counts()
	box := legendBox * pngScale
	gap := legendGap * pngScale
	legendX := cx + ro + 16*pngScale
	legendH := 5*box + 4*gap
	legendY := cy - legendH/2
	for i, label := range Labels {
		y := legendY + float64(i)*(box+gap)
		rgb := PaletteRGB[i]
		dc.SetRGB255(rgb[0], rgb[1], rgb[2])
		dc.DrawRectangle(legendX, y, box, box)
		dc.Fill()
		dc.SetRGB255(255, 255, 255)
		dc.DrawString(fmt.Sprintf("%s: %d", label, counts[i]), legendX+box+8*pngScale, y+box-2*pngScale)
	}

	buf := &bytes.Buffer{}
	if err := dc.EncodePNG(buf); err != nil {
		return nil, fmt.Errorf("encode donut png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawDonutSlice(dc *gg.Context, cx, cy, ro, ri, start, extent float64) {
	const step = 2.0
	dc.NewSubPath()
	x, y := ClockPoint(cx, cy, ro, start)
	dc.MoveTo(x, y)
	for a := start + step; a < start+extent; a += step {
		x, y = ClockPoint(cx, cy, ro, a)
		dc.LineTo(x, y)
	}
	x, y = ClockPoint(cx, cy, ro, start+extent)
	dc.LineTo(x, y)
	x, y = ClockPoint(cx, cy, ri, start+extent)
	dc.LineTo(x, y)
	for a := start + extent - step; a > start; a -= step {
		x, y = ClockPoint(cx, cy, ri, a)
		dc.LineTo(x, y)
	}
	x, y = ClockPoint(cx, cy, ri, start)
	dc.LineTo(x, y)
	dc.ClosePath()
}
