package report

import (
	"fmt"

	gofpdf "github.com/go-pdf/fpdf"

	"vulnreport/internal/chart"
)

// Donut dimensions in document units (mm).
const (
	donutOuterMM  = 30.0
	donutInnerMM  = 19.0
	donutStepDeg  = 2.0
	legendBoxMM   = 4.5
	legendGapMM   = 2.5
	legendIndent  = 18.0
	donutHeightMM = 2*donutOuterMM + 6
)

// donut draws the severity donut with its legend at the cursor,
// matching the slice order and palette of the image renderers.
func (d *doc) donut(t chart.Tally) {
	left, _, _, _ := d.pdf.GetMargins()
	top := d.pdf.GetY()
	cx := left + donutOuterMM + 10
	cy := top + donutOuterMM

	slices := chart.Slices(t)
	if len(slices) == 0 {
		d.pdf.SetDrawColor(200, 210, 230)
		d.pdf.SetLineWidth(0.6)
		d.pdf.Circle(cx, cy, donutOuterMM, "D")
	}
	for _, s := range slices {
		rgb := chart.PaletteRGB[s.Index]
		d.pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
		d.pdf.Polygon(donutPolygon(cx, cy, s.Start, s.Extent), "F")
	}

	counts := t.Counts()
	legendX := cx + donutOuterMM + legendIndent
	legendH := 5*legendBoxMM + 4*legendGapMM
	legendY := cy - legendH/2
	d.pdf.SetFont("Helvetica", "", 9)
	for i, label := range chart.Labels {
		y := legendY + float64(i)*(legendBoxMM+legendGapMM)
		rgb := chart.PaletteRGB[i]
		d.pdf.SetFillColor(rgb[0], rgb[1], rgb[2])
		d.pdf.Rect(legendX, y, legendBoxMM, legendBoxMM, "F")
		d.pdf.SetTextColor(40, 40, 40)
		d.pdf.SetXY(legendX+legendBoxMM+2, y-0.5)
		d.pdf.CellFormat(40, legendBoxMM+1, fmt.Sprintf("%s: %d", label, counts[i]), "", 0, "L", false, 0, "")
	}

	d.pdf.SetY(top + donutHeightMM)
}

// donutPolygon approximates one slice with short line segments along
// both arcs, reusing the shared clockwise-from-top geometry.
func donutPolygon(cx, cy, start, extent float64) []gofpdf.PointType {
	var pts []gofpdf.PointType
	add := func(r, deg float64) {
		x, y := chart.ClockPoint(cx, cy, r, deg)
		pts = append(pts, gofpdf.PointType{X: x, Y: y})
	}

	for a := start; a < start+extent; a += donutStepDeg {
		add(donutOuterMM, a)
	}
	add(donutOuterMM, start+extent)
	for a := start + extent; a > start; a -= donutStepDeg {
		add(donutInnerMM, a)
	}
	add(donutInnerMM, start)
	return pts
}
