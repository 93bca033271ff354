// Package report assembles vulnerability findings into paginated PDF
// documents in three template variants.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	gofpdf "github.com/go-pdf/fpdf"

	"vulnreport/internal/models"
)

// Options carries per-report branding and environment.
type Options struct {
	CompanyLabel string
	PeriodStart  string
	PeriodEnd    string
	StaticDir    string
	Config       *models.ReportConfig

	// NoCompress disables stream compression so text is searchable in
	// raw bytes. Tests only.
	NoCompress bool
}

var defaultBand = [3]int{0, 31, 63} // #001f3f

// bandColor resolves the header/footer band color from the report
// config, falling back to the default navy.
func (o Options) bandColor() [3]int {
	if o.Config == nil {
		return defaultBand
	}
	if rgb, ok := parseHexColor(o.Config.PrimaryColor); ok {
		return rgb
	}
	return defaultBand
}

func parseHexColor(s string) ([3]int, bool) {
	if len(s) != 7 || s[0] != '#' {
		return [3]int{}, false
	}
	var rgb [3]int
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return [3]int{}, false
		}
		rgb[i] = int(v)
	}
	return rgb, true
}

// doc is one report document under construction.
type doc struct {
	pdf  *gofpdf.Fpdf
	opts Options
	band [3]int
}

func newDoc(opts Options) *doc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	if opts.NoCompress {
		pdf.SetCompression(false)
	}
	pdf.SetMargins(15, 18, 15)
	pdf.SetAutoPageBreak(true, 18)

	d := &doc{pdf: pdf, opts: opts, band: opts.bandColor()}
	pdf.SetHeaderFunc(d.header)
	pdf.SetFooterFunc(d.footer)
	return d
}

func (d *doc) header() {
	w, _ := d.pdf.GetPageSize()
	d.pdf.SetFillColor(d.band[0], d.band[1], d.band[2])
	d.pdf.Rect(0, 0, w, 10, "F")
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetXY(6, 2)
	d.pdf.CellFormat(0, 6, "Internal Use", "", 0, "L", false, 0, "")
	d.pdf.SetXY(15, 14)
}

func (d *doc) footer() {
	w, h := d.pdf.GetPageSize()
	d.pdf.SetFillColor(d.band[0], d.band[1], d.band[2])
	d.pdf.Rect(0, h-9, w, 9, "F")
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.SetFont("Helvetica", "", 9)
	d.pdf.SetXY(-40, h-8)
	d.pdf.CellFormat(25, 6, fmt.Sprintf("Page %d", d.pdf.PageNo()), "", 0, "R", false, 0, "")
}

func (d *doc) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return w - left - right
}

func (d *doc) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// finish wraps document assembly so a partial failure never reaches the
// client as a corrupt file. Panics and fpdf errors both fall back to a
// one-page error document.
func finish(d *doc, assembleErr *error) ([]byte, error) {
	out, err := d.output()
	if err != nil {
		return errorPDF(d.opts, err)
	}
	if *assembleErr != nil {
		return errorPDF(d.opts, *assembleErr)
	}
	return out, nil
}

func build(opts Options, assemble func(*doc)) ([]byte, error) {
	d := newDoc(opts)

	var assembleErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				assembleErr = fmt.Errorf("report assembly failed: %v", r)
			}
		}()
		assemble(d)
	}()

	return finish(d, &assembleErr)
}

// errorPDF is the fallback one-page document returned when assembly
// fails partway.
func errorPDF(opts Options, cause error) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	if opts.NoCompress {
		pdf.SetCompression(false)
	}
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(180, 30, 30)
	pdf.CellFormat(0, 12, "Report Generation Failed", "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(0, 6, "Error: "+cause.Error(), "", "L", false)
	pdf.Ln(4)
	pdf.MultiCell(0, 6, "Please review the report configuration and try again.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render fallback pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func today() string {
	return time.Now().Format("02/01/2006")
}
