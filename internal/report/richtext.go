package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"
)

// Finding text fields may carry simple HTML from the editor: line breaks
// and inline <img> tags pointing at uploaded evidence.
var (
	imgTagRe  = regexp.MustCompile(`(?i)<img[^>]*src="([^"]+)"[^>]*>`)
	htmlTagRe = regexp.MustCompile(`(?i)</?(b|strong|i|em|u|p|div|span)\s*>`)
	brRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// writeRichText renders a finding text field into the document,
// replacing inline <img> tags with embedded images. Local images are
// scaled to at most the content width; missing or external sources are
// written as literal markers.
func (d *doc) writeRichText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	last := 0
	for _, m := range imgTagRe.FindAllStringSubmatchIndex(text, -1) {
		d.writePlainText(text[last:m[0]])
		d.writeImage(text[m[2]:m[3]])
		last = m[1]
	}
	d.writePlainText(text[last:])
}

func (d *doc) writePlainText(text string) {
	text = brRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(40, 40, 40)
	d.pdf.MultiCell(0, 5, text, "", "L", false)
}

func (d *doc) writeMarker(text string) {
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(120, 120, 120)
	d.pdf.MultiCell(0, 5, text, "", "L", false)
}

// writeImage embeds one referenced image. Only /static/ paths resolve
// to local files; anything else stays a textual marker.
func (d *doc) writeImage(src string) {
	if !strings.HasPrefix(src, "/static/") {
		d.writeMarker(fmt.Sprintf("[external image: %s]", src))
		return
	}

	path := filepath.Join(d.opts.StaticDir, filepath.FromSlash(strings.TrimPrefix(src, "/static/")))
	if _, err := os.Stat(path); err != nil {
		d.writeMarker(fmt.Sprintf("[image not found: %s]", src))
		return
	}
	if !d.embedImage(path, 0) {
		d.writeMarker(fmt.Sprintf("[image not found: %s]", src))
	}
}

// embedImage draws a local image at the cursor, scaled down to maxW
// (content width when maxW is 0). Reports false when the file cannot be
// decoded.
func (d *doc) embedImage(path string, maxW float64) bool {
	imgType := imageType(path)
	if imgType == "" {
		return false
	}

	opts := gofpdf.ImageOptions{ImageType: imgType}
	info := d.pdf.RegisterImageOptions(path, opts)
	if d.pdf.Err() {
		// undecodable file: clear the error so the document survives
		d.pdf.ClearError()
		return false
	}
	if info == nil {
		return false
	}

	if maxW <= 0 {
		maxW = d.contentWidth()
	}
	w, h := info.Extent()
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}

	left, _, _, _ := d.pdf.GetMargins()
	d.pdf.ImageOptions(path, left, d.pdf.GetY(), w, h, true, opts, 0, "")
	d.pdf.Ln(3)
	return !d.pdf.Err()
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	default:
		return ""
	}
}
