package report

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"vulnreport/internal/models"
)

// pdfResult holds a generated PDF and provides semantic assertions.
type pdfResult struct {
	t      *testing.T
	raw    []byte
	reader *bytes.Reader
}

func wrap(t *testing.T, raw []byte, err error) pdfResult {
	t.Helper()
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return pdfResult{t: t, raw: raw, reader: bytes.NewReader(raw)}
}

func (p *pdfResult) assertValid() {
	p.t.Helper()
	if err := pdfapi.Validate(p.reader, nil); err != nil {
		p.t.Errorf("PDF validation failed: %v", err)
	}
	p.reader.Seek(0, 0)
}

func (p *pdfResult) assertPageCountAtLeast(min int) {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	if count < min {
		p.t.Errorf("page count = %d, want at least %d", count, min)
	}
}

func (p *pdfResult) assertPageCount(expected int) {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	if count != expected {
		p.t.Errorf("page count = %d, want %d", count, expected)
	}
}

// assertContainsText checks the raw PDF bytes for the given text.
// Compression is disabled in tests so Helvetica text stays searchable.
func (p *pdfResult) assertContainsText(text string) {
	p.t.Helper()
	if !bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF does not contain text %q", text)
	}
}

func (p *pdfResult) assertNotContainsText(text string) {
	p.t.Helper()
	if bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF unexpectedly contains text %q", text)
	}
}

func testOpts() Options {
	return Options{NoCompress: true}
}

func fv(v float64) *float64 { return &v }

func sampleVulns() []models.Vulnerability {
	return []models.Vulnerability{
		{
			Title:       "SQL Injection in Login",
			Severity:    models.SeverityCritical,
			Status:      models.StatusOpen,
			CVSS:        fv(9.8),
			Description: "The login form concatenates user input into a SQL query.",
			Impact:      "Full database compromise.",
			Likelihood:  "Trivially exploitable with automated tooling.",
			Remediation: "Use parameterized queries everywhere.",
			References:  "OWASP A03:2021",
			Comments:    "Reproduced against staging on request.",
			CompanyName: "Acme Corp",
			TestType:    "Web Application Pentest",
		},
		{
			Title:       "Verbose Server Banner",
			Severity:    models.SeverityInformative,
			Status:      models.StatusClosed,
			Description: "The web server discloses its exact version.",
			CompanyName: "Acme Corp",
		},
	}
}

func TestBuildClassicStructure(t *testing.T) {
	raw, err := BuildClassic(sampleVulns(), testOpts())
	p := wrap(t, raw, err)

	p.assertValid()
	p.assertPageCountAtLeast(4) // cover, contents, one page per finding
	p.assertContainsText("VULNERABILITY REPORT")
	p.assertContainsText("CONTENTS")
	p.assertContainsText("FINDING DETAILS")
	p.assertContainsText("Total findings: 2")
	p.assertContainsText("- Critical: 1")
	p.assertContainsText("- Informative: 1")
	p.assertContainsText("SQL Injection in Login")
	p.assertContainsText("Use parameterized queries everywhere.")
	// classic includes the internal notes
	p.assertContainsText("Reproduced against staging on request.")
}

func TestBuildClassicEmpty(t *testing.T) {
	raw, err := BuildClassic(nil, testOpts())
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("Total findings: 0")
}

func TestBuildExecutiveStructure(t *testing.T) {
	raw, err := BuildExecutive(sampleVulns(), testOpts())
	p := wrap(t, raw, err)

	p.assertValid()
	p.assertPageCountAtLeast(6) // cover plus the five preamble pages
	p.assertContainsText("Pentest Report - Executive")
	p.assertContainsText("1. Legal Notice")
	p.assertContainsText("2. Introduction")
	p.assertContainsText("3. Summary")
	p.assertContainsText("4. Scope")
	p.assertContainsText("5. Methodology")
	p.assertContainsText("6. Risk Classification")
	p.assertContainsText("Company: Acme Corp")
	p.assertContainsText("- Web Application Pentest")
	// the tally sentence can wrap mid-line in the content stream, so it
	// is asserted in pieces
	p.assertContainsText("As a result, 2 findings were detected, classified as:")
	p.assertContainsText("1 critical, 0 high, 0 medium,")
	p.assertContainsText("informative.")
	p.assertContainsText("Finding Summaries")
	p.assertContainsText("The login form concatenates user input into a SQL query.")
	// executive keeps the technical body sections out
	p.assertNotContainsText("Use parameterized queries everywhere.")
	p.assertNotContainsText("Reproduced against staging on request.")
}

func TestBuildExecutiveEmptySet(t *testing.T) {
	raw, err := BuildExecutive(nil, testOpts())
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("As a result, 0 findings were detected, classified as:")
	p.assertContainsText("0 critical, 0 high, 0 medium,")
	p.assertContainsText("- Penetration Test") // scope falls back to the generic label
}

func TestBuildTechnicalStructure(t *testing.T) {
	raw, err := BuildTechnical(sampleVulns(), testOpts())
	p := wrap(t, raw, err)

	p.assertValid()
	p.assertContainsText("Pentest Report - Technical")
	p.assertContainsText("1. Legal Notice")
	p.assertContainsText("Use parameterized queries everywhere.")
	p.assertContainsText("OWASP A03:2021")
	// internal notes never reach the client-facing technical variant
	p.assertNotContainsText("Reproduced against staging on request.")
}

func TestBuildVulnPDF(t *testing.T) {
	raw, err := BuildVulnPDF(sampleVulns()[0], testOpts())
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertPageCountAtLeast(1)
	p.assertContainsText("SQL Injection in Login")
	p.assertContainsText("9.8")
	p.assertContainsText("Internal Use")
	p.assertContainsText("Page 1")
	p.assertContainsText("Reproduced against staging on request.")
}

func TestReportPeriodOnCover(t *testing.T) {
	opts := testOpts()
	opts.PeriodStart = "01/03/2026"
	opts.PeriodEnd = "15/03/2026"
	raw, err := BuildExecutive(sampleVulns(), opts)
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("Period: 01/03/2026 to 15/03/2026")
	p.assertContainsText("between 01/03/2026 and 15/03/2026")
}

func TestMissingImageMarker(t *testing.T) {
	dir := t.TempDir()
	v := sampleVulns()[0]
	v.Description = `Before <img src="/static/uploads/missing.png"> after`

	opts := testOpts()
	opts.StaticDir = dir
	raw, err := BuildVulnPDF(v, opts)
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("[image not found: /static/uploads/missing.png]")
	p.assertContainsText("Before")
	p.assertContainsText("after")
}

func TestExternalImageMarker(t *testing.T) {
	v := sampleVulns()[0]
	v.Description = `See <img src="https://evil.example/x.png"> here`

	raw, err := BuildVulnPDF(v, testOpts())
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("[external image: https://evil.example/x.png]")
}

func TestEmbeddedImage(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "uploads", "shot.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	v := sampleVulns()[0]
	v.Description = `Evidence: <img src="/static/uploads/shot.png">`

	opts := testOpts()
	opts.StaticDir = dir
	raw, err := BuildVulnPDF(v, opts)
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertNotContainsText("[image not found:")
	p.assertContainsText("Evidence:")
}

func TestUndecodableImageFallsBackToMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "uploads"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uploads", "junk.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	v := sampleVulns()[0]
	v.Description = `<img src="/static/uploads/junk.png">`

	opts := testOpts()
	opts.StaticDir = dir
	raw, err := BuildVulnPDF(v, opts)
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertContainsText("[image not found: /static/uploads/junk.png]")
}

func TestAssemblyPanicYieldsFallbackPDF(t *testing.T) {
	raw, err := build(testOpts(), func(d *doc) {
		d.pdf.AddPage()
		panic("boom")
	})
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertPageCount(1)
	p.assertContainsText("Report Generation Failed")
	p.assertContainsText("boom")
	p.assertContainsText("Please review the report configuration and try again.")
}

func TestErrorPDFIsValid(t *testing.T) {
	raw, err := errorPDF(testOpts(), errors.New("db gone"))
	p := wrap(t, raw, err)
	p.assertValid()
	p.assertPageCount(1)
	p.assertContainsText("db gone")
}

func TestBandColorFromConfig(t *testing.T) {
	opts := testOpts()
	opts.Config = &models.ReportConfig{PrimaryColor: "#ff0080"}
	if got := opts.bandColor(); got != [3]int{255, 0, 128} {
		t.Errorf("bandColor = %v, want [255 0 128]", got)
	}

	opts.Config.PrimaryColor = "rebeccapurple"
	if got := opts.bandColor(); got != defaultBand {
		t.Errorf("bandColor = %v, want default band for an unparseable color", got)
	}

	opts.Config = nil
	if got := opts.bandColor(); got != defaultBand {
		t.Errorf("bandColor = %v, want default band without config", got)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want [3]int
		ok   bool
	}{
		{"#001f3f", [3]int{0, 31, 63}, true},
		{"#FFFFFF", [3]int{255, 255, 255}, true},
		{"001f3f", [3]int{}, false},
		{"#01f", [3]int{}, false},
		{"#zzzzzz", [3]int{}, false},
	}
	for _, tc := range cases {
		got, ok := parseHexColor(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseHexColor(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
