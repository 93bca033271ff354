package report

import (
	"fmt"
	"os"
	"path/filepath"

	"vulnreport/internal/chart"
	"vulnreport/internal/models"
)

// BuildVulnPDF renders a single finding as a standalone document.
func BuildVulnPDF(v models.Vulnerability, opts Options) ([]byte, error) {
	return build(opts, func(d *doc) {
		d.pdf.AddPage()
		d.pdf.SetFont("Helvetica", "B", 16)
		d.pdf.SetTextColor(d.band[0], d.band[1], d.band[2])
		d.pdf.MultiCell(0, 8, fmt.Sprintf("%s (Severity: %s)", v.Title, v.Severity), "", "L", false)
		d.pdf.Ln(3)

		d.metaTable(v)
		d.pdf.Ln(4)
		d.findingBody(v, true)
	})
}

// BuildClassic renders the original full report: cover with severity
// summary, table of contents, then per-finding detail.
func BuildClassic(vulns []models.Vulnerability, opts Options) ([]byte, error) {
	return build(opts, func(d *doc) {
		tally := chart.TallyFrom(vulns)

		d.pdf.AddPage()
		d.pdf.Ln(40)
		d.title("VULNERABILITY REPORT")
		d.pdf.Ln(8)
		d.heading("Security Assessment")
		d.pdf.Ln(4)
		d.bodyLine("Date: " + today())
		d.bodyLine(fmt.Sprintf("Total findings: %d", len(vulns)))
		d.pdf.Ln(4)
		d.subheading("Summary by Severity:")
		counts := tally.Counts()
		for i, label := range chart.Labels {
			d.bodyLine(fmt.Sprintf("- %s: %d", label, counts[i]))
		}

		d.pdf.AddPage()
		d.title("CONTENTS")
		d.pdf.Ln(4)
		for i, v := range vulns {
			d.bodyLine(fmt.Sprintf("%d. %s - %s", i+1, v.Title, v.Severity))
		}

		d.pdf.AddPage()
		d.title("FINDING DETAILS")
		d.pdf.Ln(4)
		for i, v := range vulns {
			d.heading(fmt.Sprintf("%d. %s", i+1, v.Title))
			d.metaTable(v)
			d.pdf.Ln(3)
			d.findingBody(v, true)
			if i < len(vulns)-1 {
				d.pdf.AddPage()
			}
		}
	})
}

// BuildExecutive renders the management-facing report: preamble
// sections, severity donut, then a summarized description per finding.
func BuildExecutive(vulns []models.Vulnerability, opts Options) ([]byte, error) {
	return build(opts, func(d *doc) {
		d.cover("Pentest Report - Executive", vulns)
		d.preamble(vulns)

		for i, v := range vulns {
			d.heading("Finding Summaries")
			d.subheading(fmt.Sprintf("%d. %s - %s", i+1, v.Title, v.Severity))
			d.writeRichText(v.Description)
			if i < len(vulns)-1 {
				d.pdf.AddPage()
			}
		}
	})
}

// BuildTechnical renders the full technical report: the same preamble
// as the executive variant plus complete per-finding detail.
func BuildTechnical(vulns []models.Vulnerability, opts Options) ([]byte, error) {
	return build(opts, func(d *doc) {
		d.cover("Pentest Report - Technical", vulns)
		d.preamble(vulns)

		for i, v := range vulns {
			d.heading(fmt.Sprintf("%d. %s", i+1, v.Title))
			d.metaTable(v)
			d.pdf.Ln(3)
			d.findingBody(v, false)
			if i < len(vulns)-1 {
				d.pdf.AddPage()
			}
		}
	})
}

func (d *doc) title(text string) {
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.SetTextColor(d.band[0], d.band[1], d.band[2])
	d.pdf.MultiCell(0, 9, text, "", "C", false)
}

func (d *doc) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(d.band[0], d.band[1], d.band[2])
	d.pdf.MultiCell(0, 7, text, "", "L", false)
	d.pdf.Ln(1)
}

func (d *doc) subheading(text string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetTextColor(40, 40, 40)
	d.pdf.MultiCell(0, 6, text, "", "L", false)
}

func (d *doc) bodyLine(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(40, 40, 40)
	d.pdf.MultiCell(0, 5, text, "", "L", false)
}

func (d *doc) paragraphs(blocks ...string) {
	for _, b := range blocks {
		d.bodyLine(b)
		d.pdf.Ln(2)
	}
}

// metaTable is the small severity/status/CVSS grid under a finding title.
func (d *doc) metaTable(v models.Vulnerability) {
	cvss := "N/A"
	if v.CVSS != nil {
		cvss = fmt.Sprintf("%.1f", *v.CVSS)
	}
	rows := [][2]string{
		{"Severity", string(v.Severity)},
		{"Status", string(v.Status)},
		{"CVSS", cvss},
	}
	d.pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		d.pdf.SetFillColor(235, 238, 245)
		d.pdf.SetTextColor(40, 40, 40)
		d.pdf.CellFormat(35, 7, row[0], "1", 0, "L", true, 0, "")
		d.pdf.CellFormat(65, 7, row[1], "1", 1, "L", false, 0, "")
	}
}

// findingBody renders the long text sections of a finding. Comments are
// internal notes and only included where withComments is set.
func (d *doc) findingBody(v models.Vulnerability, withComments bool) {
	sections := []struct {
		label string
		text  string
	}{
		{"Description", v.Description},
		{"Impact", v.Impact},
		{"Likelihood", v.Likelihood},
		{"Remediation", v.Remediation},
		{"References", v.References},
	}
	if withComments {
		sections = append(sections, struct {
			label string
			text  string
		}{"Comments", v.Comments})
	}

	for _, s := range sections {
		if s.text == "" {
			continue
		}
		d.subheading(s.label)
		d.writeRichText(s.text)
		d.pdf.Ln(2)
	}
}

// cover draws the title page: logo, report title, company label, date
// and optional engagement period.
func (d *doc) cover(title string, vulns []models.Vulnerability) {
	d.pdf.AddPage()
	d.pdf.Ln(30)

	if logo := d.logoPath(); logo != "" {
		d.embedImage(logo, 55)
		d.pdf.Ln(5)
	}

	d.title(title)
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(40, 40, 40)
	d.pdf.MultiCell(0, 7, d.companyLabel(vulns), "", "C", false)
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(0, 6, today(), "", "C", false)
	if d.opts.PeriodStart != "" || d.opts.PeriodEnd != "" {
		d.pdf.MultiCell(0, 6, fmt.Sprintf("Period: %s to %s",
			orNA(d.opts.PeriodStart), orNA(d.opts.PeriodEnd)), "", "C", false)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// logoPath resolves the cover logo: the configured header logo first,
// then the conventional static locations.
func (d *doc) logoPath() string {
	if d.opts.Config != nil && d.opts.Config.HeaderLogoURL != "" {
		src := d.opts.Config.HeaderLogoURL
		if rel, ok := cutStaticPrefix(src); ok {
			p := filepath.Join(d.opts.StaticDir, filepath.FromSlash(rel))
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	for _, rel := range []string{"img/logo.png", "img/logo.jpg", "logo.png", "logo.jpg"} {
		p := filepath.Join(d.opts.StaticDir, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func cutStaticPrefix(src string) (string, bool) {
	const prefix = "/static/"
	if len(src) > len(prefix) && src[:len(prefix)] == prefix {
		return src[len(prefix):], true
	}
	return "", false
}

func (d *doc) companyLabel(vulns []models.Vulnerability) string {
	if d.opts.CompanyLabel != "" {
		return "Company: " + d.opts.CompanyLabel
	}
	seen := map[string]bool{}
	var names []string
	for _, v := range vulns {
		if v.CompanyName != "" && !seen[v.CompanyName] {
			seen[v.CompanyName] = true
			names = append(names, v.CompanyName)
		}
	}
	switch len(names) {
	case 0:
		return "Company: (not specified)"
	case 1:
		return "Company: " + names[0]
	default:
		label := "Companies: " + names[0]
		for _, n := range names[1:] {
			label += ", " + n
		}
		return label
	}
}

// preamble renders the shared front sections of the executive and
// technical variants: legal notice, introduction, summary with donut,
// scope, methodology and risk classification.
func (d *doc) preamble(vulns []models.Vulnerability) {
	d.pdf.AddPage()
	d.heading("1. Legal Notice")
	d.subheading("1.1 Limitation of Liability")
	d.paragraphs(
		"It is not possible to assess networks, systems, services or applications against every conceivable security vulnerability. This report must therefore not be read as an absolute guarantee of protection against all known or future threats.",
		"The tests documented here reflect the analysis performed within the agreed scope, exclusively under the conditions observed at the time of execution. It is not feasible to assert that the assessed assets are immune to every attack vector.",
		"Given the constant evolution of the information technology landscape, flaws not yet documented or disclosed at the time of testing may not have been detected during this engagement.")
	d.subheading("1.2 Confidentiality Statement")
	d.paragraphs(
		"This report contains confidential and proprietary information. Its reproduction, distribution or use, in whole or in part, without express written authorization is prohibited.",
		"The client may share this document with auditors, regulators or business partners solely as evidence that the penetration test was performed. This permission is restricted to audit, regulatory compliance or processes that require such evidence.")

	d.pdf.AddPage()
	d.heading("2. Introduction")
	intro := "A penetration test was performed "
	if d.opts.PeriodStart != "" || d.opts.PeriodEnd != "" {
		intro += fmt.Sprintf("between %s and %s ", orNA(d.opts.PeriodStart), orNA(d.opts.PeriodEnd))
	}
	intro += "with the objective of identifying vulnerabilities that could affect the company's data, systems and reputation."
	d.paragraphs(
		intro,
		"The test simulated real attacks in a controlled manner, following the stages of environment mapping, prioritization of critical assets, exploitation of flaws and collection of supporting evidence.",
		"With this report, the contracting company gains a clear view of the identified risks and receives recommendations to strengthen its defenses, prioritizing fixes according to the severity of each vulnerability.")

	d.pdf.AddPage()
	d.heading("3. Summary")
	d.paragraphs(
		"A security analysis was performed with a focus on practical exploitation of vulnerabilities, validating unauthorized access and exposing real risks within the agreed timeframe. Rather than a shallow survey, the approach prioritized depth, collecting concrete evidence to support mitigation decisions.",
		"The objectives of the engagement were:",
		"- Map attack vectors;",
		"- Identify real risks;",
		"- Present remediation recommendations.")

	tally := chart.TallyFrom(vulns)
	counts := tally.Counts()
	d.bodyLine(fmt.Sprintf(
		"As a result, %d findings were detected, classified as: %d critical, %d high, %d medium, %d low, %d informative.",
		len(vulns), counts[0], counts[1], counts[2], counts[3], counts[4]))
	d.pdf.Ln(10)
	d.donut(tally)

	d.pdf.AddPage()
	d.heading("4. Scope")
	d.bodyLine("Assessment category:")
	d.pdf.Ln(1)
	d.bodyLine("- " + scopeLabel(vulns))
	d.pdf.Ln(4)

	d.heading("5. Methodology")
	d.paragraphs(
		"During the tests, hundreds of scenarios were covered to find or provoke vulnerabilities, while collecting as much information as possible about the target in order to analyze the risks this information could pose to the business.",
		"The engagement followed the main industry guides and standards, including NIST, CWE, OWASP Top 10, PTES and OSSTMM.")

	d.pdf.AddPage()
	d.heading("6. Risk Classification")
	d.paragraphs(
		"A simplified risk categorization model was adopted for each identified vulnerability, prioritizing triage of the issues with the greatest impact.",
		"For reference, the Common Vulnerability Scoring System (CVSS) is used, a widely accepted industry standard that assigns scores from 0.0 to 10.0 according to the seriousness of the flaw.",
		"CVSS is not applicable to every type of risk. For that reason, the reader may find vulnerabilities without a CVSS classification in our reports.")
	d.pdf.AddPage()
}

func scopeLabel(vulns []models.Vulnerability) string {
	for _, v := range vulns {
		if v.TestType != "" {
			return v.TestType
		}
	}
	return "Penetration Test"
}
