package chart

import (
	"strings"

	"vulnreport/internal/models"
)

// Tally is the five-bucket severity distribution used by the dashboard,
// the chart endpoints, and the PDF reports.
type Tally struct {
	Critical    int
	High        int
	Medium      int
	Low         int
	Informative int
}

// Labels in slice and legend order.
var Labels = [5]string{"Critical", "High", "Medium", "Low", "Informative"}

// Palette per bucket: red, orange, yellow, green, blue.
var Palette = [5]string{"#dc3545", "#fd7e14", "#ffc107", "#28a745", "#0d6efd"}

// PaletteRGB is Palette decoded for renderers that take components.
var PaletteRGB = [5][3]int{
	{220, 53, 69},
	{253, 126, 20},
	{255, 193, 7},
	{40, 167, 69},
	{13, 110, 253},
}

// BucketSeverity folds a raw severity value into one of the five canonical
// buckets. Matching is case-insensitive and tolerates the legacy
// "informativa"/"info" spellings. Unrecognized values are excluded from
// the tally (but stay in the underlying record set).
func BucketSeverity(raw string) (models.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return models.SeverityCritical, true
	case "high":
		return models.SeverityHigh, true
	case "medium":
		return models.SeverityMedium, true
	case "low":
		return models.SeverityLow, true
	case "informative", "informativa", "info":
		return models.SeverityInformative, true
	default:
		return "", false
	}
}

// Rank orders severities for listing: Critical first, unknown last.
func Rank(raw string) int {
	sev, ok := BucketSeverity(raw)
	if !ok {
		return 6
	}
	switch sev {
	case models.SeverityCritical:
		return 1
	case models.SeverityHigh:
		return 2
	case models.SeverityMedium:
		return 3
	case models.SeverityLow:
		return 4
	default:
		return 5
	}
}

// TallyFrom buckets a vulnerability list.
func TallyFrom(vulns []models.Vulnerability) Tally {
	var t Tally
	for _, v := range vulns {
		t.Add(string(v.Severity))
	}
	return t
}

// Add buckets one raw severity value into the tally.
func (t *Tally) Add(raw string) {
	sev, ok := BucketSeverity(raw)
	if !ok {
		return
	}
	switch sev {
	case models.SeverityCritical:
		t.Critical++
	case models.SeverityHigh:
		t.High++
	case models.SeverityMedium:
		t.Medium++
	case models.SeverityLow:
		t.Low++
	case models.SeverityInformative:
		t.Informative++
	}
}

// Counts returns the buckets in display order.
func (t Tally) Counts() [5]int {
	return [5]int{t.Critical, t.High, t.Medium, t.Low, t.Informative}
}

func (t Tally) Total() int {
	return t.Critical + t.High + t.Medium + t.Low + t.Informative
}
