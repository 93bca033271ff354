package models

import (
	"time"

	"gorm.io/gorm"
)

type Severity string
type VulnStatus string

const (
	SeverityCritical    Severity = "Critical"
	SeverityHigh        Severity = "High"
	SeverityMedium      Severity = "Medium"
	SeverityLow         Severity = "Low"
	SeverityInformative Severity = "Informative"

	StatusOpen       VulnStatus = "Open"
	StatusInProgress VulnStatus = "In Progress"
	StatusClosed     VulnStatus = "Closed"
)

// Severities in dashboard/report display order.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformative,
}

type Vulnerability struct {
	gorm.Model
	CompanyID uint `gorm:"index;not null"`
	Company   Company

	// denormalized for report labels; rewritten on company rename
	CompanyName string `gorm:"size:100;index"`

	Title    string     `gorm:"size:200;not null"`
	Severity Severity   `gorm:"type:varchar(20);not null"`
	Status   VulnStatus `gorm:"type:varchar(20);not null;default:'Open'"`
	CVSS     *float64

	Description string `gorm:"type:text"`
	Impact      string `gorm:"type:text"`
	Likelihood  string `gorm:"type:text"`
	Remediation string `gorm:"type:text"`
	References  string `gorm:"type:text"`
	Comments    string `gorm:"type:text"`

	// freelance engagement context
	ClientName    string `gorm:"size:200"`
	ProjectName   string `gorm:"size:200"`
	TestType      string `gorm:"size:50"`
	TestDate      *time.Time
	TesterName    string `gorm:"size:100"`
	ClientContact string `gorm:"size:200"`
}

// VulnerabilityAccess is an explicit per-user grant on a single finding.
// Listings stay company-scoped; a grant only opens the detail view.
type VulnerabilityAccess struct {
	ID uint `gorm:"primaryKey"`

	VulnerabilityID uint `gorm:"index;not null"`
	UserID          uint `gorm:"index;not null"`

	Vulnerability Vulnerability
	User          User
}
