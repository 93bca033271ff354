package models

import "gorm.io/gorm"

type ReportTemplate string

const (
	TemplateClassic   ReportTemplate = "classic"
	TemplateExecutive ReportTemplate = "executive"
	TemplateTechnical ReportTemplate = "technical"
)

// ReportConfig holds per-company report branding, one row per company.
type ReportConfig struct {
	gorm.Model
	CompanyID uint `gorm:"uniqueIndex;not null"`

	TemplateName       ReportTemplate `gorm:"type:varchar(50);not null;default:'classic'"`
	CoverBackgroundURL string         `gorm:"size:500"`
	PageBackgroundURL  string         `gorm:"size:500"`
	HeaderLogoURL      string         `gorm:"size:500"`
	PrimaryColor       string         `gorm:"size:10;default:'#01317d'"`
	SecondaryColor     string         `gorm:"size:10;default:'#3b82f6'"`
	IncludeExecutive   bool           `gorm:"default:true"`
	IncludeTechnical   bool           `gorm:"default:true"`
}
