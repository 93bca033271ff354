package models

import "gorm.io/gorm"

// AIConfig enables the AI advisor for one company and stores its API key.
type AIConfig struct {
	gorm.Model
	CompanyID uint `gorm:"uniqueIndex;not null"`

	APIKey    string `gorm:"size:500"`
	AIEnabled bool   `gorm:"default:false"`

	AutoSuggestSeverity    bool `gorm:"default:true"`
	AutoSuggestCVSS        bool `gorm:"default:true"`
	AutoSuggestRemediation bool `gorm:"default:true"`
	AutoDetectSimilar      bool `gorm:"default:true"`
	AutoGenerateSummary    bool `gorm:"default:true"`
}
