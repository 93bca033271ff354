package models

import "gorm.io/gorm"

type Company struct {
	gorm.Model
	Name         string `gorm:"size:100;uniqueIndex;not null"`
	Description  string `gorm:"type:text"`
	ContactEmail string `gorm:"size:120"`
	ContactPhone string `gorm:"size:20"`
	Address      string `gorm:"type:text"`

	Users           []User
	Vulnerabilities []Vulnerability
}
