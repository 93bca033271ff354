package models

import "time"

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID uint
	User   User

	Entity   string `gorm:"size:50;not null"` // "vulnerability", "company", "user"
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "create", "update", "delete" and so on
	Details  string `gorm:"type:text"`
}
