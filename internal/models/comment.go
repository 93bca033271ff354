package models

import "time"

type Comment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	VulnerabilityID uint `gorm:"index;not null"`
	UserID          uint `gorm:"not null"`

	Body string `gorm:"type:text;not null"`

	User User
}

type CommentLike struct {
	ID uint `gorm:"primaryKey"`

	CommentID uint `gorm:"index;not null"`
	UserID    uint `gorm:"index;not null"`
}
