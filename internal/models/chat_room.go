package models

import "gorm.io/gorm"

// ChatRoom is the message container scoped one-to-one with an Adventure.
type ChatRoom struct {
	gorm.Model
	AdventureID uint `gorm:"not null;uniqueIndex"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE;"`
}
