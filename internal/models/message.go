package models

import "gorm.io/gorm"

// MaxMessageLength bounds the text of a single chat message.
const MaxMessageLength = 500

// Message is an immutable chat entry. Messages are totally ordered by
// (CreatedAt, ID); the identity sequence breaks timestamp ties.
type Message struct {
	gorm.Model
	ChatRoomID uint   `gorm:"not null;index"`
	SenderID   uint   `gorm:"not null"`
	Text       string `gorm:"size:500;not null"`

	Sender User `gorm:"foreignKey:SenderID"`
}
