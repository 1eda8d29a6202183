package models

import "gorm.io/gorm"

// Adventure is a shared story owned by one game master and joinable by players.
type Adventure struct {
	gorm.Model
	Title        string `gorm:"size:120;not null"`
	GameMasterID uint   `gorm:"not null;index"`

	// StoryState is replaced wholesale on every update; StoryVersion increments
	// with each replace so concurrent writers serialize instead of losing writes.
	StoryState   StateMap `gorm:"serializer:json"`
	StoryVersion uint     `gorm:"not null;default:0"`

	GameMaster User    `gorm:"foreignKey:GameMasterID"`
	Players    []*User `gorm:"many2many:adventure_players;"`

	ChatRoom *ChatRoom     `gorm:"constraint:OnDelete:CASCADE;"`
	Sessions []GameSession `gorm:"constraint:OnDelete:CASCADE;"`
}
