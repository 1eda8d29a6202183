package models

import "gorm.io/gorm"

// GameSession is a snapshot container for in-progress play state, separate
// from the adventure's story state.
type GameSession struct {
	gorm.Model
	AdventureID uint     `gorm:"not null;index"`
	State       StateMap `gorm:"serializer:json"`
}
