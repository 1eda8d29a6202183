package models

import "gorm.io/gorm"

// User represents a registered player or game master.
type User struct {
	gorm.Model
	Username     string `gorm:"size:80;unique;not null"`
	Email        string `gorm:"size:120;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`

	// Adventures owned as game master.
	Adventures []Adventure `gorm:"foreignKey:GameMasterID"`
}
