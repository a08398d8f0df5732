// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormRoom is the persisted room row. The whole Room document is stored
// as a jsonb blob; Code and Version are lifted into columns so the store
// can enforce code uniqueness and version-checked writes.
type GormRoom struct {
	gorm.Model
	RoomID  string `gorm:"uniqueIndex;not null"`
	Code    string `gorm:"uniqueIndex;size:8;not null"`
	Status  string `gorm:"index;not null"`
	Version int64  `gorm:"not null;default:1"`
	Data    []byte `gorm:"type:jsonb;not null"`
}

// GormArtwork stores one final composite per canvas slot of a finished game.
type GormArtwork struct {
	gorm.Model
	RoomID   string `gorm:"index;not null"`
	RoomCode string `gorm:"index;size:8;not null"`
	Slot     int    `gorm:"not null"`
	Image    string `gorm:"type:text;not null"`
	Players  []byte `gorm:"type:jsonb"`
}
