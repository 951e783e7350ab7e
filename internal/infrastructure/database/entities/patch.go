package entities

import (
	"time"

	"gorm.io/datatypes"
)

// Patch represents a persisted patch record. The manifest is kept exactly as
// the analyzer printed it.
type Patch struct {
	UUID           string                      `gorm:"type:varchar(40);primaryKey"`
	Kind           string                      `gorm:"type:varchar(16);index;not null"`
	PrimaryFile    string                      `gorm:"type:varchar(255);not null"`
	AudioFiles     datatypes.JSONSlice[string] `gorm:"type:json"`
	Images         datatypes.JSONSlice[string] `gorm:"type:json"`
	ThumbnailImage string                      `gorm:"type:varchar(255)"`
	CoverImage     string                      `gorm:"type:varchar(255)"`
	Manifest       datatypes.JSON              `gorm:"type:json"`
	Title          string                      `gorm:"type:varchar(255);not null"`
	Author         string                      `gorm:"type:varchar(255)"`
	Mail           string                      `gorm:"type:varchar(255)"`
	AppVersion     string                      `gorm:"type:varchar(64)"`
	Tags           datatypes.JSONSlice[string] `gorm:"type:json"`
	Summary        string                      `gorm:"type:text"`
	Description    string                      `gorm:"type:text"`
	Status         string                      `gorm:"type:varchar(16);index;not null"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime"`
}

func (Patch) TableName() string {
	return "patches"
}
