package entities

import "time"

// ActionToken is the persisted form of a submission token. Only the secret
// digest is stored.
type ActionToken struct {
	ID         string    `gorm:"type:varchar(40);primaryKey"`
	SecretHash string    `gorm:"type:char(64);not null"`
	Enabled    bool      `gorm:"not null;default:false"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ActionToken) TableName() string {
	return "action_tokens"
}
