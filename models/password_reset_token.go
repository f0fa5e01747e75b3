package models

import (
	"time"
)

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID    uint      `gorm:"not null;index" json:"userId"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"` // Don't expose token in JSON
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// IsExpired checks if the token has expired
func (p *PasswordResetToken) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// TableName specifies the table name for PasswordResetToken model
func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
