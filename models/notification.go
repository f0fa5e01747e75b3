package models

import (
	"time"
)

// Notification types
const (
	NotificationTypeCase   = "case"
	NotificationTypeAdmin  = "admin"
	NotificationTypeSystem = "system"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"notificationId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	// Targeting
	UserID uint `gorm:"not null;index" json:"userId"`

	// Content
	Type    string `gorm:"not null" json:"type"`
	Title   string `gorm:"not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	// Context
	RelatedCaseID *uint   `gorm:"index" json:"relatedCaseId,omitempty"`
	ActionBy      *string `json:"actionBy,omitempty"`

	// Read tracking
	IsRead bool `gorm:"not null;default:false" json:"isRead"`
}

func (Notification) TableName() string {
	return "notifications"
}
