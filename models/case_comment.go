package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemAuthorID marks comments written by the service itself
const SystemAuthorID = "system"

// CaseComment is an append-only note on a case
type CaseComment struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"commentId"`
	CaseID      uint      `gorm:"not null;index" json:"caseId"`
	CommentText string    `gorm:"type:text;not null" json:"commentText"`
	AuthorID    string    `gorm:"not null" json:"authorId"`
	IsSystem    bool      `gorm:"not null;default:false" json:"isSystem"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

func (c *CaseComment) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate keeps comments append-only
func (c *CaseComment) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

func (CaseComment) TableName() string {
	return "case_comments"
}
