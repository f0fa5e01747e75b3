package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CaseDocument records metadata for a file uploaded against a case
type CaseDocument struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"documentId"`
	CaseID uint `gorm:"not null;index" json:"caseId"`

	// File metadata
	FileName   string `gorm:"not null" json:"fileName"`
	FileURL    string `gorm:"not null" json:"fileUrl"`
	StorageKey string `json:"-"` // Not exposed in JSON
	FileSize   int64  `json:"fileSize,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`

	// Upload tracking
	UploadedBy string    `gorm:"not null" json:"uploadedBy"`
	UploadedAt time.Time `gorm:"not null" json:"uploadedAt"`
}

// BeforeCreate hook to stamp the upload time
func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	return nil
}

func (CaseDocument) TableName() string {
	return "case_documents"
}

// GetDownloadURL returns the API path for this document
func (d *CaseDocument) GetDownloadURL() string {
	return fmt.Sprintf("/api/cases/%d/documents/%d", d.CaseID, d.ID)
}
