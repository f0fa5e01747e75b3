package models

import (
	"time"

	"gorm.io/gorm"
)

// CaseStatus is the lifecycle state of a case
type CaseStatus string

// Case status constants
const (
	CaseStatusPending       CaseStatus = "Pending"
	CaseStatusOpen          CaseStatus = "Open"
	CaseStatusInvestigating CaseStatus = "Investigating"
	CaseStatusClosed        CaseStatus = "Closed"
	CaseStatusResolved      CaseStatus = "Resolved"
)

// CaseStatuses lists every declared status in lifecycle order
var CaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusOpen,
	CaseStatusInvestigating,
	CaseStatusClosed,
	CaseStatusResolved,
}

const (
	// UnassignedOfficerID is the sentinel owner for cases whose officer was removed
	UnassignedOfficerID = "Unassigned"
	// DefaultSeverity is applied when a case is created without one
	DefaultSeverity = "Normal"
)

// Case represents a police case and owns its comments and documents
type Case struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"caseId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Case identification
	CaseNumber  string  `gorm:"not null;uniqueIndex" json:"caseNumber"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Category    *string `json:"category,omitempty"`
	Severity    string  `gorm:"not null;default:Normal" json:"severity"`

	// Lifecycle
	Status     CaseStatus `gorm:"type:varchar(32);not null;default:Pending;index" json:"status"`
	IsApproved bool       `gorm:"not null;default:false" json:"isApproved"`
	IsClosed   bool       `gorm:"not null;default:false" json:"isClosed"`
	IsArchived bool       `gorm:"not null;default:false" json:"isArchived"`

	// Assignment
	AssignedOfficerID string  `gorm:"not null;index" json:"assignedOfficerId"`
	PreviousOfficerID *string `json:"previousOfficerId,omitempty"`
	CreatedBy         uint    `gorm:"index" json:"createdBy"`

	// Temporal
	ReportedAt time.Time  `gorm:"not null" json:"reportedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	EvidenceFiles *string `gorm:"type:text" json:"evidenceFiles,omitempty"`

	// Relationships
	Comments  []CaseComment  `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"comments"`
	Documents []CaseDocument `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"documents"`
}

// BeforeCreate hook to set ReportedAt and default fields
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ReportedAt.IsZero() {
		c.ReportedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = CaseStatusPending
	}
	if c.Severity == "" {
		c.Severity = DefaultSeverity
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsAssignedTo checks whether the officer currently owns the case
func (c *Case) IsAssignedTo(policeID string) bool {
	return c.AssignedOfficerID == policeID
}

// IsUnassigned checks if the case lost its officer
func (c *Case) IsUnassigned() bool {
	return c.AssignedOfficerID == UnassignedOfficerID
}

// IsValidCaseStatus checks if the status is one of the declared values
func IsValidCaseStatus(status CaseStatus) bool {
	for _, s := range CaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the investigation
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClosed || s == CaseStatusResolved
}
