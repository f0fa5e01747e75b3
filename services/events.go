package services

import (
	"time"

	"case_relay_go/models"
)

// Event is a side effect recorded by a mutating operation. Events are
// returned to the caller and dispatched only after the write commits.
type Event interface {
	EventName() string
}

// AssignmentKind distinguishes an administrative assignment from a handover
type AssignmentKind string

const (
	AssignmentDirect   AssignmentKind = "direct"
	AssignmentHandover AssignmentKind = "handover"
)

// AssignmentChange describes a change of case ownership
type AssignmentChange struct {
	Kind       AssignmentKind
	CaseID     uint
	CaseNumber string
	From       string
	To         string
	Actor      Actor
}

type CaseCreated struct {
	CaseID            uint
	CaseNumber        string
	Title             string
	AssignedOfficerID string
	AutoApproved      bool
	Actor             Actor
}

type CaseApproved struct {
	CaseID            uint
	CaseNumber        string
	AssignedOfficerID string
	CreatedBy         uint
	Actor             Actor
}

type CaseStatusChanged struct {
	CaseID            uint
	CaseNumber        string
	From              models.CaseStatus
	To                models.CaseStatus
	AssignedOfficerID string
	CreatedBy         uint
	Actor             Actor
}

type CaseAssigned struct {
	Change AssignmentChange
}

type CaseHandedOver struct {
	Change    AssignmentChange
	CommentID uint
}

type CommentAdded struct {
	CaseID            uint
	CaseNumber        string
	CommentID         uint
	AssignedOfficerID string
	Actor             Actor
}

type DocumentAdded struct {
	CaseID            uint
	CaseNumber        string
	DocumentID        uint
	FileName          string
	AssignedOfficerID string
	Actor             Actor
}

type UserRegistered struct {
	UserID            uint
	Email             string
	FirstName         string
	PoliceID          string
	TemporaryPasscode string
}

type UserProfileUpdated struct {
	UserID uint
	Actor  Actor
}

type UserRoleChanged struct {
	UserID uint
	Role   string
	Actor  Actor
}

type UserDeleted struct {
	PoliceID        string
	Email           string
	FirstName       string
	ReassignedCases []uint
	Actor           Actor
}

type AccountLocked struct {
	Email          string
	FirstName      string
	LockoutMinutes int
}

type AccountUnlocked struct {
	Email     string
	FirstName string
}

type PasscodeChanged struct {
	Email     string
	FirstName string
}

type PasswordResetRequested struct {
	Email     string
	FirstName string
	ResetLink string
	ExpiresAt time.Time
}

func (CaseCreated) EventName() string            { return "case.created" }
func (CaseApproved) EventName() string           { return "case.approved" }
func (CaseStatusChanged) EventName() string      { return "case.status_changed" }
func (CaseAssigned) EventName() string           { return "case.assigned" }
func (CaseHandedOver) EventName() string         { return "case.handed_over" }
func (CommentAdded) EventName() string           { return "case.comment_added" }
func (DocumentAdded) EventName() string          { return "case.document_added" }
func (UserRegistered) EventName() string         { return "user.registered" }
func (UserProfileUpdated) EventName() string     { return "user.profile_updated" }
func (UserRoleChanged) EventName() string        { return "user.role_changed" }
func (UserDeleted) EventName() string            { return "user.deleted" }
func (AccountLocked) EventName() string          { return "account.locked" }
func (AccountUnlocked) EventName() string        { return "account.unlocked" }
func (PasscodeChanged) EventName() string        { return "account.passcode_changed" }
func (PasswordResetRequested) EventName() string { return "account.password_reset_requested" }
