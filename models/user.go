package models

import (
	"strings"
	"time"
)

// Role constants
const (
	RoleAdmin      = "Admin"
	RoleSupervisor = "Supervisor"
	RoleOfficer    = "Officer"
)

// User is a police officer account
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Identity and profile
	PoliceID        string  `gorm:"uniqueIndex;not null" json:"policeId"`
	FirstName       string  `gorm:"not null" json:"firstName"`
	LastName        string  `gorm:"not null" json:"lastName"`
	BadgeNumber     *string `json:"badgeNumber,omitempty"`
	Rank            *string `json:"rank,omitempty"`
	Department      *string `json:"department,omitempty"`
	Division        *string `json:"division,omitempty"`
	Precinct        *string `json:"precinct,omitempty"`
	Station         *string `json:"station,omitempty"`
	SpecialUnit     *string `json:"specialUnit,omitempty"`
	SupervisorID    *string `json:"supervisorId,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`

	// Contact
	Email       string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone       string  `json:"phone"`
	MobilePhone *string `json:"mobilePhone,omitempty"`
	WorkPhone   *string `json:"workPhone,omitempty"`

	// Credential and authorization
	PasscodeHash string  `gorm:"not null" json:"-"`
	Role         string  `gorm:"not null;default:Officer" json:"role"`
	Clearance    *string `json:"clearance,omitempty"`

	// Account security state
	IsActive             bool       `gorm:"not null;default:true" json:"isActive"`
	IsVerified           bool       `gorm:"not null;default:false" json:"isVerified"`
	FailedLoginAttempts  int        `gorm:"not null;default:0" json:"failedLoginAttempts"`
	LockoutEnd           *time.Time `json:"lockoutEnd,omitempty"`
	RequirePasswordReset bool       `gorm:"not null;default:false" json:"requirePasswordReset"`
	LastLogin            *time.Time `json:"lastLogin,omitempty"`
	LastPasswordChange   *time.Time `json:"lastPasswordChange,omitempty"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin checks the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLockedOut reports whether the account is inside an active lockout window
func (u *User) IsLockedOut(now time.Time) bool {
	return !u.IsActive && (u.LockoutEnd == nil || u.LockoutEnd.After(now))
}

// IsValidRole checks if the role is one of the declared roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleOfficer:
		return true
	}
	return false
}
