package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"gorm.io/gorm"
)

// AuditAction represents the type of operation performed
type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionApprove      AuditAction = "APPROVE"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionHandover     AuditAction = "HANDOVER"
	AuditActionComment      AuditAction = "COMMENT"
	AuditActionUpload       AuditAction = "UPLOAD"
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionExport       AuditAction = "EXPORT"
)

// AuditLog represents an immutable record of a data operation
type AuditLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"createdAt"`

	// Actor identification
	UserID   *uint  `gorm:"index:idx_audit_user" json:"userId,omitempty"`
	PoliceID string `json:"policeId"` // Denormalized for historical accuracy
	UserRole string `json:"userRole"`

	// Target resource
	ResourceType string `gorm:"not null;index:idx_audit_resource" json:"resourceType"` // e.g., "Case", "User"
	ResourceID   string `gorm:"not null;index:idx_audit_resource" json:"resourceId"`
	ResourceName string `json:"resourceName,omitempty"` // Human-readable identifier (e.g., case number)

	// Operation details
	Action      AuditAction `gorm:"not null;index:idx_audit_action" json:"action"`
	Description string      `gorm:"type:text" json:"description,omitempty"`

	// Change tracking (for UPDATE operations)
	OldValues string `gorm:"type:text" json:"oldValues,omitempty"` // JSON encoded
	NewValues string `gorm:"type:text" json:"newValues,omitempty"` // JSON encoded

	// Request metadata (optional)
	RequestID string `json:"requestId,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// AuditChange represents a single field change
type AuditChange struct {
	Field string
	Old   interface{}
	New   interface{}
}

// Changes parses OldValues and NewValues into a slice of AuditChange
func (a *AuditLog) Changes() []AuditChange {
	var changes []AuditChange
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})

	if a.OldValues != "" {
		_ = json.Unmarshal([]byte(a.OldValues), &oldMap)
	}
	if a.NewValues != "" {
		_ = json.Unmarshal([]byte(a.NewValues), &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	for k := range keys {
		o := oldMap[k]
		n := newMap[k]
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, AuditChange{Field: k, Old: o, New: n})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// BeforeUpdate prevents modification of audit logs (immutability)
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of audit logs (immutability)
func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
