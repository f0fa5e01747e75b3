package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"case_relay_go/models"

	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID    uint
	PoliceID  string
	UserRole  string
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditContextFromActor fills the actor part of an audit context
func AuditContextFromActor(actor Actor) AuditContext {
	return AuditContext{UserID: actor.UserID, PoliceID: actor.PoliceID, UserRole: actor.Role}
}

// AuditEntry describes one audited operation
type AuditEntry struct {
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	ResourceName string
	Description  string
	OldValues    interface{}
	NewValues    interface{}
}

// RecordAuditEvent writes an audit log entry
func RecordAuditEvent(conn *gorm.DB, ctx AuditContext, entry AuditEntry) error {
	auditLog := models.AuditLog{
		PoliceID:     ctx.PoliceID,
		UserRole:     ctx.UserRole,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		ResourceName: entry.ResourceName,
		Action:       entry.Action,
		Description:  entry.Description,
		OldValues:    encodeAuditValues(entry.OldValues),
		NewValues:    encodeAuditValues(entry.NewValues),
		RequestID:    ctx.RequestID,
		IPAddress:    ctx.IPAddress,
		UserAgent:    ctx.UserAgent,
	}
	if ctx.UserID != 0 {
		userID := ctx.UserID
		auditLog.UserID = &userID
	}

	if err := conn.Create(&auditLog).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// LogAuditEvent records an audit entry without blocking the request
func LogAuditEvent(conn *gorm.DB, ctx AuditContext, entry AuditEntry) {
	go func() {
		if err := RecordAuditEvent(conn, ctx, entry); err != nil {
			log.Printf("[AUDIT] %v", err)
		}
	}()
}

func encodeAuditValues(values interface{}) string {
	if values == nil {
		return ""
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(conn *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := conn.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters narrows an audit log listing
type AuditLogFilters struct {
	PoliceID     string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
}

// GetAuditLogs retrieves paginated audit logs, newest first
func GetAuditLogs(conn *gorm.DB, filters AuditLogFilters, page, pageSize int) ([]models.AuditLog, int64, error) {
	query := conn.Model(&models.AuditLog{})
	if filters.PoliceID != "" {
		query = query.Where("police_id = ?", filters.PoliceID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
