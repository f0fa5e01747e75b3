package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"case_relay_go/db"
	"case_relay_go/middleware"
	"case_relay_go/models"
	"case_relay_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createCaseRequest struct {
	CaseNumber        string     `json:"caseNumber"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          *string    `json:"category"`
	Severity          string     `json:"severity"`
	Status            string     `json:"status"`
	AssignedOfficerID string     `json:"assignedOfficerId"`
	ReportedAt        *time.Time `json:"reportedAt"`
	EvidenceFiles     *string    `json:"evidenceFiles"`
}

type updateCaseRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	Severity      *string `json:"severity"`
	EvidenceFiles *string `json:"evidenceFiles"`
	IsClosed      *bool   `json:"isClosed"`
	IsArchived    *bool   `json:"isArchived"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	OfficerID string `json:"officerId"`
}

type handoverRequest struct {
	NewOfficerID string `json:"newOfficerId"`
}

type commentRequest struct {
	CommentText string `json:"commentText"`
}

func auditCase(c echo.Context, action models.AuditAction, kase *models.Case, description string, oldValues, newValues interface{}) {
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       action,
		ResourceType: "Case",
		ResourceID:   fmt.Sprint(kase.ID),
		ResourceName: kase.CaseNumber,
		Description:  description,
		OldValues:    oldValues,
		NewValues:    newValues,
	})
}

// GetAllCasesHandler lists every case
func GetAllCasesHandler(c echo.Context) error {
	cases, err := newCaseService().List(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to list cases")
	}
	return c.JSON(http.StatusOK, cases)
}

// GetMyCasesHandler lists the cases the caller created or is assigned to
func GetMyCasesHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	cases, err := newCaseService().ListForUser(c.Request().Context(), user.ID, user.PoliceID)
	if err != nil {
		return respondError(c, err, "Failed to list cases")
	}
	return c.JSON(http.StatusOK, cases)
}

// SearchCasesHandler matches ?keyword= against title and description
func SearchCasesHandler(c echo.Context) error {
	cases, err := newCaseService().Search(c.Request().Context(), c.QueryParam("keyword"))
	if err != nil {
		return respondError(c, err, "Failed to search cases")
	}
	return c.JSON(http.StatusOK, cases)
}

// CaseStatisticsHandler returns per-status counts
func CaseStatisticsHandler(c echo.Context) error {
	stats, err := newCaseService().Statistics(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to compute statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

// ExportCasesHandler downloads every case and the statistics as a workbook
func ExportCasesHandler(c echo.Context) error {
	ctx := c.Request().Context()
	svc := newCaseService()

	cases, err := svc.List(ctx)
	if err != nil {
		return respondError(c, err, "Failed to export cases")
	}
	stats, err := svc.Statistics(ctx)
	if err != nil {
		return respondError(c, err, "Failed to export cases")
	}

	buf, err := services.ExportCasesExcel(cases, stats)
	if err != nil {
		return respondError(c, err, "Failed to export cases")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       models.AuditActionExport,
		ResourceType: "Case",
		Description:  fmt.Sprintf("Exported %d cases", len(cases)),
	})

	filename := fmt.Sprintf("cases_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetCaseHandler returns the case aggregate
func GetCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	kase, err := newCaseService().Get(c.Request().Context(), caseID)
	if err != nil {
		return respondError(c, err, "Failed to load case")
	}
	return c.JSON(http.StatusOK, kase)
}

// GetCaseExtrasHandler returns comments, documents and the audit trail of a case
func GetCaseExtrasHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	kase, err := newCaseService().Get(c.Request().Context(), caseID)
	if err != nil {
		return respondError(c, err, "Failed to load case")
	}
	history, err := services.GetResourceAuditHistory(db.DB.WithContext(c.Request().Context()), "Case", fmt.Sprint(caseID))
	if err != nil {
		log.Printf("[WARNING] Failed to load audit history for case %d: %v", caseID, err)
		history = []models.AuditLog{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"comments":  kase.Comments,
		"documents": kase.Documents,
		"history":   history,
	})
}

// CaseReportHandler renders the case as a PDF
func CaseReportHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	kase, err := newCaseService().Get(c.Request().Context(), caseID)
	if err != nil {
		return respondError(c, err, "Failed to load case")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	pdf, err := services.GenerateCaseReportPDF(ctx, kase)
	if err != nil {
		return respondError(c, err, "Failed to generate report")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       models.AuditActionExport,
		ResourceType: "Case",
		ResourceID:   fmt.Sprint(kase.ID),
		ResourceName: kase.CaseNumber,
		Description:  "Case report generated",
	})

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", kase.CaseNumber+".pdf"))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// CreateCaseHandler opens a new case
func CreateCaseHandler(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	kase, events, err := newCaseService().Create(c.Request().Context(), services.CaseDraft{
		CaseNumber:        req.CaseNumber,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Severity:          req.Severity,
		Status:            models.CaseStatus(req.Status),
		AssignedOfficerID: req.AssignedOfficerID,
		ReportedAt:        req.ReportedAt,
		EvidenceFiles:     req.EvidenceFiles,
	}, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to create case")
	}
	dispatch(c, events)
	auditCase(c, models.AuditActionCreate, kase, "Case created", nil, kase)

	return respondData(c, http.StatusCreated, "Case created successfully", kase)
}

// UpdateCaseHandler edits descriptive fields
func UpdateCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	var req updateCaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	kase, err := newCaseService().Update(c.Request().Context(), caseID, services.CasePatch(req), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to update case")
	}
	auditCase(c, models.AuditActionUpdate, kase, "Case updated", nil, req)

	return respondData(c, http.StatusOK, "Case updated successfully", kase)
}

// DeleteCaseHandler removes the case and its stored documents
func DeleteCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}

	removed, err := newCaseService().Delete(c.Request().Context(), caseID, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to delete case")
	}

	if storage := getStorage(c); storage != nil {
		for _, doc := range removed.Documents {
			if doc.StorageKey == "" {
				continue
			}
			if err := storage.Delete(c.Request().Context(), doc.StorageKey); err != nil {
				log.Printf("[WARNING] Failed to delete stored document %s of case %d: %v", doc.StorageKey, caseID, err)
			}
		}
	}
	auditCase(c, models.AuditActionDelete, removed, "Case deleted", removed, nil)

	return respondMessage(c, http.StatusOK, "Case deleted successfully")
}

// ApproveCaseHandler marks a case approved. Admin only.
func ApproveCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}

	kase, events, err := newCaseService().Approve(c.Request().Context(), caseID, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to approve case")
	}
	dispatch(c, events)
	auditCase(c, models.AuditActionApprove, kase, "Case approved", nil, map[string]bool{"isApproved": true})

	return respondData(c, http.StatusOK, "Case approved successfully", kase)
}

// UpdateCaseStatusHandler moves a case to a declared status
func UpdateCaseStatusHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	kase, events, err := newCaseService().UpdateStatus(c.Request().Context(), caseID, models.CaseStatus(req.Status), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to update status")
	}
	dispatch(c, events)

	var oldValues interface{}
	for _, event := range events {
		if changed, ok := event.(services.CaseStatusChanged); ok {
			oldValues = map[string]string{"status": string(changed.From)}
		}
	}
	auditCase(c, models.AuditActionStatusChange, kase, "Status changed to "+string(kase.Status), oldValues, map[string]string{"status": string(kase.Status)})

	return respondData(c, http.StatusOK, "Case status updated successfully", kase)
}

// AssignCaseHandler assigns the case directly to an officer
func AssignCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.OfficerID) == "" {
		return badRequest(c, "Officer ID is required")
	}

	kase, events, err := newCaseService().AssignToOfficer(c.Request().Context(), caseID, strings.TrimSpace(req.OfficerID), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to assign case")
	}
	dispatch(c, events)
	auditCase(c, models.AuditActionAssign, kase, "Case assigned to "+kase.AssignedOfficerID, nil, map[string]string{"assignedOfficerId": kase.AssignedOfficerID})

	return respondData(c, http.StatusOK, "Case assigned successfully", kase)
}

// HandoverCaseHandler hands the case over to another officer
func HandoverCaseHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	var req handoverRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.NewOfficerID) == "" {
		return badRequest(c, "New officer ID is required")
	}

	kase, events, err := newCaseService().Handover(c.Request().Context(), caseID, strings.TrimSpace(req.NewOfficerID), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to hand over case")
	}
	dispatch(c, events)
	auditCase(c, models.AuditActionHandover, kase, "Case handed over", map[string]string{
		"assignedOfficerId": derefOr(kase.PreviousOfficerID, ""),
	}, map[string]string{
		"assignedOfficerId": kase.AssignedOfficerID,
	})

	return respondData(c, http.StatusOK, "Case handed over successfully", kase)
}

// AddCommentHandler appends a comment to the case
func AddCommentHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	kase, events, err := newCaseService().AddComment(c.Request().Context(), caseID, req.CommentText, middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to add comment")
	}
	dispatch(c, events)
	auditCase(c, models.AuditActionComment, kase, "Comment added", nil, nil)

	return respondData(c, http.StatusCreated, "Comment added successfully", kase)
}

// UploadDocumentHandler stores a multipart "file" against the case
func UploadDocumentHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded")
	}

	doc, events, err := newCaseService().UploadDocument(c.Request().Context(), caseID, file, getStorage(c), middleware.GetActor(c))
	if err != nil {
		return respondError(c, err, "Failed to upload document")
	}
	dispatch(c, events)

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEntry{
		Action:       models.AuditActionUpload,
		ResourceType: "Case",
		ResourceID:   fmt.Sprint(caseID),
		ResourceName: doc.FileName,
		Description:  "Document uploaded",
		NewValues:    doc,
	})

	return respondData(c, http.StatusCreated, "Document uploaded successfully", doc)
}

// DownloadDocumentHandler streams a stored document
func DownloadDocumentHandler(c echo.Context) error {
	caseID, ok := parseUintParam(c, "caseId")
	if !ok {
		return badRequest(c, "Invalid case ID")
	}
	documentID, ok := parseUintParam(c, "documentId")
	if !ok {
		return badRequest(c, "Invalid document ID")
	}

	doc, err := newCaseService().GetDocument(c.Request().Context(), caseID, documentID)
	if err != nil {
		return respondError(c, err, "Failed to load document")
	}
	storage := getStorage(c)
	if storage == nil || doc.StorageKey == "" {
		return respondMessage(c, http.StatusNotFound, "Document file is not available")
	}

	reader, contentType, err := storage.Get(c.Request().Context(), doc.StorageKey)
	if err != nil {
		log.Printf("[WARNING] Failed to read document %s: %v", doc.StorageKey, err)
		return respondMessage(c, http.StatusNotFound, "Document file is not available")
	}
	defer reader.Close()

	if doc.MimeType != "" {
		contentType = doc.MimeType
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.FileName))
	return c.Stream(http.StatusOK, contentType, reader)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
