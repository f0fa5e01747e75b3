package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"case_relay_go/db"
	"case_relay_go/metrics"
	"case_relay_go/models"

	"gorm.io/gorm"
)

// CaseDraft holds the fields accepted when a case is opened
type CaseDraft struct {
	CaseNumber        string
	Title             string
	Description       string
	Category          *string
	Severity          string
	Status            models.CaseStatus
	AssignedOfficerID string
	ReportedAt        *time.Time
	EvidenceFiles     *string
}

// CasePatch carries descriptive edits. Nil fields are left unchanged.
type CasePatch struct {
	Title         *string
	Description   *string
	Category      *string
	Severity      *string
	EvidenceFiles *string
	IsClosed      *bool
	IsArchived    *bool
}

// DocumentInput is the metadata recorded for an uploaded file
type DocumentInput struct {
	FileName   string
	FileURL    string
	StorageKey string
	FileSize   int64
	MimeType   string
}

// CaseStatistics counts cases per declared status. Rows holding any other
// status are counted in Unrecognized so the buckets always add up to Total.
type CaseStatistics struct {
	Total        int64                       `json:"totalCases"`
	ByStatus     map[models.CaseStatus]int64 `json:"byStatus"`
	Unrecognized int64                       `json:"unrecognizedStatus"`
	Approved     int64                       `json:"approvedCases"`
	Archived     int64                       `json:"archivedCases"`
}

// CaseService applies lifecycle transitions to cases
type CaseService struct {
	DB       *gorm.DB
	Officers OfficerDirectory
}

func NewCaseService(db *gorm.DB, officers OfficerDirectory) *CaseService {
	return &CaseService{DB: db, Officers: officers}
}

// HandoverCommentText is the audit line appended on every handover
func HandoverCommentText(from, to string) string {
	return fmt.Sprintf("Case handed over from officer %s to officer %s", from, to)
}

// GenerateCaseNumber builds the next case number for the current year
// Format: CR-{YEAR}-{SEQUENCE}
// Example: CR-2026-00042
// The sequence follows the highest numeric suffix, not string order.
func GenerateCaseNumber(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("CR-%d-", year)

	var highest int
	err := tx.Model(&models.Case{}).
		Select("COALESCE(MAX(CAST(SUBSTR(case_number, ?) AS INTEGER)), 0)", len(prefix)+1).
		Where("case_number LIKE ?", prefix+"%").
		Scan(&highest).Error
	if err != nil {
		return "", fmt.Errorf("failed to query last case number: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, highest+1), nil
}

// Create opens a new case. Admin creators get the case approved immediately.
func (s *CaseService) Create(ctx context.Context, draft CaseDraft, actor Actor) (*models.Case, []Event, error) {
	title := strings.TrimSpace(draft.Title)
	description := strings.TrimSpace(draft.Description)
	if title == "" {
		return nil, nil, validationFailure("Title is required")
	}
	if description == "" {
		return nil, nil, validationFailure("Description is required")
	}

	status := draft.Status
	if status == "" {
		status = models.CaseStatusPending
	}
	if !models.IsValidCaseStatus(status) {
		return nil, nil, invalidTransition("Invalid status: %s", status)
	}

	assigned := strings.TrimSpace(draft.AssignedOfficerID)
	if assigned == "" {
		assigned = actor.PoliceID
	}
	if assigned == "" {
		return nil, nil, validationFailure("Assigned officer is required")
	}

	newCase := models.Case{
		CaseNumber:        strings.TrimSpace(draft.CaseNumber),
		Title:             title,
		Description:       description,
		Category:          draft.Category,
		Severity:          strings.TrimSpace(draft.Severity),
		Status:            status,
		IsApproved:        actor.IsAdmin(),
		AssignedOfficerID: assigned,
		CreatedBy:         actor.UserID,
		EvidenceFiles:     draft.EvidenceFiles,
	}
	if draft.ReportedAt != nil {
		newCase.ReportedAt = draft.ReportedAt.UTC()
	}

	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		if draft.AssignedOfficerID != "" {
			officer, err := directoryFor(s.Officers, tx).FindByPoliceID(ctx, assigned)
			if err != nil {
				return persistenceFailure(err, "Failed to resolve officer")
			}
			if officer == nil {
				return notFound("Officer %s not found", assigned)
			}
		}
		if newCase.CaseNumber != "" {
			var taken int64
			if err := tx.Model(&models.Case{}).Where("case_number = ?", newCase.CaseNumber).Count(&taken).Error; err != nil {
				return persistenceFailure(err, "Failed to check case number")
			}
			if taken > 0 {
				return validationFailure("Case number %s already exists", newCase.CaseNumber)
			}
		} else {
			number, err := GenerateCaseNumber(tx)
			if err != nil {
				return persistenceFailure(err, "Failed to generate case number")
			}
			newCase.CaseNumber = number
		}
		if err := tx.Create(&newCase).Error; err != nil {
			return persistenceFailure(err, "Failed to create case")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("create").Inc()
	events := []Event{CaseCreated{
		CaseID:            newCase.ID,
		CaseNumber:        newCase.CaseNumber,
		Title:             newCase.Title,
		AssignedOfficerID: newCase.AssignedOfficerID,
		AutoApproved:      newCase.IsApproved,
		Actor:             actor,
	}}
	return &newCase, events, nil
}

// Get loads the case aggregate with comments in creation order
func (s *CaseService) Get(ctx context.Context, caseID uint) (*models.Case, error) {
	return loadAggregate(s.DB.WithContext(ctx), caseID)
}

func loadAggregate(conn *gorm.DB, caseID uint) (*models.Case, error) {
	var c models.Case
	err := conn.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC, id ASC")
		}).
		First(&c, caseID).Error
	if err != nil {
		return nil, caseLookupError(err, caseID)
	}
	return &c, nil
}

func caseLookupError(err error, caseID uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Case %d not found", caseID)
	}
	return persistenceFailure(err, "Failed to load case %d", caseID)
}

// List returns every case, newest first
func (s *CaseService) List(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	if err := s.DB.WithContext(ctx).Order("reported_at DESC, id DESC").Find(&cases).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to list cases")
	}
	return cases, nil
}

// ListForUser returns cases created by or assigned to the user
func (s *CaseService) ListForUser(ctx context.Context, userID uint, policeID string) ([]models.Case, error) {
	var cases []models.Case
	err := s.DB.WithContext(ctx).
		Where("created_by = ? OR assigned_officer_id = ?", userID, policeID).
		Order("reported_at DESC, id DESC").
		Find(&cases).Error
	if err != nil {
		return nil, persistenceFailure(err, "Failed to list cases for user")
	}
	return cases, nil
}

// Update edits descriptive fields. Status and assignment have their own operations.
func (s *CaseService) Update(ctx context.Context, caseID uint, patch CasePatch, actor Actor) (*models.Case, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationFailure("Title cannot be empty")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return nil, validationFailure("Description cannot be empty")
		}
		updates["description"] = description
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Severity != nil {
		updates["severity"] = strings.TrimSpace(*patch.Severity)
	}
	if patch.EvidenceFiles != nil {
		updates["evidence_files"] = *patch.EvidenceFiles
	}
	if patch.IsClosed != nil {
		updates["is_closed"] = *patch.IsClosed
	}
	if patch.IsArchived != nil {
		updates["is_archived"] = *patch.IsArchived
	}

	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		var c models.Case
		if err := tx.First(&c, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&c).Updates(updates).Error; err != nil {
			return persistenceFailure(err, "Failed to update case")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Case %d updated by %s", caseID, actor.PoliceID)
	return s.Get(ctx, caseID)
}

// Delete removes the case with its comments and documents. The removed
// aggregate is returned so stored files can be cleaned up by the caller.
func (s *CaseService) Delete(ctx context.Context, caseID uint, actor Actor) (*models.Case, error) {
	var removed *models.Case
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		c, err := loadAggregate(tx, caseID)
		if err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", caseID).Delete(&models.CaseComment{}).Error; err != nil {
			return persistenceFailure(err, "Failed to delete case comments")
		}
		if err := tx.Where("case_id = ?", caseID).Delete(&models.CaseDocument{}).Error; err != nil {
			return persistenceFailure(err, "Failed to delete case documents")
		}
		if err := tx.Delete(&models.Case{}, caseID).Error; err != nil {
			return persistenceFailure(err, "Failed to delete case")
		}
		removed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CaseTransitions.WithLabelValues("delete").Inc()
	log.Printf("Case %d deleted by %s", caseID, actor.PoliceID)
	return removed, nil
}

// Approve marks the case approved. There is no reverse operation.
func (s *CaseService) Approve(ctx context.Context, caseID uint, actor Actor) (*models.Case, []Event, error) {
	var c models.Case
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&c, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}
		if err := tx.Model(&c).Update("is_approved", true).Error; err != nil {
			return persistenceFailure(err, "Failed to approve case")
		}
		c.IsApproved = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("approve").Inc()
	events := []Event{CaseApproved{
		CaseID:            c.ID,
		CaseNumber:        c.CaseNumber,
		AssignedOfficerID: c.AssignedOfficerID,
		CreatedBy:         c.CreatedBy,
		Actor:             actor,
	}}
	return &c, events, nil
}

// UpdateStatus overwrites the status with any declared value. No transition
// graph is enforced and IsClosed stays independent of the status.
func (s *CaseService) UpdateStatus(ctx context.Context, caseID uint, status models.CaseStatus, actor Actor) (*models.Case, []Event, error) {
	var (
		c    models.Case
		from models.CaseStatus
	)
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&c, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}
		if !models.IsValidCaseStatus(status) {
			return invalidTransition("Invalid status: %s", status)
		}
		from = c.Status

		updates := map[string]interface{}{"status": status}
		if status.IsTerminal() && c.ResolvedAt == nil {
			now := time.Now().UTC()
			updates["resolved_at"] = now
			c.ResolvedAt = &now
		}
		if err := tx.Model(&c).Updates(updates).Error; err != nil {
			return persistenceFailure(err, "Failed to update case status")
		}
		c.Status = status
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("status").Inc()
	events := []Event{CaseStatusChanged{
		CaseID:            c.ID,
		CaseNumber:        c.CaseNumber,
		From:              from,
		To:                status,
		AssignedOfficerID: c.AssignedOfficerID,
		CreatedBy:         c.CreatedBy,
		Actor:             actor,
	}}
	return &c, events, nil
}

// AssignToOfficer overwrites the owner directly. It records no provenance
// and appends no comment.
func (s *CaseService) AssignToOfficer(ctx context.Context, caseID uint, officerID string, actor Actor) (*models.Case, []Event, error) {
	change, err := s.changeAssignment(ctx, caseID, officerID, AssignmentDirect, actor)
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("assign").Inc()
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	return c, []Event{CaseAssigned{Change: change.AssignmentChange}}, nil
}

// Handover transfers ownership to another officer, recording the previous
// officer and one system comment in the same transaction.
func (s *CaseService) Handover(ctx context.Context, caseID uint, newOfficerID string, actor Actor) (*models.Case, []Event, error) {
	change, err := s.changeAssignment(ctx, caseID, newOfficerID, AssignmentHandover, actor)
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("handover").Inc()
	c, err := s.Get(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	return c, []Event{CaseHandedOver{Change: change.AssignmentChange, CommentID: change.commentID}}, nil
}

type appliedAssignment struct {
	AssignmentChange
	commentID uint
}

func (s *CaseService) changeAssignment(ctx context.Context, caseID uint, officerID string, kind AssignmentKind, actor Actor) (*appliedAssignment, error) {
	var applied appliedAssignment
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		var c models.Case
		if err := tx.First(&c, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}

		officer, err := directoryFor(s.Officers, tx).FindByPoliceID(ctx, strings.TrimSpace(officerID))
		if err != nil {
			return persistenceFailure(err, "Failed to resolve officer")
		}
		if officer == nil || officer.PoliceID == "" {
			return notFound("Officer %s not found", officerID)
		}

		if kind == AssignmentHandover && c.IsAssignedTo(officer.PoliceID) {
			return invalidTransition("Case is already assigned to officer %s", officer.PoliceID)
		}

		applied.AssignmentChange = AssignmentChange{
			Kind:       kind,
			CaseID:     c.ID,
			CaseNumber: c.CaseNumber,
			From:       c.AssignedOfficerID,
			To:         officer.PoliceID,
			Actor:      actor,
		}
		comment, err := applyAssignment(tx, &c, applied.AssignmentChange)
		if err != nil {
			return err
		}
		if comment != nil {
			applied.commentID = comment.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &applied, nil
}

// applyAssignment writes the postcondition of each assignment kind
func applyAssignment(tx *gorm.DB, c *models.Case, change AssignmentChange) (*models.CaseComment, error) {
	switch change.Kind {
	case AssignmentDirect:
		if err := tx.Model(c).Update("assigned_officer_id", change.To).Error; err != nil {
			return nil, persistenceFailure(err, "Failed to assign case")
		}
		c.AssignedOfficerID = change.To
		return nil, nil

	case AssignmentHandover:
		previous := change.From
		err := tx.Model(c).Updates(map[string]interface{}{
			"previous_officer_id": previous,
			"assigned_officer_id": change.To,
		}).Error
		if err != nil {
			return nil, persistenceFailure(err, "Failed to hand over case")
		}
		c.PreviousOfficerID = &previous
		c.AssignedOfficerID = change.To

		comment := &models.CaseComment{
			CaseID:      c.ID,
			CommentText: HandoverCommentText(change.From, change.To),
			AuthorID:    models.SystemAuthorID,
			IsSystem:    true,
		}
		if err := tx.Create(comment).Error; err != nil {
			return nil, persistenceFailure(err, "Failed to record handover comment")
		}
		return comment, nil
	}
	return nil, fmt.Errorf("unknown assignment kind %q", change.Kind)
}

// AddComment appends a comment and returns the refreshed aggregate
func (s *CaseService) AddComment(ctx context.Context, caseID uint, text string, actor Actor) (*models.Case, []Event, error) {
	clean := SanitizePlainText(text)
	if clean == "" {
		return nil, nil, validationFailure("Comment text is required")
	}

	var (
		c       *models.Case
		comment models.CaseComment
	)
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		var existing models.Case
		if err := tx.First(&existing, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}
		comment = models.CaseComment{
			CaseID:      caseID,
			CommentText: clean,
			AuthorID:    actor.PoliceID,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return persistenceFailure(err, "Failed to add comment")
		}
		loaded, err := loadAggregate(tx, caseID)
		if err != nil {
			return err
		}
		c = loaded
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("comment").Inc()
	events := []Event{CommentAdded{
		CaseID:            c.ID,
		CaseNumber:        c.CaseNumber,
		CommentID:         comment.ID,
		AssignedOfficerID: c.AssignedOfficerID,
		Actor:             actor,
	}}
	return c, events, nil
}

// AddDocument records metadata for a file that was already stored
func (s *CaseService) AddDocument(ctx context.Context, caseID uint, input DocumentInput, actor Actor) (*models.CaseDocument, []Event, error) {
	if strings.TrimSpace(input.FileName) == "" || strings.TrimSpace(input.FileURL) == "" {
		return nil, nil, validationFailure("File name and URL are required")
	}

	var (
		c   models.Case
		doc models.CaseDocument
	)
	err := db.WithTransaction(s.DB.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.First(&c, caseID).Error; err != nil {
			return caseLookupError(err, caseID)
		}
		doc = models.CaseDocument{
			CaseID:     caseID,
			FileName:   input.FileName,
			FileURL:    input.FileURL,
			StorageKey: input.StorageKey,
			FileSize:   input.FileSize,
			MimeType:   input.MimeType,
			UploadedBy: actor.PoliceID,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return persistenceFailure(err, "Failed to record document")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.CaseTransitions.WithLabelValues("document").Inc()
	events := []Event{DocumentAdded{
		CaseID:            c.ID,
		CaseNumber:        c.CaseNumber,
		DocumentID:        doc.ID,
		FileName:          doc.FileName,
		AssignedOfficerID: c.AssignedOfficerID,
		Actor:             actor,
	}}
	return &doc, events, nil
}

// UploadDocument stores the file first and then records its metadata. A
// metadata failure leaves the stored blob in place.
func (s *CaseService) UploadDocument(ctx context.Context, caseID uint, file *multipart.FileHeader, storage StorageProvider, actor Actor) (*models.CaseDocument, []Event, error) {
	if storage == nil {
		return nil, nil, newServiceError(ErrUpload, nil, "Document storage is not configured")
	}
	if err := ValidateDocumentUpload(file); err != nil {
		return nil, nil, newServiceError(ErrValidation, err, "%s", err.Error())
	}

	var exists int64
	if err := s.DB.WithContext(ctx).Model(&models.Case{}).Where("id = ?", caseID).Count(&exists).Error; err != nil {
		return nil, nil, persistenceFailure(err, "Failed to load case %d", caseID)
	}
	if exists == 0 {
		return nil, nil, notFound("Case %d not found", caseID)
	}

	src, err := file.Open()
	if err != nil {
		return nil, nil, newServiceError(ErrUpload, err, "Failed to read uploaded file")
	}
	defer src.Close()

	key := GenerateStorageKey(caseID, file.Filename)
	result, err := storage.Upload(ctx, src, key, file.Header.Get("Content-Type"), file.Size)
	if err != nil {
		return nil, nil, newServiceError(ErrUpload, err, "Failed to upload file")
	}

	doc, events, err := s.AddDocument(ctx, caseID, DocumentInput{
		FileName:   file.Filename,
		FileURL:    result.URL,
		StorageKey: result.Key,
		FileSize:   result.Size,
		MimeType:   file.Header.Get("Content-Type"),
	}, actor)
	if err != nil {
		log.Printf("[WARNING] Document metadata for case %d failed after upload, blob %s left in storage: %v", caseID, result.Key, err)
		return nil, nil, err
	}
	return doc, events, nil
}

// GetDocument loads one document that belongs to the case
func (s *CaseService) GetDocument(ctx context.Context, caseID, documentID uint) (*models.CaseDocument, error) {
	var doc models.CaseDocument
	err := s.DB.WithContext(ctx).Where("id = ? AND case_id = ?", documentID, caseID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Document %d not found on case %d", documentID, caseID)
	}
	if err != nil {
		return nil, persistenceFailure(err, "Failed to load document %d", documentID)
	}
	return &doc, nil
}

// likeEscaper makes LIKE wildcards in a keyword match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches the keyword against title and description
func (s *CaseService) Search(ctx context.Context, keyword string) ([]models.Case, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, validationFailure("Keyword is required")
	}
	pattern := "%" + likeEscaper.Replace(keyword) + "%"

	var cases []models.Case
	err := s.DB.WithContext(ctx).
		Where(`title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("reported_at DESC, id DESC").
		Find(&cases).Error
	if err != nil {
		return nil, persistenceFailure(err, "Failed to search cases")
	}
	return cases, nil
}

// Statistics counts cases per status
func (s *CaseService) Statistics(ctx context.Context) (*CaseStatistics, error) {
	type statusCount struct {
		Status models.CaseStatus
		Count  int64
	}
	var rows []statusCount
	conn := s.DB.WithContext(ctx)
	if err := conn.Model(&models.Case{}).Select("status, count(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to compute statistics")
	}

	stats := &CaseStatistics{ByStatus: make(map[models.CaseStatus]int64, len(models.CaseStatuses))}
	for _, status := range models.CaseStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		if models.IsValidCaseStatus(row.Status) {
			stats.ByStatus[row.Status] += row.Count
		} else {
			stats.Unrecognized += row.Count
		}
	}

	if err := conn.Model(&models.Case{}).Where("is_approved = ?", true).Count(&stats.Approved).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to compute statistics")
	}
	if err := conn.Model(&models.Case{}).Where("is_archived = ?", true).Count(&stats.Archived).Error; err != nil {
		return nil, persistenceFailure(err, "Failed to compute statistics")
	}
	return stats, nil
}
