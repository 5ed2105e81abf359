package incidents

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
	"github.com/incidentdesk/incidentdesk/internal/attachments"
	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/authz"
	"github.com/incidentdesk/incidentdesk/internal/models"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

// Engine owns the incident state machine and its transition rules. Every
// operation authorizes the principal before touching storage.
type Engine struct {
	db          *gorm.DB
	attachments *attachments.Manager
}

func NewEngine(db *gorm.DB, mgr *attachments.Manager) *Engine {
	return &Engine{db: db, attachments: mgr}
}

type CreateInput struct {
	Subject                  string
	DateOfIncident           string
	ProjectName              string
	SourceOfIncident         string
	MistakeCommitted         string
	PreliminaryInvestigation any // native bool or the literal string "true"
	DetailsAndFindings       string
	Suggestions              string
}

type AcknowledgeInput struct {
	InvestigationFindings string
	RootCause             string
	ActionTaken           string
	FurtherActionPlan     string
	Status                string // optional; must be a valid status when set
}

// DeleteResult reports how the cascade went. StorageFailures counts blobs
// that could not be removed; the rows are gone regardless.
type DeleteResult struct {
	StorageFailures int
}

// NormalizeBool maps a native boolean or the literal string "true" onto a
// boolean; anything else is false.
func NormalizeBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return value == "true"
	}
	return false
}

// Create files a new incident for a user-role principal. Status is always
// "open" on creation, never client-supplied. A per-file storage failure is
// logged and that file skipped; the incident itself survives.
func (e *Engine) Create(ctx context.Context, principal auth.Principal, input CreateInput, files []*multipart.FileHeader) (*models.Incident, []models.IncidentAttachment, error) {
	if err := authz.Authorize(principal, types.RoleUser); err != nil {
		return nil, nil, err
	}

	if err := validateRequired(input); err != nil {
		return nil, nil, err
	}

	if err := attachments.ValidateBatch(files); err != nil {
		return nil, nil, err
	}

	incident := models.Incident{
		UserID:                   principal.UserID,
		Subject:                  input.Subject,
		DateOfIncident:           input.DateOfIncident,
		ProjectName:              input.ProjectName,
		SourceOfIncident:         input.SourceOfIncident,
		MistakeCommitted:         input.MistakeCommitted,
		PreliminaryInvestigation: NormalizeBool(input.PreliminaryInvestigation),
		DetailsAndFindings:       input.DetailsAndFindings,
		Suggestions:              input.Suggestions,
		Status:                   types.StatusOpen,
	}

	if err := e.db.Create(&incident).Error; err != nil {
		log.Printf("Failed to create incident: %v", err)
		return nil, nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to create incident")
	}

	var stored []models.IncidentAttachment

	for _, file := range files {
		key, err := e.attachments.Store(ctx, incident.ID, file)

		if err != nil {
			log.Printf("Skipping attachment %s for incident %d: %v", file.Filename, incident.ID, err)
			continue
		}

		attachment := models.IncidentAttachment{
			IncidentID: incident.ID,
			FileURL:    key,
			FileType:   file.Header.Get("Content-Type"),
		}

		if err := e.db.Create(&attachment).Error; err != nil {
			log.Printf("Failed to record attachment %s for incident %d: %v", file.Filename, incident.ID, err)
			continue
		}

		stored = append(stored, attachment)
	}

	return &incident, stored, nil
}

// Acknowledge appends a response stamped with the reviewer's id and, when a
// status is supplied, updates the incident in the same transaction.
func (e *Engine) Acknowledge(ctx context.Context, principal auth.Principal, incidentID uint, input AcknowledgeInput) (*models.IncidentResponse, error) {
	if err := authz.Authorize(principal, types.RoleSuperuser, types.RoleAdmin); err != nil {
		return nil, err
	}

	if input.Status != "" && !types.ValidStatus(input.Status) {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "Invalid status %q", input.Status)
	}

	incident, err := e.fetch(incidentID)

	if err != nil {
		return nil, err
	}

	response := models.IncidentResponse{
		IncidentID:            incident.ID,
		InvestigationFindings: input.InvestigationFindings,
		RootCause:             input.RootCause,
		ActionTaken:           input.ActionTaken,
		FurtherActionPlan:     input.FurtherActionPlan,
		AcknowledgedBy:        principal.UserID,
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&response).Error; err != nil {
			return err
		}

		if input.Status != "" {
			if err := tx.Model(incident).Update("status", input.Status).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		log.Printf("Failed to acknowledge incident %d: %v", incidentID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to acknowledge incident")
	}

	return &response, nil
}

// SetStatus updates only the status and updated_at. No response row.
func (e *Engine) SetStatus(ctx context.Context, principal auth.Principal, incidentID uint, status string) (*models.Incident, error) {
	if err := authz.Authorize(principal, types.RoleSuperuser, types.RoleAdmin); err != nil {
		return nil, err
	}

	if !types.ValidStatus(status) {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "Invalid status %q", status)
	}

	incident, err := e.fetch(incidentID)

	if err != nil {
		return nil, err
	}

	if err := e.db.Model(incident).Update("status", status).Error; err != nil {
		log.Printf("Failed to update status for incident %d: %v", incidentID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to update incident status")
	}

	return incident, nil
}

// Delete removes blobs first, then the incident row with its attachment and
// response rows in one transaction. A failed blob removal is logged and
// counted but never blocks the row deletion.
func (e *Engine) Delete(ctx context.Context, principal auth.Principal, incidentID uint) (*DeleteResult, error) {
	if err := authz.Authorize(principal, types.RoleAdmin); err != nil {
		return nil, err
	}

	incident, err := e.fetch(incidentID)

	if err != nil {
		return nil, err
	}

	var records []models.IncidentAttachment

	if err := e.db.Where("incident_id = ?", incident.ID).Find(&records).Error; err != nil {
		log.Printf("Failed to list attachments for incident %d: %v", incident.ID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to delete incident")
	}

	result := &DeleteResult{}

	for _, record := range records {
		if err := e.attachments.Remove(ctx, record.FileURL); err != nil {
			log.Printf("Failed to remove blob %s for incident %d: %v", record.FileURL, incident.ID, err)
			result.StorageFailures++
		}
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("incident_id = ?", incident.ID).Delete(&models.IncidentAttachment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("incident_id = ?", incident.ID).Delete(&models.IncidentResponse{}).Error; err != nil {
			return err
		}

		return tx.Delete(incident).Error
	})

	if err != nil {
		log.Printf("Failed to delete incident %d: %v", incident.ID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to delete incident")
	}

	return result, nil
}

// List returns all incidents newest-first for privileged roles and only the
// principal's own incidents for user-role callers.
func (e *Engine) List(ctx context.Context, principal auth.Principal) ([]models.Incident, error) {
	query := e.db.Order("created_at DESC")

	if principal.Role == types.RoleUser {
		query = query.Where("user_id = ?", principal.UserID)
	}

	var incidents []models.Incident

	if err := query.Find(&incidents).Error; err != nil {
		log.Printf("Failed to list incidents: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to retrieve incidents")
	}

	return incidents, nil
}

// Get returns the full detail with owner summary, responses and attachments
// annotated with freshly signed URLs.
func (e *Engine) Get(ctx context.Context, principal auth.Principal, incidentID uint) (*types.IncidentDetail, error) {
	var incident models.Incident

	err := e.db.Preload("User").Preload("Attachments").Preload("Responses").
		First(&incident, incidentID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "Incident not found")
		}
		log.Printf("Failed to fetch incident %d: %v", incidentID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to retrieve incident")
	}

	if !authz.CanAccessRecord(principal, incident.UserID) {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "You do not have permission to view this incident")
	}

	detail := &types.IncidentDetail{
		IncidentSummary: Summarize(&incident),
		Owner: types.UserResponse{
			ID:         incident.User.ID,
			Username:   incident.User.Username,
			Role:       incident.User.Role,
			Department: incident.User.Department,
			IsActive:   incident.User.IsActive,
		},
		Attachments: make([]types.AttachmentResponse, 0, len(incident.Attachments)),
		Responses:   make([]types.ResponseSummary, 0, len(incident.Responses)),
	}

	for _, attachment := range incident.Attachments {
		entry := types.AttachmentResponse{
			ID:       attachment.ID,
			FileType: attachment.FileType,
		}

		signed, err := e.attachments.Sign(ctx, attachment.FileURL)

		if err != nil {
			log.Printf("Failed to sign URL for attachment %d: %v", attachment.ID, err)
		} else {
			entry.SignedURL = signed
		}

		detail.Attachments = append(detail.Attachments, entry)
	}

	for _, response := range incident.Responses {
		detail.Responses = append(detail.Responses, types.ResponseSummary{
			ID:                    response.ID,
			InvestigationFindings: response.InvestigationFindings,
			RootCause:             response.RootCause,
			ActionTaken:           response.ActionTaken,
			FurtherActionPlan:     response.FurtherActionPlan,
			AcknowledgedBy:        response.AcknowledgedBy,
			CreatedAt:             response.CreatedAt,
		})
	}

	return detail, nil
}

func Summarize(incident *models.Incident) types.IncidentSummary {
	return types.IncidentSummary{
		ID:                       incident.ID,
		UserID:                   incident.UserID,
		Subject:                  incident.Subject,
		DateOfIncident:           incident.DateOfIncident,
		ProjectName:              incident.ProjectName,
		SourceOfIncident:         incident.SourceOfIncident,
		MistakeCommitted:         incident.MistakeCommitted,
		PreliminaryInvestigation: incident.PreliminaryInvestigation,
		DetailsAndFindings:       incident.DetailsAndFindings,
		Suggestions:              incident.Suggestions,
		Status:                   incident.Status,
		CreatedAt:                incident.CreatedAt,
		UpdatedAt:                incident.UpdatedAt,
	}
}

func (e *Engine) fetch(incidentID uint) (*models.Incident, error) {
	var incident models.Incident

	if err := e.db.First(&incident, incidentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "Incident not found")
		}
		log.Printf("Failed to fetch incident %d: %v", incidentID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to retrieve incident")
	}

	return &incident, nil
}

func validateRequired(input CreateInput) error {
	required := []struct {
		field string
		value string
	}{
		{"subject", input.Subject},
		{"date_of_incident", input.DateOfIncident},
		{"source_of_incident", input.SourceOfIncident},
		{"mistake_committed", input.MistakeCommitted},
		{"details_and_findings", input.DetailsAndFindings},
	}

	var missing []string

	for _, entry := range required {
		if strings.TrimSpace(entry.value) == "" {
			missing = append(missing, entry.field)
		}
	}

	if len(missing) > 0 {
		return apperrors.Wrap(apperrors.ErrValidation, "Missing required fields: %s", strings.Join(missing, ", "))
	}

	return nil
}
