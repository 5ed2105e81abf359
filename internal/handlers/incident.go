package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/incidentdesk/incidentdesk/internal/incidents"
	"github.com/incidentdesk/incidentdesk/internal/types"
	"github.com/incidentdesk/incidentdesk/internal/utils"
)

type IncidentHandler struct {
	engine *incidents.Engine
	feed   *Feed
}

func NewIncidentHandler(engine *incidents.Engine, feed *Feed) *IncidentHandler {
	return &IncidentHandler{engine: engine, feed: feed}
}

type AcknowledgeRequest struct {
	InvestigationFindings string `json:"investigation_findings"`
	RootCause             string `json:"root_cause"`
	ActionTaken           string `json:"action_taken"`
	FurtherActionPlan     string `json:"further_action_plan"`
	Status                string `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateIncident accepts a multipart form with the incident fields plus up
// to ten files in the "attachments" field.
func (h *IncidentHandler) CreateIncident(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	input := incidents.CreateInput{
		Subject:                  ctx.PostForm("subject"),
		DateOfIncident:           ctx.PostForm("date_of_incident"),
		ProjectName:              ctx.PostForm("project_name"),
		SourceOfIncident:         ctx.PostForm("source_of_incident"),
		MistakeCommitted:         ctx.PostForm("mistake_committed"),
		PreliminaryInvestigation: ctx.PostForm("preliminary_investigation"),
		DetailsAndFindings:       ctx.PostForm("details_and_findings"),
		Suggestions:              ctx.PostForm("suggestions"),
	}

	var files []*multipart.FileHeader

	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		files = form.File["attachments"]
	}

	incident, stored, err := h.engine.Create(ctx.Request.Context(), currentUser.Principal(), input, files)

	if err != nil {
		respondError(ctx, err)
		return
	}

	attachmentResponses := make([]types.AttachmentResponse, 0, len(stored))

	for _, attachment := range stored {
		attachmentResponses = append(attachmentResponses, types.AttachmentResponse{
			ID:       attachment.ID,
			FileType: attachment.FileType,
		})
	}

	h.feed.Broadcast(FeedEvent{Type: "incident_created", IncidentID: incident.ID, Status: incident.Status})

	ctx.JSON(http.StatusCreated, gin.H{
		"incident":    incidents.Summarize(incident),
		"attachments": attachmentResponses,
	})
}

func (h *IncidentHandler) ListIncidents(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	list, err := h.engine.List(ctx.Request.Context(), currentUser.Principal())

	if err != nil {
		respondError(ctx, err)
		return
	}

	summaries := make([]types.IncidentSummary, 0, len(list))

	for i := range list {
		summaries = append(summaries, incidents.Summarize(&list[i]))
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (h *IncidentHandler) GetIncident(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incidentID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	detail, err := h.engine.Get(ctx.Request.Context(), currentUser.Principal(), incidentID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func (h *IncidentHandler) AcknowledgeIncident(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incidentID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var req AcknowledgeRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	response, err := h.engine.Acknowledge(ctx.Request.Context(), currentUser.Principal(), incidentID, incidents.AcknowledgeInput{
		InvestigationFindings: req.InvestigationFindings,
		RootCause:             req.RootCause,
		ActionTaken:           req.ActionTaken,
		FurtherActionPlan:     req.FurtherActionPlan,
		Status:                req.Status,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.feed.Broadcast(FeedEvent{Type: "incident_acknowledged", IncidentID: incidentID, Status: req.Status})

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Incident acknowledged",
		"response": types.ResponseSummary{
			ID:                    response.ID,
			InvestigationFindings: response.InvestigationFindings,
			RootCause:             response.RootCause,
			ActionTaken:           response.ActionTaken,
			FurtherActionPlan:     response.FurtherActionPlan,
			AcknowledgedBy:        response.AcknowledgedBy,
			CreatedAt:             response.CreatedAt,
		},
	})
}

func (h *IncidentHandler) UpdateIncidentStatus(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incidentID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	var req UpdateStatusRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	incident, err := h.engine.SetStatus(ctx.Request.Context(), currentUser.Principal(), incidentID, req.Status)

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.feed.Broadcast(FeedEvent{Type: "incident_status_changed", IncidentID: incidentID, Status: req.Status})

	ctx.JSON(http.StatusOK, gin.H{"incident": incidents.Summarize(incident)})
}

func (h *IncidentHandler) DeleteIncident(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	incidentID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid incident ID"})
		return
	}

	result, err := h.engine.Delete(ctx.Request.Context(), currentUser.Principal(), incidentID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	h.feed.Broadcast(FeedEvent{Type: "incident_deleted", IncidentID: incidentID})

	body := gin.H{"message": "Incident deleted successfully"}

	// Never swallow a failed blob removal; the rows are gone but the caller
	// should know cleanup was incomplete.
	if result.StorageFailures > 0 {
		body["storage_cleanup_failures"] = result.StorageFailures
	}

	ctx.JSON(http.StatusOK, body)
}
