package types

import "time"

type UserResponse struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	Department string `json:"department"`
	IsActive   bool   `json:"is_active"`
}

type AttachmentResponse struct {
	ID        uint   `json:"id"`
	FileType  string `json:"file_type"`
	SignedURL string `json:"signed_url,omitempty"`
}

type ResponseSummary struct {
	ID                    uint      `json:"id"`
	InvestigationFindings string    `json:"investigation_findings"`
	RootCause             string    `json:"root_cause"`
	ActionTaken           string    `json:"action_taken"`
	FurtherActionPlan     string    `json:"further_action_plan"`
	AcknowledgedBy        uint      `json:"acknowledged_by"`
	CreatedAt             time.Time `json:"created_at"`
}

type IncidentSummary struct {
	ID                       uint      `json:"id"`
	UserID                   uint      `json:"user_id"`
	Subject                  string    `json:"subject"`
	DateOfIncident           string    `json:"date_of_incident"`
	ProjectName              string    `json:"project_name"`
	SourceOfIncident         string    `json:"source_of_incident"`
	MistakeCommitted         string    `json:"mistake_committed"`
	PreliminaryInvestigation bool      `json:"preliminary_investigation"`
	DetailsAndFindings       string    `json:"details_and_findings"`
	Suggestions              string    `json:"suggestions"`
	Status                   string    `json:"status"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type IncidentDetail struct {
	IncidentSummary
	Owner       UserResponse         `json:"owner"`
	Attachments []AttachmentResponse `json:"attachments"`
	Responses   []ResponseSummary    `json:"responses"`
}
