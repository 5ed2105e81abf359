package models

import "gorm.io/gorm"

// IncidentResponse is append-only: one row per acknowledge action, an
// incident may accumulate several over its lifetime.
type IncidentResponse struct {
	gorm.Model

	IncidentID            uint `gorm:"not null;index"`
	InvestigationFindings string
	RootCause             string
	ActionTaken           string
	FurtherActionPlan     string
	AcknowledgedBy        uint `gorm:"not null;index"` // Reviewer's user id

	// Relationships
	Incident Incident `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
