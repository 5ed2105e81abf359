package models

import "gorm.io/gorm"

type Incident struct {
	gorm.Model

	UserID                   uint   `gorm:"not null;index"` // Owner, set once at creation
	Subject                  string `gorm:"not null"`
	DateOfIncident           string `gorm:"not null"`
	ProjectName              string
	SourceOfIncident         string `gorm:"not null"`
	MistakeCommitted         string `gorm:"not null"`
	PreliminaryInvestigation bool   `gorm:"default:false"`
	DetailsAndFindings       string `gorm:"not null"`
	Suggestions              string
	Status                   string `gorm:"not null;default:'open'"` // "open", "in-progress", "closed"

	// Relationships
	User        User                 `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Attachments []IncidentAttachment `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Responses   []IncidentResponse   `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
