package models

import "gorm.io/gorm"

type IncidentAttachment struct {
	gorm.Model

	IncidentID uint   `gorm:"not null;index"`
	FileURL    string `gorm:"not null"` // Opaque storage key, never a public URL
	FileType   string `gorm:"not null"` // MIME type as declared at upload

	// Relationships
	Incident Incident `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
