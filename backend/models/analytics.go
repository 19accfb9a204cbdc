package models

import "time"

// Resource types reported by the client tracker.
const (
	ResourceVisual = "visual"
	ResourceVerbal = "verbal"
	ResourceAudio  = "audio"
)

// EngagementLog is one reported sample. Rows are never updated or deleted.
type EngagementLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LearnerID    LearnerID `gorm:"index;not null" json:"learnerId"`
	ResourceID   string    `gorm:"size:128;not null" json:"resourceId"`
	ResourceType string    `gorm:"size:32" json:"resourceType"`
	Seconds      int       `gorm:"not null" json:"seconds"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	CreatedAt    time.Time `json:"createdAt"`
}
