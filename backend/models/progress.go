package models

import "time"

// MaterialInteraction records that a learner opened a material and whether they finished it.
// At most one row per (learner, material).
type MaterialInteraction struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LearnerID     LearnerID  `gorm:"not null;uniqueIndex:idx_interaction_learner_material" json:"learnerId"`
	MaterialID    uint       `gorm:"not null;uniqueIndex:idx_interaction_learner_material" json:"materialId"`
	Category      string     `gorm:"size:64;index" json:"category"`
	FirstViewedAt time.Time  `json:"firstViewedAt"`
	LastViewedAt  time.Time  `json:"lastViewedAt"`
	ViewCount     int        `gorm:"not null;default:1" json:"viewCount"`
	Completed     bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}
