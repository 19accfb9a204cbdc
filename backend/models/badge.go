package models

import (
	"time"

	"gorm.io/datatypes"
)

// Badge criteria tags.
const (
	CriteriaXP               = "xp"
	CriteriaCourseCompletion = "courseCompletion"
	CriteriaQuizCompleted    = "quizCompleted"
)

// BadgeCriteria is the tagged variant stored in BadgeDefinition.Criteria.
// Count is accepted as an alias of Threshold for count-based criteria.
type BadgeCriteria struct {
	Type      string `json:"type" yaml:"type"`
	Threshold int    `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Count     int    `json:"count,omitempty" yaml:"count,omitempty"`
}

// Limit returns the numeric bar of the criteria.
func (c BadgeCriteria) Limit() int {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return c.Count
}

type BadgeDefinition struct {
	ID          uint                              `gorm:"primaryKey" json:"-"`
	BadgeID     string                            `gorm:"size:64;uniqueIndex;not null" json:"badgeId"`
	Title       string                            `gorm:"not null" json:"title"`
	Description string                            `gorm:"type:text" json:"description"`
	Icon        string                            `gorm:"size:64" json:"icon"`
	Criteria    datatypes.JSONType[BadgeCriteria] `json:"criteria"`
	Active      bool                              `gorm:"not null" json:"active"`
	CreatedAt   time.Time                         `json:"-"`
	UpdatedAt   time.Time                         `json:"-"`
}

// AwardedBadge is a fact: once inserted it never changes.
// The unique index is what makes awarding idempotent.
type AwardedBadge struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	LearnerID LearnerID      `gorm:"not null;uniqueIndex:idx_awarded_learner_badge" json:"learnerId"`
	BadgeID   string         `gorm:"size:64;not null;uniqueIndex:idx_awarded_learner_badge" json:"badgeId"`
	AwardedAt time.Time      `gorm:"not null" json:"awardedAt"`
	Meta      datatypes.JSON `json:"meta,omitempty"`
}

// AllModels is the migration set of the engine.
func AllModels() []interface{} {
	return []interface{}{
		&Account{},
		&Learner{},
		&EngagementLog{},
		&Material{},
		&MaterialInteraction{},
		&BadgeDefinition{},
		&AwardedBadge{},
	}
}
