package models

import "time"

// LearnerID is a validated reference to a student. Zero is never a valid learner.
type LearnerID uint

func (id LearnerID) Valid() bool {
	return id != 0
}

// Streak counts consecutive calendar days of a qualifying action.
// LastDate is a YYYY-MM-DD day key, empty when the action never happened.
type Streak struct {
	Count    int    `gorm:"not null;default:0" json:"count"`
	Longest  int    `gorm:"not null;default:0" json:"longest"`
	LastDate string `gorm:"size:10;not null;default:''" json:"lastDate,omitempty"`
}

type DailyGoal struct {
	LessonsTarget         int    `gorm:"not null;default:1" json:"lessonsTarget"`
	LessonsCompletedToday int    `gorm:"not null;default:0" json:"lessonsCompletedToday"`
	LoginsTarget          int    `gorm:"not null;default:1" json:"loginsTarget"`
	LoginsCompletedToday  int    `gorm:"not null;default:0" json:"loginsCompletedToday"`
	LastResetAt           string `gorm:"size:10;not null;default:''" json:"lastResetAt,omitempty"`
}

// EngagementStats are rolling counters maintained by ingestion.
type EngagementStats struct {
	TotalSeconds  int64 `gorm:"not null;default:0" json:"totalSeconds"`
	Sessions      int64 `gorm:"not null;default:0" json:"sessions"`
	VisualSeconds int64 `gorm:"not null;default:0" json:"visualSeconds"`
	VerbalSeconds int64 `gorm:"not null;default:0" json:"verbalSeconds"`
	AudioSeconds  int64 `gorm:"not null;default:0" json:"audioSeconds"`
}

// Learner holds every per-student counter owned by the engine.
// Version is bumped by every write and guards read-modify-write transitions.
type Learner struct {
	ID            LearnerID       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	XP            int             `gorm:"column:xp;not null;default:0" json:"xp"`
	LoginStreak   Streak          `gorm:"embedded;embeddedPrefix:login_streak_" json:"loginStreak"`
	LessonStreak  Streak          `gorm:"embedded;embeddedPrefix:lesson_streak_" json:"lessonStreak"`
	DailyGoal     DailyGoal       `gorm:"embedded;embeddedPrefix:daily_goal_" json:"dailyGoal"`
	LastLoginXPAt string          `gorm:"column:last_login_xp_at;size:10;not null;default:''" json:"lastLoginXpAt,omitempty"`
	Engagement    EngagementStats `gorm:"embedded;embeddedPrefix:engagement_" json:"engagement"`
	LastActiveAt  *time.Time      `json:"lastActiveAt,omitempty"`
	Version       int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
