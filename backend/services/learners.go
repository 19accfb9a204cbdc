package services

import (
	"context"
	"errors"

	"philosofium/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultMaxRetries = 5

// LearnerStore owns every write to the learners table.
// Counters are changed with single-statement increments; streak and goal
// transitions go through Mutate, which compares and swaps on Version.
type LearnerStore struct {
	db         *gorm.DB
	maxRetries int
}

func NewLearnerStore(db *gorm.DB, maxRetries int) *LearnerStore {
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}
	return &LearnerStore{db: db, maxRetries: maxRetries}
}

// Ensure lazily creates the learner row with zero-value counters.
func (s *LearnerStore) Ensure(ctx context.Context, tx *gorm.DB, id models.LearnerID) error {
	if !id.Valid() {
		return ErrInvalidLearner
	}
	learner := models.Learner{ID: id}
	err := s.conn(ctx, tx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&learner).Error
	if err != nil {
		return persistenceErr("create learner", err)
	}
	return nil
}

func (s *LearnerStore) Load(ctx context.Context, id models.LearnerID) (*models.Learner, error) {
	var learner models.Learner
	err := s.db.WithContext(ctx).First(&learner, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// never touched: zero-value learner with default targets
		return &models.Learner{
			ID:        id,
			DailyGoal: models.DailyGoal{LessonsTarget: 1, LoginsTarget: 1},
		}, nil
	}
	if err != nil {
		return nil, persistenceErr("load learner", err)
	}
	return &learner, nil
}

// Increment applies column deltas atomically. Keys are column names, values gorm expressions or literals.
func (s *LearnerStore) Increment(ctx context.Context, tx *gorm.DB, id models.LearnerID, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	err := s.conn(ctx, tx).
		Model(&models.Learner{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return persistenceErr("increment learner", err)
	}
	return nil
}

func (s *LearnerStore) AddXP(ctx context.Context, tx *gorm.DB, id models.LearnerID, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.Increment(ctx, tx, id, map[string]interface{}{
		"xp": gorm.Expr("xp + ?", delta),
	})
}

// AwardDailyXP adds delta only if the learner has not received it on day yet.
// The check and the write are one statement, so concurrent logins award once.
func (s *LearnerStore) AwardDailyXP(ctx context.Context, id models.LearnerID, day string, delta int) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Learner{}).
		Where("id = ? AND last_login_xp_at <> ?", id, day).
		Updates(map[string]interface{}{
			"xp":               gorm.Expr("xp + ?", delta),
			"last_login_xp_at": day,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, persistenceErr("award login xp", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Mutate runs a read-modify-write on streak and daily goal fields.
// fn reports whether it changed anything; the write only lands if Version is unchanged
// since the read, otherwise the learner is re-read and fn re-applied.
func (s *LearnerStore) Mutate(ctx context.Context, id models.LearnerID, fn func(*models.Learner) bool) (*models.Learner, error) {
	db := s.db.WithContext(ctx)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var learner models.Learner
		if err := db.First(&learner, "id = ?", id).Error; err != nil {
			return nil, persistenceErr("load learner", err)
		}
		if !fn(&learner) {
			return &learner, nil
		}

		res := db.Model(&models.Learner{}).
			Where("id = ? AND version = ?", id, learner.Version).
			Updates(progressColumns(&learner))
		if res.Error != nil {
			return nil, persistenceErr("update learner progress", res.Error)
		}
		if res.RowsAffected == 1 {
			learner.Version++
			return &learner, nil
		}
	}
	return nil, ErrConcurrentUpdate
}

func progressColumns(l *models.Learner) map[string]interface{} {
	return map[string]interface{}{
		"login_streak_count":                 l.LoginStreak.Count,
		"login_streak_longest":               l.LoginStreak.Longest,
		"login_streak_last_date":             l.LoginStreak.LastDate,
		"lesson_streak_count":                l.LessonStreak.Count,
		"lesson_streak_longest":              l.LessonStreak.Longest,
		"lesson_streak_last_date":            l.LessonStreak.LastDate,
		"daily_goal_lessons_target":          l.DailyGoal.LessonsTarget,
		"daily_goal_lessons_completed_today": l.DailyGoal.LessonsCompletedToday,
		"daily_goal_logins_target":           l.DailyGoal.LoginsTarget,
		"daily_goal_logins_completed_today":  l.DailyGoal.LoginsCompletedToday,
		"daily_goal_last_reset_at":           l.DailyGoal.LastResetAt,
		"version":                            gorm.Expr("version + 1"),
	}
}

func (s *LearnerStore) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}
