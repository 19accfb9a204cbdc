package services

import (
	"context"
	"strings"
	"time"

	"philosofium/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reward table. Design-time constants, not configurable.
const (
	XPLogin              = 10
	XPMaterialFirstView  = 5
	XPMaterialCompletion = 15
	XPQuizBonus          = 25
)

// CompletionReward is the XP for finishing a material of the given category.
func CompletionReward(category string) int {
	if IsQuiz(category) {
		return XPMaterialCompletion + XPQuizBonus
	}
	return XPMaterialCompletion
}

func IsQuiz(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), models.CategoryQuiz)
}

// InteractionStore records material views and completions. The unique
// (learner, material) index turns "first view" and "first completion" into
// single-statement checks.
type InteractionStore struct {
	db *gorm.DB
}

func NewInteractionStore(db *gorm.DB) *InteractionStore {
	return &InteractionStore{db: db}
}

// Open creates the interaction if it does not exist and reports whether this call created it.
func (s *InteractionStore) Open(ctx context.Context, tx *gorm.DB, id models.LearnerID, material MaterialInfo, at time.Time) (bool, error) {
	row := models.MaterialInteraction{
		LearnerID:     id,
		MaterialID:    material.ID,
		Category:      material.Category,
		FirstViewedAt: at,
		LastViewedAt:  at,
		ViewCount:     1,
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, persistenceErr("create interaction", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RecordView opens the interaction on first view and reports true.
// Later views only bump the view counter.
func (s *InteractionStore) RecordView(ctx context.Context, tx *gorm.DB, id models.LearnerID, material MaterialInfo, at time.Time) (bool, error) {
	created, err := s.Open(ctx, tx, id, material, at)
	if err != nil || created {
		return created, err
	}

	err = tx.WithContext(ctx).
		Model(&models.MaterialInteraction{}).
		Where("learner_id = ? AND material_id = ?", id, material.ID).
		Updates(map[string]interface{}{
			"view_count":     gorm.Expr("view_count + 1"),
			"last_viewed_at": at,
		}).Error
	if err != nil {
		return false, persistenceErr("update interaction", err)
	}
	return false, nil
}

// MarkCompleted flips completed from false to true and reports whether this call did it.
func (s *InteractionStore) MarkCompleted(ctx context.Context, tx *gorm.DB, id models.LearnerID, materialID uint, at time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.MaterialInteraction{}).
		Where("learner_id = ? AND material_id = ? AND completed = ?", id, materialID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, persistenceErr("complete interaction", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountCompletedQuizzes is recomputed on every call; it changes rarely.
func (s *InteractionStore) CountCompletedQuizzes(ctx context.Context, id models.LearnerID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.MaterialInteraction{}).
		Where("learner_id = ? AND completed = ? AND LOWER(category) = ?", id, true, strings.ToLower(models.CategoryQuiz)).
		Count(&n).Error
	if err != nil {
		return 0, persistenceErr("count quizzes", err)
	}
	return int(n), nil
}
