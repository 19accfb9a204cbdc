package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"philosofium/backend/models"
	"philosofium/backend/utils"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Sample is one client-reported engagement measurement.
type Sample struct {
	ResourceID   string     `json:"resourceId" validate:"required,max=128"`
	ResourceType string     `json:"resourceType" validate:"max=32"`
	Seconds      int        `json:"seconds" validate:"gt=0"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

// EngagementService ingests samples: one append-only log row plus one atomic
// increment of the learner's rolling counters.
type EngagementService struct {
	db       *gorm.DB
	identity Identity
	learners *LearnerStore
	validate *validator.Validate
	log      *utils.Logger
	now      func() time.Time
}

func NewEngagementService(db *gorm.DB, identity Identity, learners *LearnerStore, log *utils.Logger) *EngagementService {
	if log == nil {
		log = utils.NopLogger()
	}
	return &EngagementService{
		db:       db,
		identity: identity,
		learners: learners,
		validate: validator.New(),
		log:      log.With("service", "engagement"),
		now:      time.Now,
	}
}

// RecordEngagement authenticates the credential and stores the sample.
// Invalid samples are dropped and reported as success: the sender is often
// a page-unload beacon that cannot act on a validation error anyway.
func (s *EngagementService) RecordEngagement(ctx context.Context, credential string, sample Sample) error {
	principal, err := s.identity.Resolve(ctx, credential)
	if err != nil {
		return ErrUnauthenticated
	}
	if !principal.IsLearner() {
		s.log.Debug("ignoring engagement from non-learner", "role", principal.Role)
		return nil
	}

	sample.ResourceID = strings.TrimSpace(sample.ResourceID)
	if err := s.validate.Struct(sample); err != nil {
		s.log.Debug("dropping sample", "learnerId", principal.LearnerID, "err", fmt.Errorf("%w: %v", ErrInvalidSample, err))
		return nil
	}

	ts := s.now().UTC()
	if sample.Timestamp != nil && !sample.Timestamp.IsZero() {
		ts = sample.Timestamp.UTC()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.learners.Ensure(ctx, tx, principal.LearnerID); err != nil {
			return err
		}

		entry := models.EngagementLog{
			LearnerID:    principal.LearnerID,
			ResourceID:   sample.ResourceID,
			ResourceType: sample.ResourceType,
			Seconds:      sample.Seconds,
			Timestamp:    ts,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return persistenceErr("append engagement log", err)
		}

		return s.learners.Increment(ctx, tx, principal.LearnerID, engagementIncrements(sample, s.now().UTC()))
	})
	if err != nil {
		if !errors.Is(err, ErrPersistence) {
			err = persistenceErr("record engagement", err)
		}
		s.log.Error("record engagement failed", "learnerId", principal.LearnerID, "err", err)
		return err
	}
	return nil
}

func engagementIncrements(sample Sample, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"engagement_total_seconds": gorm.Expr("engagement_total_seconds + ?", sample.Seconds),
		"engagement_sessions":      gorm.Expr("engagement_sessions + ?", 1),
		"last_active_at":           now,
	}
	if col := bucketColumn(sample.ResourceType); col != "" {
		updates[col] = gorm.Expr(col+" + ?", sample.Seconds)
	}
	return updates
}

// bucketColumn maps a resource type to its per-type counter. Unknown types only feed the totals.
func bucketColumn(resourceType string) string {
	switch strings.ToLower(strings.TrimSpace(resourceType)) {
	case models.ResourceVisual:
		return "engagement_visual_seconds"
	case models.ResourceVerbal:
		return "engagement_verbal_seconds"
	case models.ResourceAudio:
		return "engagement_audio_seconds"
	}
	return ""
}
