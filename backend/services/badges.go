package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"philosofium/backend/models"
	"philosofium/backend/utils"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeContext carries event-specific facts that are not stored on the learner.
type BadgeContext struct {
	CourseCompletionPercent *float64
	QuizCompleted           bool
}

// BadgeService evaluates badge criteria and awards badges at most once per learner.
type BadgeService struct {
	db           *gorm.DB
	interactions *InteractionStore
	log          *utils.Logger
	now          func() time.Time
}

func NewBadgeService(db *gorm.DB, interactions *InteractionStore, log *utils.Logger) *BadgeService {
	if log == nil {
		log = utils.NopLogger()
	}
	return &BadgeService{
		db:           db,
		interactions: interactions,
		log:          log.With("service", "badges"),
		now:          time.Now,
	}
}

// EvaluateBadges returns only the badges newly awarded by this call.
// A duplicate insert means another request won the race; it is not an error.
func (s *BadgeService) EvaluateBadges(ctx context.Context, id models.LearnerID, currentXP int, bctx BadgeContext) ([]models.AwardedBadge, error) {
	if !id.Valid() {
		return nil, ErrInvalidLearner
	}
	db := s.db.WithContext(ctx)

	var defs []models.BadgeDefinition
	if err := db.Where("active = ?", true).Order("id").Find(&defs).Error; err != nil {
		return nil, persistenceErr("load badge definitions", err)
	}
	if len(defs) == 0 {
		return nil, nil
	}

	var owned []string
	if err := db.Model(&models.AwardedBadge{}).Where("learner_id = ?", id).Pluck("badge_id", &owned).Error; err != nil {
		return nil, persistenceErr("load awarded badges", err)
	}
	ownedSet := make(map[string]struct{}, len(owned))
	for _, b := range owned {
		ownedSet[b] = struct{}{}
	}

	quizCount := -1
	awarded := make([]models.AwardedBadge, 0)
	for _, def := range defs {
		if _, ok := ownedSet[def.BadgeID]; ok {
			continue
		}
		criteria := def.Criteria.Data()

		var (
			earned bool
			meta   map[string]interface{}
		)
		switch criteria.Type {
		case models.CriteriaXP:
			earned = currentXP >= criteria.Limit()
			meta = map[string]interface{}{"xp": currentXP}
		case models.CriteriaCourseCompletion:
			if bctx.CourseCompletionPercent != nil {
				earned = *bctx.CourseCompletionPercent >= 100
				meta = map[string]interface{}{"courseCompletionPercent": *bctx.CourseCompletionPercent}
			}
		case models.CriteriaQuizCompleted:
			if quizCount < 0 {
				n, err := s.interactions.CountCompletedQuizzes(ctx, id)
				if err != nil {
					return nil, err
				}
				quizCount = n
			}
			earned = quizCount >= criteria.Limit()
			meta = map[string]interface{}{"quizCompleted": quizCount, "triggeredByQuiz": bctx.QuizCompleted}
		default:
			s.log.Warn("unknown badge criteria", "badgeId", def.BadgeID, "type", criteria.Type)
		}
		if !earned {
			continue
		}

		row, ok, err := s.award(ctx, id, def.BadgeID, meta)
		if err != nil {
			return nil, err
		}
		if ok {
			awarded = append(awarded, row)
		}
	}
	return awarded, nil
}

func (s *BadgeService) award(ctx context.Context, id models.LearnerID, badgeID string, meta map[string]interface{}) (models.AwardedBadge, bool, error) {
	raw, err := sonic.Marshal(meta)
	if err != nil {
		return models.AwardedBadge{}, false, err
	}
	row := models.AwardedBadge{
		LearnerID: id,
		BadgeID:   badgeID,
		AwardedAt: s.now().UTC(),
		Meta:      datatypes.JSON(raw),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return models.AwardedBadge{}, false, persistenceErr("award badge", res.Error)
	}
	if res.RowsAffected == 0 {
		s.log.Debug("badge already awarded", "learnerId", id, "badgeId", badgeID)
		return models.AwardedBadge{}, false, nil
	}
	s.log.Info("badge awarded", "learnerId", id, "badgeId", badgeID)
	return row, true, nil
}

// Owned lists the learner's badges, oldest first.
func (s *BadgeService) Owned(ctx context.Context, id models.LearnerID) ([]models.AwardedBadge, error) {
	var rows []models.AwardedBadge
	err := s.db.WithContext(ctx).Where("learner_id = ?", id).Order("awarded_at, id").Find(&rows).Error
	if err != nil {
		return nil, persistenceErr("list awarded badges", err)
	}
	return rows, nil
}

// SeedBadges upserts definitions by badge id. Called once by the process bootstrap.
func SeedBadges(ctx context.Context, db *gorm.DB, defs []models.BadgeDefinition) error {
	for i := range defs {
		if err := validateBadge(defs[i]); err != nil {
			return err
		}
	}
	if len(defs) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "badge_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "icon", "criteria", "active", "updated_at"}),
	}).Create(&defs).Error
	if err != nil {
		return persistenceErr("seed badges", err)
	}
	return nil
}

func validateBadge(def models.BadgeDefinition) error {
	if strings.TrimSpace(def.BadgeID) == "" || strings.TrimSpace(def.Title) == "" {
		return fmt.Errorf("%w: badge id and title are required", ErrInvalidBadgeEntry)
	}
	c := def.Criteria.Data()
	switch c.Type {
	case models.CriteriaXP, models.CriteriaQuizCompleted:
		if c.Limit() <= 0 {
			return fmt.Errorf("%w: %s needs a positive threshold", ErrInvalidBadgeEntry, def.BadgeID)
		}
	case models.CriteriaCourseCompletion:
	default:
		return fmt.Errorf("%w: %s has unknown criteria %q", ErrInvalidBadgeEntry, def.BadgeID, c.Type)
	}
	return nil
}

func badge(id, title, description, icon string, criteria models.BadgeCriteria) models.BadgeDefinition {
	return models.BadgeDefinition{
		BadgeID:     id,
		Title:       title,
		Description: description,
		Icon:        icon,
		Criteria:    datatypes.NewJSONType(criteria),
		Active:      true,
	}
}

// DefaultBadges is the built-in catalog used when no BADGES_FILE is configured.
func DefaultBadges() []models.BadgeDefinition {
	return []models.BadgeDefinition{
		badge("xp-25", "First Steps", "Earn 25 XP", "sparkles", models.BadgeCriteria{Type: models.CriteriaXP, Threshold: 25}),
		badge("xp-100", "Curious Mind", "Earn 100 XP", "brain", models.BadgeCriteria{Type: models.CriteriaXP, Threshold: 100}),
		badge("xp-500", "Scholar", "Earn 500 XP", "graduation-cap", models.BadgeCriteria{Type: models.CriteriaXP, Threshold: 500}),
		badge("course-complete", "Finisher", "Complete a whole course", "trophy", models.BadgeCriteria{Type: models.CriteriaCourseCompletion}),
		badge("quiz-1", "Quiz Taker", "Complete your first quiz", "check-circle", models.BadgeCriteria{Type: models.CriteriaQuizCompleted, Count: 1}),
		badge("quiz-10", "Quiz Master", "Complete 10 quizzes", "award", models.BadgeCriteria{Type: models.CriteriaQuizCompleted, Count: 10}),
	}
}

type badgeFileEntry struct {
	ID          string               `yaml:"id"`
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	Icon        string               `yaml:"icon"`
	Criteria    models.BadgeCriteria `yaml:"criteria"`
	Active      *bool                `yaml:"active"`
}

// LoadBadgeCatalog reads a YAML list of badges. An empty path returns DefaultBadges.
func LoadBadgeCatalog(path string) ([]models.BadgeDefinition, error) {
	if path == "" {
		return DefaultBadges(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	var entries []badgeFileEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse badge catalog: %w", err)
	}

	defs := make([]models.BadgeDefinition, 0, len(entries))
	for _, e := range entries {
		def := badge(e.ID, e.Title, e.Description, e.Icon, e.Criteria)
		if e.Active != nil {
			def.Active = *e.Active
		}
		if err := validateBadge(def); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
