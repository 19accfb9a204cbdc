package services

import (
	"context"

	"philosofium/backend/models"
	"philosofium/backend/utils"

	"gorm.io/gorm"
)

type Streaks struct {
	Login  models.Streak `json:"login"`
	Lesson models.Streak `json:"lesson"`
}

// Outcome is what login and material handlers forward to the UI for notifications.
type Outcome struct {
	XPAwarded     int                   `json:"xpAwarded"`
	TotalXP       int                   `json:"totalXp"`
	BadgesAwarded []models.AwardedBadge `json:"badgesAwarded"`
	Streaks       Streaks               `json:"streaks"`
	DailyGoal     models.DailyGoal      `json:"dailyGoal"`
}

// Summary is the learner's current gamification state.
type Summary struct {
	XP         int                    `json:"xp"`
	Streaks    Streaks                `json:"streaks"`
	DailyGoal  models.DailyGoal       `json:"dailyGoal"`
	Engagement models.EngagementStats `json:"engagement"`
	Badges     []models.AwardedBadge  `json:"badges"`
}

// Engine ties the XP ledger, streaks, daily goals and badges together.
type Engine struct {
	db           *gorm.DB
	learners     *LearnerStore
	interactions *InteractionStore
	badges       *BadgeService
	content      ContentDirectory
	calendar     *Calendar
	log          *utils.Logger
}

func NewEngine(db *gorm.DB, learners *LearnerStore, interactions *InteractionStore, badges *BadgeService,
	content ContentDirectory, calendar *Calendar, log *utils.Logger) *Engine {
	if log == nil {
		log = utils.NopLogger()
	}
	return &Engine{
		db:           db,
		learners:     learners,
		interactions: interactions,
		badges:       badges,
		content:      content,
		calendar:     calendar,
		log:          log.With("service", "engine"),
	}
}

// RecordLogin awards login XP once per day, advances the login streak and credits the daily login goal.
func (e *Engine) RecordLogin(ctx context.Context, id models.LearnerID) (*Outcome, error) {
	if !id.Valid() {
		return nil, ErrInvalidLearner
	}
	if err := e.learners.Ensure(ctx, nil, id); err != nil {
		return nil, err
	}

	today := e.calendar.Today()
	yesterday := e.calendar.DayBefore(today)

	xp := 0
	awarded, err := e.learners.AwardDailyXP(ctx, id, today, XPLogin)
	if err != nil {
		return nil, err
	}
	if awarded {
		xp = XPLogin
	}

	learner, err := e.learners.Mutate(ctx, id, func(l *models.Learner) bool {
		changed := NormalizeDailyGoal(&l.DailyGoal, today)
		if AdvanceStreak(&l.LoginStreak, today, yesterday) {
			changed = true
		}
		if CreditLogin(&l.DailyGoal) {
			changed = true
		}
		return changed
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("login recorded", "learnerId", id, "xp", xp, "loginStreak", learner.LoginStreak.Count)
	return e.finish(ctx, learner, xp, BadgeContext{})
}

// RecordMaterialView credits the first view of a material. Re-views are logged on the
// interaction but award nothing.
func (e *Engine) RecordMaterialView(ctx context.Context, id models.LearnerID, materialID uint) (*Outcome, error) {
	if !id.Valid() {
		return nil, ErrInvalidLearner
	}
	material, err := e.content.Lookup(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if err := e.learners.Ensure(ctx, nil, id); err != nil {
		return nil, err
	}

	var first bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = e.interactions.RecordView(ctx, tx, id, material, e.calendar.Now())
		if err != nil || !first {
			return err
		}
		return e.learners.AddXP(ctx, tx, id, XPMaterialFirstView)
	})
	if err != nil {
		return nil, err
	}

	xp := 0
	lessons := 0
	if first {
		xp = XPMaterialFirstView
		lessons = 1
	}
	learner, err := e.creditLessons(ctx, id, lessons)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, learner, xp, BadgeContext{})
}

// RecordMaterialCompletion rewards the not-completed to completed transition once.
// Completing a material that was never viewed also records (and credits) the view.
func (e *Engine) RecordMaterialCompletion(ctx context.Context, id models.LearnerID, materialID uint, bctx BadgeContext) (*Outcome, error) {
	if !id.Valid() {
		return nil, ErrInvalidLearner
	}
	material, err := e.content.Lookup(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if err := e.learners.Ensure(ctx, nil, id); err != nil {
		return nil, err
	}

	var opened, completed bool
	now := e.calendar.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if opened, err = e.interactions.Open(ctx, tx, id, material, now); err != nil {
			return err
		}
		if completed, err = e.interactions.MarkCompleted(ctx, tx, id, material.ID, now); err != nil {
			return err
		}
		delta := 0
		if opened {
			delta += XPMaterialFirstView
		}
		if completed {
			delta += CompletionReward(material.Category)
		}
		return e.learners.AddXP(ctx, tx, id, delta)
	})
	if err != nil {
		return nil, err
	}

	xp := 0
	lessons := 0
	if opened {
		xp += XPMaterialFirstView
		lessons++
	}
	if completed {
		xp += CompletionReward(material.Category)
		lessons++
		bctx.QuizCompleted = IsQuiz(material.Category)
	}

	learner, err := e.creditLessons(ctx, id, lessons)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, learner, xp, bctx)
}

// EvaluateBadges exposes badge evaluation to callers that changed counters themselves.
func (e *Engine) EvaluateBadges(ctx context.Context, id models.LearnerID, currentXP int, bctx BadgeContext) ([]models.AwardedBadge, error) {
	return e.badges.EvaluateBadges(ctx, id, currentXP, bctx)
}

func (e *Engine) Summary(ctx context.Context, id models.LearnerID) (*Summary, error) {
	if !id.Valid() {
		return nil, ErrInvalidLearner
	}
	learner, err := e.learners.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	// a summary is a touch too, but it must not write; show today's view of the goal
	goal := learner.DailyGoal
	NormalizeDailyGoal(&goal, e.calendar.Today())

	owned, err := e.badges.Owned(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Summary{
		XP:         learner.XP,
		Streaks:    Streaks{Login: learner.LoginStreak, Lesson: learner.LessonStreak},
		DailyGoal:  goal,
		Engagement: learner.Engagement,
		Badges:     owned,
	}, nil
}

// creditLessons advances the lesson streak and adds n lessons to today's goal.
// With n == 0 it still normalizes the daily goal.
func (e *Engine) creditLessons(ctx context.Context, id models.LearnerID, n int) (*models.Learner, error) {
	today := e.calendar.Today()
	yesterday := e.calendar.DayBefore(today)
	return e.learners.Mutate(ctx, id, func(l *models.Learner) bool {
		changed := NormalizeDailyGoal(&l.DailyGoal, today)
		if n == 0 {
			return changed
		}
		AdvanceStreak(&l.LessonStreak, today, yesterday)
		for i := 0; i < n; i++ {
			CreditLesson(&l.DailyGoal)
		}
		return true
	})
}

func (e *Engine) finish(ctx context.Context, learner *models.Learner, xp int, bctx BadgeContext) (*Outcome, error) {
	badges, err := e.badges.EvaluateBadges(ctx, learner.ID, learner.XP, bctx)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		XPAwarded:     xp,
		TotalXP:       learner.XP,
		BadgesAwarded: badges,
		Streaks:       Streaks{Login: learner.LoginStreak, Lesson: learner.LessonStreak},
		DailyGoal:     learner.DailyGoal,
	}, nil
}
