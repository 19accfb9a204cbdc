package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"philosofium/backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db           *gorm.DB
	now          time.Time
	calendar     *Calendar
	learners     *LearnerStore
	interactions *InteractionStore
	badges       *BadgeService
	engine       *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine.db")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	f := &fixture{db: db, now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	f.calendar = NewCalendar(time.UTC, func() time.Time { return f.now })
	f.learners = NewLearnerStore(db, 10)
	f.interactions = NewInteractionStore(db)
	f.badges = NewBadgeService(db, f.interactions, nil)
	f.badges.now = func() time.Time { return f.now }
	f.engine = NewEngine(db, f.learners, f.interactions, f.badges, NewGormContentDirectory(db), f.calendar, nil)
	return f
}

func (f *fixture) advanceDays(n int) {
	f.now = f.now.AddDate(0, 0, n)
}

func (f *fixture) material(t *testing.T, category string) uint {
	t.Helper()
	m := models.Material{Title: category + " material", Category: category, Format: "Visual"}
	require.NoError(t, f.db.Create(&m).Error)
	return m.ID
}

func (f *fixture) seed(t *testing.T, defs ...models.BadgeDefinition) {
	t.Helper()
	require.NoError(t, SeedBadges(context.Background(), f.db, defs))
}

func (f *fixture) learner(t *testing.T, id models.LearnerID) models.Learner {
	t.Helper()
	var l models.Learner
	require.NoError(t, f.db.First(&l, "id = ?", id).Error)
	return l
}

func (f *fixture) awardedCount(t *testing.T, id models.LearnerID, badgeID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.AwardedBadge{}).
		Where("learner_id = ? AND badge_id = ?", id, badgeID).Count(&n).Error)
	return n
}

// staticIdentity resolves credentials from a fixed table.
type staticIdentity map[string]Principal

func (s staticIdentity) Resolve(_ context.Context, credential string) (Principal, error) {
	p, ok := s[credential]
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}

func xpBadge(id string, threshold int) models.BadgeDefinition {
	return badge(id, id, "", "", models.BadgeCriteria{Type: models.CriteriaXP, Threshold: threshold})
}
