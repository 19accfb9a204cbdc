package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"philosofium/backend/config"
	"philosofium/backend/models"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		DBDriver:         "sqlite",
		DBDSN:            "file:" + filepath.Join(t.TempDir(), "api.db") + "?_busy_timeout=5000",
		JWTSecret:        "testsecret",
		CorsOrigins:      "*",
		Location:         time.UTC,
		StreakMaxRetries: 5,
	}
	logger := utils.NopLogger()

	db, err := utils.InitDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	app := NewApp(cfg, logger)
	SetupRoutes(app, db, cfg, NewServices(db, cfg, logger), logger)
	return &testServer{app: app, db: db, cfg: cfg}
}

func (s *testServer) token(t *testing.T, id uint, role string) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(id, role, s.cfg)
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body interface{}, auth string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) learner(t *testing.T, id uint) models.Learner {
	t.Helper()
	var l models.Learner
	require.NoError(t, s.db.First(&l, "id = ?", id).Error)
	return l
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, fiber.MethodGet, "/health", "", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["message"])
}

func TestSyncRequiresCredential(t *testing.T) {
	s := newTestServer(t)
	sample := map[string]interface{}{"resourceId": "m-1", "resourceType": "visual", "seconds": 10}

	status, _ := s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON, sample, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON, sample, "Bearer forged")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	var n int64
	require.NoError(t, s.db.Model(&models.EngagementLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSyncRecordsEngagement(t *testing.T) {
	s := newTestServer(t)
	auth := s.token(t, 7, models.RoleStudent)

	status, body := s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON,
		map[string]interface{}{"resourceId": "m-1", "resourceType": "Visual", "seconds": 30}, auth)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Time synced", body["message"])

	status, _ = s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON,
		map[string]interface{}{"resourceId": "m-2", "resourceType": "audio", "seconds": 5, "timestamp": "2024-03-10T09:00:00.000Z"}, auth)
	require.Equal(t, fiber.StatusOK, status)

	l := s.learner(t, 7)
	assert.Equal(t, int64(35), l.Engagement.TotalSeconds)
	assert.Equal(t, int64(2), l.Engagement.Sessions)
	assert.Equal(t, int64(30), l.Engagement.VisualSeconds)
	assert.Equal(t, int64(5), l.Engagement.AudioSeconds)
}

func TestSyncIgnoresInvalidSample(t *testing.T) {
	s := newTestServer(t)
	auth := s.token(t, 7, models.RoleStudent)

	status, _ := s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON,
		map[string]interface{}{"resourceId": "m-1", "seconds": 0}, auth)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON, "{not json", auth)
	assert.Equal(t, fiber.StatusOK, status)

	var n int64
	require.NoError(t, s.db.Model(&models.EngagementLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestBeaconAcceptsBodyToken(t *testing.T) {
	s := newTestServer(t)
	token, err := utils.GenerateJWTToken(8, models.RoleStudent, s.cfg)
	require.NoError(t, err)

	payload := `{"resourceId":"m-9","resourceType":"verbal","seconds":12,"token":"` + token + `"}`
	status, _ := s.do(t, fiber.MethodPost, "/analytics/beacon", "text/plain;charset=UTF-8", payload, "")
	require.Equal(t, fiber.StatusOK, status)

	l := s.learner(t, 8)
	assert.Equal(t, int64(12), l.Engagement.VerbalSeconds)

	status, _ = s.do(t, fiber.MethodPost, "/analytics/beacon?token="+token, "text/plain;charset=UTF-8",
		`{"resourceId":"m-9","resourceType":"verbal","seconds":3}`, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(15), s.learner(t, 8).Engagement.VerbalSeconds)

	status, _ = s.do(t, fiber.MethodPost, "/analytics/beacon", "text/plain;charset=UTF-8",
		`{"resourceId":"m-9","seconds":12,"token":"forged"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLoginAwardsDailyXP(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	account := models.Account{Username: "ada", PasswordHash: string(hash), Role: models.RoleStudent}
	require.NoError(t, s.db.Create(&account).Error)

	creds := map[string]string{"username": "ada", "password": "password"}
	status, body := s.do(t, fiber.MethodPost, "/api/auth/login", fiber.MIMEApplicationJSON, creds, "")
	require.Equal(t, fiber.StatusOK, status)
	d := data(t, body)
	assert.NotEmpty(t, d["token"])
	game, ok := d["gamification"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(services.XPLogin), game["xpAwarded"])

	status, body = s.do(t, fiber.MethodPost, "/api/auth/login", fiber.MIMEApplicationJSON, creds, "")
	require.Equal(t, fiber.StatusOK, status)
	game = data(t, body)["gamification"].(map[string]interface{})
	assert.Equal(t, float64(0), game["xpAwarded"])
	assert.Equal(t, float64(services.XPLogin), game["totalXp"])

	status, _ = s.do(t, fiber.MethodPost, "/api/auth/login", fiber.MIMEApplicationJSON,
		map[string]string{"username": "ada", "password": "wrong"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLoginAdminSkipsGamification(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("root"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&models.Account{Username: "root", PasswordHash: string(hash), Role: models.RoleAdmin}).Error)

	status, body := s.do(t, fiber.MethodPost, "/api/auth/login", fiber.MIMEApplicationJSON,
		map[string]string{"username": "root", "password": "root"}, "")
	require.Equal(t, fiber.StatusOK, status)
	_, ok := data(t, body)["gamification"]
	assert.False(t, ok)

	var n int64
	require.NoError(t, s.db.Model(&models.Learner{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestMaterialEndpoints(t *testing.T) {
	s := newTestServer(t)
	quiz := models.Material{Title: "Ethics quiz", Category: models.CategoryQuiz, Format: "Verbal"}
	require.NoError(t, s.db.Create(&quiz).Error)
	auth := s.token(t, 3, models.RoleStudent)
	viewPath := "/api/materials/" + itoa(quiz.ID) + "/view"
	completePath := "/api/materials/" + itoa(quiz.ID) + "/complete"

	status, _ := s.do(t, fiber.MethodPost, viewPath, "", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, fiber.MethodPost, viewPath, "", nil, s.token(t, 1, models.RoleAdmin))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/materials/999/view", "", nil, auth)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, fiber.MethodPost, "/api/materials/abc/view", "", nil, auth)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := s.do(t, fiber.MethodPost, viewPath, "", nil, auth)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(services.XPMaterialFirstView), data(t, body)["xpAwarded"])

	status, _ = s.do(t, fiber.MethodPost, completePath, fiber.MIMEApplicationJSON,
		map[string]interface{}{"courseCompletionPercent": 150}, auth)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, fiber.MethodPost, completePath, fiber.MIMEApplicationJSON,
		map[string]interface{}{"courseCompletionPercent": 40}, auth)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(services.XPMaterialCompletion+services.XPQuizBonus), data(t, body)["xpAwarded"])

	status, body = s.do(t, fiber.MethodGet, "/api/progress", "", nil, auth)
	require.Equal(t, fiber.StatusOK, status)
	summary := data(t, body)
	assert.Equal(t, float64(services.XPMaterialFirstView+services.XPMaterialCompletion+services.XPQuizBonus), summary["xp"])
	goal := summary["dailyGoal"].(map[string]interface{})
	assert.Equal(t, float64(2), goal["lessonsCompletedToday"])
}

func itoa(id uint) string {
	return fmt.Sprint(id)
}

func TestBeaconKeepsBodyTokenWhenSampleIsMalformed(t *testing.T) {
	s := newTestServer(t)
	token, err := utils.GenerateJWTToken(8, models.RoleStudent, s.cfg)
	require.NoError(t, err)

	status, body := s.do(t, fiber.MethodPost, "/analytics/beacon", "text/plain;charset=UTF-8",
		`{"resourceId":"m-9","seconds":1.5,"token":"`+token+`"}`, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Time synced", body["message"])

	status, _ = s.do(t, fiber.MethodPost, "/analytics/beacon", "text/plain;charset=UTF-8",
		`{"resourceId":"m-9","seconds":4,"timestamp":1710061200,"token":"`+token+`"}`, "")
	require.Equal(t, fiber.StatusOK, status)

	var n int64
	require.NoError(t, s.db.Model(&models.EngagementLog{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestStorageFailureOnSyncAndBeacon(t *testing.T) {
	s := newTestServer(t)
	auth := s.token(t, 5, models.RoleStudent)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	sample := map[string]interface{}{"resourceId": "m-1", "resourceType": "visual", "seconds": 10}

	status, body := s.do(t, fiber.MethodPost, "/analytics/sync", fiber.MIMEApplicationJSON, sample, auth)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Could not record engagement", body["message"])

	status, body = s.do(t, fiber.MethodPost, "/analytics/beacon", fiber.MIMEApplicationJSON, sample, auth)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Time synced", body["message"])
}
