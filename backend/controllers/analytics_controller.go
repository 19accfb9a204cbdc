package controllers

import (
	"errors"
	"strings"

	"philosofium/backend/middleware"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnalyticsController struct {
	Engagement *services.EngagementService
	Log        *utils.Logger
}

func NewAnalyticsController(engagement *services.EngagementService, log *utils.Logger) *AnalyticsController {
	return &AnalyticsController{Engagement: engagement, Log: log.With("controller", "analytics")}
}

// credentialBody is decoded on its own so a bad sample field never hides the token.
type credentialBody struct {
	Token string `json:"token"`
}

// Sync godoc
// @Summary Record active engagement time
// @Description Stores a time sample reported by the client tracker
// @Tags analytics
// @Accept json
// @Produce json
// @Param request body services.Sample true "Engagement sample, optionally with a token field"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /analytics/sync [post]
func (ac *AnalyticsController) Sync(c *fiber.Ctx) error {
	return ac.record(c, false)
}

// Beacon godoc
// @Summary Record engagement time on page unload
// @Description Same contract as sync; storage failures are swallowed because nobody is listening
// @Tags analytics
// @Accept json,plain
// @Produce json
// @Param request body services.Sample true "Engagement sample, optionally with a token field"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /analytics/beacon [post]
func (ac *AnalyticsController) Beacon(c *fiber.Ctx) error {
	return ac.record(c, true)
}

func (ac *AnalyticsController) record(c *fiber.Ctx, beacon bool) error {
	// sendBeacon posts text/plain, so decode the raw body instead of BodyParser
	var (
		creds  credentialBody
		sample services.Sample
	)
	if body := c.Body(); len(body) > 0 {
		decode := c.App().Config().JSONDecoder
		if err := decode(body, &creds); err != nil {
			creds = credentialBody{}
		}
		if err := decode(body, &sample); err != nil {
			ac.Log.Debug("malformed engagement payload", "err", err, "beacon", beacon)
			sample = services.Sample{}
		}
	}

	// header, then body token, then ?token=
	credential := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if credential == "" {
		credential = strings.TrimSpace(creds.Token)
	}
	if credential == "" {
		credential = middleware.ExtractCredential(c)
	}

	err := ac.Engagement.RecordEngagement(c.UserContext(), credential, sample)
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return utils.Unauthorized(c, "Unauthorized")
	case err != nil && beacon:
		ac.Log.Warn("beacon sample dropped", "err", err)
	case err != nil:
		return utils.InternalServerError(c, "Could not record engagement")
	}

	return utils.Message(c, "Time synced")
}
