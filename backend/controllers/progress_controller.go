package controllers

import (
	"philosofium/backend/middleware"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Engine *services.Engine
	Log    *utils.Logger
}

func NewProgressController(engine *services.Engine, log *utils.Logger) *ProgressController {
	return &ProgressController{Engine: engine, Log: log.With("controller", "progress")}
}

// GetProgress godoc
// @Summary Get learner progress
// @Description Returns XP, streaks, today's goal, engagement totals and earned badges
// @Tags progress
// @Produce json
// @Success 200 {object} services.Summary
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	summary, err := pc.Engine.Summary(c.UserContext(), middleware.LearnerFromCtx(c))
	if err != nil {
		return respondEngineError(c, pc.Log, err)
	}
	return utils.Success(c, fiber.StatusOK, summary)
}
