package controllers

import (
	"errors"

	"philosofium/backend/middleware"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type MaterialsController struct {
	Engine   *services.Engine
	Log      *utils.Logger
	validate *validator.Validate
}

func NewMaterialsController(engine *services.Engine, log *utils.Logger) *MaterialsController {
	return &MaterialsController{
		Engine:   engine,
		Log:      log.With("controller", "materials"),
		validate: validator.New(),
	}
}

type completeRequest struct {
	CourseCompletionPercent *float64 `json:"courseCompletionPercent" validate:"omitempty,gte=0,lte=100"`
}

// View godoc
// @Summary Record a material view
// @Description First view awards XP and counts toward the lesson streak and daily goal
// @Tags materials
// @Produce json
// @Param id path int true "Material ID"
// @Success 200 {object} services.Outcome
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /materials/{id}/view [post]
func (mc *MaterialsController) View(c *fiber.Ctx) error {
	materialID, err := c.ParamsInt("id")
	if err != nil || materialID <= 0 {
		return utils.BadRequest(c, "Invalid material ID")
	}

	outcome, err := mc.Engine.RecordMaterialView(c.UserContext(), middleware.LearnerFromCtx(c), uint(materialID))
	if err != nil {
		return respondEngineError(c, mc.Log, err)
	}
	return utils.Success(c, fiber.StatusOK, outcome)
}

// Complete godoc
// @Summary Mark a material completed
// @Description Awards completion XP once, plus the quiz bonus for quizzes
// @Tags materials
// @Accept json
// @Produce json
// @Param id path int true "Material ID"
// @Param request body completeRequest false "Course context"
// @Success 200 {object} services.Outcome
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /materials/{id}/complete [post]
func (mc *MaterialsController) Complete(c *fiber.Ctx) error {
	materialID, err := c.ParamsInt("id")
	if err != nil || materialID <= 0 {
		return utils.BadRequest(c, "Invalid material ID")
	}

	var input completeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.BadRequest(c, "Cannot parse JSON")
		}
	}
	if err := mc.validate.Struct(input); err != nil {
		return utils.BadRequest(c, "courseCompletionPercent must be between 0 and 100")
	}

	outcome, err := mc.Engine.RecordMaterialCompletion(c.UserContext(), middleware.LearnerFromCtx(c), uint(materialID),
		services.BadgeContext{CourseCompletionPercent: input.CourseCompletionPercent})
	if err != nil {
		return respondEngineError(c, mc.Log, err)
	}
	return utils.Success(c, fiber.StatusOK, outcome)
}

func respondEngineError(c *fiber.Ctx, log *utils.Logger, err error) error {
	switch {
	case errors.Is(err, services.ErrMaterialNotFound):
		return utils.NotFound(c, "Material not found")
	case errors.Is(err, services.ErrInvalidLearner):
		return utils.Unauthorized(c, "Unauthorized")
	case errors.Is(err, services.ErrConcurrentUpdate):
		log.Warn("learner update contention", "err", err)
		return utils.Error(c, fiber.StatusConflict, err)
	default:
		log.Error("engine call failed", "err", err)
		return utils.InternalServerError(c, "Could not update progress")
	}
}
