package controllers

import (
	"errors"

	"philosofium/backend/config"
	"philosofium/backend/models"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *services.Engine
	Log    *utils.Logger
}

func NewAuthController(db *gorm.DB, cfg *config.Config, engine *services.Engine, log *utils.Logger) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Engine: engine, Log: log.With("controller", "auth")}
}

// Login godoc
// @Summary User login
// @Description Authenticate user, return JWT token and the login's gamification outcome
// @Tags auth
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	// Find account
	var account models.Account
	if err := ac.DB.WithContext(c.UserContext()).Where("username = ?", input.Username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(account.ID, account.Role, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	response := fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       account.ID,
			"username": account.Username,
			"role":     account.Role,
		},
	}

	// Gamification must not block a successful login
	principal := services.Principal{LearnerID: models.LearnerID(account.ID), Role: account.Role}
	if principal.IsLearner() {
		outcome, err := ac.Engine.RecordLogin(c.UserContext(), principal.LearnerID)
		if err != nil {
			ac.Log.Error("record login failed", "learnerId", account.ID, "err", err)
		} else {
			response["gamification"] = outcome
		}
	}

	return utils.Success(c, fiber.StatusOK, response)
}
