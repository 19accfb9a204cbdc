package middleware

import (
	"strings"

	"philosofium/backend/models"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const learnerKey = "learner_id"

// ExtractCredential looks for a bearer credential in the Authorization header,
// then the "token" query parameter. Handlers that accept beacon bodies also
// check the body themselves, because a page-unload beacon cannot set headers.
func ExtractCredential(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		return h
	}
	return strings.TrimSpace(c.Query("token"))
}

// LearnerMiddleware resolves the credential and only lets learners through.
func LearnerMiddleware(identity services.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := identity.Resolve(c.UserContext(), ExtractCredential(c))
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if err := principal.RequireLearner(); err != nil {
			return utils.Forbidden(c, err.Error())
		}
		c.Locals(learnerKey, principal.LearnerID)
		return c.Next()
	}
}

// LearnerFromCtx returns the learner stored by LearnerMiddleware.
func LearnerFromCtx(c *fiber.Ctx) models.LearnerID {
	id, _ := c.Locals(learnerKey).(models.LearnerID)
	return id
}
