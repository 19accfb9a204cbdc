package routes

import (
	"philosofium/backend/config"
	"philosofium/backend/controllers"
	"philosofium/backend/middleware"
	"philosofium/backend/services"
	"philosofium/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Services is the engine wiring shared by all handlers.
type Services struct {
	Identity   services.Identity
	Engagement *services.EngagementService
	Engine     *services.Engine
}

// NewServices builds the engine on top of db using the configured timezone and retry budget.
func NewServices(db *gorm.DB, cfg *config.Config, logger *utils.Logger) *Services {
	identity := services.NewJWTIdentity(cfg.JWTSecret)
	learners := services.NewLearnerStore(db, cfg.StreakMaxRetries)
	interactions := services.NewInteractionStore(db)
	badges := services.NewBadgeService(db, interactions, logger)
	calendar := services.NewCalendar(cfg.Location, nil)

	return &Services{
		Identity:   identity,
		Engagement: services.NewEngagementService(db, identity, learners, logger),
		Engine: services.NewEngine(db, learners, interactions, badges,
			services.NewGormContentDirectory(db), calendar, logger),
	}
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, svc *Services, logger *utils.Logger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.Message(c, "ok")
	})

	// Engagement ingestion; auth is resolved inside because beacons carry the token in the body
	analyticsController := controllers.NewAnalyticsController(svc.Engagement, logger)
	analytics := app.Group("/analytics")
	analytics.Post("/sync", analyticsController.Sync)
	analytics.Post("/beacon", analyticsController.Beacon)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, svc.Engine, logger)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	learnerMiddleware := middleware.LearnerMiddleware(svc.Identity)

	// Progress routes
	progressController := controllers.NewProgressController(svc.Engine, logger)
	app.Get("/api/progress", learnerMiddleware, progressController.GetProgress)

	// Materials routes
	materialsController := controllers.NewMaterialsController(svc.Engine, logger)
	materials := app.Group("/api/materials", learnerMiddleware)
	materials.Post("/:id/view", materialsController.View)
	materials.Post("/:id/complete", materialsController.Complete)
}

// NewApp creates the fiber app with the shared middleware stack.
func NewApp(cfg *config.Config, logger *utils.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          utils.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	return app
}
