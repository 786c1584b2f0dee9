package server

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/assetfiles/internal/config"
	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/mansoorceksport/assetfiles/internal/handler"
	"github.com/mansoorceksport/assetfiles/internal/middleware"
	"github.com/mansoorceksport/assetfiles/internal/repository"
	"github.com/mansoorceksport/assetfiles/internal/service"
	"github.com/mansoorceksport/assetfiles/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	// ContentRepo stores uploaded bytes. Leave nil when the object store is
	// unreachable; uploads then fail with 503 while redirects keep working.
	ContentRepo domain.ContentRepository
	Policies    domain.PolicyProvider
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	assetFileRepo := repository.NewMongoAssetFileRepository(deps.MongoDB)
	redisRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	cachedAssetFileRepo := repository.NewCachedAssetFileRepository(assetFileRepo, redisRepo)

	policies := deps.Policies
	if policies == nil {
		policies = service.DefaultPolicyTable()
	}

	// Duplicate lookups go straight to Mongo, never through the cache
	validator := service.NewAttachmentValidator(policies, service.NewMimeGuesser(), assetFileRepo)
	assetFileService := service.NewAssetFileService(validator, cachedAssetFileRepo, deps.ContentRepo)

	assetFileHandler := handler.NewAssetFileHandler(assetFileService, deps.Config.Server.MaxUploadSizeMB)

	app := fiber.New(fiber.Config{
		AppName: "Asset Files API",
		// base64 inflates payloads by a third, leave room for it
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB*1024*1024) * 4 / 3,
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(telemetry.FiberMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "assetfiles",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Config.Server.IdempotencyTTL))

	files := v1.Group("/assets/:assetUID/files")
	files.Post("/", assetFileHandler.Create)
	files.Get("/", assetFileHandler.List)
	files.Get("/:uid", assetFileHandler.Get)
	files.Delete("/:uid", assetFileHandler.Delete)
	files.Get("/:uid/content", assetFileHandler.Content)

	return app
}

// customErrorHandler handles errors that escape the handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
