package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	"quoteapi-server/handlers"
	"quoteapi-server/middleware"
	"quoteapi-server/services"

	_ "quoteapi-server/docs"
)

// @title QuoteAPI Server
// @version 1.0
// @description Script endpoint execution platform with quote repositories
// @host localhost:3077
// @BasePath /
func main() {
	// Config
	serverPort := getEnv("SERVER_PORT", "3077")
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))

	// PostgreSQL Config
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	dbUser := getEnv("DB_USER", "quoteapi")
	dbPassword := getEnv("DB_PASSWORD", "quoteapi")
	dbName := getEnv("DB_NAME", "quoteapi")

	// Storage Config
	storageType := getEnv("STORAGE_TYPE", "local")
	storagePath := getEnv("STORAGE_PATH", "/data/code")

	// Execution Config
	jwtSecret := getEnv("JWT_SECRET", "quoteapi-dev-secret")
	apiBaseURL := getEnv("API_BASE_URL", "http://localhost:"+serverPort)
	execTimeoutMs, _ := strconv.Atoi(getEnv("EXEC_TIMEOUT_MS", "5000"))
	runRateLimit, _ := strconv.Atoi(getEnv("RUN_RATE_LIMIT", "60"))

	// Initialize services
	dbService, err := services.NewDBService(dbHost, dbPort, dbUser, dbPassword, dbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbService.Close()

	// Initialize database schema
	if err := dbService.InitSchema(context.Background()); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}
	log.Println("Database schema initialized")

	// Initialize code storage
	codeStorage, err := services.NewCodeStorage(storageType, storagePath)
	if err != nil {
		log.Fatalf("Failed to initialize code storage: %v", err)
	}
	log.Printf("Code storage initialized: %s (%s)", storageType, storagePath)

	// Initialize Redis service
	redisService := services.NewRedisService(redisHost, redisPort)

	// Initialize domain services
	configService := services.NewConfigService(dbService, redisService)
	contextBuilder := services.NewContextBuilder(configService, apiBaseURL)
	processRunner, err := services.NewProcessRunner()
	if err != nil {
		log.Fatalf("Failed to initialize process runner: %v", err)
	}
	endpointService := services.NewEndpointService(dbService, codeStorage, contextBuilder, processRunner, time.Duration(execTimeoutMs)*time.Millisecond)
	quoteService := services.NewQuoteService(dbService)
	authService := services.NewAuthService(dbService, jwtSecret)

	if err := authService.EnsureDefaultAdmin(context.Background()); err != nil {
		log.Fatalf("Failed to ensure default admin: %v", err)
	}

	// Initialize handlers
	endpointHandler := handlers.NewEndpointHandler(endpointService, redisService, runRateLimit)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	authHandler := handlers.NewAuthHandler(authService)
	adminHandler := handlers.NewAdminHandler(dbService, configService)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName: "QuoteAPI",
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Api-Key,X-Endpoint-Call-Depth,X-Endpoint-User-Id",
	}))
	app.Use(middleware.XRayMiddleware())
	app.Use(middleware.ResolveIdentity(authService))

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoints
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})

	// Public run surface
	app.Get("/endpoints/run/:name", endpointHandler.RunEndpoint)
	app.Post("/endpoints/run/:name", endpointHandler.RunEndpoint)

	// API routes
	api := app.Group("/api")

	// Public quote routes
	api.Get("/random/:repoName", quoteHandler.RandomQuote)
	api.Get("/quote/:id", quoteHandler.QuoteDetails)
	api.Get("/repositories/:id/stats", quoteHandler.RepositoryStats)

	// Auth routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Put("/auth/password", middleware.RequireAuth(), authHandler.ChangePassword)

	// API key routes
	keys := api.Group("/keys", middleware.RequireAuth())
	keys.Post("/", authHandler.CreateAPIKey)
	keys.Get("/", authHandler.ListAPIKeys)
	keys.Post("/:id/toggle", authHandler.ToggleAPIKey)
	keys.Put("/:id", authHandler.RenameAPIKey)
	keys.Delete("/:id", authHandler.DeleteAPIKey)

	// Endpoint management routes
	endpoints := api.Group("/endpoints", middleware.RequireAuth())
	endpoints.Post("/", endpointHandler.CreateEndpoint)
	endpoints.Get("/", endpointHandler.ListEndpoints)
	endpoints.Get("/:id", endpointHandler.GetEndpoint)
	endpoints.Put("/:id", endpointHandler.UpdateEndpoint)
	endpoints.Post("/:id/toggle", endpointHandler.ToggleEndpoint)
	endpoints.Delete("/:id", endpointHandler.DeleteEndpoint)

	// Repository management routes
	repos := api.Group("/repositories", middleware.RequireAuth())
	repos.Post("/", quoteHandler.CreateRepository)
	repos.Get("/", quoteHandler.ListRepositories)
	repos.Put("/:id", quoteHandler.UpdateRepository)
	repos.Delete("/:id", quoteHandler.DeleteRepository)
	repos.Post("/:id/quotes", quoteHandler.CreateQuote)
	repos.Get("/:id/quotes", quoteHandler.ListQuotes)

	quotes := api.Group("/quotes", middleware.RequireAuth())
	quotes.Put("/:id", quoteHandler.UpdateQuote)
	quotes.Delete("/:id", quoteHandler.DeleteQuote)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/endpoints", adminHandler.ListAllEndpoints)
	admin.Get("/repositories", adminHandler.ListAllRepositories)
	admin.Put("/endpoints/:id/visibility", adminHandler.SetEndpointVisibility)
	admin.Put("/repositories/:id/visibility", adminHandler.SetRepositoryVisibility)
	admin.Get("/ai-config", adminHandler.GetAIConfig)
	admin.Put("/ai-config", adminHandler.SetAIConfig)

	log.Printf("QuoteAPI Server starting on port %s", serverPort)
	log.Printf("Database: %s:%d/%s", dbHost, dbPort, dbName)
	log.Printf("Redis: %s:%d", redisHost, redisPort)
	log.Fatal(app.Listen(":" + serverPort))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
