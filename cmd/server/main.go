package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/reelsmith/api/internal/client"
	"github.com/reelsmith/api/internal/config"
	"github.com/reelsmith/api/internal/handler"
	"github.com/reelsmith/api/internal/middleware"
	"github.com/reelsmith/api/internal/pipeline"
	"github.com/reelsmith/api/internal/render"
	"github.com/reelsmith/api/internal/service"
	"github.com/reelsmith/api/internal/speechq"
	"github.com/reelsmith/api/internal/store"
	ws "github.com/reelsmith/api/internal/websocket"
	"github.com/reelsmith/api/internal/worker"
)

func main() {
	// Load .env for local development; real deployments use the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqInspector.Close()

	// Open MySQL store
	st, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	textClient := client.NewTextGenClient(&cfg.TextGen)
	speechClient := client.NewSpeechClient(&cfg.Speech)
	imageClient := client.NewImageClient(&cfg.Image)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, finished videos stay local")
	}

	// Process-wide speech queue: one synthesis batch at a time
	speechQueue := speechq.New(64)
	defer speechQueue.Close()

	// Scene renderer with the shared canvas and encode settings
	animator := render.Animator{
		Width:   cfg.Media.Width,
		Height:  cfg.Media.Height,
		FPS:     cfg.Media.FPS,
		ZoomMax: cfg.Media.ZoomMax,
		FadeSec: cfg.Media.FadeSec,
	}
	renderer := render.NewFFmpegRenderer(animator, cfg.Media.CRF, cfg.Media.KeyInterval)

	// Pipeline orchestrator
	orchOpts := pipeline.Options{
		Store:          st,
		Text:           textClient,
		Speech:         speechClient,
		Images:         imageClient,
		Renderer:       renderer,
		SpeechQueue:    speechQueue,
		Notifier:       hub,
		DataDir:        cfg.Paths.DataDir,
		CanvasWidth:    cfg.Media.Width,
		CanvasHeight:   cfg.Media.Height,
		ImageWorkers:   cfg.Media.ImageWorkers,
		RetryAttempts:  cfg.Pipeline.RetryAttempts,
		RetryBaseDelay: time.Duration(cfg.Pipeline.RetryBaseMs) * time.Millisecond,
		DefaultVoice:   cfg.Pipeline.DefaultVoice,
	}
	if r2Client != nil {
		orchOpts.Publisher = r2Client
	}
	orch := pipeline.New(orchOpts)

	// Initialize services
	var storage client.StorageClient
	if r2Client != nil {
		storage = r2Client
	}
	projectService := service.NewProjectService(st, asynqClient, asynqInspector, speechClient, storage, cfg.Pipeline.DefaultScenes, cfg.Pipeline.DefaultVoice)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(projectService, validate)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"textgen": textClient.IsConfigured(),
				"speech":  speechClient.IsConfigured(),
				"image":   imageClient.IsConfigured(),
				"r2":      r2Client != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api")

	projects := api.Group("/projects")
	projects.Post("/", rateLimiter.CreateLimit(cfg.RateLimit.CreatePerHour), projectHandler.Create)
	projects.Post("/:id/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), projectHandler.Generate)
	projects.Get("/:id", projectHandler.Status)
	projects.Get("/:id/scenes", projectHandler.Scenes)
	projects.Get("/:id/logs", projectHandler.Logs)
	projects.Get("/:id/video", projectHandler.Video)
	projects.Get("/:id/subtitles", projectHandler.Subtitles)

	api.Get("/voices", projectHandler.Voices)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/projects/:id", websocket.New(func(c *websocket.Conn) {
		projectID := c.Params("id")
		hub.HandleConnection(c, projectID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, orch, hub)

	// Start the stuck-project sweeper
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	if cfg.Sweeper.Enabled {
		sweeper := service.NewSweeper(st, orch,
			time.Duration(cfg.Sweeper.TimeoutMinutes)*time.Minute,
			time.Duration(cfg.Sweeper.IntervalSec)*time.Second,
		)
		go sweeper.Run(sweepCtx)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancelSweep()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, orch *pipeline.Orchestrator, hub *ws.Hub) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.WorkerCount,
			Queues: map[string]int{
				"pipeline": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	pipelineWorker := worker.NewPipelineWorker(orch, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePipelineAdvance, pipelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
