package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/smartcity/transitnet/internal/config"
	httpdelivery "github.com/smartcity/transitnet/internal/delivery/http"
	"github.com/smartcity/transitnet/internal/delivery/ws"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
	"github.com/smartcity/transitnet/internal/repository/postgres"
	"github.com/smartcity/transitnet/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()

	// Road network: YAML topology if configured, built-in city map otherwise
	var net *network.RoadNetwork
	if cfg.TopologyFile != "" {
		loaded, err := network.LoadFile(cfg.TopologyFile)
		if err != nil {
			log.Fatalf("Failed to load topology: %v", err)
		}
		net = loaded
		log.Printf("Loaded topology from %s", cfg.TopologyFile)
	} else {
		net = network.SampleNetwork()
		log.Println("Using built-in sample city map")
	}

	// Database connection
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running with in-memory archive only")
		} else {
			defer p.Close()
			log.Println("Connected to PostgreSQL")
			pool = p
		}
	} else {
		log.Println("No DATABASE_URL configured, running with in-memory archive only")
	}

	// Dependency Injection: Repositories
	var repo domain.EventRepository
	if pool != nil {
		repo = postgres.NewPostgresRepository(pool)
	} else {
		repo = postgres.NewMockRepository()
	}

	// Event fan-out: stats, persistence, websocket feed
	events := service.NewEventStream()
	stats := service.NewStatsCollector()
	persister := service.NewPersister(repo)

	rootCtx, stop := context.WithCancel(context.Background())
	go stats.Run(rootCtx, events.Subscribe(256))
	go persister.Run(rootCtx, events.Subscribe(256))

	wsServer := ws.NewServer(events.Subscribe(256))
	go func() {
		if err := wsServer.Start(":" + cfg.WSPort); err != nil {
			log.Printf("Websocket server error: %v", err)
		}
	}()

	// Simulation
	sim := service.NewSimulation(cfg, net, repo, events)
	sim.Start(rootCtx)
	go sim.RunDemand(rootCtx)

	// Dependency Injection: Services
	dashboardSvc := service.NewDashboardService(sim.Fleet(), stats, net, repo)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "TransitNet API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	httpdelivery.SetupRoutes(app, dashboardSvc, repo)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()
	sim.Stop()
	events.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Websocket server forced to shutdown: %v", err)
	}
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
