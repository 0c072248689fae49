package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"edumesh/config"
	"edumesh/database"
	"edumesh/database/seeders"
	"edumesh/middleware"
	"edumesh/routes"
	"edumesh/services"
	"edumesh/services/notifications"
	"edumesh/services/websocket"
	"edumesh/utils"
)

func main() {
	config.LoadConfig()
	setupLogger()

	database.Connect()
	defer database.Close()

	if config.AppConfig.SeedDemoData {
		if err := seeders.SeedDemoData(); err != nil {
			logrus.WithError(err).Warn("Demo data seeding failed")
		}
	}

	hub := websocket.NewHub()
	go hub.Run()

	notifier := notifications.NewService()
	notifications.SetDefaultWSHub(hub)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	notifier.StartWorker(workerCtx)

	sweeper := services.NewSweeper(notifier)
	if err := sweeper.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start maintenance sweeper")
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "EduMesh API",
		BodyLimit:    int(config.AppConfig.MaxFileSize) + 1024*1024,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RateLimiter())
	app.Use(middleware.LoggerMiddleware())

	health := services.NewHealthService("EduMesh API", "1.0.0")
	routes.SetupRoutes(app, notifier, hub, health)

	app.Use(func(c *fiber.Ctx) error {
		return utils.Error(c, fiber.StatusNotFound, "Route not found")
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + config.AppConfig.Port
	logrus.WithField("addr", addr).Info("EduMesh API listening")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// errorHandler renders unhandled errors in the standard envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
		message = fe.Message
	}
	if code >= 500 {
		logrus.WithFields(logrus.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).WithError(err).Error("Request failed")
	}
	return utils.Error(c, code, message)
}
