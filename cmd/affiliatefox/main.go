package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/AffiliateFox/app/controllers"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apidoc"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/cache"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := NewApplication()

	jobs := jobqueue.GetManager(database.GetDB())
	jobs.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down...")
		jobs.Stop()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Printf("Shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/affiliatefox to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + apidoc.DefaultPath); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	ctx := context.Background()
	if _, err := apidoc.Load(ctx, basePath+apidoc.DefaultPath); err != nil {
		panic(err)
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		// client IPs are hashed per click; trust the proxy's forwarded header
		ProxyHeader: env.GetEnv("PROXY_HEADER", ""),
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + apidoc.DefaultPath,
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// CONTROLLERS
	if err := controllers.InitializeControllers(ctx, database.GetDB()); err != nil {
		panic(err)
	}

	// ROUTER
	router.InstallRouter(app)

	return app
}
