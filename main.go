package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"scw/config"
	"scw/database"
	authRoutes "scw/routers/authRoutes"
	courseRoutes "scw/routers/courseRoutes"
	groupRoutes "scw/routers/groupRoutes"
	submissionRoutes "scw/routers/submissionRoutes"
	supportRoutes "scw/routers/supportRoutes"
	"scw/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	pool := utils.NewWorkerPool(config.AppConfig.ProvisionWorkers)
	utils.Provision = utils.NewProvisioner(database.Database.Db, pool)

	scheduler := utils.InitializeMaintenanceScheduler(database.Database.Db)

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // lesson videos
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	// Serve uploaded media (videos, materials, submission archives)
	app.Static("/media", config.AppConfig.MediaRoot)

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	courseRoutes.SetupAdminCourseRoutes(app)
	groupRoutes.SetupGroupRoutes(app)
	submissionRoutes.SetupSubmissionRoutes(app)
	supportRoutes.SetupSupportRoutes(app)

	// Shut down in order: stop accepting requests, stop the scheduler, then
	// drain queued provisioning jobs so no copy is cut off mid-write.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	<-scheduler.Stop().Done()
	pool.Shutdown()
	log.Println("Shutdown complete")
}
