package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/api/handlers"
	"github.com/postpilothq/postpilot/internal/api/middleware"
	job "github.com/postpilothq/postpilot/internal/jobs"
	"github.com/postpilothq/postpilot/internal/platform"
	"github.com/postpilothq/postpilot/internal/queue"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	automationRepo := repository.NewAutomationRepository(db)
	jobRepo := repository.NewJobRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	publisher := platform.NewPublisher(*cfg)
	oauthProvider := platform.NewProvider(*cfg)
	generator := platform.NewGenerator(*cfg)
	emitter := queue.NewEmitter(client)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	creditService := service.NewCreditService(userRepo, creditRepo)
	postService := service.NewPostService(postRepo)
	scheduleService := service.NewScheduleService(db, userRepo, postRepo, jobRepo, creditService, emitter)
	publishService := service.NewPublishService(userRepo, postRepo, accountRepo, usageRepo, creditService, publisher)
	generationService := service.NewGenerationService(userRepo, usageRepo, postService, creditService, generator)
	automationService := service.NewAutomationService(userRepo, automationRepo, generationService, scheduleService)
	accountService := service.NewAccountService(*cfg, accountRepo, userRepo, oauthProvider)
	limitsService := service.NewLimitsService(userRepo, postRepo, accountRepo, automationRepo, usageRepo, creditService)
	mediaService := service.NewMediaService(*cfg)
	subscriptionService := service.NewSubscriptionService(userRepo, subscriptionRepo, creditService)
	adminService := service.NewAdminService(userRepo, postRepo, jobRepo, creditRepo, subscriptionRepo, creditService, emitter)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, userService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	account := handlers.NewAccountHandler(accountService, *cfg)
	app.Get("/auth/:platform", account.ConnectAccount)
	app.Get("/auth/:platform/callback", account.CallbackHandler)

	payment := handlers.NewPaymentHandler(subscriptionService)
	app.Post("/webhooks/subscription", payment.PaymentWebhook)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	post := handlers.NewPostHandler(postService, scheduleService, publishService)
	api.Post("/posts/create", post.CreateDraft)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/schedule/cancel", post.CancelSchedule)
	api.Post("/posts/publish", post.PublishNow)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadImage)

	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/remove", account.DisconnectAccount)

	generation := handlers.NewGenerationHandler(generationService)
	api.Post("/generate", generation.GenerateContent)

	automation := handlers.NewAutomationHandler(automationService)
	api.Post("/automations/create", automation.CreateRule)
	api.Get("/automations", automation.ListRules)
	api.Post("/automations/toggle", automation.SetRuleActive)
	api.Post("/automations/remove", automation.RemoveRule)

	limits := handlers.NewLimitsHandler(limitsService)
	api.Get("/limits", limits.GetLimits)

	admin := handlers.NewAdminHandler(adminService)
	adminGroup := api.Group("/admin")
	adminGroup.Use(authMiddleware.AdminMiddleware())
	adminGroup.Get("/jobs", admin.ListJobs)
	adminGroup.Post("/jobs/:id/retry", admin.RetryJob)
	adminGroup.Post("/credits/adjust", admin.AdjustCredits)
	adminGroup.Get("/reservations", admin.UserReservations)
	adminGroup.Get("/stats", admin.Stats)

	// queue worker
	queueW := queue.NewWorker(jobRepo, postRepo, publishService, automationService, creditRepo)

	// cron jobs
	scheduledSweep := job.NewScheduledSweepJob(postRepo, creditRepo, publishService, queueW)
	automationDispatch := job.NewAutomationDispatchJob(automationRepo, jobRepo, emitter)
	creditRefill := job.NewCreditRefillJob(userRepo, creditService)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", scheduledSweep.Run)
	c.AddFunc("@every 01h00m00s", automationDispatch.Run)
	c.AddFunc("@every 24h00m00s", creditRefill.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSchedulePost, queueW.HandleSchedulePostTask)
		mux.HandleFunc(queue.TaskTypeAutomationRule, queueW.HandleAutomationRuleTask)
		mux.HandleFunc(queue.TaskTypeCreditCheck, queueW.HandleCreditCheckTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
