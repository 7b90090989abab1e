package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"santri-progress-system/config"
	"santri-progress-system/handlers"
	"santri-progress-system/middleware"
	"santri-progress-system/repository/postgres"
	"santri-progress-system/services"
	"santri-progress-system/utils"
	"santri-progress-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedBadges {
		if err := postgres.SeedBadges(ctx, db); err != nil {
			log.Fatal("failed to seed badges: ", err)
		}
	}

	store := postgres.NewStore(db)
	pointsService := services.NewPointsService(store)
	badgeService := services.NewBadgeService(store)
	attendanceService := services.NewAttendanceService(store, cfg.Location)

	var uploader services.ObjectUploader
	r2Cfg := utils.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2Bucket,
		CDNBaseURL:      cfg.CDNBaseURL,
	}
	if r2Cfg.Enabled() {
		r2, err := utils.NewR2Client(ctx, r2Cfg)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		uploader = r2
	} else {
		log.Println("⚠️  R2 not configured, rekap export disabled")
	}
	reportService := services.NewReportService(attendanceService, uploader)

	var tokenValidator services.TokenValidator
	if cfg.AuthServiceURL != "" {
		tokenValidator = services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken)
	}

	sched, err := services.StartGamificationScheduler(ctx, services.SchedulerConfig{
		SweepInterval: cfg.BadgeSweepInterval,
		ReconcileAt:   cfg.ReconcileAt,
		Location:      cfg.Location,
	}, badgeService, pointsService)
	if err != nil {
		log.Fatal("failed to start scheduler: ", err)
	}

	if cfg.MasterdataSyncURL != "" {
		workers.NewRosterSyncWorker(store, cfg.MasterdataSyncURL, cfg.ServiceToken, cfg.SyncInterval, nil).Start(ctx)
	} else {
		log.Println("⚠️  MASTERDATA_SYNC_URL not set, roster sync disabled")
	}
	if cfg.PresensiSyncURL != "" {
		workers.NewAttendanceSyncWorker(store, cfg.PresensiSyncURL, cfg.ServiceToken, cfg.SyncInterval, cfg.Location, nil).Start(ctx)
	} else {
		log.Println("⚠️  PRESENSI_SYNC_URL not set, attendance sync disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:   "santri-progress-system",
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(middleware.Recovery())
	app.Use(middleware.RequestLogger(cfg.Location))

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
	app.Use(middleware.UserContextMiddleware())

	handlers.SetupProgressionRoutes(app, pointsService, badgeService)
	handlers.SetupBadgeRoutes(app, badgeService, middleware.SSEAuthMiddleware(tokenValidator))
	handlers.SetupAttendanceRoutes(app, attendanceService, reportService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
