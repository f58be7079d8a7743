// Package main runs the onboarding HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clarovate/onboarding/config"
	"github.com/clarovate/onboarding/internal/auth"
	"github.com/clarovate/onboarding/internal/emaillogs"
	"github.com/clarovate/onboarding/internal/invitations"
	"github.com/clarovate/onboarding/internal/mail"
	"github.com/clarovate/onboarding/internal/middleware"
	"github.com/clarovate/onboarding/internal/models"
	"github.com/clarovate/onboarding/internal/organizations"
	"github.com/clarovate/onboarding/internal/redemption"
	"github.com/clarovate/onboarding/internal/sequence"
	"github.com/clarovate/onboarding/internal/worker"
	"github.com/clarovate/onboarding/pkg/database"
	"github.com/clarovate/onboarding/pkg/queue"
	"github.com/clarovate/onboarding/pkg/redis"
	"github.com/clarovate/onboarding/pkg/response"
	"github.com/clarovate/onboarding/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var seq sequence.Generator
	switch cfg.Sequence.Backend {
	case "redis":
		redisSeq := sequence.NewRedisGenerator(rdb.Client)
		floor, err := auth.NewRepository(pool).MaxAccountNumber(ctx, auth.AccountIDPrefix)
		if err != nil {
			logger.Fatal("account sequence floor", zap.Error(err))
		}
		if _, err := redisSeq.EnsureAtLeast(ctx, sequence.User, floor); err != nil {
			logger.Fatal("account sequence floor", zap.Error(err))
		}
		seq = redisSeq
	default:
		seq = sequence.NewPostgresGenerator(pool)
	}
	logger.Info("account sequence backend", zap.String("backend", cfg.Sequence.Backend))

	hasher := utils.NewHasher(cfg.Invitation.BcryptCost)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Accounts
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, hasher, jwtService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgService := organizations.NewService(orgRepo, logger)
	orgHandler := organizations.NewHandler(orgService)

	if _, err := orgService.EnsureInternal(ctx, cfg.Organization.Name, cfg.Organization.Email); err != nil {
		logger.Fatal("internal organization", zap.Error(err))
	}
	if err := auth.BootstrapAdmin(ctx, authRepo, seq, hasher, auth.AdminSeed{
		Email:     cfg.Admin.Email,
		Password:  cfg.Admin.Password,
		FirstName: cfg.Admin.FirstName,
		LastName:  cfg.Admin.LastName,
	}, logger); err != nil {
		logger.Fatal("admin bootstrap", zap.Error(err))
	}

	// Invitations
	invitationRepo := invitations.NewRepository(pool)
	invitationService := invitations.NewService(invitationRepo, authRepo, orgService,
		mail.NewQueueDispatcher(jobQueue, logger),
		invitations.Options{
			BaseURL:      cfg.Invitation.BaseURL,
			PlatformName: cfg.Invitation.PlatformName,
			TTL:          cfg.Invitation.TTL,
			ResendTTL:    cfg.Invitation.ResendTTL,
		}, logger)
	invitationHandler := invitations.NewHandler(invitationService)

	// Redemption
	redemptionService := redemption.NewService(invitationRepo, seq, hasher, redemption.NewTxFinalizer(pool), logger)
	redemptionHandler := redemption.NewHandler(redemptionService)

	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: invite page and redemption
	router.GET("/invite/:token", redemptionHandler.Lookup)
	router.POST("/invite/redeem", redemptionHandler.Redeem)
	router.POST("/auth/login", authHandler.Login)

	admins := []string{string(models.RoleAdmin), string(models.RoleCoAdmin)}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService.Actor))
	{
		api.GET("/auth/me", authHandler.Me)

		// Invitations
		api.POST("/sendinvitation", middleware.RequireRole(admins...), invitationHandler.Send)
		api.POST("/resendinvitation", middleware.RequireRole(admins...), invitationHandler.Resend)
		api.GET("/invitations", middleware.RequireRole(admins...), invitationHandler.List)
		api.DELETE("/invitations/:email", middleware.RequireRole(admins...), invitationHandler.Delete)

		// Users
		api.GET("/users", middleware.RequireRole(admins...), authHandler.List)
		api.PATCH("/users/:id/active", middleware.RequireRole(string(models.RoleAdmin)), authHandler.SetActive)

		// Organizations
		api.GET("/organizations", middleware.RequireRole(admins...), orgHandler.List)
		api.POST("/organizations", middleware.RequireRole(admins...), orgHandler.Create)
		api.GET("/organizations/:id", middleware.RequireRole(admins...), orgHandler.Get)
		api.PATCH("/organizations/:id", middleware.RequireRole(admins...), orgHandler.Update)
		api.DELETE("/organizations/:id", middleware.RequireRole(string(models.RoleAdmin)), orgHandler.Delete)

		// Delivery logs
		api.GET("/email-logs", middleware.RequireRole(admins...), emailLogsHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Email delivery in-process, for single-binary deployments
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Email.WorkerInline {
		sender, err := mail.NewSender(smtpConfig(cfg.Email), logger)
		if err != nil {
			logger.Fatal("smtp sender", zap.Error(err))
		}
		processor := worker.NewEmailProcessor(jobQueue, sender, emailLogsRepo, logger)
		go processor.Run(workerCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func smtpConfig(c config.EmailConfig) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:        c.SMTPHost,
		Port:        c.SMTPPort,
		User:        c.SMTPUser,
		Pass:        c.SMTPPass,
		FromAddress: c.FromAddress,
		FromName:    c.FromName,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
