package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/school-logistics/roster-api/api/swagger"
	"github.com/school-logistics/roster-api/internal/handler"
	"github.com/school-logistics/roster-api/internal/middleware"
	"github.com/school-logistics/roster-api/internal/models"
	"github.com/school-logistics/roster-api/internal/repository"
	"github.com/school-logistics/roster-api/internal/service"
	"github.com/school-logistics/roster-api/pkg/cache"
	"github.com/school-logistics/roster-api/pkg/config"
	"github.com/school-logistics/roster-api/pkg/database"
	"github.com/school-logistics/roster-api/pkg/logger"
	corsmiddleware "github.com/school-logistics/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/school-logistics/roster-api/pkg/middleware/requestid"
)

// @title School Roster API
// @version 1.0.0
// @description Student roster CRUD with token auth and role-based access
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	sugar := logr.Sugar()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		sugar.Fatalw("failed to run migrations", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			sugar.Fatalw("failed to connect to redis", "error", err)
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := service.NewValidator()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	tokenService := service.NewTokenService(cfg.JWT)
	authService := service.NewAuthService(userRepo, tokenService, validate, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, cacheRepo, cfg.Students.CacheTTL, validate, logr, metricsService)

	if cfg.Seed.DefaultUsers {
		if err := userService.SeedDefaults(context.Background()); err != nil {
			sugar.Fatalw("failed to seed default users", "error", err)
		}
	}

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	userHandler := handler.NewUserHandler(userService)
	healthHandler := handler.NewHealthHandler(db)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	api := r.Group(cfg.APIPrefix)
	api.POST("/signup", authHandler.Signup)
	api.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	{
		authed.GET("/students", studentHandler.List)
		authed.POST("/students", studentHandler.Create)
		authed.GET("/students/:id", studentHandler.Get)
		authed.PUT("/students/:id", studentHandler.Update)
		authed.DELETE("/students/:id", studentHandler.Delete)
	}

	admin := r.Group("")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET(cfg.APIPrefix+"/students/export", studentHandler.Export)
		admin.GET(cfg.APIPrefix+"/users", userHandler.List)
		admin.POST(cfg.APIPrefix+"/users", userHandler.Create)
		admin.PUT(cfg.APIPrefix+"/users/:id", userHandler.Update)
		admin.DELETE(cfg.APIPrefix+"/users/:id", userHandler.Delete)
		admin.GET("/health", healthHandler.Health)
		admin.GET("/metrics", metricsHandler.Prometheus)
		admin.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
}
