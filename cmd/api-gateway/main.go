package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/roadready/drivemis-api/api/swagger"
	"github.com/roadready/drivemis-api/internal/handler"
	"github.com/roadready/drivemis-api/internal/middleware"
	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	"github.com/roadready/drivemis-api/internal/service"
	"github.com/roadready/drivemis-api/pkg/cache"
	"github.com/roadready/drivemis-api/pkg/config"
	"github.com/roadready/drivemis-api/pkg/database"
	"github.com/roadready/drivemis-api/pkg/export"
	"github.com/roadready/drivemis-api/pkg/logger"
	corsmiddleware "github.com/roadready/drivemis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roadready/drivemis-api/pkg/middleware/requestid"
)

// @title DriveMIS API
// @version 1.0.0
// @description Driving school administration backend
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
	} else {
		redisClient = client
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	codegen := service.NewCodeGenerator(cfg.Codegen.MaxAttempts)

	branchRepo := repository.NewBranchRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	facilityRepo := repository.NewFacilityRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Utilization.CacheTTL, logr,
		cfg.Utilization.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	branchSvc := service.NewBranchService(branchRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, sessionRepo, codegen, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, branchRepo, codegen, validate, logr)
	vehicleSvc := service.NewVehicleService(vehicleRepo, branchRepo, codegen, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, branchRepo, codegen, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, branchRepo, sessionRepo, codegen, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, enrollmentRepo, courseRepo, instructorRepo, facilityRepo, classroomRepo, cacheSvc, metricsSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(vehicleRepo, classroomRepo, instructorRepo, sessionRepo, validate, logr)
	recommendationSvc := service.NewRecommendationService(availabilitySvc, enrollmentRepo, courseRepo, facilityRepo, sessionRepo, cfg.Recommendation.MainBranch, validate, logr)
	utilizationSvc := service.NewUtilizationService(sessionRepo, vehicleRepo, classroomRepo, instructorRepo, cacheSvc, cfg.Utilization.CacheTTL, logr)
	reportSvc := service.NewReportService(utilizationSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	branchHandler := handler.NewBranchHandler(branchSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	vehicleHandler := handler.NewVehicleHandler(vehicleSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	recommendationHandler := handler.NewRecommendationHandler(recommendationSvc, logr)
	utilizationHandler := handler.NewUtilizationHandler(utilizationSvc, reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))

	authed.GET("/branches", branchHandler.List)
	authed.GET("/branches/:name", branchHandler.Get)
	staff.POST("/branches", branchHandler.Create)
	staff.PUT("/branches/:name", branchHandler.Update)
	staff.DELETE("/branches/:name", branchHandler.Delete)

	authed.GET("/course-categories", courseHandler.ListCategories)
	staff.POST("/course-categories", courseHandler.CreateCategory)
	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/:code", courseHandler.Get)
	staff.POST("/courses", courseHandler.Create)
	staff.PUT("/courses/:code", courseHandler.Update)
	staff.DELETE("/courses/:code", courseHandler.Delete)

	authed.GET("/students", studentHandler.List)
	authed.GET("/students/:code", studentHandler.Get)
	authed.GET("/students/:code/enrollments", studentHandler.Enrollments)
	authed.GET("/students/:code/sessions", studentHandler.Sessions)
	staff.POST("/students", studentHandler.Create)
	staff.PUT("/students/:code", studentHandler.Update)
	staff.DELETE("/students/:code", studentHandler.Delete)

	authed.GET("/instructors", instructorHandler.List)
	authed.GET("/instructors/:code", instructorHandler.Get)
	staff.POST("/instructors", instructorHandler.Create)
	staff.PUT("/instructors/:code", instructorHandler.Update)
	staff.DELETE("/instructors/:code", instructorHandler.Delete)

	authed.GET("/vehicles", vehicleHandler.List)
	authed.GET("/vehicles/:code", vehicleHandler.Get)
	staff.POST("/vehicles", vehicleHandler.Create)
	staff.PUT("/vehicles/:code", vehicleHandler.Update)
	staff.DELETE("/vehicles/:code", vehicleHandler.Delete)

	authed.GET("/classrooms", classroomHandler.List)
	authed.GET("/classrooms/:code", classroomHandler.Get)
	staff.POST("/classrooms", classroomHandler.Create)
	staff.PUT("/classrooms/:code", classroomHandler.Update)
	staff.DELETE("/classrooms/:code", classroomHandler.Delete)

	authed.GET("/enrollments", enrollmentHandler.List)
	authed.GET("/enrollments/:id", enrollmentHandler.Get)
	authed.GET("/enrollments/:id/theory-slots", recommendationHandler.OpenTheorySlots)
	authed.GET("/enrollments/:id/theory-slots/match", recommendationHandler.MatchTheorySlots)
	staff.POST("/enrollments", enrollmentHandler.Create)
	staff.PUT("/enrollments/:id", enrollmentHandler.Update)
	staff.POST("/enrollments/:id/refresh-status", enrollmentHandler.RefreshStatus)
	staff.POST("/enrollments/:id/forfeit", enrollmentHandler.Forfeit)
	staff.DELETE("/enrollments/:id", enrollmentHandler.Delete)

	authed.GET("/sessions", sessionHandler.List)
	authed.GET("/sessions/:id", sessionHandler.Get)
	staff.POST("/sessions", sessionHandler.Schedule)
	staff.POST("/sessions/:id/reschedule", sessionHandler.Reschedule)
	staff.PATCH("/sessions/:id/status", sessionHandler.SetStatus)
	staff.DELETE("/sessions/:id", sessionHandler.Delete)

	authed.GET("/availability/vehicles", availabilityHandler.Vehicles)
	authed.GET("/availability/instructors", availabilityHandler.Instructors)
	authed.GET("/availability/classrooms", availabilityHandler.Classrooms)
	staff.POST("/recommendations", recommendationHandler.Recommend)

	authed.GET("/utilization/instructors", utilizationHandler.Instructors)
	authed.GET("/utilization/vehicles", utilizationHandler.Vehicles)
	authed.GET("/utilization/classrooms", utilizationHandler.Classrooms)
	authed.GET("/utilization/export/:kind", utilizationHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
