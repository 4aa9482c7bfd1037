package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	assistantbiz "github.com/duongdat/filehub-backend/internal/assistant/biz"
	"github.com/duongdat/filehub-backend/internal/assistant/llm"
	assistantservice "github.com/duongdat/filehub-backend/internal/assistant/service"
	"github.com/duongdat/filehub-backend/internal/auth"
	authbiz "github.com/duongdat/filehub-backend/internal/auth/biz"
	authdata "github.com/duongdat/filehub-backend/internal/auth/data"
	authservice "github.com/duongdat/filehub-backend/internal/auth/service"
	"github.com/duongdat/filehub-backend/internal/authz"
	"github.com/duongdat/filehub-backend/internal/conf"
	filebiz "github.com/duongdat/filehub-backend/internal/file/biz"
	filedata "github.com/duongdat/filehub-backend/internal/file/data"
	fileservice "github.com/duongdat/filehub-backend/internal/file/service"
	"github.com/duongdat/filehub-backend/internal/file/storage"
	orgbiz "github.com/duongdat/filehub-backend/internal/org/biz"
	orgdata "github.com/duongdat/filehub-backend/internal/org/data"
	orgservice "github.com/duongdat/filehub-backend/internal/org/service"
	"github.com/duongdat/filehub-backend/internal/pkg/database"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/minio"
	"github.com/duongdat/filehub-backend/internal/server"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize database
	db, err := database.New(&config.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(
		&authdata.UserPO{},
		&filedata.FilePO{},
		&orgdata.DepartmentPO{},
		&orgdata.ProjectPO{},
		&orgdata.UserDepartmentPO{},
		&orgdata.UserProjectPO{},
	); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize storage backends
	minioClient, err := minio.NewClient(&config.MinIO, log.Logger)
	if err != nil {
		log.Fatal("failed to connect to object storage", zap.Error(err))
	}

	primary, err := storage.NewMinIOStore(context.Background(), minioClient)
	if err != nil {
		log.Fatal("failed to prepare object storage bucket", zap.Error(err))
	}

	fallback, err := storage.NewLocalStore(config.Storage.LocalRoot)
	if err != nil {
		log.Fatal("failed to prepare local storage", zap.Error(err))
	}

	// Initialize repositories
	userRepo := authdata.NewUserRepo(db)
	fileRepo := filedata.NewFileRepo(db)
	departmentRepo := orgdata.NewDepartmentRepo(db)
	projectRepo := orgdata.NewProjectRepo(db)
	assignmentRepo := orgdata.NewAssignmentRepo(db)

	evaluator := authz.NewEvaluator(userRepo, assignmentRepo.Departments(), assignmentRepo.Projects())

	// Initialize use cases
	jwtManager := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer, config.Auth.TokenDuration)
	authUseCase := authbiz.NewAuthUseCase(userRepo, jwtManager)

	fileUseCase := filebiz.NewFileUseCase(fileRepo, evaluator, primary, fallback, filebiz.UploadConfig{
		MaxSizeBytes:    config.Upload.MaxSizeBytes,
		KeepLocalBackup: config.Storage.KeepLocalBackup,
	}, log)

	orgUseCase := orgbiz.NewOrgUseCase(departmentRepo, projectRepo, assignmentRepo, fileRepo, evaluator)

	var generator llm.Generator
	if config.OpenAI.Enabled {
		generator = llm.NewOpenAIGenerator(llm.Config{
			APIKey:  config.OpenAI.APIKey,
			BaseURL: config.OpenAI.BaseURL,
			Model:   config.OpenAI.Model,
		}, log)
	}
	chatUseCase := assistantbiz.NewChatUseCase(fileUseCase, generator, config.OpenAI.Enabled, log)

	// Initialize services
	authService := authservice.NewAuthService(authUseCase, log)
	fileService := fileservice.NewFileService(fileUseCase, log)
	orgService := orgservice.NewOrgService(orgUseCase, log)
	assistantService := assistantservice.NewAssistantService(chatUseCase, log)

	httpServer := server.NewHTTPServer(config, log, jwtManager, authService, fileService, orgService, assistantService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
