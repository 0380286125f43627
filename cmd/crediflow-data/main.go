package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crediflow-data/internal/common/database"
	"crediflow-data/internal/common/logger"
	commonredis "crediflow-data/internal/common/redis"
	"crediflow-data/internal/config"
	httpapi "crediflow-data/internal/http"
	"crediflow-data/internal/repository"
	"crediflow-data/internal/service"
	"crediflow-data/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "crediflow-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	var kv store.KV = store.NewRedisKV(redisClient)
	if err := commonredis.Ping(context.Background(), redisClient); err != nil {
		log.Warn("Redis unavailable, catalog cache falls back to memory", zap.Error(err))
		kv = store.NewMemoryKV()
	}

	// DB 可选：连接失败时回退到内存 repo 支持本地联测
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for crediflow-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}

	var (
		catalogRepo  repository.FieldCatalogRepository
		recordsRepo  repository.DynamicColumnsRepository
		usersRepo    repository.UsersRepository
		requestsRepo repository.CreditRequestsRepository
		tenantsRepo  repository.TenantsRepository
	)
	if db != nil {
		catalogRepo = repository.NewPostgresFieldCatalogRepository(db)
		recordsRepo = repository.NewPostgresDynamicColumnsRepository(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
		requestsRepo = repository.NewPostgresCreditRequestsRepository(db)
		tenantsRepo = repository.NewPostgresTenantsRepository(db)
	} else {
		catalogRepo = repository.NewMemoryFieldCatalogRepository()
		recordsRepo = repository.NewMemoryDynamicColumnsRepository()
		usersRepo = repository.NewMemoryUsersRepository()
		requestsRepo = repository.NewMemoryCreditRequestsRepository()
		tenantsRepo = repository.NewMemoryTenantsRepository()
	}

	var events service.EventPublisher = service.NoopEventPublisher{}
	if cfg.Events.Enabled {
		events = service.NewRedisEventPublisher(redisClient, cfg.Events.Stream, log)
	}
	var notifier service.Notifier = service.NoopNotifier{}
	if cfg.Mailer.Enabled && cfg.Mailer.HttpAddress != "" {
		notifier = service.NewMailerClient(cfg.Mailer.HttpAddress, cfg.Mailer.APIKey, log)
	}

	catalogService := service.NewCatalogService(catalogRepo, kv, log)
	docFieldService := service.NewDocFieldService(recordsRepo, catalogService, log)
	subdocService := service.NewSubdocService(recordsRepo, log)
	requestService := service.NewCreditRequestService(requestsRepo, usersRepo, events, notifier, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(catalogService, log))
	router.RegisterRecordRoutes(httpapi.NewRecordsHandler(docFieldService, subdocService, log))
	router.RegisterCreditRequestRoutes(httpapi.NewCreditRequestHandler(requestService, log))
	router.RegisterAdminTenantRoutes(httpapi.NewTenantsHandler(tenantsRepo, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
