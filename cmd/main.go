package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reseller_hub/internal/cache"
	"reseller_hub/internal/config"
	"reseller_hub/internal/controller"
	"reseller_hub/internal/event"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/repository"
	"reseller_hub/internal/router"
	"reseller_hub/internal/service"
	"reseller_hub/internal/task"
	"reseller_hub/internal/web"
	"reseller_hub/pkg/database"
	"reseller_hub/pkg/logger"
	"reseller_hub/pkg/utils"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	log := logger.Must(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()
	gin.SetMode(cfg.Server.GinMode)

	// 2. 初始化数据库
	db := initDatabase(cfg, log)

	// 3. 初始化依赖
	deps := initDependencies(cfg, db, log)
	defer func() { _ = deps.Publisher.Close() }()

	ensureAdmin(cfg, deps, log)

	// 4. 启动定时任务
	tasks := initTasks(cfg, deps, log)

	// 5. 初始化路由
	r := router.SetupRouter(deps.Controllers, router.Infra{
		DB:      db,
		Metrics: deps.Metrics,
		Logger:  log,
	})

	// 6. 启动服务
	startServer(cfg, r, tasks, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
	Metrics     *metrics.Metrics
	Publisher   event.Publisher
}

// Repositories 仓库集合
type Repositories struct {
	Store repository.StoreRepository
	User  repository.UserRepository
}

// Services 服务集合
type Services struct {
	Store    *service.StoreService
	Verifier *service.DomainVerifier
	User     *service.UserService
}

func initDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Log.Level,
	}, log)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}

	// sql 模式走 golang-migrate，仅支持 postgres
	if cfg.Database.Migrate == "sql" && cfg.Database.Driver != "sqlite" {
		err = database.RunMigrations(cfg.Database.DSN, log)
	} else {
		err = database.AutoMigrate(db, &model.SysUser{}, &model.Store{})
	}
	if err != nil {
		log.Fatal("数据库迁移失败", zap.Error(err))
	}

	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		log.Fatal("注册审计回调失败", zap.Error(err))
	}
	return db
}

func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.AccessTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTTL,
		Issuer:          cfg.JWT.Issuer,
	})

	m := metrics.New()
	repos := &Repositories{
		Store: repository.NewStoreRepository(db),
		User:  repository.NewUserRepository(db),
	}

	domains, err := service.NewDomainService(repos.Store, cfg.Store.IPAddress, cfg.Store.Domain)
	if err != nil {
		log.Fatal("店铺域名配置无效", zap.Error(err))
	}

	storeCache := initStoreCache(cfg, log)
	publisher := initPublisher(cfg, log)
	resolver := service.NewDoHResolver(utils.NewHTTPClient(10*time.Second, 2), cfg.Domain.DoHEndpoint)

	svc := &Services{
		Store:    service.NewStoreService(repos.Store, domains, storeCache, publisher, m, log),
		Verifier: service.NewDomainVerifier(repos.Store, resolver, storeCache, publisher, m, log),
		User:     service.NewUserService(repos.User, log),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    svc,
		Controllers: initControllers(svc, m, log),
		Metrics:     m,
		Publisher:   publisher,
	}
}

// initStoreCache 配置了 REDIS_ADDR 时使用 redis，否则使用进程内缓存
func initStoreCache(cfg *config.Config, log *zap.Logger) cache.StoreCache {
	if cfg.Redis.Addr == "" {
		return cache.NewMemoryStoreCache(cfg.Store.CacheTTL)
	}

	client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis 不可用，使用进程内缓存", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemoryStoreCache(cfg.Store.CacheTTL)
	}

	log.Info("redis 缓存已启用", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisStoreCache(client, cfg.Store.CacheTTL)
}

func initPublisher(cfg *config.Config, log *zap.Logger) event.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return event.NopPublisher{}
	}
	log.Info("店铺事件发布到 kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func initControllers(svc *Services, m *metrics.Metrics, log *zap.Logger) *router.Controllers {
	storeCtl := controller.NewStoreController(svc.Store, svc.Verifier, m, log)
	return &router.Controllers{
		Store:    storeCtl,
		Settings: controller.NewSettingsController(storeCtl),
		Auth:     controller.NewAuthController(svc.User, log),
		Admin:    controller.NewAdminController(svc.Store, svc.User, m, log),
		Pages:    web.NewPages(svc.User, svc.Store, svc.Store, svc.User, log),
	}
}

func ensureAdmin(cfg *config.Config, deps *Dependencies, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Services.User.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal("初始化管理员失败", zap.Error(err))
	}
}

func initTasks(cfg *config.Config, deps *Dependencies, log *zap.Logger) *task.TaskManager {
	tm := task.NewTaskManager(deps.Services.Verifier, &task.TaskManagerConfig{
		DomainVerifyEnabled:     cfg.Domain.Cron != "" && cfg.Domain.Cron != "off",
		DomainVerifySpec:        cfg.Domain.Cron,
		DomainVerifyConcurrency: cfg.Domain.Concurrency,
		DomainVerifyBatchSize:   cfg.Domain.BatchSize,
	}, log)

	if err := tm.Start(); err != nil {
		log.Fatal("启动定时任务失败", zap.Error(err))
	}
	return tm
}

func startServer(cfg *config.Config, r *gin.Engine, tasks *task.TaskManager, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
	}
	tasks.Stop(ctx)

	log.Info("服务已退出")
}
