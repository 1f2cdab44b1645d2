package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"phonescout/internal/api/middleware"
	"phonescout/internal/catalog"
	"phonescout/internal/config"
	"phonescout/internal/pkg/metrics"
	"phonescout/internal/pkg/notify"
	"phonescout/internal/pkg/ratelimit"
	"phonescout/internal/refresh"
	"phonescout/internal/session"
	"phonescout/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、对比会话管理器以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	rdb       *redis.Client
	router    *gin.Engine
	catalog   Catalog
	sessions  Sessions
	favorites Favorites
	limiter   *ratelimit.RateLimiter
	refresher *refresh.Refresher
}

// Catalog 是处理器需要的商品查询能力。
type Catalog interface {
	catalog.Store
	ListCategories(ctx context.Context) ([]store.CategoryInfo, error)
}

// Sessions 是处理器需要的对比会话能力。
type Sessions interface {
	Create(ctx context.Context) (string, error)
	Add(ctx context.Context, sessionID, productID string) error
	Remove(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
	Products(ctx context.Context, sessionID string) ([]string, error)
}

// Favorites 是处理器需要的收藏能力。
type Favorites interface {
	AddFavorite(ctx context.Context, callerHash, productID string) error
	RemoveFavorite(ctx context.Context, callerHash, productID string) error
	ToggleFavorite(ctx context.Context, callerHash, productID string) (bool, error)
	ListFavorites(ctx context.Context, callerHash string) ([]store.FavoriteEntry, error)
	SetAlertEmail(ctx context.Context, callerHash, email string) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化价格刷新器与搜索限流器
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}

	st := store.New(db)
	if err := st.AutoMigrate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics(cfg.App.WorkerPoolSize)

	notifier := notify.NewEmailNotifier(&cfg.Email, logger)
	refresher := refresh.NewRefresher(
		st,
		rdb,
		logger,
		notifier,
		cfg.App.RefreshInterval,
		cfg.App.WorkerPoolSize,
		cfg.App.QueueCapacity,
		time.Duration(cfg.App.DedupWindow)*time.Second,
	)

	limiter := ratelimit.NewRedisRateLimiter(
		rdb, logger, "phonescout:ratelimit:search",
		cfg.App.RateLimit, cfg.App.RateBurst,
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		router:    r,
		catalog:   st,
		sessions:  session.NewManager(rdb, cfg.App.SessionTTL),
		favorites: st,
		limiter:   limiter,
		refresher: refresher,
	}
	s.registerRoutes()

	if cfg.App.SeedDemoData {
		if err := SeedDemoData(ctx, db, logger); err != nil {
			logger.Warn("seed demo data failed", slog.String("error", err.Error()))
		}
	}

	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.StartRefresher(context.Background())

	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// StartRefresher 在后台启动价格刷新循环。
func (s *Server) StartRefresher(ctx context.Context) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("PANIC in price refresher", slog.Any("panic", r))
			}
		}()
		s.refresher.Run(ctx)
	}()
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	tokened := s.router.Group("/")
	tokened.Use(middleware.ClientToken(s.cfg.Security.TokenSecret))

	tokened.GET("/search", middleware.RateLimit(s.limiter), s.handleSearch)

	tokened.GET("/products", s.handleListProducts)
	tokened.GET("/products/:id", s.handleGetProduct)
	tokened.GET("/categories", s.handleListCategories)
	tokened.GET("/variants/:id/offers", s.handleListOffers)

	tokened.POST("/compare/session", s.handleCreateSession)
	tokened.GET("/compare/session/:id", s.handleGetComparison)
	tokened.POST("/compare/session/:id/products", s.handleSessionAdd)
	tokened.DELETE("/compare/session/:id/products/:productID", s.handleSessionRemove)
	tokened.DELETE("/compare/session/:id/products", s.handleSessionClear)

	tokened.GET("/favorites", s.handleListFavorites)
	tokened.POST("/favorites", s.handleAddFavorite)
	tokened.POST("/favorites/toggle", s.handleToggleFavorite)
	tokened.DELETE("/favorites/:productID", s.handleRemoveFavorite)
	tokened.PUT("/favorites/alert", s.handleSetAlertEmail)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseQueryInt 解析查询参数中的整数值。
//
// 参数:
//
//	c: Gin 上下文
//	key: 参数名
//	def: 默认值
//
// 返回值:
//
//	int: 解析后的整数或默认值
func parseQueryInt(c *gin.Context, key string, def int) int {
	val := c.Query(key)
	if val == "" {
		return def
	}
	iv, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return iv
}

// parseQueryFloat 解析查询参数中的浮点值，缺省返回 nil。
// 无法解析时返回错误，交由调用方以 400 拒绝。
func parseQueryFloat(c *gin.Context, key string) (*float64, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
