package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	catalogHandler "illineats/internal/api/handlers/catalog"
	"illineats/internal/api/handlers/health"
	recommendationHandler "illineats/internal/api/handlers/recommendation"
	userHandler "illineats/internal/api/handlers/user"
	"illineats/internal/api/middleware"
	"illineats/internal/core/cache"
	"illineats/internal/core/catalog"
	"illineats/internal/core/cleanup"
	"illineats/internal/core/recommend"
	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// 未設定時的請求超時
const defaultRequestTimeout = 60 * time.Second

// Deps 路由需要的服務，Cache 可為 nil
type Deps struct {
	Store store.Store
	Cache cache.Cache
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// requestid 需在 Logger 之前，日誌才拿得到請求 ID
	router.Use(requestid.New())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	router.Use(cors.New(corsConfig(cfg.App.AllowedOrigins)))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	router.Use(requestTimeout(timeout))

	// 初始化服務
	recommendSvc := recommend.NewService(deps.Store, deps.Cache, cfg.Recommendation)
	reconciler := catalog.NewReconciler(deps.Store)
	cleaner := cleanup.NewCleaner(deps.Store)

	healthH := health.NewHandler(cfg, deps.Store, deps.Cache)
	recH := recommendationHandler.NewHandler(recommendSvc)
	catalogH := catalogHandler.NewHandler(reconciler, cleaner, recommendSvc)
	userH := userHandler.NewHandler(deps.Store)

	// 健康檢查路由
	router.GET("/health", healthH.HealthCheck)
	router.GET("/ready", healthH.ReadinessCheck)
	router.GET("/live", healthH.LivenessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	{
		recGroup := api.Group("/recommendations")
		{
			recGroup.POST("", recH.Generate)
			recGroup.GET("/:user_id", recH.Get)
			recGroup.GET("/:user_id/explain", recH.Explain)
		}

		catalogGroup := api.Group("/catalog")
		{
			catalogGroup.GET("/foods", catalogH.ListFoods)
			catalogGroup.POST("/reconcile", catalogH.Reconcile)
			catalogGroup.POST("/cleanup", catalogH.Cleanup)
		}

		api.POST("/classify", catalogH.Classify)

		userGroup := api.Group("/users")
		{
			userGroup.GET("/:id", userH.Get)
			userGroup.PUT("/:id", userH.Put)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// requestTimeout 為每個請求設定期限，處理器逾時且尚未回應時回傳 504
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, common.ErrorResponse{
				Code:    common.ErrCodeGatewayTimeout,
				Message: common.ErrGatewayTimeout.Message,
				Details: timeout.String(),
			})
		}
	}
}

// corsConfig 未設定允許來源時開放所有來源
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
