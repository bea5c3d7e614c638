package router

import (
	"time"

	"cardio-go/internal/config"
	"cardio-go/internal/handler"
	"cardio-go/internal/middleware"
	"cardio-go/internal/repository"
	"cardio-go/internal/service"
	"cardio-go/internal/utils"
	"cardio-go/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRouter 设置路由。推理适配器由组合根构造后注入,
// 测试可以用stub适配器替换。
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	logger *logrus.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	tabular handler.TabularPredictor,
	ecg handler.EcgPredictor,
	visualizer handler.Visualizer,
) *gin.Engine {
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Cardiovascular Prediction API",
			"version": "1.0.0",
		})
	})

	// 初始化Repository
	userRepo := repository.NewUserRepository(db)
	predictionRepo := repository.NewPredictionRepository(db)

	// 初始化Service
	authService := service.NewAuthService(userRepo, jwtManager)

	// 初始化Handler
	authHandler := handler.NewAuthHandler(authService)
	predictionHandler := handler.NewPredictionHandler(predictionRepo, tabular, ecg, visualizer, cfg.Upload.EcgDir, logger)
	historyHandler := handler.NewHistoryHandler(predictionRepo)
	visualizationHandler := handler.NewVisualizationHandler(predictionRepo)

	// API路由组
	api := r.Group("/api/v1")
	{
		// 公开路由
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// 认证路由
		authorized := api.Group("")
		authorized.Use(middleware.AuthMiddleware(jwtManager))
		{
			authorized.GET("/auth/me", authHandler.GetMe)

			// 预测接口,Redis可用时挂并发限制
			predict := authorized.Group("/predict")
			if redisClient != nil {
				// TTL兜底回收进程崩溃泄漏的槽位
				limiter := redis_limiter.NewRedisLimiter(
					redisClient,
					cfg.Redis.DefaultMaxConcurrency,
					"predict_limit:",
					5*time.Minute,
				)
				predict.Use(middleware.PredictionRateLimit(limiter))
			}
			predict.POST("/tabular", predictionHandler.PredictTabular)
			predict.POST("/ecg", predictionHandler.PredictEcg)

			// 预测历史
			authorized.GET("/history", historyHandler.List)
			authorized.GET("/history/:id", historyHandler.Get)

			// 可视化
			authorized.GET("/ecg/:id/visualization", visualizationHandler.Get)
		}
	}

	return r
}
