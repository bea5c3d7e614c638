package main

import (
	"log"
	"os"

	"cardio-go/internal/config"
	"cardio-go/internal/models"
	"cardio-go/internal/router"
	"cardio-go/internal/service"
	"cardio-go/internal/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	// 加载配置（从项目根目录读取）
	cfg, err := config.LoadConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 初始化日志
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// 初始化数据库
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Redis可选,未配置时预测接口不做并发限制
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddress(),
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
	}

	// 初始化工具
	utils.InitValidator()
	jwtManager := utils.NewJWTManager(
		cfg.JWT.SecretKey,
		cfg.JWT.Algorithm,
		cfg.JWT.GetExpireDuration(),
	)

	// 推理适配器在启动时构造一次,之后只读
	tabularService := service.NewTabularService(cfg.Model.TabularModelPath, cfg.Model.TabularScalerPath, logger)
	ecgService := service.NewEcgService(cfg.Model.EcgModelPath, logger)
	visualizationService := service.NewVisualizationService(cfg.Upload.VisualizationDir, logger)

	if tabularService.StubMode() {
		logger.Warn("Tabular adapter running in stub mode")
	}
	if ecgService.StubMode() {
		logger.Warn("ECG adapter running in stub mode")
	}

	// 设置路由
	r := router.SetupRouter(cfg, jwtManager, logger, db, redisClient,
		tabularService, ecgService, visualizationService)

	// 启动服务器
	addr := cfg.Server.GetAddress()
	logger.Infof("server listening on %s", addr)

	if err := r.Run(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
