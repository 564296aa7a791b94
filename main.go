package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pizzeria/server/internal/api"
	"pizzeria/server/internal/config"
	"pizzeria/server/internal/database"
	"pizzeria/server/internal/models"
	"pizzeria/server/internal/services"
	"pizzeria/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	cfg := config.Load()

	// Логируем наличие DATABASE_URL (без пароля)
	if cfg.DatabaseURL != "" {
		safeURL := cfg.DatabaseURL
		if idx := strings.Index(safeURL, "@"); idx > 0 {
			if schemeIdx := strings.Index(safeURL, "://"); schemeIdx > 0 {
				safeURL = safeURL[:schemeIdx+3] + "***@" + safeURL[idx+1:]
			}
		}
		log.Printf("📋 DATABASE_URL установлен: %s", safeURL)
	}

	// PostgreSQL обязателен: каталог и заказы живут в нем
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ PostgreSQL connection failed: %v", err)
	}
	defer database.ClosePostgres(db)

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Redis опционален: без него нет Pub/Sub и зеркала заказов,
	// но оформление и кухня продолжают работать
	redisClient, err := database.ConnectRedis(
		cfg.RedisURL,
		cfg.RedisSentinelAddrs,
		cfg.RedisMasterName,
	)
	var redisUtil *utils.RedisClient
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	// Каталог конструктора: загрузка из БД + автообновление
	catalogService := services.NewCatalogService(db, redisUtil)
	if err := catalogService.LoadCatalog(); err != nil {
		log.Fatalf("❌ Failed to load catalog from DB: %v", err)
	}
	catalogService.StartAutoReload()

	pricingService := services.NewPricingService(catalogService)

	zoneRepo := services.NewGormZoneRepository(db)
	deliveryService := services.NewDeliveryService(zoneRepo)

	// Расписание пиццерии из конфигурации
	scheduleHours := make(map[string]services.DayHours, len(cfg.OpeningHours))
	for day, h := range cfg.OpeningHours {
		scheduleHours[day] = services.DayHours{Open: h.Open, Close: h.Close, Closed: h.Closed}
	}
	scheduleService := services.NewScheduleService(
		scheduleHours,
		time.Duration(cfg.OrderIntervalMin)*time.Minute,
		time.Duration(cfg.PrepTimeMin)*time.Minute,
	)

	// OrderService работает с raw SQL поверх того же пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("❌ Ошибка получения *sql.DB из *gorm.DB: %v", err)
	}
	orderService := services.NewOrderService(sqlDB, redisUtil)

	// КРИТИЧНО: BootstrapState ПЕРЕД запуском Kafka consumer,
	// иначе кухня после перезапуска не увидит старые активные заказы
	if redisUtil != nil {
		if err := orderService.BootstrapState(); err != nil {
			log.Printf("⚠️ BootstrapState завершился с ошибкой: %v (продолжаем работу)", err)
		}
	}

	// Фоновое архивирование завершенных заказов раз в сутки
	go func() {
		time.Sleep(1 * time.Hour)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			if err := orderService.ArchiveOldOrders(); err != nil {
				log.Printf("⚠️ Ошибка архивирования заказов: %v", err)
			}
			<-ticker.C
		}
	}()

	// WebSocket Hub для экранов кухни
	go api.KitchenHub.Run()
	log.Println("📱 WebSocket Hub запущен для экранов кухни")

	// Kafka: producer для оформленных заказов + consumer для экранов кухни
	orderPublisher := api.NewOrderPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
	defer orderPublisher.Close()

	if cfg.KafkaBrokers != "" && redisUtil != nil {
		kitchenConsumer := api.NewKitchenConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, redisUtil, cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		kitchenConsumer.Start()
		defer kitchenConsumer.Stop()
	} else {
		log.Println("⚠️ Kitchen Consumer НЕ запущен: нужны KAFKA_BROKERS и Redis")
	}

	// Отключаем debug-логи gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Health check endpoint
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "Pizzeria Server",
			"version": "1.0.0",
		})
	})

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// CORS для витрины
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Staff-PIN")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	builderController := api.NewBuilderController(catalogService, pricingService)
	orderController := api.NewOrderController(pricingService, deliveryService, orderService, scheduleService, orderPublisher)
	deliveryController := api.NewDeliveryController(deliveryService)
	scheduleController := api.NewScheduleController(scheduleService)
	adminController := api.NewAdminController(catalogService, zoneRepo, orderService)

	apiGroup := r.Group("/api/v1")

	// Конструктор пиццы
	apiGroup.GET("/catalog", builderController.GetCatalog)
	apiGroup.GET("/builder/:product_id", builderController.GetBuilderData)
	apiGroup.POST("/builder/price", builderController.CalculatePrice)
	apiGroup.POST("/cart/items", builderController.BuildCartItem)

	// Доставка и расписание
	apiGroup.POST("/delivery/check", deliveryController.CheckDelivery)
	apiGroup.GET("/schedule/times", scheduleController.GetAvailableTimes)

	// Заказы
	apiGroup.POST("/orders", orderController.CreateOrder)
	apiGroup.GET("/orders/:order_id", orderController.GetOrder)

	// Кухня: лента заказов и смена статусов, только по PIN сотрудника
	kitchenGroup := apiGroup.Group("/kitchen", api.RequireStaffPIN(db))
	{
		kitchenGroup.GET("/orders", orderController.GetKitchenOrders)
		kitchenGroup.POST("/orders/:order_id/status", orderController.UpdateOrderStatus)
	}

	// WebSocket для экранов кухни (планшеты не умеют кастомные заголовки)
	apiGroup.GET("/ws", api.ServeWS)

	// Админка
	adminGroup := apiGroup.Group("/admin", api.RequireStaffPIN(db))
	{
		adminGroup.POST("/catalog/reload", adminController.ReloadCatalog)
		adminGroup.GET("/catalog/status", adminController.CatalogStatus)
		adminGroup.GET("/zones", adminController.ListZones)
		adminGroup.POST("/zones", adminController.CreateZone)
		adminGroup.PUT("/zones/:zone_id", adminController.UpdateZone)
		adminGroup.DELETE("/zones/:zone_id", adminController.DeleteZone)
		adminGroup.POST("/orders/archive", adminController.ArchiveOrders)
	}

	log.Printf("🍕 Pizzeria server запущен на порту %s (env: %s)", cfg.ServerPort, cfg.Environment)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
