package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lakehouse-gateway/internal/config"
	"lakehouse-gateway/internal/controller"
	"lakehouse-gateway/internal/middleware"
	"lakehouse-gateway/internal/repository"
	"lakehouse-gateway/internal/security"
	"lakehouse-gateway/internal/service"
	"lakehouse-gateway/internal/streaming"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	configureLogging(cfg)

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the catalog backend
	var db *gorm.DB
	var catalogRepo repository.CatalogRepository
	var datasourceRepo repository.DataSourceRepository
	if cfg.Catalog.Backend == "mysql" {
		db, err = config.InitCatalogDatabase(cfg)
		if err != nil {
			log.Fatal("Failed to initialize catalog database:", err)
		}
		catalogRepo = repository.NewCatalogRepository(db)
		datasourceRepo = repository.NewDataSourceRepository(db)
	} else {
		catalogRepo = repository.NewMemoryCatalogRepository()
		datasourceRepo = repository.NewMemoryDataSourceRepository()
	}

	// Initialize engine metrics and the storage opener
	service.InitEngineMetrics()
	middleware.InitMetrics()
	opener := service.NewTableOpener(cfg.Storage.Credentials())

	// Initialize security
	jwtManager := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	authMiddleware := security.NewAuthMiddleware(jwtManager)

	// Initialize rate limiting
	rateLimitConfig := middleware.RateLimiterConfig{
		RPM:             cfg.Security.RateLimitPerMinute,
		Burst:           cfg.Security.RateLimitBurst,
		CleanupInterval: 5 * time.Minute,
	}
	rateLimiter := middleware.NewRateLimiter(rateLimitConfig)

	// Initialize services
	streamManager := streaming.NewManager()
	tableService := service.NewTableService(opener)
	streamingService := service.NewStreamingService(opener, streamManager)
	catalogService := service.NewCatalogService(catalogRepo, datasourceRepo, opener, cfg.Storage.WarehouseRoot)
	queryService := service.NewQueryService(datasourceRepo, opener)

	// Initialize controllers
	tableController := controller.NewTableController(tableService)
	streamController := controller.NewStreamController(streamingService)
	databaseController := controller.NewDatabaseController(catalogService)
	datasourceController := controller.NewDataSourceController(catalogService)
	queryController := controller.NewQueryController(queryService)
	healthController := controller.NewHealthController(db, streamManager)

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Cors())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.PrometheusMiddleware())

	// Add rate limiting if enabled
	if cfg.Security.EnableRateLimit {
		router.Use(rateLimiter.RateLimit())
	}

	// Health and metrics endpoints (always available)
	router.GET("/health", healthController.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	api := router.Group("/api/v1")

	auth := api.Group("")
	if cfg.Security.EnableAuth {
		auth.Use(authMiddleware.RequireAuth())
	}
	{
		// Table endpoints
		tables := auth.Group("/tables")
		{
			tables.POST("/write", tableController.Write)
			tables.POST("/read", tableController.Read)
			tables.POST("/update", tableController.Update)
			tables.POST("/delete", tableController.Delete)
			tables.GET("/history", tableController.History)
			tables.GET("/details", tableController.Details)
		}

		// Stream endpoints
		streams := auth.Group("/streams")
		{
			streams.POST("", streamController.StartStream)
			streams.GET("", streamController.ListStreams)
			streams.GET("/:name", streamController.GetStream)
			streams.POST("/:name/stop", streamController.StopStream)
		}

		// Catalog endpoints
		databases := auth.Group("/databases")
		{
			databases.POST("", databaseController.CreateDatabase)
			databases.GET("", databaseController.ListDatabases)
			databases.GET("/:name", databaseController.GetDatabase)
			databases.DELETE("/:name", databaseController.DropDatabase)
			databases.POST("/:name/tables", databaseController.CreateTable)
			databases.GET("/:name/tables", databaseController.ListTables)
			databases.GET("/:name/tables/:table", databaseController.GetTable)
			databases.DELETE("/:name/tables/:table", databaseController.DropTable)
		}

		// External data source endpoints
		datasources := auth.Group("/datasources")
		{
			datasources.POST("", datasourceController.CreateDataSource)
			datasources.GET("", datasourceController.ListDataSources)
			datasources.GET("/:name", datasourceController.GetDataSource)
			datasources.DELETE("/:name", datasourceController.DeleteDataSource)
		}

		// Row-set query endpoint
		auth.POST("/openrowset", queryController.OpenRowSet)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		log.Printf("Health check available at: http://localhost:%s/health", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown: stop streams first so checkpoints land, then
	// drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	streamManager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exited")
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
