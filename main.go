package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/controllers"
	"github.com/bakeprint/bakeprint-api/jobs"
	"github.com/bakeprint/bakeprint-api/middleware"
	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
)

func main() {
	log.Println("Starting BakePrint API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetConfig(cfg)

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.ItemImage{},
		&models.StageHistoryEntry{},
		&models.UpdateRequest{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize services
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)
	services.InitEmailService(cfg)

	if cfg.RabbitMQURL != "" {
		if _, err := services.InitRabbitBroadcaster(cfg); err != nil {
			log.Printf("RabbitMQ unavailable, order events disabled: %v", err)
			services.SetBroadcaster(services.NoopBroadcaster{})
		}
	} else {
		services.SetBroadcaster(services.NoopBroadcaster{})
	}
	defer services.GetBroadcaster().Close()

	// Background jobs
	jobManager := jobs.NewJobManager(cfg, db)
	jobManager.Start()
	defer jobManager.Stop()

	router := setupRouter(cfg)

	// Start server
	port := ":8080"
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with middleware and all API routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))
	router.Use(middleware.PrometheusMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Pickup locations are public config data
		v1.GET("/pickup-locations", controllers.GetPickupLocations)

		protected := v1.Group("")
		protected.Use(middleware.EnsureValidToken(cfg))
		{
			// Users
			protected.POST("/users", controllers.CreateUser)
			protected.GET("/users/me", controllers.GetMe)
			protected.PUT("/users/me", controllers.UpdateMe)

			// Orders
			protected.POST("/orders", controllers.CreateOrder)
			protected.GET("/orders", controllers.ListOrders)
			protected.GET("/orders/:id", controllers.GetOrder)
			protected.PUT("/orders/:id", controllers.UpdateOrder)
			protected.DELETE("/orders/:id", controllers.DeleteOrder)
			protected.PUT("/orders/:id/stage", controllers.ChangeStage)

			// Order items and files
			protected.POST("/orders/:id/items", controllers.AddItem)
			protected.PUT("/orders/:id/items/:itemId", controllers.UpdateItem)
			protected.DELETE("/orders/:id/items/:itemId", controllers.DeleteItem)
			protected.POST("/orders/:id/items/:itemId/images", controllers.UploadItemFile)
			protected.DELETE("/orders/:id/items/:itemId/images/:imageId", controllers.DeleteItemFile)

			// Completion details
			protected.PUT("/orders/:id/completion", controllers.UpdateCompletion)
			protected.POST("/orders/:id/completion/confirm", controllers.ConfirmCompletion)
			protected.POST("/orders/:id/completion/update-request", controllers.CreateCompletionUpdateRequest)
			protected.POST("/orders/:id/completion/update-request/resolve", controllers.ResolveCompletionUpdateRequest)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "BakePrint API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
