package main

import (
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/ordersys/internal/cache"
	"github.com/minhtran-dev/ordersys/internal/config"
	"github.com/minhtran-dev/ordersys/internal/consumer"
	"github.com/minhtran-dev/ordersys/internal/db"
	"github.com/minhtran-dev/ordersys/internal/discovery"
	"github.com/minhtran-dev/ordersys/internal/handlers"
	"github.com/minhtran-dev/ordersys/internal/messaging"
	"github.com/minhtran-dev/ordersys/internal/publisher"
	"github.com/minhtran-dev/ordersys/internal/service"
)

const (
	serviceName = "order-service"
	serviceID   = "order-service-1"
)

func main() {
	cfg := config.Load()

	// Connect to PostgreSQL
	database, err := db.NewPostgresDB(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Connect to RabbitMQ
	rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitHost, cfg.RabbitPort,
		cfg.RabbitUser, cfg.RabbitPassword)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitMQ.Close()

	// Create publisher (declares exchange, queue and binding)
	orderPublisher, err := publisher.NewOrderPublisher(rabbitMQ)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}

	// Repositories and services
	orderRepo := db.NewOrderRepository(database)
	inventoryRepo := db.NewInventoryRepository(database)
	cachedInventoryRepo := db.NewCachedInventoryRepository(inventoryRepo, redisCache)

	inventoryService := service.NewInventoryService(cachedInventoryRepo)
	orderService := service.NewOrderService(orderRepo, inventoryService, orderPublisher)

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		log.Printf("⚠️ Failed to connect to Consul, skipping registration: %v", err)
	} else {
		err = consul.Register(discovery.ServiceConfig{
			Name: serviceName,
			ID:   serviceID,
			Port: httpPort(cfg.HTTPAddr),
			Tags: []string{"api", "orders", "inventory"},
		})
		if err != nil {
			log.Fatalf("Failed to register service: %v", err)
		}
	}

	// Deregister on shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		if consul != nil {
			consul.Deregister(serviceID)
		}
		rabbitMQ.Close()
		os.Exit(0)
	}()

	// Start fulfillment workers
	startFulfillmentWorkers(rabbitMQ, orderService, cfg.Workers)

	// Create handlers
	orderHandler := handlers.NewOrderHandler(orderService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)

	// Setup router
	router := gin.Default()

	router.GET("/health", orderHandler.HealthCheck)

	router.POST("/orders", orderHandler.CreateOrder)
	router.GET("/orders", orderHandler.ListOrders)
	router.GET("/orders/stats", orderHandler.GetOrderStats)
	router.GET("/orders/:id", orderHandler.GetOrder)
	router.GET("/orders/:id/status", orderHandler.GetOrderStatus)
	router.POST("/orders/:id/cancel", orderHandler.CancelOrder)

	router.POST("/inventory/increase", inventoryHandler.IncreaseStock)
	router.POST("/inventory/decrease", inventoryHandler.DecreaseStock)
	router.GET("/inventory", inventoryHandler.ListInventories)
	router.POST("/inventory", inventoryHandler.CreateInventory)
	router.GET("/inventory/:productId", inventoryHandler.GetInventory)
	router.PUT("/inventory/:id", inventoryHandler.UpdateInventory)
	router.DELETE("/inventory/:id", inventoryHandler.DeleteInventory)

	// Start server
	log.Printf("🚀 %s starting on %s", serviceName, cfg.HTTPAddr)
	router.Run(cfg.HTTPAddr)
}

func startFulfillmentWorkers(mq *messaging.RabbitMQ, orders *service.OrderService, workers int) {
	messages, err := mq.Consume(publisher.OrderCreatedQueue)
	if err != nil {
		log.Fatalf("Failed to consume messages: %v", err)
	}

	orderConsumer := consumer.NewOrderConsumer(orders)
	for i := 0; i < workers; i++ {
		go orderConsumer.ProcessOrderCreated(messages)
	}
	log.Printf("👷 Started %d fulfillment workers", workers)
}

func httpPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 8080
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 8080
	}
	return port
}
