package main

import (
	"context"
	"log"

	"go-railway-reservation/config"
	"go-railway-reservation/internal/cache"
	"go-railway-reservation/internal/database"
	"go-railway-reservation/internal/handler"
	"go-railway-reservation/internal/middleware"
	"go-railway-reservation/internal/queue"
	"go-railway-reservation/internal/repository"
	"go-railway-reservation/internal/service"
	"go-railway-reservation/internal/worker"
	"go-railway-reservation/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	defer logger.Sync()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// Repository 層
	userRepo := repository.NewUserRepository(pool)
	trainRepo := repository.NewTrainRepository(pool)
	seatRepo := repository.NewSeatRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	waitingRepo := repository.NewWaitingListRepository(pool)

	// 快取與事件隊列
	availability := cache.NewSeatAvailabilityManager(rdb)
	eventQueue, err := queue.NewRedisStreamBookingEventQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize event queue: %v", err)
	}

	// Service 層
	routeService := service.NewRouteService(trainRepo)
	trainService := service.NewTrainService(trainRepo, seatRepo, availability)
	bookingService := service.NewBookingService(
		pool, ticketRepo, seatRepo, trainRepo, userRepo, waitingRepo,
		routeService, eventQueue, availability,
	)
	waitlistService := service.NewWaitlistService(pool, waitingRepo, ticketRepo)

	// 背景 Worker：通知與快取校正
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventWorker := worker.NewBookingEventWorker(eventQueue, seatRepo, availability)
	if err := eventWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start booking event worker: %v", err)
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	rateLimit := middleware.RateLimit(float64(cfg.Server.BookingRPS), cfg.Server.BookingBurst)
	handler.NewBookingHandler(bookingService).RegisterRoutes(router, rateLimit)
	handler.NewTrainHandler(trainService).RegisterRoutes(router)
	handler.NewWaitlistHandler(waitlistService).RegisterRoutes(router)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
