package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/parkwise/parking/internal/allocation" // slot allocation strategies
	"github.com/parkwise/parking/internal/config"     // Internal config loader
	"github.com/parkwise/parking/internal/database"   // MySQL connection pool
	"github.com/parkwise/parking/internal/handler"    // HTTP handlers
	"github.com/parkwise/parking/internal/middleware" // rate limiting and caching
	"github.com/parkwise/parking/internal/payment"    // payment gateway and records
	"github.com/parkwise/parking/internal/pricing"    // fee engine
	"github.com/parkwise/parking/internal/queue"      // ticket.paid consumer
	"github.com/parkwise/parking/internal/repository" // DB repositories
	"github.com/parkwise/parking/internal/router"     // route registration
	"github.com/parkwise/parking/internal/service"    // ticket lifecycle service
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	lots := repository.NewLotRepo(db)
	slots := repository.NewSlotRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	tickets := repository.NewTicketRepo(db)
	rules := repository.NewPricingRuleRepo(db)
	payments := repository.NewPaymentRepo(db)

	// Domain wiring: strategy, fee engine, gateway, lifecycle service.
	strategy := allocation.Select(cfg.AllocStrategy, slots)
	engine := pricing.NewEngine(rules)
	charger := payment.NewService(payments, payment.NewSimulatedGateway(cfg.PaymentMode))
	ticketSvc := service.NewTicketService(vehicles, tickets, strategy, engine, charger, service.AMQPPublisher{})

	// Background consumer for ticket.paid events.  It reconnects on its
	// own; a missing broker only disables the audit log.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()

	e := echo.New()

	// Redis is optional: when unavailable both middlewares pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterTickets(e, handler.NewTicketHandler(ticketSvc, lots), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(lots, slots, rules), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, strategy=%s)", addr, cfg.Env, cfg.AllocStrategy)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
