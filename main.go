package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/analytics"
	analytics_api "ms-booking/internal/analytics/api"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	booking_db "ms-booking/internal/booking/db"
	bookingredis "ms-booking/internal/booking/redis"
	"ms-booking/internal/catalog/catalog_api"
	catalog_db "ms-booking/internal/catalog/db"
	"ms-booking/internal/checkout"
	"ms-booking/internal/checkout/checkout_api"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/invoice"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/mailer"
	"ms-booking/internal/payment/services"
	"ms-booking/internal/paypal"
	"ms-booking/internal/pricing"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	// Hold expiry is observed via keyspace events; without "Ex" the
	// expiry subscriber never fires and pending bookings linger.
	if _, err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		log.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

// subscribeHoldExpiry cancels pending bookings whose capacity hold has
// expired. Redis publishes the expired key; the booking id is parsed
// back out of it.
func subscribeHoldExpiry(ctx context.Context, rdb *redis.Client, service *booking.Service, log *logger.Logger) {
	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	log.Info("REDIS", "Subscribed to Redis keyevent expired notifications")

	go func() {
		for msg := range pubsub.Channel() {
			dateOptionID, bookingID, ok := bookingredis.ParseHoldKey(msg.Payload)
			if !ok {
				continue
			}
			log.Info("HOLD_EXPIRY", fmt.Sprintf("Capacity hold expired for booking %s on date option %s", bookingID, dateOptionID))

			if err := service.CancelExpired(bookingID); err != nil {
				log.Error("HOLD_EXPIRY", fmt.Sprintf("Failed to cancel expired booking %s: %v", bookingID, err))
			}
		}
	}()
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	defer runner.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
	defer producer.Close()
	log.Info("KAFKA", "Kafka producer initialized successfully")

	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.BookingCreated,
			cfg.Kafka.Topics.BookingUpdated,
			cfg.Kafka.Topics.BookingConfirmed,
			cfg.Kafka.Topics.BookingCanceled,
			cfg.Kafka.Topics.PaymentSuccess,
			cfg.Kafka.Topics.PaymentFailed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	}

	hold := bookingredis.NewHold(redisClient, cfg.Hold.TTL, log)
	engine := pricing.NewEngine(cfg.Pricing)
	mail := mailer.New(cfg.Email, log)

	bookingService := booking.NewService(
		&booking_db.DB{Bun: bunDB},
		hold,
		producer,
		mail,
		engine,
		log,
	)

	invoices := invoice.NewGenerator("Travelly", cfg.Pricing.Currency)
	emitter := sse.NewConfirmationEmitter()

	strategies := []checkout.PaymentStrategy{checkout.ManualStrategy{}}
	if stripeService, err := services.NewStripeService(cfg.Stripe, log); err != nil {
		log.Warn("STRIPE", "Stripe unavailable, card payments disabled")
	} else {
		strategies = append(strategies, checkout.StripeStrategy{Payments: stripeService})
	}
	strategies = append(strategies, checkout.PayPalStrategy{Client: paypal.NewClient(cfg.PayPal, nil)})
	dispatcher := checkout.NewDispatcher(bookingService, log, strategies...)

	bookingHandler := booking_api.NewHandler(bookingService, invoices, log)
	checkoutHandler := checkout_api.NewHandler(bookingService, dispatcher, log)
	sseHandler := booking_api.NewSSEHandler(log, emitter)
	catalogHandler := catalog_api.NewHandler(&catalog_db.DB{Bun: bunDB}, log)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), log)

	issuer := os.Getenv("OIDC_ISSUER")
	if issuer == "" {
		log.Fatal("CONFIG", "OIDC_ISSUER not set")
	}
	authMiddleware, err := auth.Middleware(issuer)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC middleware: %v", err))
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	catalogHandler.RegisterRoutes(r)
	sseHandler.RegisterRoutes(r)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	log.Info("ROUTER", "Public catalog and checkout stream endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		log.Info("AUTH", "OIDC middleware applied to protected API routes")

		bookingHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Booking routes registered under /api/bookings")

		checkoutHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Checkout finalize route registered under /api/checkout")

		analyticsHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Analytics routes registered under /api/analytics")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("REDIS", "Starting hold expiry subscription")
	subscribeHoldExpiry(ctx, redisClient, bookingService, log)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if cfg.Kafka.Enabled {
		confirmations := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingConfirmed, cfg.Kafka.GroupID)
		defer confirmations.Close()
		go confirmations.Start(consumerCtx, emitter.Emit)
		log.Info("KAFKA", "Confirmation consumer started for checkout stream")
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopConsumer()

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
