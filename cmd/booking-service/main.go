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

	"github.com/go-chi/chi/v5"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-booking/internal/booking"
	"ms-booking/internal/booking/api"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment"
	"ms-booking/internal/redis"
	ticketdb "ms-booking/internal/tickets/db"
	timetabledb "ms-booking/internal/timetable/db"
	txndb "ms-booking/internal/transactions/db"
	"ms-booking/internal/utils"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	log.Info("DATABASE", "Postgres connection successful")

	if err := database.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	return bunDB
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	log.Info("REDIS", "Redis connection successful")
	return client
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg, log)
	defer redisClient.Close()

	var events booking.EventPublisher = noopPublisher{}
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All()); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("topic bootstrap failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
		events = producer
	}

	service := booking.NewService(
		&timetabledb.DB{Bun: bunDB},
		&ticketdb.DB{Bun: bunDB},
		&txndb.DB{Bun: bunDB},
		redis.NewRedis(redisClient, cfg.Redis.DateLockTTL),
		events,
		payment.NewGateway(cfg.Payment.StripeSecretKey, cfg.Payment.Currency),
		log,
		booking.Policy{
			MaxCapacity:       cfg.Venue.MaxCapacity,
			BookingCodePrefix: cfg.Venue.BookingCodePrefix,
			GraceMinutes:      cfg.Venue.GraceMinutes,
			Location:          utils.VenueLocation(cfg.Venue.Timezone),
		},
	)

	handler := api.NewHandler(service, log)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Booking service shutdown complete")
}

// noopPublisher stands in when Kafka is disabled (local development).
type noopPublisher struct{}

func (noopPublisher) PublishTicketBooked(models.Ticket) error    { return nil }
func (noopPublisher) PublishTicketPaid(models.Ticket) error      { return nil }
func (noopPublisher) PublishTicketConfirmed(models.Ticket) error { return nil }
func (noopPublisher) PublishTicketCancelled(models.Ticket) error { return nil }
