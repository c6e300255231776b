package container

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshua-takyi/slotbook/internal/config"
	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/joshua-takyi/slotbook/internal/payment"
	"github.com/joshua-takyi/slotbook/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	RedisClient    *redis.Client

	Supabase *models.SupabaseRepo
	Mongo    *models.MongodbRepo
	Tokens   *helpers.TokenValidator
	Gateway  payment.Gateway

	CatalogService   *services.CatalogService
	BookingService   *services.BookingService
	DashboardService *services.DashboardService
}

// NewContainer wires repositories and services. redisClient may be nil unless the redis
// reservation backend is selected.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	supabaseClient *supabase.Client,
	mongoDBClient *mongo.Client,
	redisClient *redis.Client,
) (*Container, error) {
	supa := models.SupabaseNewRepo(supabaseClient)
	mongoRepo := models.MongodbNewRepo(mongoDBClient, cfg.MongoDBDatabase)

	var reserver models.Reserver
	switch cfg.ReservationBackend {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis reservation backend selected without a redis client")
		}
		reserver = models.NewRedisReserver(redisClient)
	default:
		reserver = models.NewMongoReserver(mongoRepo)
	}

	gateway, err := payment.New(payment.Config{
		Kind:          cfg.PaymentGateway,
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build payment gateway: %w", err)
	}

	catalogService := services.NewCatalogService(mongoRepo, mongoRepo, supa, logger)
	bookingService := services.NewBookingService(
		catalogService,
		mongoRepo,
		reserver,
		gateway,
		services.NewCheckoutStore(),
		services.BookingServiceConfig{Currency: cfg.Currency, HoldTTL: cfg.HoldTTL},
		logger,
	)
	dashboardService := services.NewDashboardService(mongoRepo, mongoRepo, supa, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		SupabaseClient:   supabaseClient,
		MongoDBClient:    mongoDBClient,
		RedisClient:      redisClient,
		Supabase:         supa,
		Mongo:            mongoRepo,
		Tokens:           helpers.NewTokenValidator(cfg.SupabaseURL, cfg.IsDevelopment()),
		Gateway:          gateway,
		CatalogService:   catalogService,
		BookingService:   bookingService,
		DashboardService: dashboardService,
	}, nil
}
