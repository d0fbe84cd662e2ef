package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/vendora-market/vendora-backend/api/controllers"
	"github.com/vendora-market/vendora-backend/api/routes"
	"github.com/vendora-market/vendora-backend/internal/cart"
	"github.com/vendora-market/vendora-backend/internal/catalog"
	"github.com/vendora-market/vendora-backend/internal/checkout"
	"github.com/vendora-market/vendora-backend/internal/fulfillment"
	"github.com/vendora-market/vendora-backend/internal/inventory"
	"github.com/vendora-market/vendora-backend/internal/notify"
	"github.com/vendora-market/vendora-backend/internal/orders"
	"github.com/vendora-market/vendora-backend/internal/payments"
	"github.com/vendora-market/vendora-backend/internal/payouts"
	"github.com/vendora-market/vendora-backend/pkg/config"
	"github.com/vendora-market/vendora-backend/pkg/db"
	"github.com/vendora-market/vendora-backend/pkg/logger"
	"github.com/vendora-market/vendora-backend/pkg/migrate"
	"github.com/vendora-market/vendora-backend/pkg/pubsub"
	"github.com/vendora-market/vendora-backend/pkg/redis"
	"github.com/vendora-market/vendora-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	notifier, err := notify.NewService(pubsubClient.NotificationPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	productRepo := catalog.NewProductRepository(gormDB)
	addressRepo := catalog.NewAddressRepository(gormDB)
	vendorRepo := catalog.NewVendorRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	payoutsRepo := payouts.NewRepository(gormDB)
	fulfillmentRepo := fulfillment.NewRepository(gormDB)
	inventoryService := inventory.NewService()

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	shippingCost, err := cfg.Checkout.ShippingCost()
	if err != nil {
		logg.Error(context.Background(), "invalid shipping cost", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		CartRepo:          cartRepo,
		Addresses:         addressRepo,
		Orders:            ordersRepo,
		Inventory:         inventoryService,
		Notifier:          notifier,
		TransactionRunner: dbClient,
		ShippingCost:      shippingCost,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, inventoryService, notifier)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	defaultRate, err := cfg.Payouts.DefaultCommissionRate()
	if err != nil {
		logg.Error(context.Background(), "invalid commission rate", err)
		os.Exit(1)
	}

	payoutsService, err := payouts.NewService(payouts.ServiceParams{
		Repo:              payoutsRepo,
		Vendors:           vendorRepo,
		Transfers:         stripeClient,
		Notifier:          notifier,
		TransactionRunner: dbClient,
		DefaultRate:       defaultRate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:            ordersRepo,
		Gateway:           stripeClient,
		Payouts:           payoutsService,
		Notifier:          notifier,
		TransactionRunner: dbClient,
		SuccessURL:        cfg.Stripe.SuccessURL,
		CancelURL:         cfg.Stripe.CancelURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillmentRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	webhookGuard, err := payments.NewWebhookGuard(redisClient, cfg.Stripe.WebhookTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"pubsub":   pubsubClient,
			},
			CartService:        cartService,
			CheckoutService:    checkoutService,
			OrdersService:      ordersService,
			PaymentsService:    paymentsService,
			FulfillmentService: fulfillmentService,
			PayoutsService:     payoutsService,
			StripeClient:       stripeClient,
			WebhookGuard:       webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
