package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendora-market/vendora-backend/api/controllers"
	webhookcontrollers "github.com/vendora-market/vendora-backend/api/controllers/webhooks"
	"github.com/vendora-market/vendora-backend/api/middleware"
	cartsvc "github.com/vendora-market/vendora-backend/internal/cart"
	checkoutsvc "github.com/vendora-market/vendora-backend/internal/checkout"
	fulfillmentsvc "github.com/vendora-market/vendora-backend/internal/fulfillment"
	ordersvc "github.com/vendora-market/vendora-backend/internal/orders"
	paymentsvc "github.com/vendora-market/vendora-backend/internal/payments"
	payoutsvc "github.com/vendora-market/vendora-backend/internal/payouts"
	"github.com/vendora-market/vendora-backend/pkg/config"
	"github.com/vendora-market/vendora-backend/pkg/logger"
	"github.com/vendora-market/vendora-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	// Readiness probes, keyed by dependency name.
	Pingers map[string]controllers.Pinger

	CartService        cartsvc.Service
	CheckoutService    checkoutsvc.Service
	OrdersService      ordersvc.Service
	PaymentsService    paymentsvc.Service
	FulfillmentService fulfillmentsvc.Service
	PayoutsService     payoutsvc.Service

	StripeClient *stripe.Client
	WebhookGuard *paymentsvc.WebhookGuard
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Pingers))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.PaymentsService, params.StripeClient, params.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Principal(logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleCustomer, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(params.CartService, logg))
				r.Delete("/", controllers.CartClear(params.CartService, logg))
				r.Post("/items", controllers.CartAddItem(params.CartService, logg))
				r.Put("/items/{productId}", controllers.CartSetItemQty(params.CartService, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(params.CartService, logg))
			})

			r.Post("/checkout", controllers.CheckoutCreate(params.CheckoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(params.OrdersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(params.OrdersService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(params.OrdersService, logg))
				r.Post("/{orderId}/payment-session", controllers.PaymentSessionCreate(params.PaymentsService, logg))
				r.Get("/{orderId}/payment", controllers.PaymentVerify(params.PaymentsService, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleVendor, logg))
			r.Get("/items", controllers.VendorItemsList(params.FulfillmentService, logg))
			r.Put("/items/{itemId}/status", controllers.VendorAdvanceItem(params.FulfillmentService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Principal(logg))
		r.Use(middleware.RequireRole(middleware.RoleAdmin, logg))
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.AdminPayoutsList(params.PayoutsService, logg))
			r.Post("/{payoutId}/process", controllers.AdminPayoutProcess(params.PayoutsService, logg))
		})
	})

	return r
}
