package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/businesssadigital-oss/backendpay/api/controllers"
	"github.com/businesssadigital-oss/backendpay/api/middleware"
	categorysvc "github.com/businesssadigital-oss/backendpay/internal/categories"
	codesvc "github.com/businesssadigital-oss/backendpay/internal/codes"
	fulfillsvc "github.com/businesssadigital-oss/backendpay/internal/fulfillment"
	ordersvc "github.com/businesssadigital-oss/backendpay/internal/orders"
	methodsvc "github.com/businesssadigital-oss/backendpay/internal/paymentmethods"
	productsvc "github.com/businesssadigital-oss/backendpay/internal/products"
	reviewsvc "github.com/businesssadigital-oss/backendpay/internal/reviews"
	settingsvc "github.com/businesssadigital-oss/backendpay/internal/settings"
	usersvc "github.com/businesssadigital-oss/backendpay/internal/users"
	"github.com/businesssadigital-oss/backendpay/pkg/config"
	"github.com/businesssadigital-oss/backendpay/pkg/db"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/metrics"
	"github.com/businesssadigital-oss/backendpay/pkg/payments"
	"github.com/businesssadigital-oss/backendpay/pkg/redis"
	"github.com/businesssadigital-oss/backendpay/pkg/ws"
)

// Services bundles everything the router wires into controllers.
type Services struct {
	Products       productsvc.Service
	Categories     categorysvc.Service
	Codes          codesvc.Service
	Fulfillment    fulfillsvc.Service
	Orders         ordersvc.Service
	Reviews        reviewsvc.Service
	PaymentMethods methodsvc.Service
	Settings       settingsvc.Service
	Users          usersvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
	chargily *payments.ChargilyClient,
	paypal *payments.PayPalClient,
	hub *ws.Hub,
	appMetrics *metrics.Metrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(appMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg))
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	if hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			hub.Upgrade(w, req)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svcs.Products, logg))
			r.Post("/", controllers.ProductCreate(svcs.Products, logg))
			r.Put("/{productId}", controllers.ProductUpdate(svcs.Products, logg))
			r.Delete("/{productId}", controllers.ProductDelete(svcs.Products, logg))
			r.Get("/{productId}/integrity", controllers.ProductIntegrity(svcs.Products, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(svcs.Categories, logg))
			r.Post("/", controllers.CategoryCreate(svcs.Categories, logg))
			r.Delete("/{categoryId}", controllers.CategoryDelete(svcs.Categories, logg))
		})

		r.Route("/codes", func(r chi.Router) {
			r.Get("/", controllers.CodeList(svcs.Codes, logg))
			r.Post("/", controllers.CodeBulkAdd(svcs.Codes, logg))
			r.Get("/stats/{productId}", controllers.CodeStats(svcs.Codes, logg))
			r.Put("/{codeId}", controllers.CodeMarkSold(svcs.Codes, logg))
			r.Delete("/{codeId}", controllers.CodeDelete(svcs.Codes, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderPlace(svcs.Fulfillment, logg))
			r.Post("/confirm", controllers.OrderConfirm(svcs.Fulfillment, logg))
			r.Put("/{orderId}/paypal/{paypalOrderId}", controllers.OrderAttachPayPal(svcs.Orders, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", controllers.ReviewList(svcs.Reviews, logg))
			r.Post("/", controllers.ReviewCreate(svcs.Reviews, logg))
		})

		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.PaymentMethodList(svcs.PaymentMethods, logg))
			r.Put("/{methodId}", controllers.PaymentMethodUpdate(svcs.PaymentMethods, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.SettingsGet(svcs.Settings, logg))
			r.Put("/", controllers.SettingsSave(svcs.Settings, logg))
		})

		r.With(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole("admin", logg),
		).Get("/users", controllers.UserList(svcs.Users, logg))
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(svcs.Users, logg))
			r.Post("/login", controllers.AuthLogin(svcs.Users, logg))
		})

		r.Post("/chargily/checkout", controllers.ChargilyCheckout(chargily, logg))
		r.Post("/paypal/create-order", controllers.PayPalCreateOrder(paypal, logg))
		r.Post("/paypal/capture-order", controllers.PayPalCaptureOrder(paypal, logg))
	})

	return r
}
