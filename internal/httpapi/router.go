// Package httpapi exposes the storefront over HTTP with a chi router.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/order"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, req order.PlaceOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
}

type CatalogService interface {
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, store.Pagination, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.ProductDetail, error)
	GetPurchasableProduct(ctx context.Context, id int64) (*models.Product, error)
}

type AdminService interface {
	Stats(ctx context.Context) (*admin.Dashboard, error)
	ListOrders(ctx context.Context, page store.PageRequest) ([]models.Order, store.Pagination, error)
	ListProducts(ctx context.Context, page store.PageRequest) ([]models.Product, store.Pagination, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus, expectedVersion *int) (*models.Order, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Orders         OrderService
	Catalog        CatalogService
	Admin          AdminService
	Carts          cache.Cache
	Auth           *auth.Manager
	Checks         map[string]HealthCheck
	AllowedOrigins []string
	Logger         *zap.Logger
}

type handler struct {
	Deps
	validate *validatorAdapter
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	h := &handler{Deps: deps, validate: newValidator()}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Authenticate(deps.Auth))

	r.Get("/health", h.health)

	r.Get("/products", h.listProducts)
	r.Get("/products/{slug}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{productId}", h.updateCartItem)
			r.Delete("/items/{productId}", h.removeCartItem)
			r.Post("/checkout", h.checkout)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))

		r.Get("/stats", h.adminStats)
		r.Get("/orders", h.adminListOrders)
		r.Patch("/orders/{id}/status", h.adminUpdateOrderStatus)
		r.Get("/products", h.adminListProducts)
	})

	return r
}
