package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
	"storefront-service/internal/payment"
	"storefront-service/internal/store"
)

const serviceName = "storefront-service"

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependencies groups everything the HTTP layer talks to.
type Dependencies struct {
	Catalog    store.CatalogStorer
	Orders     store.OrderStorer
	Cart       *cart.Service
	Checkout   *checkout.Service
	Initiator  *payment.Initiator
	Reconciler *payment.Reconciler
	Auth       *auth.Authenticator
	Health     map[string]Pinger // Checked by the health endpoint, keyed by name
	Logger     *zap.Logger
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog    store.CatalogStorer
	orders     store.OrderStorer
	cart       *cart.Service
	checkout   *checkout.Service
	initiator  *payment.Initiator
	reconciler *payment.Reconciler
	auth       *auth.Authenticator
	health     map[string]Pinger
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		catalog:    deps.Catalog,
		orders:     deps.Orders,
		cart:       deps.Cart,
		checkout:   deps.Checkout,
		initiator:  deps.Initiator,
		reconciler: deps.Reconciler,
		auth:       deps.Auth,
		health:     deps.Health,
		validate:   validator.New(),
		logger:     logger,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, TotalItems: total, TotalPages: totalPages}
}

// maxPage bounds the page number so the computed offset cannot overflow.
const maxPage = 10000

// pageParams reads page and limit from the query string. Limit defaults to 10 and is capped at 100.
func pageParams(r *http.Request) (page, limit int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	return page, limit
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("Failed to encode JSON response", zap.Error(err))
		}
	}
}

// currentUser returns the user put in the context by the auth middleware.
func (h *HTTPHandler) currentUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
	}
	return user, ok
}

// --- Health ---

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.health))
	for name, p := range h.health {
		checks[name] = "healthy"
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unhealthy"
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
		}
	}

	// Always 200; the payload carries per-dependency status.
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"serviceName":  serviceName,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"dependencies": checks,
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/healthz", h.Healthz)

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{categoryId}/products", h.ListCategoryProducts)
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productId}", h.GetProductByID)
	})

	// The provider calls back without credentials.
	r.Post("/api/v1/mpesa/callback", h.MpesaCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{itemId}/quantity", h.UpdateCartItemQuantity)
			r.Patch("/items/{itemId}/size", h.UpdateCartItemSize)
			r.Delete("/items/{itemId}", h.RemoveCartItem)
		})

		r.Post("/api/v1/checkout", h.Checkout)
		r.Get("/api/v1/orders", h.ListOrders)
		r.Post("/api/v1/mpesa/stkpush", h.InitiateSTKPush)
	})
}
