package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// ProductView is a product with its derived pricing and stock fields.
type ProductView struct {
	domain.Product
	DisplayPrice    decimal.Decimal `json:"display_price"`
	DiscountPercent int64           `json:"discount_percent"`
	InStock         bool            `json:"in_stock"`
	Sizes           []string        `json:"sizes"`
}

func newProductView(p domain.Product) ProductView {
	return ProductView{
		Product:         p,
		DisplayPrice:    p.DisplayPrice(),
		DiscountPercent: p.DiscountPercent(),
		InStock:         p.InStock(),
		Sizes:           p.Sizes(),
	}
}

func newProductViews(products []domain.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views
}

type productListResponse struct {
	Category   *domain.Category `json:"category,omitempty"`
	Data       []ProductView    `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// --- Category Handlers ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("ListCategories store operation failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": categories})
}

func (h *HTTPHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := idParam(r, "categoryId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	category, err := h.catalog.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		h.logger.Error("GetCategoryByID store operation failed", zap.Int64("category_id", categoryID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	page, limit := pageParams(r)
	available := true
	params := store.ListProductsParams{
		Limit:      limit,
		Offset:     (page - 1) * limit,
		CategoryID: &categoryID,
		Available:  &available,
	}
	products, total, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		h.logger.Error("ListProducts store operation failed", zap.Int64("category_id", categoryID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	h.respondWithJSON(w, http.StatusOK, productListResponse{
		Category:   category,
		Data:       newProductViews(products),
		Pagination: newPagination(page, limit, total),
	})
}

// --- Product Handlers ---

// ListProducts lists products that are currently offered for sale.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()
	page, limit := pageParams(r)
	available := true
	params := store.ListProductsParams{Limit: limit, Offset: (page - 1) * limit, Available: &available}

	if q := strings.TrimSpace(qParams.Get("q")); q != "" {
		params.SearchQuery = &q
	}
	if idStr := qParams.Get("category_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "Invalid category_id format")
			return
		}
		params.CategoryID = &id
	}

	params.SortBy = qParams.Get("sort_by")
	params.SortOrder = qParams.Get("sort_order")
	switch params.SortBy {
	case "", "id", "name", "price":
	default:
		h.respondWithError(w, http.StatusBadRequest, "Invalid sort_by field. Allowed: id, name, price")
		return
	}
	if params.SortOrder != "" && !strings.EqualFold(params.SortOrder, "asc") && !strings.EqualFold(params.SortOrder, "desc") {
		h.respondWithError(w, http.StatusBadRequest, "Invalid sort_order value. Allowed: asc, desc")
		return
	}

	products, total, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		h.logger.Error("ListProducts store operation failed", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	h.respondWithJSON(w, http.StatusOK, productListResponse{
		Data:       newProductViews(products),
		Pagination: newPagination(page, limit, total),
	})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(r, "productId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.catalog.GetProductByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			h.respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		h.logger.Error("GetProductByID store operation failed", zap.Int64("product_id", productID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}
	h.respondWithJSON(w, http.StatusOK, newProductView(*product))
}
