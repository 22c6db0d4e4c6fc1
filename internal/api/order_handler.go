package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-service/internal/checkout"
	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

// CheckoutInput defines the expected checkout form. All fields are optional
// here; the checkout service reports what is missing.
type CheckoutInput struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=10"`
	PhoneNumber   string `json:"phone_number" validate:"omitempty,max=20"`
	Email         string `json:"email" validate:"omitempty,email,max=254"`
}

// CheckoutResponse is returned after orders were created.
type CheckoutResponse struct {
	Message       string               `json:"message"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	OrderIDs      []int64              `json:"order_ids"`
	Total         decimal.Decimal      `json:"total"`
	Email         string               `json:"email"`
	Orders        []domain.Order       `json:"orders"`
}

// OrderView is an order with its current line total.
type OrderView struct {
	domain.Order
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var input CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	result, err := h.checkout.Checkout(r.Context(), user, checkout.Input{
		PaymentMethod: input.PaymentMethod,
		PhoneNumber:   input.PhoneNumber,
		Email:         input.Email,
	})
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			h.respondWithError(w, http.StatusBadRequest, "Nothing to checkout: your cart is empty")
		case errors.As(err, &verr):
			h.respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
		case errors.Is(err, store.ErrCartChanged):
			h.respondWithError(w, http.StatusConflict, "Your cart changed while checking out, please review it and try again")
		default:
			h.logger.Error("Checkout failed", zap.Int64("user_id", user.ID), zap.Error(err))
			h.respondWithError(w, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}

	h.respondWithJSON(w, http.StatusCreated, CheckoutResponse{
		Message:       result.Message,
		PaymentMethod: result.PaymentMethod,
		OrderIDs:      result.OrderIDs,
		Total:         result.Total,
		Email:         result.Email,
		Orders:        result.Orders,
	})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrdersByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("ListOrdersByUser store operation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, OrderView{Order: o, TotalPrice: o.TotalPrice()})
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": views})
}
