package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"storefront-service/internal/cart"
)

// CartItemCreateInput defines the expected input for adding a product to the cart.
type CartItemCreateInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Size      string `json:"size" validate:"required,max=5"`
}

// CartQuantityInput defines the expected input for changing a line's quantity.
// Values below 1 are raised to 1.
type CartQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CartSizeInput defines the expected input for changing a line's size.
type CartSizeInput struct {
	Size string `json:"size" validate:"required,max=5"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.cart.ListCart(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("ListCart failed", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cart")
		return
	}
	h.respondWithJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var input CartItemCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	item, err := h.cart.AddToCart(r.Context(), user.ID, input.ProductID, input.Size)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrSizeRequired):
			h.respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Please select a size.", Field: "size"})
		case errors.Is(err, cart.ErrProductUnavailable):
			h.respondWithError(w, http.StatusNotFound, "Product not found or unavailable")
		default:
			h.logger.Error("AddToCart failed",
				zap.Int64("user_id", user.ID),
				zap.Int64("product_id", input.ProductID),
				zap.Error(err),
			)
			h.respondWithError(w, http.StatusInternalServerError, "Failed to add item to cart")
		}
		return
	}
	h.respondWithJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := idParam(r, "itemId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid cart item ID format")
		return
	}

	var input CartQuantityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.cart.UpdateQuantity(r.Context(), user.ID, itemID, input.Quantity); err != nil {
		h.logger.Error("UpdateQuantity failed", zap.Int64("user_id", user.ID), zap.Int64("item_id", itemID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update cart item")
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) UpdateCartItemSize(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := idParam(r, "itemId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid cart item ID format")
		return
	}

	var input CartSizeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Please select a size.", Field: "size"})
		return
	}

	if err := h.cart.UpdateSize(r.Context(), user.ID, itemID, input.Size); err != nil {
		if errors.Is(err, cart.ErrSizeRequired) {
			h.respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Please select a size.", Field: "size"})
			return
		}
		h.logger.Error("UpdateSize failed", zap.Int64("user_id", user.ID), zap.Int64("item_id", itemID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update cart item")
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	itemID, ok := idParam(r, "itemId")
	if !ok {
		h.respondWithError(w, http.StatusBadRequest, "Invalid cart item ID format")
		return
	}

	if err := h.cart.RemoveItem(r.Context(), user.ID, itemID); err != nil {
		h.logger.Error("RemoveItem failed", zap.Int64("user_id", user.ID), zap.Int64("item_id", itemID), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Failed to remove cart item")
		return
	}
	h.respondWithJSON(w, http.StatusNoContent, nil)
}
