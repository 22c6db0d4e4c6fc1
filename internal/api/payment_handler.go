package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"storefront-service/internal/payment"
)

// maxCallbackBytes bounds the callback body read from the provider.
const maxCallbackBytes = 1 << 20

func (h *HTTPHandler) InitiateSTKPush(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.initiator.InitiateSTKPush(r.Context(), user)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentInProgress) {
			h.respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		if payment.IsClientError(err) {
			h.respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("STK push failed", zap.Int64("user_id", user.ID), zap.Error(err))
		h.respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// MpesaCallback acknowledges the provider with a plain "Success" or, when the
// callback cannot be recorded, "Failure" and a 400 so the provider retries.
func (h *HTTPHandler) MpesaCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	defer r.Body.Close()
	if err != nil {
		h.logger.Warn("Failed to read M-Pesa callback body", zap.Error(err))
		writeAck(w, http.StatusBadRequest, "Failure")
		return
	}

	if _, err := h.reconciler.HandleCallback(r.Context(), body); err != nil {
		if !payment.IsMalformed(err) {
			h.logger.Error("M-Pesa callback processing failed", zap.Error(err))
		}
		writeAck(w, http.StatusBadRequest, "Failure")
		return
	}
	writeAck(w, http.StatusOK, "Success")
}

func writeAck(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, message)
}
