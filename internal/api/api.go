// Package api is the gateway's HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/queue"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/service"
)

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewRouter wires the gateway's routes. Method matching is left to mux;
// anything else is its default 404/405 handling.
func NewRouter(svc *service.Service, logger *zap.Logger) *mux.Router {
	h := &Handler{svc: svc, logger: logger}
	r := mux.NewRouter()
	r.HandleFunc("/payments", h.submitPayment).Methods(http.MethodPost)
	r.HandleFunc("/payments/{id}", h.getPayment).Methods(http.MethodGet)
	r.HandleFunc("/payments-summary", h.paymentsSummary).Methods(http.MethodGet)
	r.HandleFunc("/purge-payments", h.purgePayments).Methods(http.MethodPost)
	r.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)
	r.HandleFunc("/health", h.healthz).Methods(http.MethodGet)
	return r
}

// NewServer returns the http.Server serving the router on addr, with the
// gateway's standard timeouts.
func NewServer(addr string, router *mux.Router) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// submitRequest decodes with pointers so a missing field is
// distinguishable from a zero value. Extra fields are ignored; a negative
// amount fails the uint64 decode and lands in the malformed bucket.
type submitRequest struct {
	ID     *string `json:"id"`
	Amount *uint64 `json:"amount"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) submitPayment(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if body.ID == nil || *body.ID == "" || body.Amount == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id and amount are required"})
		return
	}

	err := h.svc.Submit(payment.Request{ID: *body.ID, Amount: *body.Amount})
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, statusResponse{
			Status:  "accepted",
			Message: "Payment submitted for processing",
		})
	case errors.Is(err, queue.ErrFull):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "intake queue full"})
	default:
		h.logger.Error("submit failed", zap.String("payment_id", *body.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := h.svc.GetPayment(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payment not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// paymentsSummary aggregates the ledger. The de/ate query parameters
// window the summary on ProcessedAt when they parse as RFC3339; absent or
// unparseable values are ignored and the whole ledger is summarized.
func (h *Handler) paymentsSummary(w http.ResponseWriter, r *http.Request) {
	from := parseTimeParam(r.URL.Query().Get("de"))
	to := parseTimeParam(r.URL.Query().Get("ate"))
	writeJSON(w, http.StatusOK, h.svc.Summary(from, to))
}

func parseTimeParam(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) purgePayments(w http.ResponseWriter, r *http.Request) {
	h.svc.Purge()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Payments purged"})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Metrics(r.Context()))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":"encoding response"}`)
	}
}
