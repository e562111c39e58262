// Package api provides HTTP handlers for ChatCart admin endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/util"
)

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}

// ordersHandler handles order admin operations:
// GET /orders/{id} and PATCH /orders/{id}/status.
func (s *Server) ordersHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("ordersHandler invoked", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/orders")
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")

	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Order ID required"))
		return
	}
	orderID := util.NormalizeOrderID(segments[0])

	if len(segments) == 1 {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.getOrderHandler(w, orderID)
		return
	}

	if len(segments) == 2 && segments[1] == "status" {
		if r.Method != http.MethodPatch {
			w.Header().Set("Allow", http.MethodPatch)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
			return
		}
		s.setOrderStatusHandler(w, r, orderID)
		return
	}

	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown orders endpoint"))
}

// getOrderHandler handles GET /orders/{id}
func (s *Server) getOrderHandler(w http.ResponseWriter, orderID string) {
	order, err := s.st.GetOrder(orderID)
	if err != nil {
		slog.Error("getOrderHandler lookup failed", "error", err, "orderID", orderID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch order"))
		return
	}
	if order == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Order not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(order))
}

// orderStatusUpdate is the PATCH /orders/{id}/status payload.
type orderStatusUpdate struct {
	Status models.OrderStatus `json:"status"`
}

// setOrderStatusHandler handles PATCH /orders/{id}/status, used by external
// fulfillment processes.
func (s *Server) setOrderStatusHandler(w http.ResponseWriter, r *http.Request, orderID string) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var update orderStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("setOrderStatusHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if update.Status == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: status"))
		return
	}

	if err := s.st.SetOrderStatus(orderID, update.Status); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Order not found"))
			return
		}
		slog.Error("setOrderStatusHandler update failed", "error", err, "orderID", orderID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update order status"))
		return
	}
	slog.Info("setOrderStatusHandler status updated", "orderID", orderID, "status", update.Status)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Order status updated", nil))
}

// profilesHandler handles GET /profiles/{handle}.
func (s *Server) profilesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("profilesHandler invoked", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	handle := strings.TrimPrefix(r.URL.Path, "/profiles")
	handle = strings.Trim(handle, "/")
	if handle == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Handle required"))
		return
	}

	profile, err := s.st.GetOrCreateProfile(handle)
	if err != nil {
		slog.Error("profilesHandler lookup failed", "error", err, "handle", handle)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch profile"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}
