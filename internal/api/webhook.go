// Package api provides HTTP handlers and the main API server logic for ChatCart.
//
// This file implements the WhatsApp webhook: the verification handshake and
// message ingestion with envelope normalization.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/util"
)

// webhookEnvelope is the top-level WhatsApp Cloud API webhook payload.
type webhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string `json:"field"`
	Value struct {
		Messages []webhookMessage `json:"messages"`
	} `json:"value"`
}

// webhookMessage is one raw inbound message record. Only the first message of
// each change record is normalized and processed.
type webhookMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type      string `json:"type"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Order *struct {
		ProductItems []struct {
			ProductRetailerID string `json:"product_retailer_id"`
			Quantity          int    `json:"quantity"`
		} `json:"product_items"`
	} `json:"order,omitempty"`
}

// normalizeWebhookMessage converts a raw message record into the engine's
// tagged message union. A false return means the record carries nothing the
// engine can act on (media, reactions, missing sender).
func normalizeWebhookMessage(raw webhookMessage) (models.IncomingMessage, bool) {
	if raw.From == "" {
		return nil, false
	}
	switch raw.Type {
	case "text":
		if raw.Text == nil {
			return nil, false
		}
		return models.TextMessage{Body: raw.Text.Body}, true
	case "interactive":
		if raw.Interactive == nil {
			return nil, false
		}
		if raw.Interactive.ListReply != nil {
			return models.ListSelection{OptionID: raw.Interactive.ListReply.ID, Title: raw.Interactive.ListReply.Title}, true
		}
		if raw.Interactive.ButtonReply != nil {
			return models.ButtonSelection{ButtonID: raw.Interactive.ButtonReply.ID, Title: raw.Interactive.ButtonReply.Title}, true
		}
		return nil, false
	case "order":
		if raw.Order == nil {
			return nil, false
		}
		items := make([]models.OrderItem, 0, len(raw.Order.ProductItems))
		for _, p := range raw.Order.ProductItems {
			items = append(items, models.OrderItem{SKU: p.ProductRetailerID, Quantity: p.Quantity})
		}
		return models.ProductOrder{Items: items}, true
	default:
		return nil, false
	}
}

// webhookHandler dispatches the verification handshake (GET) and message
// ingestion (POST).
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhookHandler(w, r)
	case http.MethodPost:
		s.receiveWebhookHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhookHandler implements the platform's challenge/response handshake.
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && s.verifyToken != "" && token == s.verifyToken {
		slog.Info("Server webhook verified")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge)); err != nil {
			slog.Error("Server webhook challenge write failed", "error", err)
		}
		return
	}

	slog.Warn("Server webhook verification rejected", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
}

// receiveWebhookHandler acknowledges the delivery immediately and processes
// every change record concurrently afterwards. Downstream failures never
// alter the acknowledgement: a non-success status would make the platform
// redeliver messages we have already seen.
func (s *Server) receiveWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		slog.Warn("Server webhook invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if envelope.Object == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// Ack before processing; the platform's delivery timeout is short.
	writeJSONResponse(w, http.StatusOK, models.Success(nil))

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}
			raw := change.Value.Messages[0]
			msg, ok := normalizeWebhookMessage(raw)
			if !ok {
				slog.Debug("Server webhook skipping unsupported message", "type", raw.Type, "from", raw.From)
				continue
			}
			// Correlation ID ties the dispatch log to the completion log
			// across concurrent deliveries from the same sender.
			corrID := util.GenerateRandomHex(8)
			slog.Debug("Server webhook dispatching message", "from", raw.From, "type", raw.Type, "corr_id", corrID)

			go func(handle string, msg models.IncomingMessage) {
				ctx, cancel := context.WithTimeout(context.Background(), s.processTimeout)
				defer cancel()
				if err := s.eng.HandleMessage(ctx, handle, msg); err != nil {
					slog.Error("Server webhook processing failed", "error", err, "handle", handle, "corr_id", corrID)
				}
			}(raw.From, msg)
		}
	}
}
