// Package models defines the core data structures for ChatCart.
//
// It includes user profiles, carts, orders, the conversation state enum,
// and the normalized inbound message union shared across modules.
package models

import (
	"errors"
	"time"
)

// ConversationState disambiguates how free-text input from a user should be
// interpreted on their next turn. It is persisted on the user profile.
type ConversationState string

const (
	// StateDefault is the idle state: keyword commands and intent classification apply.
	StateDefault ConversationState = "default"
	// StateAwaitingName means the next text message is the customer's name (checkout step 1).
	StateAwaitingName ConversationState = "awaiting_name"
	// StateAwaitingAddress means the next text message is the shipping address (checkout step 2).
	StateAwaitingAddress ConversationState = "awaiting_address"
	// StateAwaitingOrderID means the next text message is an order ID to track.
	StateAwaitingOrderID ConversationState = "awaiting_order_id"
	// StateAwaitingAgent means a human agent owns the conversation; the bot stays silent.
	StateAwaitingAgent ConversationState = "awaiting_agent"
)

// IsValidConversationState checks if the given state is part of the closed set.
func IsValidConversationState(s ConversationState) bool {
	switch s {
	case StateDefault, StateAwaitingName, StateAwaitingAddress, StateAwaitingOrderID, StateAwaitingAgent:
		return true
	default:
		return false
	}
}

// Profile represents a user known to the bot, keyed by their stable chat handle
// (the WhatsApp phone ID). A profile exists for every handle that has sent at
// least one message; State is never absent.
type Profile struct {
	Handle    string            `json:"handle"`
	Name      string            `json:"name,omitempty"`
	Address   string            `json:"address,omitempty"`
	State     ConversationState `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ProfileUpdate is a partial update applied to a profile. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// CartItem is one SKU line in a user's cart. Quantity accumulates on repeated
// additions of the same SKU rather than overwriting.
type CartItem struct {
	Handle   string    `json:"handle"`
	SKU      string    `json:"sku"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

// OrderStatus represents the fulfillment status of an order.
type OrderStatus string

const (
	// OrderStatusProcessing is the initial status at checkout completion.
	OrderStatusProcessing OrderStatus = "Processing"
	// OrderStatusShipped indicates the order has left the warehouse.
	OrderStatusShipped OrderStatus = "Shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled indicates the order was cancelled by fulfillment.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// OrderItem is one line of an order's immutable item snapshot.
type OrderItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Order is a checkout snapshot. Items are copied from the cart at creation time
// and never change afterwards, even if the live cart does.
type Order struct {
	ID        string      `json:"id"`
	Handle    string      `json:"handle"`
	Name      string      `json:"name"`
	Address   string      `json:"address"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// Validation constants for outbound message construction.
const (
	// MaxButtons is the WhatsApp interactive reply-button limit per message.
	MaxButtons = 3
	// MaxListRows is the WhatsApp interactive list row limit per section.
	MaxListRows = 10
	// MaxBodyLength is the maximum allowed length for an outbound text body.
	MaxBodyLength = 4096
)

// Error variables for better error handling and testability.
var (
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrEmptyBody        = errors.New("message body cannot be empty")
	ErrBodyTooLong      = errors.New("message body exceeds maximum length")
	ErrNoButtons        = errors.New("at least one button is required")
	ErrTooManyButtons   = errors.New("too many buttons")
	ErrNoListRows       = errors.New("at least one list row is required")
	ErrTooManyListRows  = errors.New("too many list rows")
	ErrNoProducts       = errors.New("at least one product SKU is required")
	ErrInvalidState     = errors.New("invalid conversation state")
	ErrEmptySKU         = errors.New("sku cannot be empty")
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrEmptyTemplate    = errors.New("template name cannot be empty")
	ErrOrderIDCollision = errors.New("order ID collision")
	ErrOrderNotFound    = errors.New("order not found")
)

// Button is one interactive reply button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row of an interactive list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// TemplateArgs describes a pre-approved message template send.
type TemplateArgs struct {
	Name       string   `json:"name"`
	Language   string   `json:"language"`
	BodyParams []string `json:"body_params,omitempty"`
}

// Validate checks template arguments before any network call.
func (t TemplateArgs) Validate() error {
	if t.Name == "" {
		return ErrEmptyTemplate
	}
	return nil
}
