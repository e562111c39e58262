// Package store provides storage backends for ChatCart.
//
// It includes an in-memory store for testing and persistent SQLite and
// PostgreSQL stores selected by DSN.
package store

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/util"
)

// CreateOrderMaxAttempts bounds order ID collision retries per CreateOrder call.
const CreateOrderMaxAttempts = 5

// Store defines the persistence contract consumed by the conversation engine.
// All operations are atomic at single-entity granularity; no cross-entity
// transactions are required.
type Store interface {
	// GetOrCreateProfile returns the profile for the handle, creating it with
	// the default conversation state on first contact. A missing state on an
	// existing profile is backfilled to the default.
	GetOrCreateProfile(handle string) (*models.Profile, error)

	// SetState updates the conversation state for the handle.
	SetState(handle string, state models.ConversationState) error

	// UpdateProfileFields applies a partial update to the profile. Nil fields
	// are left unchanged.
	UpdateProfileFields(handle string, update models.ProfileUpdate) error

	// AddCartItem adds quantity of the SKU to the handle's cart. Repeated
	// additions of the same SKU accumulate into a single entry.
	AddCartItem(handle, sku string, quantity int) error

	// ListCart returns all cart items for the handle.
	ListCart(handle string) ([]models.CartItem, error)

	// ClearCart removes every cart item for the handle.
	ClearCart(handle string) error

	// CreateOrder creates an order with an immutable snapshot of the given
	// items and returns the generated order ID.
	CreateOrder(handle, name, address string, items []models.OrderItem) (string, error)

	// GetOrder looks up an order by exact ID. A miss returns (nil, nil).
	GetOrder(orderID string) (*models.Order, error)

	// SetOrderStatus updates the fulfillment status of an order.
	SetOrderStatus(orderID string, status models.OrderStatus) error

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the database DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string as the database DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite" so a single
// -db-dsn flag can select the backend.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded in-process store, used in tests and as the
// fallback when no database DSN is configured.
type InMemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	carts    map[string]map[string]*models.CartItem
	orders   map[string]*models.Order
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*models.Profile),
		carts:    make(map[string]map[string]*models.CartItem),
		orders:   make(map[string]*models.Order),
	}
}

func (s *InMemoryStore) GetOrCreateProfile(handle string) (*models.Profile, error) {
	if handle == "" {
		return nil, models.ErrEmptyRecipient
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[handle]
	if !ok {
		now := time.Now()
		p = &models.Profile{Handle: handle, State: models.StateDefault, CreatedAt: now, UpdatedAt: now}
		s.profiles[handle] = p
		slog.Debug("InMemoryStore created profile", "handle", handle)
	}
	if p.State == "" {
		p.State = models.StateDefault
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) SetState(handle string, state models.ConversationState) error {
	if !models.IsValidConversationState(state) {
		return models.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[handle]
	if !ok {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	p.State = state
	p.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) UpdateProfileFields(handle string, update models.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[handle]
	if !ok {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Address != nil {
		p.Address = *update.Address
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) AddCartItem(handle, sku string, quantity int) error {
	if sku == "" {
		return models.ErrEmptySKU
	}
	if quantity <= 0 {
		return models.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[handle]
	if !ok {
		cart = make(map[string]*models.CartItem)
		s.carts[handle] = cart
	}
	if item, exists := cart[sku]; exists {
		item.Quantity += quantity
	} else {
		cart[sku] = &models.CartItem{Handle: handle, SKU: sku, Quantity: quantity, AddedAt: time.Now()}
	}
	return nil
}

func (s *InMemoryStore) ListCart(handle string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.CartItem
	for _, item := range s.carts[handle] {
		items = append(items, *item)
	}
	return items, nil
}

func (s *InMemoryStore) ClearCart(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, handle)
	return nil
}

func (s *InMemoryStore) CreateOrder(handle, name, address string, items []models.OrderItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < CreateOrderMaxAttempts; attempt++ {
		id := util.GenerateOrderID()
		if _, taken := s.orders[id]; taken {
			continue
		}
		snapshot := make([]models.OrderItem, len(items))
		copy(snapshot, items)
		s.orders[id] = &models.Order{
			ID:        id,
			Handle:    handle,
			Name:      name,
			Address:   address,
			Items:     snapshot,
			Status:    models.OrderStatusProcessing,
			CreatedAt: time.Now(),
		}
		slog.Debug("InMemoryStore created order", "orderID", id, "handle", handle, "items", len(snapshot))
		return id, nil
	}
	return "", models.ErrOrderIDCollision
}

func (s *InMemoryStore) GetOrder(orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = make([]models.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp, nil
}

func (s *InMemoryStore) SetOrderStatus(orderID string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	o.Status = status
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
