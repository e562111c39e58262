// Package store provides storage backends for ChatCart.
//
// This file implements a PostgreSQL-backed store for profiles, carts, and orders.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/util"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetOrCreateProfile(handle string) (*models.Profile, error) {
	if handle == "" {
		return nil, models.ErrEmptyRecipient
	}

	var p models.Profile
	var state string
	err := s.db.QueryRow(
		`SELECT handle, name, address, state, created_at, updated_at FROM profiles WHERE handle = $1`, handle,
	).Scan(&p.Handle, &p.Name, &p.Address, &state, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		now := time.Now()
		_, insErr := s.db.Exec(
			`INSERT INTO profiles (handle, state, created_at, updated_at) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (handle) DO NOTHING`,
			handle, string(models.StateDefault), now, now,
		)
		if insErr != nil {
			slog.Error("PostgresStore GetOrCreateProfile insert failed", "error", insErr, "handle", handle)
			return nil, fmt.Errorf("failed to create profile for %s: %w", handle, insErr)
		}
		slog.Debug("PostgresStore created profile", "handle", handle)
		return &models.Profile{Handle: handle, State: models.StateDefault, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOrCreateProfile query failed", "error", err, "handle", handle)
		return nil, fmt.Errorf("failed to query profile for %s: %w", handle, err)
	}

	// Backfill missing state to default on read
	if state == "" {
		state = string(models.StateDefault)
		if _, updErr := s.db.Exec(`UPDATE profiles SET state = $1 WHERE handle = $2`, state, handle); updErr != nil {
			slog.Warn("PostgresStore state backfill failed", "error", updErr, "handle", handle)
		}
	}
	p.State = models.ConversationState(state)
	return &p, nil
}

func (s *PostgresStore) SetState(handle string, state models.ConversationState) error {
	if !models.IsValidConversationState(state) {
		return models.ErrInvalidState
	}
	res, err := s.db.Exec(`UPDATE profiles SET state = $1, updated_at = $2 WHERE handle = $3`, string(state), time.Now(), handle)
	if err != nil {
		slog.Error("PostgresStore SetState failed", "error", err, "handle", handle, "state", state)
		return fmt.Errorf("failed to set state for %s: %w", handle, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	slog.Debug("PostgresStore SetState succeeded", "handle", handle, "state", state)
	return nil
}

func (s *PostgresStore) UpdateProfileFields(handle string, update models.ProfileUpdate) error {
	if update.Name == nil && update.Address == nil {
		return nil
	}
	query := `UPDATE profiles SET updated_at = $1`
	args := []interface{}{time.Now()}
	if update.Name != nil {
		args = append(args, *update.Name)
		query += fmt.Sprintf(`, name = $%d`, len(args))
	}
	if update.Address != nil {
		args = append(args, *update.Address)
		query += fmt.Sprintf(`, address = $%d`, len(args))
	}
	args = append(args, handle)
	query += fmt.Sprintf(` WHERE handle = $%d`, len(args))

	res, err := s.db.Exec(query, args...)
	if err != nil {
		slog.Error("PostgresStore UpdateProfileFields failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to update profile for %s: %w", handle, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	return nil
}

func (s *PostgresStore) AddCartItem(handle, sku string, quantity int) error {
	if sku == "" {
		return models.ErrEmptySKU
	}
	if quantity <= 0 {
		return models.ErrInvalidQuantity
	}
	_, err := s.db.Exec(`
		INSERT INTO cart_items (handle, sku, quantity, added_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (handle, sku) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		handle, sku, quantity, time.Now())
	if err != nil {
		slog.Error("PostgresStore AddCartItem failed", "error", err, "handle", handle, "sku", sku)
		return fmt.Errorf("failed to add cart item for %s: %w", handle, err)
	}
	slog.Debug("PostgresStore AddCartItem succeeded", "handle", handle, "sku", sku, "quantity", quantity)
	return nil
}

func (s *PostgresStore) ListCart(handle string) ([]models.CartItem, error) {
	rows, err := s.db.Query(`SELECT handle, sku, quantity, added_at FROM cart_items WHERE handle = $1 ORDER BY added_at`, handle)
	if err != nil {
		slog.Error("PostgresStore ListCart query failed", "error", err, "handle", handle)
		return nil, fmt.Errorf("failed to query cart for %s: %w", handle, err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.Handle, &item.SKU, &item.Quantity, &item.AddedAt); err != nil {
			slog.Error("PostgresStore ListCart scan failed", "error", err, "handle", handle)
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ClearCart(handle string) error {
	_, err := s.db.Exec(`DELETE FROM cart_items WHERE handle = $1`, handle)
	if err != nil {
		slog.Error("PostgresStore ClearCart failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to clear cart for %s: %w", handle, err)
	}
	slog.Debug("PostgresStore ClearCart succeeded", "handle", handle)
	return nil
}

func (s *PostgresStore) CreateOrder(handle, name, address string, items []models.OrderItem) (string, error) {
	if items == nil {
		items = []models.OrderItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		slog.Error("PostgresStore CreateOrder JSON marshal failed", "error", err, "handle", handle)
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}

	for attempt := 0; attempt < CreateOrderMaxAttempts; attempt++ {
		id := util.GenerateOrderID()
		_, err = s.db.Exec(
			`INSERT INTO orders (id, handle, name, address, items, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, handle, name, address, string(itemsJSON), string(models.OrderStatusProcessing), time.Now())
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
				slog.Debug("PostgresStore CreateOrder ID collision, retrying", "orderID", id, "attempt", attempt)
				continue
			}
			slog.Error("PostgresStore CreateOrder failed", "error", err, "handle", handle)
			return "", fmt.Errorf("failed to create order for %s: %w", handle, err)
		}
		slog.Debug("PostgresStore CreateOrder succeeded", "orderID", id, "handle", handle, "items", len(items))
		return id, nil
	}
	return "", fmt.Errorf("failed to create order for %s: %w", handle, models.ErrOrderIDCollision)
}

func (s *PostgresStore) GetOrder(orderID string) (*models.Order, error) {
	var o models.Order
	var itemsJSON []byte
	var status string
	err := s.db.QueryRow(
		`SELECT id, handle, name, address, items, status, created_at FROM orders WHERE id = $1`, orderID,
	).Scan(&o.ID, &o.Handle, &o.Name, &o.Address, &itemsJSON, &status, &o.CreatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetOrder not found", "orderID", orderID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOrder failed", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}

	o.Status = models.OrderStatus(status)
	o.Items = []models.OrderItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			slog.Error("PostgresStore GetOrder JSON unmarshal failed", "error", err, "orderID", orderID)
			return nil, fmt.Errorf("failed to unmarshal order items for %s: %w", orderID, err)
		}
	}
	return &o, nil
}

func (s *PostgresStore) SetOrderStatus(orderID string, status models.OrderStatus) error {
	res, err := s.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, string(status), orderID)
	if err != nil {
		slog.Error("PostgresStore SetOrderStatus failed", "error", err, "orderID", orderID)
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
