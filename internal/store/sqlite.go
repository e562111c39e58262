// Package store provides storage backends for ChatCart.
//
// This file implements a SQLite-backed store for profiles, carts, and orders.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/util"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetOrCreateProfile(handle string) (*models.Profile, error) {
	if handle == "" {
		return nil, models.ErrEmptyRecipient
	}

	var p models.Profile
	var state string
	err := s.db.QueryRow(
		`SELECT handle, name, address, state, created_at, updated_at FROM profiles WHERE handle = ?`, handle,
	).Scan(&p.Handle, &p.Name, &p.Address, &state, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		now := time.Now()
		_, insErr := s.db.Exec(
			`INSERT INTO profiles (handle, state, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			handle, string(models.StateDefault), now, now,
		)
		if insErr != nil {
			slog.Error("SQLiteStore GetOrCreateProfile insert failed", "error", insErr, "handle", handle)
			return nil, fmt.Errorf("failed to create profile for %s: %w", handle, insErr)
		}
		slog.Debug("SQLiteStore created profile", "handle", handle)
		return &models.Profile{Handle: handle, State: models.StateDefault, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetOrCreateProfile query failed", "error", err, "handle", handle)
		return nil, fmt.Errorf("failed to query profile for %s: %w", handle, err)
	}

	// Backfill missing state to default on read
	if state == "" {
		state = string(models.StateDefault)
		if _, updErr := s.db.Exec(`UPDATE profiles SET state = ? WHERE handle = ?`, state, handle); updErr != nil {
			slog.Warn("SQLiteStore state backfill failed", "error", updErr, "handle", handle)
		}
	}
	p.State = models.ConversationState(state)
	return &p, nil
}

func (s *SQLiteStore) SetState(handle string, state models.ConversationState) error {
	if !models.IsValidConversationState(state) {
		return models.ErrInvalidState
	}
	res, err := s.db.Exec(`UPDATE profiles SET state = ?, updated_at = ? WHERE handle = ?`, string(state), time.Now(), handle)
	if err != nil {
		slog.Error("SQLiteStore SetState failed", "error", err, "handle", handle, "state", state)
		return fmt.Errorf("failed to set state for %s: %w", handle, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	slog.Debug("SQLiteStore SetState succeeded", "handle", handle, "state", state)
	return nil
}

func (s *SQLiteStore) UpdateProfileFields(handle string, update models.ProfileUpdate) error {
	if update.Name == nil && update.Address == nil {
		return nil
	}
	query := `UPDATE profiles SET updated_at = ?`
	args := []interface{}{time.Now()}
	if update.Name != nil {
		query += `, name = ?`
		args = append(args, *update.Name)
	}
	if update.Address != nil {
		query += `, address = ?`
		args = append(args, *update.Address)
	}
	query += ` WHERE handle = ?`
	args = append(args, handle)

	res, err := s.db.Exec(query, args...)
	if err != nil {
		slog.Error("SQLiteStore UpdateProfileFields failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to update profile for %s: %w", handle, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile not found for handle %s", handle)
	}
	return nil
}

func (s *SQLiteStore) AddCartItem(handle, sku string, quantity int) error {
	if sku == "" {
		return models.ErrEmptySKU
	}
	if quantity <= 0 {
		return models.ErrInvalidQuantity
	}
	_, err := s.db.Exec(`
		INSERT INTO cart_items (handle, sku, quantity, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(handle, sku) DO UPDATE SET quantity = quantity + excluded.quantity`,
		handle, sku, quantity, time.Now())
	if err != nil {
		slog.Error("SQLiteStore AddCartItem failed", "error", err, "handle", handle, "sku", sku)
		return fmt.Errorf("failed to add cart item for %s: %w", handle, err)
	}
	slog.Debug("SQLiteStore AddCartItem succeeded", "handle", handle, "sku", sku, "quantity", quantity)
	return nil
}

func (s *SQLiteStore) ListCart(handle string) ([]models.CartItem, error) {
	rows, err := s.db.Query(`SELECT handle, sku, quantity, added_at FROM cart_items WHERE handle = ? ORDER BY added_at`, handle)
	if err != nil {
		slog.Error("SQLiteStore ListCart query failed", "error", err, "handle", handle)
		return nil, fmt.Errorf("failed to query cart for %s: %w", handle, err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.Handle, &item.SKU, &item.Quantity, &item.AddedAt); err != nil {
			slog.Error("SQLiteStore ListCart scan failed", "error", err, "handle", handle)
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart rows: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) ClearCart(handle string) error {
	_, err := s.db.Exec(`DELETE FROM cart_items WHERE handle = ?`, handle)
	if err != nil {
		slog.Error("SQLiteStore ClearCart failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to clear cart for %s: %w", handle, err)
	}
	slog.Debug("SQLiteStore ClearCart succeeded", "handle", handle)
	return nil
}

func (s *SQLiteStore) CreateOrder(handle, name, address string, items []models.OrderItem) (string, error) {
	if items == nil {
		items = []models.OrderItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		slog.Error("SQLiteStore CreateOrder JSON marshal failed", "error", err, "handle", handle)
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}

	for attempt := 0; attempt < CreateOrderMaxAttempts; attempt++ {
		id := util.GenerateOrderID()
		_, err = s.db.Exec(
			`INSERT INTO orders (id, handle, name, address, items, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, handle, name, address, string(itemsJSON), string(models.OrderStatusProcessing), time.Now())
		if err != nil {
			// Only a primary-key collision is retryable; anything else is a
			// real database failure.
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				slog.Debug("SQLiteStore CreateOrder ID collision, retrying", "attempt", attempt)
				continue
			}
			slog.Error("SQLiteStore CreateOrder insert failed", "error", err, "handle", handle)
			return "", fmt.Errorf("failed to insert order for %s: %w", handle, err)
		}
		slog.Debug("SQLiteStore CreateOrder succeeded", "orderID", id, "handle", handle, "items", len(items))
		return id, nil
	}
	slog.Error("SQLiteStore CreateOrder exhausted attempts", "error", err, "handle", handle)
	return "", fmt.Errorf("failed to create order for %s: %w", handle, models.ErrOrderIDCollision)
}

func (s *SQLiteStore) GetOrder(orderID string) (*models.Order, error) {
	var o models.Order
	var itemsJSON, status string
	err := s.db.QueryRow(
		`SELECT id, handle, name, address, items, status, created_at FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.Handle, &o.Name, &o.Address, &itemsJSON, &status, &o.CreatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetOrder not found", "orderID", orderID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetOrder failed", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}

	o.Status = models.OrderStatus(status)
	o.Items = []models.OrderItem{}
	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			slog.Error("SQLiteStore GetOrder JSON unmarshal failed", "error", err, "orderID", orderID)
			return nil, fmt.Errorf("failed to unmarshal order items for %s: %w", orderID, err)
		}
	}
	return &o, nil
}

func (s *SQLiteStore) SetOrderStatus(orderID string, status models.OrderStatus) error {
	res, err := s.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, string(status), orderID)
	if err != nil {
		slog.Error("SQLiteStore SetOrderStatus failed", "error", err, "orderID", orderID)
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
