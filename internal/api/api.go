// Package api provides HTTP handlers and the main API server logic for ChatCart.
//
// It exposes the WhatsApp webhook (verification handshake and message
// ingestion) plus a small admin surface for orders, profiles, and health.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/veloshop/ChatCart/internal/engine"
	"github.com/veloshop/ChatCart/internal/messaging"
	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/nlp"
	"github.com/veloshop/ChatCart/internal/store"
)

// Default configuration constants
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8080"
	// DefaultProcessTimeout bounds downstream processing of one webhook change.
	// The webhook acknowledgement is written before processing starts and is
	// never delayed by this.
	DefaultProcessTimeout = 30 * time.Second
)

// Messenger backend names selected by MESSENGER_BACKEND / -messenger-backend.
const (
	BackendCloud  = "cloud"
	BackendTwilio = "twilio"
	BackendMeow   = "meow"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	VerifyToken    string
	ProcessTimeout time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithProcessTimeout sets the per-change downstream processing timeout.
func WithProcessTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ProcessTimeout = d }
}

// MessagingOptions selects and configures the outbound messenger backend.
type MessagingOptions struct {
	Backend string
	Cloud   []messaging.CloudOption
	Twilio  []messaging.TwilioOption
	Meow    []messaging.MeowOption
}

// Server wires the conversation engine to HTTP transport.
type Server struct {
	st             store.Store
	eng            *engine.Engine
	verifyToken    string
	addr           string
	processTimeout time.Duration
}

// NewServer creates a Server around prebuilt collaborators.
func NewServer(st store.Store, eng *engine.Engine, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("VERIFY_TOKEN")
	}
	if cfg.ProcessTimeout == 0 {
		cfg.ProcessTimeout = DefaultProcessTimeout
	}
	return &Server{
		st:             st,
		eng:            eng,
		verifyToken:    cfg.VerifyToken,
		addr:           cfg.Addr,
		processTimeout: cfg.ProcessTimeout,
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/orders/", s.ordersHandler)
	mux.HandleFunc("/profiles/", s.profilesHandler)
	return mux
}

// Run builds all modules from the provided options and serves until the
// listener fails.
func Run(storeOpts []store.Option, nlpOpts []nlp.Option, msgOpts MessagingOptions, apiOpts []Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	classifier := buildClassifier(nlpOpts)
	messenger, meow, err := buildMessenger(msgOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize messenger: %w", err)
	}

	eng := engine.New(st, messenger, classifier)
	srv := NewServer(st, eng, apiOpts...)

	// A whatsmeow session is its own inbound transport alongside the webhook.
	if meow != nil {
		meow.OnInbound(func(handle string, msg models.IncomingMessage) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), srv.processTimeout)
				defer cancel()
				if err := eng.HandleMessage(ctx, handle, msg); err != nil {
					slog.Error("Server whatsmeow inbound processing failed", "error", err, "handle", handle)
				}
			}()
		})
		defer meow.Disconnect()
	}

	slog.Info("ChatCart API running", "addr", srv.addr)
	return http.ListenAndServe(srv.addr, srv.Handler())
}

// buildStore selects the store backend from the configured DSN.
func buildStore(opts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(opts...)
	}
	slog.Info("Using SQLite store", "path", cfg.DSN)
	return store.NewSQLiteStore(opts...)
}

// buildClassifier creates the intent classifier, or nil when unconfigured.
// The engine treats a nil classifier as permanent "no signal".
func buildClassifier(opts []nlp.Option) nlp.Classifier {
	client, err := nlp.NewClient(opts...)
	if err != nil {
		slog.Warn("Intent classifier not configured, free text will use keyword matching only", "error", err)
		return nil
	}
	return client
}

// buildMessenger creates the configured delivery backend. The second return
// value is non-nil only for the whatsmeow backend, which also receives inbound
// messages.
func buildMessenger(opts MessagingOptions) (messaging.Messenger, *messaging.MeowMessenger, error) {
	switch opts.Backend {
	case BackendTwilio:
		m, err := messaging.NewTwilioMessenger(opts.Twilio...)
		return m, nil, err
	case BackendMeow:
		m, err := messaging.NewMeowMessenger(opts.Meow...)
		return m, m, err
	case BackendCloud, "":
		m, err := messaging.NewCloudAPIClient(opts.Cloud...)
		return m, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown messenger backend %q", opts.Backend)
	}
}
