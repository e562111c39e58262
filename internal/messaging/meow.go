// Package messaging provides outbound message delivery for ChatCart.
//
// This file implements a self-hosted WhatsApp Web backend using whatsmeow.
// It renders interactive content as numbered plain text and can feed inbound
// text messages to an injected handler, serving as an alternative transport
// to the Cloud API webhook.
package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/store"
)

// JIDSuffix is the WhatsApp JID suffix for regular users.
const JIDSuffix = "s.whatsapp.net"

// InboundHandler receives normalized inbound text messages from the whatsmeow
// session. It is invoked on the event goroutine and must not block.
type InboundHandler func(senderHandle string, msg models.IncomingMessage)

// MeowOpts holds configuration options for the whatsmeow backend.
type MeowOpts struct {
	DBDSN       string // whatsmeow session database connection string
	QRPath      string // path to write login QR code
	NumericCode bool   // use numeric login code instead of QR code
}

// MeowOption defines a configuration option for the whatsmeow backend.
type MeowOption func(*MeowOpts)

// WithMeowDBDSN sets the whatsmeow session database connection string.
func WithMeowDBDSN(dsn string) MeowOption {
	return func(o *MeowOpts) { o.DBDSN = dsn }
}

// WithQRCodeOutput instructs the backend to write the login QR code to the specified path.
func WithQRCodeOutput(path string) MeowOption {
	return func(o *MeowOpts) { o.QRPath = path }
}

// WithNumericCode instructs the backend to use a numeric login code instead of a QR code.
func WithNumericCode() MeowOption {
	return func(o *MeowOpts) { o.NumericCode = true }
}

// MeowMessenger sends WhatsApp messages over a self-hosted whatsmeow session.
type MeowMessenger struct {
	waClient *whatsmeow.Client
}

// NewMeowMessenger creates and connects a whatsmeow-backed messenger,
// driving the QR or numeric login flow when the session is not yet paired.
func NewMeowMessenger(opts ...MeowOption) (*MeowMessenger, error) {
	var cfg MeowOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("MeowMessenger options set", "DBDSN_set", cfg.DBDSN != "", "QRPath_set", cfg.QRPath != "", "NumericCode", cfg.NumericCode)

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("whatsmeow session database DSN must be provided")
	}

	// Auto-detect database driver based on DSN
	dbDriver := "sqlite3"
	if store.DetectDSNType(cfg.DBDSN) == "postgres" {
		dbDriver = "postgres"
	}

	logger := waLog.Stdout("Database", "INFO", true)
	ctx := context.Background()
	container, err := sqlstore.New(ctx, dbDriver, cfg.DBDSN, logger)
	if err != nil {
		slog.Error("Failed to initialize whatsmeow session store", "error", err)
		return nil, fmt.Errorf("failed to initialize whatsmeow session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		slog.Error("Failed to get first device from session store", "error", err)
		return nil, fmt.Errorf("failed to get device from whatsmeow session store: %w", err)
	}

	clientLog := waLog.Stdout("Client", "INFO", true)
	waClient := whatsmeow.NewClient(deviceStore, clientLog)

	if waClient.Store.ID == nil {
		slog.Info("WhatsApp login required; starting QR code flow")
		qrChan, _ := waClient.GetQRChannel(context.Background())
		if err := waClient.Connect(); err != nil {
			slog.Error("Failed to connect to WhatsApp during login", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp during login: %w", err)
		}
		// Determine output writer for QR or code
		writer := io.Writer(os.Stdout)
		if cfg.QRPath != "" {
			f, ferr := os.Create(cfg.QRPath)
			if ferr != nil {
				slog.Error("Failed to create QR file", "error", ferr)
				return nil, fmt.Errorf("failed to create QR file: %w", ferr)
			}
			defer f.Close()
			writer = f
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				if cfg.NumericCode {
					fmt.Fprintln(writer, evt.Code)
				} else {
					qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, writer)
				}
			} else {
				slog.Debug("WhatsApp login event", "event", evt.Event)
			}
		}
	} else {
		slog.Debug("WhatsApp already logged in, connecting to server")
		if err := waClient.Connect(); err != nil {
			slog.Error("Failed to connect to WhatsApp server", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp server: %w", err)
		}
	}
	slog.Info("Whatsmeow client connected successfully")
	return &MeowMessenger{waClient: waClient}, nil
}

// OnInbound registers a handler for inbound text messages. Non-text messages
// are ignored; interactive selections only arrive via the Cloud API webhook.
func (m *MeowMessenger) OnInbound(handler InboundHandler) {
	m.waClient.AddEventHandler(func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok || msg.Message == nil {
			return
		}

		var body string
		if msg.Message.Conversation != nil {
			body = *msg.Message.Conversation
		} else if msg.Message.ExtendedTextMessage != nil && msg.Message.ExtendedTextMessage.Text != nil {
			body = *msg.Message.ExtendedTextMessage.Text
		} else {
			slog.Debug("MeowMessenger ignoring non-text message", "from", msg.Info.Sender.String())
			return
		}

		handle := msg.Info.Sender.User
		slog.Debug("MeowMessenger inbound text", "from", handle, "body_length", len(body))
		handler(handle, models.TextMessage{Body: body})
	})
}

// Disconnect closes the whatsmeow session.
func (m *MeowMessenger) Disconnect() {
	if m.waClient != nil {
		m.waClient.Disconnect()
	}
}

// sendText delivers a plain text message over the session.
func (m *MeowMessenger) sendText(ctx context.Context, to, body string) error {
	if m.waClient == nil {
		return fmt.Errorf("whatsmeow client not initialized")
	}
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}

	jid := types.NewJID(strings.TrimPrefix(to, "+"), JIDSuffix)
	msg := &waE2E.Message{Conversation: &body}

	_, err := m.waClient.SendMessage(ctx, jid, msg)
	if err != nil {
		slog.Error("MeowMessenger send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("MeowMessenger message sent", "to", to)
	return nil
}

// SendText sends a plain text message.
func (m *MeowMessenger) SendText(ctx context.Context, to, body string) error {
	return m.sendText(ctx, to, body)
}

// SendButtons renders buttons as numbered text.
func (m *MeowMessenger) SendButtons(ctx context.Context, to, body string, buttons []models.Button) error {
	if err := validateButtons(buttons); err != nil {
		return err
	}
	return m.sendText(ctx, to, renderButtonsText(body, buttons))
}

// SendList renders a list message as numbered text.
func (m *MeowMessenger) SendList(ctx context.Context, to, header, body string, rows []models.ListRow) error {
	if err := validateListRows(rows); err != nil {
		return err
	}
	return m.sendText(ctx, to, renderListText(header, body, rows))
}

// SendProductList renders a product list as text.
func (m *MeowMessenger) SendProductList(ctx context.Context, to, header, body string, skus []string) error {
	if len(skus) == 0 {
		return models.ErrNoProducts
	}
	return m.sendText(ctx, to, renderProductListText(header, body, skus))
}

// SendTemplate renders a template send as text.
func (m *MeowMessenger) SendTemplate(ctx context.Context, to string, args models.TemplateArgs) error {
	if err := args.Validate(); err != nil {
		return err
	}
	return m.sendText(ctx, to, renderTemplateText(args))
}
