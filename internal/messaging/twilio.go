// Package messaging provides outbound message delivery for ChatCart.
//
// This file implements the Twilio WhatsApp backend. Twilio's Go SDK has no
// native WhatsApp interactive messages, so buttons, lists, and product lists
// are rendered as numbered plain text.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/veloshop/ChatCart/internal/models"
)

// TwilioOpts holds configuration options for the Twilio backend.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
}

// TwilioOption defines a configuration option for the Twilio backend.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number in "whatsapp:+1234567890" format.
func WithFromWhats(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromWhats = from }
}

// TwilioMessenger sends WhatsApp messages through the Twilio REST API.
type TwilioMessenger struct {
	client    *twilio.RestClient
	fromWhats string
}

// NewTwilioMessenger creates a Twilio-backed messenger, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables when options are not provided.
func NewTwilioMessenger(opts ...TwilioOption) (*TwilioMessenger, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio messenger config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioMessenger{
		client:    client,
		fromWhats: cfg.FromWhats,
	}, nil
}

// SendText sends a plain WhatsApp text message via Twilio.
func (t *TwilioMessenger) SendText(ctx context.Context, to, body string) error {
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(t.fromWhats)
	params.SetBody(body)

	_, err := t.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendText failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// SendButtons renders buttons as numbered text.
func (t *TwilioMessenger) SendButtons(ctx context.Context, to, body string, buttons []models.Button) error {
	if err := validateButtons(buttons); err != nil {
		return err
	}
	return t.SendText(ctx, to, renderButtonsText(body, buttons))
}

// SendList renders a list message as numbered text.
func (t *TwilioMessenger) SendList(ctx context.Context, to, header, body string, rows []models.ListRow) error {
	if err := validateListRows(rows); err != nil {
		return err
	}
	return t.SendText(ctx, to, renderListText(header, body, rows))
}

// SendProductList renders a product list as text.
func (t *TwilioMessenger) SendProductList(ctx context.Context, to, header, body string, skus []string) error {
	if len(skus) == 0 {
		return models.ErrNoProducts
	}
	return t.SendText(ctx, to, renderProductListText(header, body, skus))
}

// SendTemplate renders a template send as text.
func (t *TwilioMessenger) SendTemplate(ctx context.Context, to string, args models.TemplateArgs) error {
	if err := args.Validate(); err != nil {
		return err
	}
	return t.SendText(ctx, to, renderTemplateText(args))
}
