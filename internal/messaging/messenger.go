// Package messaging provides outbound message delivery for ChatCart.
//
// It defines the Messenger abstraction consumed by the conversation engine and
// three backends: the WhatsApp Cloud API (primary), Twilio, and a self-hosted
// whatsmeow session. Backends without native interactive messages render
// buttons and lists as numbered plain text.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/veloshop/ChatCart/internal/models"
)

// Messenger defines a pluggable outbound delivery abstraction. Implementations
// validate payloads before any network call; delivery failures are logged by
// the caller and treated as non-fatal to conversation state.
type Messenger interface {
	// SendText sends a plain text message.
	SendText(ctx context.Context, to, body string) error

	// SendButtons sends a message with up to models.MaxButtons reply buttons.
	SendButtons(ctx context.Context, to, body string, buttons []models.Button) error

	// SendList sends an interactive list message (e.g. the main menu).
	SendList(ctx context.Context, to, header, body string, rows []models.ListRow) error

	// SendProductList sends a product catalog message for the given SKUs.
	SendProductList(ctx context.Context, to, header, body string, skus []string) error

	// SendTemplate sends a pre-approved message template.
	SendTemplate(ctx context.Context, to string, args models.TemplateArgs) error
}

// validateRecipientAndBody checks the fields shared by every send.
func validateRecipientAndBody(to, body string) error {
	if to == "" {
		return models.ErrEmptyRecipient
	}
	if body == "" {
		return models.ErrEmptyBody
	}
	if len(body) > models.MaxBodyLength {
		return models.ErrBodyTooLong
	}
	return nil
}

// validateButtons enforces the platform reply-button limit before any network call.
func validateButtons(buttons []models.Button) error {
	if len(buttons) == 0 {
		return models.ErrNoButtons
	}
	if len(buttons) > models.MaxButtons {
		return fmt.Errorf("%w: got %d, max %d", models.ErrTooManyButtons, len(buttons), models.MaxButtons)
	}
	return nil
}

// validateListRows enforces the platform list-row limit before any network call.
func validateListRows(rows []models.ListRow) error {
	if len(rows) == 0 {
		return models.ErrNoListRows
	}
	if len(rows) > models.MaxListRows {
		return fmt.Errorf("%w: got %d, max %d", models.ErrTooManyListRows, len(rows), models.MaxListRows)
	}
	return nil
}

// renderButtonsText renders a button message as numbered plain text for
// backends without native reply buttons.
func renderButtonsText(body string, buttons []models.Button) string {
	var b strings.Builder
	b.WriteString(body)
	for i, btn := range buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
	}
	return b.String()
}

// renderListText renders a list message as numbered plain text.
func renderListText(header, body string, rows []models.ListRow) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}
	b.WriteString(body)
	for i, row := range rows {
		fmt.Fprintf(&b, "\n%d. %s", i+1, row.Title)
	}
	return b.String()
}

// renderProductListText renders a product list as plain text.
func renderProductListText(header, body string, skus []string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n")
	}
	b.WriteString(body)
	for _, sku := range skus {
		fmt.Fprintf(&b, "\n- %s", sku)
	}
	return b.String()
}

// renderTemplateText renders a template send as plain text for backends
// without template support.
func renderTemplateText(args models.TemplateArgs) string {
	if len(args.BodyParams) == 0 {
		return args.Name
	}
	return strings.Join(args.BodyParams, " ")
}
