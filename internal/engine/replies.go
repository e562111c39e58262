package engine

import (
	"fmt"
	"strings"

	"github.com/veloshop/ChatCart/internal/models"
)

// User-facing reply texts. Internal failures are never shown verbatim; every
// failure path degrades to one of these.
const (
	replyMenuHeader   = "Welcome to VeloShop 🛍️"
	replyMenuBody     = "What would you like to do?"
	replyFallback     = "Sorry, I didn't understand that. Type \"menu\" to see what I can do."
	replyResumed      = "Conversation resumed. The bot is back online for this chat."
	replyAskName      = "Great! Let's get your order ready.\nWhat name should we put on the order?"
	replyAskAddress   = "Thanks, %s! What's the delivery address?"
	replyAskOrderID   = "Please enter your order ID (it looks like ORD-123456). Type \"menu\" to go back."
	replyAgentHandoff = "You're being connected to a human agent. Please hold on — an agent will reply here shortly."
	replyComingSoon   = "This option is coming soon. Stay tuned!"
	replyCartEmpty    = "Your cart is empty. Browse our products to add something!"
	replyOrderAdded   = "Added to your cart ✅\nSelect \"View cart\" from the menu to review or check out."
	replyNoCategory   = "That category isn't available yet — please pick another one."
	replyCategoryHdr  = "Our %s"
	replyCategoryBody = "Tap a product to add it to your cart."
	replyOrderMissing = "We couldn't find an order with that ID. Please check it and try again, or type \"menu\" to go back."
)

// greetingKeywords trigger the main menu from the default state (case-insensitive).
var greetingKeywords = []string{"hi", "hello", "menu"}

// escapeKeywords exit the order tracking prompt (case-insensitive).
var escapeKeywords = []string{"menu", "hi", "cancel"}

func matchesKeyword(text string, keywords []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if normalized == kw {
			return true
		}
	}
	return false
}

// renderCartSummary renders the cart as a text block with no trailing separators.
func renderCartSummary(items []models.CartItem) string {
	lines := make([]string, 0, len(items)+2)
	lines = append(lines, "🛒 Your cart:")
	total := 0
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("• %d × %s", item.Quantity, item.SKU))
		total += item.Quantity
	}
	lines = append(lines, fmt.Sprintf("Total items: %d", total))
	return strings.Join(lines, "\n")
}

// renderOrderConfirmation renders the checkout confirmation text.
func renderOrderConfirmation(orderID, name, address string, items []models.OrderItem) string {
	lines := make([]string, 0, len(items)+4)
	lines = append(lines, fmt.Sprintf("✅ Order %s confirmed!", orderID))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("• %d × %s", item.Quantity, item.SKU))
	}
	lines = append(lines, fmt.Sprintf("Deliver to: %s, %s", name, address))
	lines = append(lines, "We'll message you when it ships. Keep your order ID to track it.")
	return strings.Join(lines, "\n")
}

// renderOrderStatus renders the tracking reply for a found order.
func renderOrderStatus(order *models.Order) string {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	return fmt.Sprintf("Order %s: %s\nItems: %d\nDeliver to: %s", order.ID, order.Status, itemCount, order.Address)
}
