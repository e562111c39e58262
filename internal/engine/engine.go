// Package engine implements the conversation state machine for ChatCart.
//
// The engine consumes one normalized inbound message plus the user's persisted
// conversation state and produces a state transition and zero or more outbound
// sends. It is the only component with nontrivial control flow; the store,
// classifier, and messenger are injected collaborators.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veloshop/ChatCart/internal/messaging"
	"github.com/veloshop/ChatCart/internal/models"
	"github.com/veloshop/ChatCart/internal/nlp"
	"github.com/veloshop/ChatCart/internal/store"
	"github.com/veloshop/ChatCart/internal/util"
)

// Engine is the conversation state machine. Processing is serialized per user
// handle; messages for different handles run fully in parallel.
type Engine struct {
	st         store.Store
	messenger  messaging.Messenger
	classifier nlp.Classifier
	locks      *handleLocks
}

// New creates an Engine with the given collaborators.
func New(st store.Store, messenger messaging.Messenger, classifier nlp.Classifier) *Engine {
	return &Engine{
		st:         st,
		messenger:  messenger,
		classifier: classifier,
		locks:      newHandleLocks(),
	}
}

// HandleMessage processes one inbound message for the given sender handle.
// Exactly one state transition and any number of outbound sends are produced;
// the engine never re-enters itself for the same message. A store failure
// aborts the transition with the prior state preserved; messenger failures are
// logged and never roll back a committed transition.
func (e *Engine) HandleMessage(ctx context.Context, handle string, msg models.IncomingMessage) error {
	if handle == "" {
		return models.ErrEmptyRecipient
	}

	// Serialize read-state -> compute-transition -> write-state per handle.
	lock := e.locks.get(handle)
	lock.Lock()
	defer lock.Unlock()

	profile, err := e.st.GetOrCreateProfile(handle)
	if err != nil {
		slog.Error("Engine HandleMessage profile load failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to load profile for %s: %w", handle, err)
	}
	slog.Debug("Engine HandleMessage", "handle", handle, "state", profile.State, "message_type", fmt.Sprintf("%T", msg))

	// Admin override returns the conversation to the default state from
	// anywhere, including the human-agent hand-off.
	if text, ok := msg.(models.TextMessage); ok && isAdminResume(text.Body) {
		e.send(ctx, handle, replyResumed)
		return e.setState(handle, models.StateDefault)
	}

	// A human agent owns the conversation; the bot stays silent.
	if profile.State == models.StateAwaitingAgent {
		slog.Info("Engine message queued for human agent", "handle", handle)
		return nil
	}

	switch m := msg.(type) {
	case models.TextMessage:
		return e.handleText(ctx, handle, profile, m.Body)
	case models.ListSelection:
		return e.handleMenuOption(ctx, handle, m.OptionID)
	case models.ButtonSelection:
		return e.handleButton(ctx, handle, m.ButtonID)
	case models.ProductOrder:
		return e.handleProductOrder(ctx, handle, m)
	default:
		slog.Warn("Engine unsupported message type", "handle", handle, "type", fmt.Sprintf("%T", msg))
		e.send(ctx, handle, replyFallback)
		return nil
	}
}

func isAdminResume(body string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), AdminResumeToken)
}

// handleText dispatches free text according to the persisted conversation state.
func (e *Engine) handleText(ctx context.Context, handle string, profile *models.Profile, body string) error {
	switch profile.State {
	case models.StateAwaitingName:
		return e.handleNameInput(ctx, handle, body)
	case models.StateAwaitingAddress:
		return e.handleAddressInput(ctx, handle, profile, body)
	case models.StateAwaitingOrderID:
		return e.handleOrderIDInput(ctx, handle, body)
	default:
		return e.handleDefaultText(ctx, handle, body)
	}
}

// handleNameInput persists the customer name and advances to the address step.
func (e *Engine) handleNameInput(ctx context.Context, handle, body string) error {
	name := strings.TrimSpace(body)
	if err := e.st.UpdateProfileFields(handle, models.ProfileUpdate{Name: &name}); err != nil {
		slog.Error("Engine name persist failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to persist name for %s: %w", handle, err)
	}
	e.send(ctx, handle, fmt.Sprintf(replyAskAddress, name))
	return e.setState(handle, models.StateAwaitingAddress)
}

// handleAddressInput completes checkout: snapshot the cart into an order,
// confirm, clear the cart, and persist the address. An empty cart still
// produces a valid empty-items order.
func (e *Engine) handleAddressInput(ctx context.Context, handle string, profile *models.Profile, body string) error {
	address := strings.TrimSpace(body)

	cart, err := e.st.ListCart(handle)
	if err != nil {
		slog.Error("Engine checkout cart read failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to read cart for %s: %w", handle, err)
	}
	items := make([]models.OrderItem, 0, len(cart))
	for _, ci := range cart {
		items = append(items, models.OrderItem{SKU: ci.SKU, Quantity: ci.Quantity})
	}

	orderID, err := e.st.CreateOrder(handle, profile.Name, address, items)
	if err != nil {
		slog.Error("Engine order creation failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to create order for %s: %w", handle, err)
	}
	slog.Info("Engine order created", "handle", handle, "orderID", orderID, "items", len(items))

	e.send(ctx, handle, renderOrderConfirmation(orderID, profile.Name, address, items))
	if err := e.messenger.SendTemplate(ctx, handle, models.TemplateArgs{
		Name:       OrderConfirmationTemplate,
		BodyParams: []string{profile.Name, orderID},
	}); err != nil {
		slog.Error("Engine confirmation template send failed", "error", err, "handle", handle, "orderID", orderID)
	}

	if err := e.st.ClearCart(handle); err != nil {
		slog.Error("Engine cart clear failed after order creation", "error", err, "handle", handle, "orderID", orderID)
	}
	if err := e.st.UpdateProfileFields(handle, models.ProfileUpdate{Address: &address}); err != nil {
		slog.Error("Engine address persist failed", "error", err, "handle", handle)
	}
	return e.setState(handle, models.StateDefault)
}

// handleOrderIDInput resolves a user-entered order ID, or escapes back to the menu.
func (e *Engine) handleOrderIDInput(ctx context.Context, handle, body string) error {
	if matchesKeyword(body, escapeKeywords) {
		e.sendMainMenu(ctx, handle)
		return e.setState(handle, models.StateDefault)
	}

	orderID := util.NormalizeOrderID(body)
	order, err := e.st.GetOrder(orderID)
	if err != nil {
		slog.Error("Engine order lookup failed", "error", err, "handle", handle, "orderID", orderID)
		return fmt.Errorf("failed to look up order %s: %w", orderID, err)
	}
	if order == nil {
		// A miss is a normal negative result: keep waiting for a valid ID.
		e.send(ctx, handle, replyOrderMissing)
		return nil
	}

	e.send(ctx, handle, renderOrderStatus(order))
	e.sendMainMenu(ctx, handle)
	return e.setState(handle, models.StateDefault)
}

// handleDefaultText handles free text in the default state: greeting keywords
// show the menu; anything else goes through the intent classifier with a
// deterministic fallback.
func (e *Engine) handleDefaultText(ctx context.Context, handle, body string) error {
	if matchesKeyword(body, greetingKeywords) {
		e.sendMainMenu(ctx, handle)
		return nil
	}

	result := e.classify(ctx, body)
	if category := result.FirstEntity(nlp.EntityCategory); category != "" {
		return e.handleCategory(ctx, handle, strings.ToLower(category))
	}
	switch result.Intent {
	case nlp.IntentBrowseProducts:
		e.sendCategoryButtons(ctx, handle)
		return nil
	case nlp.IntentGreeting:
		e.sendMainMenu(ctx, handle)
		return nil
	case nlp.IntentTrackOrder:
		e.send(ctx, handle, replyAskOrderID)
		return e.setState(handle, models.StateAwaitingOrderID)
	}

	e.send(ctx, handle, replyFallback)
	return nil
}

// classify runs the intent classifier, downgrading any failure to "no signal".
func (e *Engine) classify(ctx context.Context, text string) *models.IntentResult {
	if e.classifier == nil {
		return &models.IntentResult{}
	}
	result, err := e.classifier.Classify(ctx, text)
	if err != nil || result == nil {
		if err != nil {
			slog.Warn("Engine classifier failed, treating as no signal", "error", err)
		}
		return &models.IntentResult{}
	}
	return result
}

// handleMenuOption dispatches a main menu list selection.
func (e *Engine) handleMenuOption(ctx context.Context, handle, optionID string) error {
	slog.Debug("Engine menu option selected", "handle", handle, "option", optionID)
	switch optionID {
	case OptionBrowseCategories:
		e.sendCategoryButtons(ctx, handle)
		return nil
	case OptionViewCart:
		return e.handleViewCart(ctx, handle)
	case OptionTrackOrder:
		e.send(ctx, handle, replyAskOrderID)
		return e.setState(handle, models.StateAwaitingOrderID)
	case OptionTalkToAgent:
		e.send(ctx, handle, replyAgentHandoff)
		return e.setState(handle, models.StateAwaitingAgent)
	case OptionSpecialOffers:
		e.send(ctx, handle, replyComingSoon)
		return nil
	default:
		e.send(ctx, handle, fmt.Sprintf("Sorry, \"%s\" isn't something I can help with yet. Type \"menu\" to see the options.", optionID))
		return nil
	}
}

// handleViewCart renders the cart with checkout buttons, or an empty-cart notice.
func (e *Engine) handleViewCart(ctx context.Context, handle string) error {
	cart, err := e.st.ListCart(handle)
	if err != nil {
		slog.Error("Engine view cart failed", "error", err, "handle", handle)
		return fmt.Errorf("failed to read cart for %s: %w", handle, err)
	}
	if len(cart) == 0 {
		e.send(ctx, handle, replyCartEmpty)
		return nil
	}

	buttons := []models.Button{
		{ID: ButtonCheckout, Title: "Checkout"},
		{ID: ButtonMenu, Title: "Keep shopping"},
	}
	if err := e.messenger.SendButtons(ctx, handle, renderCartSummary(cart), buttons); err != nil {
		slog.Error("Engine cart summary send failed", "error", err, "handle", handle)
	}
	return nil
}

// handleButton dispatches a reply-button press.
func (e *Engine) handleButton(ctx context.Context, handle, buttonID string) error {
	slog.Debug("Engine button pressed", "handle", handle, "button", buttonID)

	if strings.HasPrefix(buttonID, CategoryButtonPrefix) {
		return e.handleCategory(ctx, handle, strings.TrimPrefix(buttonID, CategoryButtonPrefix))
	}

	switch buttonID {
	case ButtonCheckout:
		e.send(ctx, handle, replyAskName)
		return e.setState(handle, models.StateAwaitingName)
	case ButtonMenu:
		e.sendMainMenu(ctx, handle)
		return nil
	default:
		e.send(ctx, handle, replyFallback)
		return nil
	}
}

// handleCategory replies with the product list for a stocked category, or a
// "not yet available" prompt otherwise.
func (e *Engine) handleCategory(ctx context.Context, handle, categoryID string) error {
	category := findCategory(strings.TrimSpace(categoryID))
	if category == nil || len(category.SKUs) == 0 {
		// Catalog gap: the reply keeps the conversation moving, the log
		// tells the catalog team what users are asking for.
		slog.Warn("Engine category not stocked", "handle", handle, "category", categoryID)
		e.send(ctx, handle, replyNoCategory)
		return nil
	}

	header := fmt.Sprintf(replyCategoryHdr, category.Title)
	if err := e.messenger.SendProductList(ctx, handle, header, replyCategoryBody, category.SKUs); err != nil {
		slog.Error("Engine product list send failed", "error", err, "handle", handle, "category", category.ID)
	}
	return nil
}

// handleProductOrder adds the ordered items to the cart and acknowledges.
func (e *Engine) handleProductOrder(ctx context.Context, handle string, order models.ProductOrder) error {
	added := 0
	for _, item := range order.Items {
		if err := e.st.AddCartItem(handle, item.SKU, item.Quantity); err != nil {
			slog.Error("Engine cart add failed", "error", err, "handle", handle, "sku", item.SKU)
			continue
		}
		added++
	}
	if added == 0 && len(order.Items) > 0 {
		e.send(ctx, handle, replyFallback)
		return fmt.Errorf("failed to add any of %d items to cart for %s", len(order.Items), handle)
	}
	e.send(ctx, handle, replyOrderAdded)
	return nil
}

// sendMainMenu sends the main menu list message.
func (e *Engine) sendMainMenu(ctx context.Context, handle string) {
	if err := e.messenger.SendList(ctx, handle, replyMenuHeader, replyMenuBody, mainMenuRows()); err != nil {
		slog.Error("Engine main menu send failed", "error", err, "handle", handle)
	}
}

// sendCategoryButtons sends the category selector button set.
func (e *Engine) sendCategoryButtons(ctx context.Context, handle string) {
	if err := e.messenger.SendButtons(ctx, handle, "Pick a category to browse:", categoryButtons()); err != nil {
		slog.Error("Engine category buttons send failed", "error", err, "handle", handle)
	}
}

// send delivers a plain text message, logging delivery failures as non-fatal.
func (e *Engine) send(ctx context.Context, handle, body string) {
	if err := e.messenger.SendText(ctx, handle, body); err != nil {
		slog.Error("Engine text send failed", "error", err, "handle", handle)
	}
}

// setState commits the single state transition for this message.
func (e *Engine) setState(handle string, state models.ConversationState) error {
	if err := e.st.SetState(handle, state); err != nil {
		slog.Error("Engine state transition failed", "error", err, "handle", handle, "state", state)
		return fmt.Errorf("failed to transition %s to %s: %w", handle, state, err)
	}
	slog.Debug("Engine state transition committed", "handle", handle, "state", state)
	return nil
}
