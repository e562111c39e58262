package engine

import "github.com/veloshop/ChatCart/internal/models"

// Button and menu option identifiers. Button IDs travel through the platform
// envelope and back, so they are stable wire constants.
const (
	// CategoryButtonPrefix prefixes every category selection button ID.
	CategoryButtonPrefix = "category selector:"
	// ButtonCheckout starts the checkout conversation.
	ButtonCheckout = "checkout"
	// ButtonMenu re-sends the main menu.
	ButtonMenu = "menu"

	// Main menu list option IDs.
	OptionBrowseCategories = "browse_categories"
	OptionViewCart         = "view_cart"
	OptionTrackOrder       = "track_order"
	OptionSpecialOffers    = "special_offers"
	OptionTalkToAgent      = "talk_to_agent"
)

// AdminResumeToken returns a conversation to the bot from any state,
// including the human-agent hand-off.
const AdminResumeToken = "!resume"

// OrderConfirmationTemplate is the pre-approved template sent at checkout completion.
const OrderConfirmationTemplate = "order_confirmation"

// Category is one browsable product category.
type Category struct {
	ID    string
	Title string
	// SKUs is the fixed product set for the category; empty means the
	// category is recognized but not yet stocked.
	SKUs []string
}

// categories is the catalog exposed through the category selector buttons.
// Electronics is the stocked category; the others reply "not yet available".
var categories = []Category{
	{
		ID:    "electronics",
		Title: "Electronics",
		SKUs:  []string{"SKU-TV-43", "SKU-LAPTOP-15", "SKU-PHONE-128", "SKU-EARBUDS-BT"},
	},
	{ID: "clothing", Title: "Clothing"},
	{ID: "groceries", Title: "Groceries"},
}

// findCategory returns the category for the given ID, or nil if unknown.
func findCategory(id string) *Category {
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}

// categoryButtons builds the category selector button set. The catalog is
// sized to the platform button limit; a larger catalog would page here.
func categoryButtons() []models.Button {
	buttons := make([]models.Button, 0, len(categories))
	for _, c := range categories {
		buttons = append(buttons, models.Button{ID: CategoryButtonPrefix + c.ID, Title: c.Title})
	}
	return buttons
}

// mainMenuRows builds the main menu list rows.
func mainMenuRows() []models.ListRow {
	return []models.ListRow{
		{ID: OptionBrowseCategories, Title: "Browse products", Description: "Shop by category"},
		{ID: OptionViewCart, Title: "View cart", Description: "See what you have added"},
		{ID: OptionTrackOrder, Title: "Track order", Description: "Check an existing order"},
		{ID: OptionSpecialOffers, Title: "Special offers", Description: "Deals and promotions"},
		{ID: OptionTalkToAgent, Title: "Talk to an agent", Description: "Reach a human"},
	}
}
