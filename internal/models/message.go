package models

// IncomingMessage is the normalized inbound event union. The transport boundary
// parses the platform envelope into exactly one of these variants so the engine
// matches on structure, never on raw envelope strings.
type IncomingMessage interface {
	incomingMessage()
}

// TextMessage is a free-text message body.
type TextMessage struct {
	Body string `json:"body"`
}

// ListSelection is the row a user picked from an interactive list message.
type ListSelection struct {
	OptionID string `json:"option_id"`
	Title    string `json:"title,omitempty"`
}

// ButtonSelection is the reply button a user pressed.
type ButtonSelection struct {
	ButtonID string `json:"button_id"`
	Title    string `json:"title,omitempty"`
}

// ProductOrder is a catalog order message: the user submitted a set of
// (SKU, quantity) pairs from a product list.
type ProductOrder struct {
	Items []OrderItem `json:"items"`
}

func (TextMessage) incomingMessage()     {}
func (ListSelection) incomingMessage()   {}
func (ButtonSelection) incomingMessage() {}
func (ProductOrder) incomingMessage()    {}

// IntentResult is the normalized output of the intent classifier. A nil or
// zero-valued result means "no signal"; it is never an error condition.
type IntentResult struct {
	Intent   string              `json:"intent,omitempty"`
	Entities map[string][]Entity `json:"entities,omitempty"`
}

// Entity is one extracted entity value with the classifier's confidence.
type Entity struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// FirstEntity returns the first extracted value for the given entity key,
// or "" if the key is absent.
func (r *IntentResult) FirstEntity(key string) string {
	if r == nil || r.Entities == nil {
		return ""
	}
	values := r.Entities[key]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}
