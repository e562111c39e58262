// Package nlp provides intent classification for free-text messages using the OpenAI API.
//
// The classifier maps user text to a coarse intent label plus extracted entities.
// It must never surface a transport or parse failure into the conversation engine:
// any failure degrades to an empty "no signal" result.
package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/veloshop/ChatCart/internal/models"
)

// Intent labels recognized by the classifier.
const (
	// IntentBrowseProducts signals the user wants to browse a product category.
	IntentBrowseProducts = "browse_products"
	// IntentGreeting signals a greeting or menu request.
	IntentGreeting = "greeting"
	// IntentTrackOrder signals the user wants to track an existing order.
	IntentTrackOrder = "track_order"
)

// EntityCategory is the entity key carrying an extracted product category.
const EntityCategory = "category"

// Classifier maps free text to an intent plus entities. Implementations return
// an empty result, never an error, when no signal can be extracted.
type Classifier interface {
	Classify(ctx context.Context, text string) (*models.IntentResult, error)
}

// chatService defines the minimal chat-completion surface used by the client,
// so tests can substitute a fake.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the NLP client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the NLP client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for classification.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client classifies text with an OpenAI chat model constrained to emit a small
// JSON object over a closed intent set.
type Client struct {
	chat  chatService
	model string
}

const systemPrompt = `You are an intent classifier for a WhatsApp shopping assistant.
Given a customer message, respond with ONLY a JSON object, no prose, in this shape:
{"intent": "<browse_products|greeting|track_order|null>", "entities": {"category": [{"value": "<category>", "confidence": <0..1>}]}}
Omit the "entities" key when no product category is mentioned.
Use intent null when none of the labels apply.`

// NewClient initializes a new NLP client, falling back to the OPENAI_API_KEY
// environment variable when no key option is provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	slog.Debug("NLP NewClient configured", "model", cfg.Model, "api_key_set", true)

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &cli.Chat.Completions, model: cfg.Model}, nil
}

// classifyWire is the JSON shape the model is instructed to emit.
type classifyWire struct {
	Intent   *string `json:"intent"`
	Entities map[string][]struct {
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
}

// Classify maps text to an intent result. Transport and parse failures are
// logged and downgraded to an empty result with a nil error.
func (c *Client) Classify(ctx context.Context, text string) (*models.IntentResult, error) {
	slog.Debug("NLP Classify invoked", "text_length", len(text))

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		slog.Error("NLP Classify request failed, treating as no signal", "error", err)
		return &models.IntentResult{}, nil
	}
	if len(resp.Choices) == 0 {
		slog.Warn("NLP Classify returned no choices, treating as no signal")
		return &models.IntentResult{}, nil
	}

	result := parseClassification(resp.Choices[0].Message.Content)
	slog.Debug("NLP Classify succeeded", "intent", result.Intent, "entity_keys", len(result.Entities))
	return result, nil
}

// parseClassification decodes the model output defensively. Anything that does
// not parse as the expected JSON shape yields an empty result.
func parseClassification(content string) *models.IntentResult {
	raw := strings.TrimSpace(content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var wire classifyWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		slog.Warn("NLP classification output did not parse, treating as no signal", "error", err)
		return &models.IntentResult{}
	}

	result := &models.IntentResult{}
	if wire.Intent != nil && *wire.Intent != "null" {
		result.Intent = *wire.Intent
	}
	if len(wire.Entities) > 0 {
		result.Entities = make(map[string][]models.Entity, len(wire.Entities))
		for key, values := range wire.Entities {
			for _, v := range values {
				if v.Value == "" {
					continue
				}
				result.Entities[key] = append(result.Entities[key], models.Entity{Value: v.Value, Confidence: v.Confidence})
			}
		}
		if len(result.Entities) == 0 {
			result.Entities = nil
		}
	}
	return result
}
