// Package messaging provides outbound message delivery for ChatCart.
//
// This file implements the WhatsApp Cloud API (Graph API) backend.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/veloshop/ChatCart/internal/models"
)

// Constants for Cloud API client configuration
const (
	// DefaultAPIVersion is the Graph API version used for message sends.
	DefaultAPIVersion = "v17.0"
	// DefaultGraphBaseURL is the Graph API origin.
	DefaultGraphBaseURL = "https://graph.facebook.com"
	// DefaultHTTPTimeout bounds a single message send.
	DefaultHTTPTimeout = 15 * time.Second
	// DefaultTemplateLanguage is used when a template send omits a language code.
	DefaultTemplateLanguage = "en_US"
)

// CloudOpts holds configuration options for the Cloud API client.
type CloudOpts struct {
	AccessToken   string
	PhoneNumberID string
	CatalogID     string
	APIVersion    string
	BaseURL       string
	HTTPClient    *http.Client
}

// CloudOption defines a configuration option for the Cloud API client.
type CloudOption func(*CloudOpts)

// WithAccessToken sets the Graph API bearer token.
func WithAccessToken(token string) CloudOption {
	return func(o *CloudOpts) { o.AccessToken = token }
}

// WithPhoneNumberID sets the WhatsApp business phone number ID.
func WithPhoneNumberID(id string) CloudOption {
	return func(o *CloudOpts) { o.PhoneNumberID = id }
}

// WithCatalogID sets the product catalog ID used for product-list sends.
func WithCatalogID(id string) CloudOption {
	return func(o *CloudOpts) { o.CatalogID = id }
}

// WithBaseURL overrides the Graph API origin (used in tests).
func WithBaseURL(url string) CloudOption {
	return func(o *CloudOpts) { o.BaseURL = url }
}

// WithHTTPClient overrides the HTTP client (used in tests).
func WithHTTPClient(c *http.Client) CloudOption {
	return func(o *CloudOpts) { o.HTTPClient = c }
}

// CloudAPIClient sends messages through the WhatsApp Cloud API.
type CloudAPIClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	catalogID  string
}

// NewCloudAPIClient creates a Cloud API client, falling back to the
// WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID environment variables
// when the corresponding options are not provided.
func NewCloudAPIClient(opts ...CloudOption) (*CloudAPIClient, error) {
	var cfg CloudOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.CatalogID == "" {
		cfg.CatalogID = os.Getenv("WHATSAPP_CATALOG_ID")
	}
	slog.Debug("CloudAPIClient config loaded",
		"access_token_set", cfg.AccessToken != "",
		"phone_number_id_set", cfg.PhoneNumberID != "",
		"catalog_id_set", cfg.CatalogID != "")

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("WhatsApp access token must be provided")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("WhatsApp phone number ID must be provided")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGraphBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &CloudAPIClient{
		httpClient: cfg.HTTPClient,
		endpoint:   fmt.Sprintf("%s/%s/%s/messages", cfg.BaseURL, cfg.APIVersion, cfg.PhoneNumberID),
		token:      cfg.AccessToken,
		catalogID:  cfg.CatalogID,
	}, nil
}

// post marshals the payload and POSTs it to the messages endpoint.
func (c *CloudAPIClient) post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("message send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		slog.Error("CloudAPIClient send rejected", "status", resp.StatusCode, "response", string(respBody))
		return fmt.Errorf("message send rejected with status %d", resp.StatusCode)
	}
	return nil
}

// SendText sends a plain text message.
func (c *CloudAPIClient) SendText(ctx context.Context, to, body string) error {
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}
	slog.Debug("CloudAPIClient SendText", "to", to, "body_length", len(body))
	return c.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]interface{}{"body": body},
	})
}

// SendButtons sends an interactive reply-button message.
func (c *CloudAPIClient) SendButtons(ctx context.Context, to, body string, buttons []models.Button) error {
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}
	if err := validateButtons(buttons); err != nil {
		return err
	}
	slog.Debug("CloudAPIClient SendButtons", "to", to, "buttons", len(buttons))

	btns := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, map[string]interface{}{
			"type":  "reply",
			"reply": map[string]interface{}{"id": b.ID, "title": b.Title},
		})
	}
	return c.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]interface{}{"text": body},
			"action": map[string]interface{}{"buttons": btns},
		},
	})
}

// SendList sends an interactive list message.
func (c *CloudAPIClient) SendList(ctx context.Context, to, header, body string, rows []models.ListRow) error {
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}
	if err := validateListRows(rows); err != nil {
		return err
	}
	slog.Debug("CloudAPIClient SendList", "to", to, "rows", len(rows))

	listRows := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		r := map[string]interface{}{"id": row.ID, "title": row.Title}
		if row.Description != "" {
			r["description"] = row.Description
		}
		listRows = append(listRows, r)
	}
	interactive := map[string]interface{}{
		"type": "list",
		"body": map[string]interface{}{"text": body},
		"action": map[string]interface{}{
			"button":   "Select an option",
			"sections": []map[string]interface{}{{"rows": listRows}},
		},
	}
	if header != "" {
		interactive["header"] = map[string]interface{}{"type": "text", "text": header}
	}
	return c.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	})
}

// SendProductList sends an interactive product-list message for the given SKUs.
func (c *CloudAPIClient) SendProductList(ctx context.Context, to, header, body string, skus []string) error {
	if err := validateRecipientAndBody(to, body); err != nil {
		return err
	}
	if len(skus) == 0 {
		return models.ErrNoProducts
	}
	slog.Debug("CloudAPIClient SendProductList", "to", to, "skus", len(skus))

	products := make([]map[string]interface{}, 0, len(skus))
	for _, sku := range skus {
		products = append(products, map[string]interface{}{"product_retailer_id": sku})
	}
	interactive := map[string]interface{}{
		"type": "product_list",
		"body": map[string]interface{}{"text": body},
		"action": map[string]interface{}{
			"catalog_id": c.catalogID,
			"sections":   []map[string]interface{}{{"title": header, "product_items": products}},
		},
	}
	if header != "" {
		interactive["header"] = map[string]interface{}{"type": "text", "text": header}
	}
	return c.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	})
}

// SendTemplate sends a pre-approved message template.
func (c *CloudAPIClient) SendTemplate(ctx context.Context, to string, args models.TemplateArgs) error {
	if to == "" {
		return models.ErrEmptyRecipient
	}
	if err := args.Validate(); err != nil {
		return err
	}
	slog.Debug("CloudAPIClient SendTemplate", "to", to, "template", args.Name)

	language := args.Language
	if language == "" {
		language = DefaultTemplateLanguage
	}
	template := map[string]interface{}{
		"name":     args.Name,
		"language": map[string]interface{}{"code": language},
	}
	if len(args.BodyParams) > 0 {
		params := make([]map[string]interface{}, 0, len(args.BodyParams))
		for _, p := range args.BodyParams {
			params = append(params, map[string]interface{}{"type": "text", "text": p})
		}
		template["components"] = []map[string]interface{}{{"type": "body", "parameters": params}}
	}
	return c.post(ctx, map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template":          template,
	})
}
