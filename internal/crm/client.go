package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lumicab/api/internal/domain"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrInvalidInput signals a request that cannot be mirrored to the CRM.
	ErrInvalidInput = errors.New("crm: invalid input")
	// ErrUnavailable signals that the CRM rejected or failed the request.
	ErrUnavailable = errors.New("crm: unavailable")
)

// Logger defines the logging contract for CRM operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Client mirrors submitted quotes into the CRM over its JSON API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     Logger
	policy     *bluemonday.Policy
}

// Config configures the CRM client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     Logger
}

// NewClient validates the configuration and builds a CRM client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("crm: invalid base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     logger,
		policy:     newDescriptionPolicy(),
	}, nil
}

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "ul", "li", "strong", "em", "br", "h3")
	return policy
}

// CompanyInput identifies a business customer in the CRM.
type CompanyInput struct {
	Name    string `json:"name"`
	VATCode string `json:"vatCode,omitempty"`
}

// ContactInput identifies the person behind a quote.
type ContactInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

// AddressInput captures the event venue.
type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// EventInput captures the booked date range.
type EventInput struct {
	ContactID string    `json:"contactId"`
	AddressID string    `json:"addressId,omitempty"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Label     string    `json:"label"`
}

// QuotationInput carries the priced quote pushed to the CRM.
type QuotationInput struct {
	ContactID       string  `json:"contactId"`
	EventID         string  `json:"eventId,omitempty"`
	Reference       string  `json:"reference"`
	TotalHT         float64 `json:"totalHT"`
	TotalTTC        float64 `json:"totalTTC"`
	DescriptionHTML string  `json:"descriptionHtml"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateCompany registers a business customer and returns its CRM identifier.
func (c *Client) CreateCompany(ctx context.Context, input CompanyInput) (string, error) {
	if strings.TrimSpace(input.Name) == "" {
		return "", fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}
	return c.post(ctx, "/companies", input)
}

// CreateContact registers the quote requester and returns its CRM identifier.
func (c *Client) CreateContact(ctx context.Context, input ContactInput) (string, error) {
	if strings.TrimSpace(input.Email) == "" {
		return "", fmt.Errorf("%w: contact email is required", ErrInvalidInput)
	}
	return c.post(ctx, "/contacts", input)
}

// CreateAddress registers the event venue and returns its CRM identifier.
func (c *Client) CreateAddress(ctx context.Context, input AddressInput) (string, error) {
	if strings.TrimSpace(input.City) == "" {
		return "", fmt.Errorf("%w: address city is required", ErrInvalidInput)
	}
	return c.post(ctx, "/addresses", input)
}

// CreateEvent registers the booked event and returns its CRM identifier.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (string, error) {
	if strings.TrimSpace(input.ContactID) == "" {
		return "", fmt.Errorf("%w: event contact is required", ErrInvalidInput)
	}
	return c.post(ctx, "/events", input)
}

// CreateQuotation registers the priced quote and returns its CRM identifier.
// The HTML description is sanitised before it leaves the process.
func (c *Client) CreateQuotation(ctx context.Context, input QuotationInput) (string, error) {
	if strings.TrimSpace(input.ContactID) == "" {
		return "", fmt.Errorf("%w: quotation contact is required", ErrInvalidInput)
	}
	input.DescriptionHTML = c.policy.Sanitize(input.DescriptionHTML)
	return c.post(ctx, "/quotations", input)
}

// MirrorQuote pushes the full company, contact, address, event, and quotation chain
// for a submitted quote and returns the quotation identifier.
func (c *Client) MirrorQuote(ctx context.Context, quote domain.Quote, result domain.PricingResult) (string, error) {
	if c == nil {
		return "", errors.New("crm: client is nil")
	}

	companyID := ""
	if quote.Selection.IsBusinessCustomer && strings.TrimSpace(quote.Customer.CompanyName) != "" {
		id, err := c.CreateCompany(ctx, CompanyInput{Name: quote.Customer.CompanyName})
		if err != nil {
			return "", err
		}
		companyID = id
	}

	contactID, err := c.CreateContact(ctx, ContactInput{
		FirstName: quote.Customer.FirstName,
		LastName:  quote.Customer.LastName,
		Email:     quote.Customer.Email,
		Phone:     quote.Customer.Phone,
		CompanyID: companyID,
	})
	if err != nil {
		return "", err
	}

	addressID := ""
	if strings.TrimSpace(quote.EventAddress.City) != "" {
		id, err := c.CreateAddress(ctx, AddressInput{
			Street:  quote.EventAddress.Street,
			City:    quote.EventAddress.City,
			ZipCode: quote.EventAddress.Postal,
			Country: "FR",
		})
		if err != nil {
			return "", err
		}
		addressID = id
	}

	days := quote.Selection.Normalized().DurationDays
	eventID, err := c.CreateEvent(ctx, EventInput{
		ContactID: contactID,
		AddressID: addressID,
		StartDate: quote.EventDate,
		EndDate:   quote.EventDate.AddDate(0, 0, days-1),
		Label:     fmt.Sprintf("Location photobooth %s", quote.EventDate.Format("02/01/2006")),
	})
	if err != nil {
		return "", err
	}

	quotationID, err := c.CreateQuotation(ctx, QuotationInput{
		ContactID:       contactID,
		EventID:         eventID,
		Reference:       quote.ID,
		TotalHT:         quote.TotalHT,
		TotalTTC:        quote.TotalTTC,
		DescriptionHTML: DescriptionHTML(result),
	})
	if err != nil {
		return "", err
	}

	c.logger(ctx, "crm.quote.mirrored", map[string]any{
		"quoteId":     quote.ID,
		"contactId":   contactID,
		"quotationId": quotationID,
	})
	return quotationID, nil
}

// DescriptionHTML renders the line items of a priced quote as an HTML block
// suitable for the CRM quotation description field.
func DescriptionHTML(result domain.PricingResult) string {
	var builder strings.Builder
	builder.WriteString("<h3>Détail du devis</h3><ul>")
	for _, item := range result.LineItems {
		builder.WriteString("<li>")
		builder.WriteString(html.EscapeString(item.Label))
		builder.WriteString(" : <strong>")
		builder.WriteString(html.EscapeString(item.DisplayAmount))
		builder.WriteString("</strong></li>")
	}
	builder.WriteString("</ul><p>Total : <strong>")
	builder.WriteString(html.EscapeString(fmt.Sprintf("%.2f€ HT", result.TotalHT)))
	builder.WriteString("</strong></p>")
	return builder.String()
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("crm: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s returned %d: %s", ErrUnavailable, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: %s returned empty id", ErrUnavailable, path)
	}
	return created.ID, nil
}
