package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumicab/api/internal/domain"
)

const (
	defaultSignatureHeader = "X-Signature"
	defaultTimestampHeader = "X-Signature-Timestamp"
	defaultTimeout         = 5 * time.Second

	// EventQuoteSubmitted fires when a quote is stored and mirrored to the CRM.
	EventQuoteSubmitted = "quote.submitted"
	// EventQuotePaid fires when the deposit payment succeeds.
	EventQuotePaid = "quote.paid"
)

// Logger defines the logging contract for dispatch operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Event is the envelope posted to the automation endpoint.
type Event struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Quote      domain.Quote `json:"quote"`
}

// Dispatcher posts signed quote lifecycle events to the automation endpoint.
// Delivery is best effort: failures are logged, never propagated to the caller.
type Dispatcher struct {
	endpoint        string
	secret          []byte
	signatureHeader string
	timestampHeader string
	httpClient      *http.Client
	clock           func() time.Time
	logger          Logger
}

// Config configures the Dispatcher.
type Config struct {
	Endpoint        string
	SigningSecret   string
	SignatureHeader string
	TimestampHeader string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Clock           func() time.Time
	Logger          Logger
}

// NewDispatcher validates the configuration and builds a Dispatcher.
// An empty endpoint yields a disabled dispatcher whose Dispatch is a no-op.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && strings.TrimSpace(cfg.SigningSecret) == "" {
		return nil, errors.New("webhooks: signing secret is required when an endpoint is configured")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	signatureHeader := strings.TrimSpace(cfg.SignatureHeader)
	if signatureHeader == "" {
		signatureHeader = defaultSignatureHeader
	}
	timestampHeader := strings.TrimSpace(cfg.TimestampHeader)
	if timestampHeader == "" {
		timestampHeader = defaultTimestampHeader
	}

	return &Dispatcher{
		endpoint:        endpoint,
		secret:          []byte(cfg.SigningSecret),
		signatureHeader: signatureHeader,
		timestampHeader: timestampHeader,
		httpClient:      httpClient,
		clock:           clock,
		logger:          logger,
	}, nil
}

// Enabled reports whether an automation endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.endpoint != ""
}

// Dispatch posts the event to the automation endpoint. Errors are logged and
// swallowed so a flaky automation target never blocks quote submission.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, quote domain.Quote) {
	if !d.Enabled() {
		return
	}

	event := Event{
		Type:       eventType,
		OccurredAt: d.clock().UTC(),
		Quote:      quote,
	}

	if err := d.send(ctx, event); err != nil {
		d.logger(ctx, "webhooks.dispatch.failed", map[string]any{
			"type":    eventType,
			"quoteId": quote.ID,
			"error":   err.Error(),
		})
		return
	}

	d.logger(ctx, "webhooks.dispatch.delivered", map[string]any{
		"type":    eventType,
		"quoteId": quote.ID,
	})
}

func (d *Dispatcher) send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhooks: encode event: %w", err)
	}

	timestamp := strconv.FormatInt(event.OccurredAt.Unix(), 10)
	signature := Sign(d.secret, body, timestamp)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(d.signatureHeader, signature)
	req.Header.Set(d.timestampHeader, timestamp)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhooks: endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 over the timestamp and body hash.
func Sign(secret, body []byte, timestamp string) string {
	hash := sha256.Sum256(body)
	canonical := strings.Join([]string{timestamp, hex.EncodeToString(hash[:])}, "\n")
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the shared secret.
func VerifySignature(secret, body []byte, timestamp, signature string) bool {
	expected := Sign(secret, body, timestamp)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
