package domain

import "time"

// QuoteStatus tracks the lifecycle of a submitted quote.
type QuoteStatus string

const (
	// QuoteStatusDraft marks a quote stored before CRM submission completed.
	QuoteStatusDraft QuoteStatus = "draft"
	// QuoteStatusSubmitted marks a quote accepted by the CRM.
	QuoteStatusSubmitted QuoteStatus = "submitted"
	// QuoteStatusPaid marks a quote whose deposit payment succeeded.
	QuoteStatusPaid QuoteStatus = "paid"
)

// Customer carries the contact details collected by the wizard.
type Customer struct {
	CompanyName string `json:"companyName,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// EventAddress is the delivery/event location resolved by address autocomplete.
type EventAddress struct {
	FullAddress string  `json:"fullAddress"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	Postal      string  `json:"postal"`
	Coords      *LatLng `json:"coords,omitempty"`
}

// Quote is the frozen result of a wizard submission. Once stored, the
// selection snapshot and pricing payload are immutable for the session.
type Quote struct {
	ID                string           `json:"id"`
	SessionID         string           `json:"sessionId"`
	Status            QuoteStatus      `json:"status"`
	Customer          Customer         `json:"customer"`
	EventDate         time.Time        `json:"eventDate"`
	EventAddress      EventAddress     `json:"eventAddress"`
	Selection         Selection        `json:"selection"`
	TotalHT           float64          `json:"totalHT"`
	TotalTTC          float64          `json:"totalTTC"`
	DepositTTC        float64          `json:"depositTTC"`
	Invoicing         InvoicingPayload `json:"invoicing"`
	CRMQuotationID    string           `json:"crmQuotationId,omitempty"`
	CheckoutSessionID string           `json:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}
