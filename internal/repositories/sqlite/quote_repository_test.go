package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/platform/sqlitedb"
	"github.com/lumicab/api/internal/repositories"
)

const quotesSchema = `
CREATE TABLE quotes (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    customer_json TEXT NOT NULL,
    event_date TEXT NOT NULL,
    event_address_json TEXT NOT NULL,
    selection_json TEXT NOT NULL,
    total_ht REAL NOT NULL,
    total_ttc REAL NOT NULL,
    deposit_ttc REAL NOT NULL,
    invoicing_json TEXT NOT NULL,
    crm_quotation_id TEXT NOT NULL DEFAULT '',
    checkout_session_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX idx_quotes_session_id ON quotes (session_id);
`

func newTestRepository(t *testing.T) *QuoteRepository {
	t.Helper()

	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "quotes.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(quotesSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	repo, err := NewQuoteRepository(db)
	if err != nil {
		t.Fatalf("NewQuoteRepository: %v", err)
	}
	return repo
}

func sampleQuote(id, sessionID string) domain.Quote {
	return domain.Quote{
		ID:        id,
		SessionID: sessionID,
		Status:    domain.QuoteStatusDraft,
		Customer: domain.Customer{
			FirstName: "Marie",
			LastName:  "Durand",
			Email:     "marie@example.fr",
		},
		EventDate: time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC),
		EventAddress: domain.EventAddress{
			FullAddress: "12 rue des Fleurs, 69002 Lyon",
			Street:      "12 rue des Fleurs",
			City:        "Lyon",
			Postal:      "69002",
		},
		Selection: domain.Selection{
			PackageID:    domain.PackageSignature,
			DurationDays: 3,
			TemplateTool: true,
		},
		TotalHT:    1134,
		TotalTTC:   1360.8,
		DepositTTC: 408.24,
		Invoicing: domain.InvoicingPayload{
			BaseDailyPriceResolved: 549,
			DaysCount:              3,
		},
		CreatedAt: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestInsertAndFindByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	quote := sampleQuote("LC-01", "sess-1")
	if err := repo.Insert(ctx, quote); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	loaded, err := repo.FindByID(ctx, "LC-01")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}

	if loaded.SessionID != "sess-1" {
		t.Errorf("unexpected session id: %s", loaded.SessionID)
	}
	if loaded.Selection.PackageID != domain.PackageSignature || loaded.Selection.DurationDays != 3 {
		t.Errorf("selection snapshot mismatch: %+v", loaded.Selection)
	}
	if loaded.TotalHT != 1134 || loaded.DepositTTC != 408.24 {
		t.Errorf("totals mismatch: %+v", loaded)
	}
	if !loaded.EventDate.Equal(quote.EventDate) {
		t.Errorf("event date mismatch: %s", loaded.EventDate)
	}
	if loaded.Invoicing.BaseDailyPriceResolved != 549 {
		t.Errorf("invoicing payload mismatch: %+v", loaded.Invoicing)
	}
}

func TestInsertRejectsDuplicateSession(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, sampleQuote("LC-01", "sess-1")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if err := repo.Insert(ctx, sampleQuote("LC-02", "sess-1")); !errors.Is(err, repositories.ErrQuoteExists) {
		t.Fatalf("expected ErrQuoteExists, got %v", err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	repo := newTestRepository(t)

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, repositories.ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
}

func TestFindBySessionID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, sampleQuote("LC-01", "sess-1")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	loaded, err := repo.FindBySessionID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("FindBySessionID returned error: %v", err)
	}
	if loaded.ID != "LC-01" {
		t.Errorf("unexpected quote id: %s", loaded.ID)
	}
}

func TestUpdateTransitionsStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	quote := sampleQuote("LC-01", "sess-1")
	if err := repo.Insert(ctx, quote); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	quote.Status = domain.QuoteStatusPaid
	quote.CheckoutSessionID = "cs_42"
	quote.UpdatedAt = quote.UpdatedAt.Add(time.Hour)
	if err := repo.Update(ctx, quote); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	loaded, err := repo.FindByID(ctx, "LC-01")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if loaded.Status != domain.QuoteStatusPaid {
		t.Errorf("unexpected status: %s", loaded.Status)
	}
	if loaded.CheckoutSessionID != "cs_42" {
		t.Errorf("unexpected checkout session: %s", loaded.CheckoutSessionID)
	}
}

func TestUpdateMissingQuote(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.Update(context.Background(), sampleQuote("LC-99", "sess-99")); !errors.Is(err, repositories.ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
}
