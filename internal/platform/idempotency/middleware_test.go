package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumicab/api/internal/platform/requestctx"
)

func TestMiddlewareReplaysCompletedResponse(t *testing.T) {
	store := NewMemoryStore()
	var calls atomic.Int32

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"quoteId":"q-%d"}`, n)
	}))

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"packageId":"signature"}`))
		req.Header.Set("Idempotency-Key", "submit-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := makeRequest()
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status: %d", first.Code)
	}

	second := makeRequest()
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status: %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Error("expected replay header on second response")
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replay body mismatch: %s vs %s", first.Body.String(), second.Body.String())
	}
	if calls.Load() != 1 {
		t.Errorf("handler invoked %d times, want 1", calls.Load())
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without idempotency key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMiddlewareIgnoresReadRequests(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pricing/catalog", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"packageId":"signature"}`))
	first.Header.Set("Idempotency-Key", "submit-2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first request status: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"packageId":"print_150"}`))
	second.Header.Set("Idempotency-Key", "submit-2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for fingerprint mismatch, got %d", rec.Code)
	}
}

func TestMiddlewareScopesKeysPerPartner(t *testing.T) {
	store := NewMemoryStore()
	var calls atomic.Int32
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	submit := func(partnerID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"packageId":"signature"}`))
		req.Header.Set("Idempotency-Key", "shared-key")
		if partnerID != "" {
			req = req.WithContext(requestctx.WithPartner(req.Context(), requestctx.Partner{ID: partnerID}))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := submit("partner-a"); rec.Code != http.StatusCreated {
		t.Fatalf("partner-a status: %d", rec.Code)
	}
	if rec := submit("partner-b"); rec.Code != http.StatusCreated {
		t.Fatalf("partner-b status: %d", rec.Code)
	}
	if calls.Load() != 2 {
		t.Errorf("handler invoked %d times, want 2", calls.Load())
	}
}

func TestMiddlewareWithMethodsRestrictsGuard(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithMethods(http.MethodPut))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	// POST is no longer guarded, so a missing key passes through.
	post := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{}`))
	postRec := httptest.NewRecorder()
	handler.ServeHTTP(postRec, post)
	if postRec.Code != http.StatusOK {
		t.Fatalf("expected unguarded POST to pass, got %d", postRec.Code)
	}

	put := httptest.NewRequest(http.MethodPut, "/api/v1/quotes/q-1", strings.NewReader(`{}`))
	putRec := httptest.NewRecorder()
	handler.ServeHTTP(putRec, put)
	if putRec.Code != http.StatusBadRequest {
		t.Fatalf("expected guarded PUT without key to fail, got %d", putRec.Code)
	}
}

func TestMemoryStorePurgesExpiredRecords(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	reservation, err := store.Reserve(context.Background(), "key-1", "fp", base, time.Minute)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if reservation.State != ReservationStateNew {
		t.Fatalf("unexpected state: %v", reservation.State)
	}

	// Same key after expiry behaves like a fresh reservation.
	reservation, err = store.Reserve(context.Background(), "key-1", "other-fp", base.Add(2*time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("Reserve after expiry returned error: %v", err)
	}
	if reservation.State != ReservationStateNew {
		t.Fatalf("expected new reservation after expiry, got %v", reservation.State)
	}
}
