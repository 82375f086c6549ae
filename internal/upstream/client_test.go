package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	client, err := NewClient(config.UpstreamConfig{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  3,
		RetryBackoff:   time.Millisecond,
	}, logg, nil)
	if err != nil {
		t.Fatalf("unexpected error building client: %v", err)
	}
	return client
}

func TestPlaceBidReturnsAuthoritativeListing(t *testing.T) {
	t.Parallel()

	listingID := uuid.New()
	serverBid := int64(17000)

	router := chi.NewRouter()
	router.Post("/listings/{listingID}/bids", func(w http.ResponseWriter, r *http.Request) {
		var req PlaceBidRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode bid request: %v", err)
		}
		// The server had a concurrent higher bidder: its state wins.
		listing := types.Listing{
			ID:              listingID,
			Type:            enums.ListingTypeAuction,
			CurrentBidMinor: &serverBid,
			TotalBids:       7,
		}
		json.NewEncoder(w).Encode(map[string]any{"data": listing})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	listing, err := client.PlaceBid(context.Background(), listingID, PlaceBidRequest{AmountMinor: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.CurrentBidMinor == nil || *listing.CurrentBidMinor != serverBid {
		t.Fatalf("expected server bid %d, got %+v", serverBid, listing.CurrentBidMinor)
	}
	if listing.TotalBids != 7 {
		t.Fatalf("expected server total bids, got %d", listing.TotalBids)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	listingID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(types.Listing{ID: listingID, Type: enums.ListingTypeBuyNow, PricePerUnitMinor: 100})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	listing, err := client.GetListing(context.Background(), listingID)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if listing.ID != listingID {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestExhaustedRetriesSurfaceUpstreamError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetListing(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected retry cap of 3, got %d attempts", got)
	}
}

func TestValidationRejectionIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{Code: "VALIDATION_ERROR", Message: "bid below minimum"}})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.PlaceBid(context.Background(), uuid.New(), PlaceBidRequest{AmountMinor: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "bid below minimum" {
		t.Fatalf("expected upstream message to surface, got %q", typed.Message())
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("validation rejections must not retry, got %d attempts", got)
	}
}

func TestConflictSurfacesAsOutdated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.AcceptOffer(context.Background(), uuid.New(), uuid.New(), NewIdempotencyKey("accept"), AcceptOfferRequest{Qty: 1, DeliveryMode: enums.DeliveryModeSeller})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAcceptOfferSendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	buyRequestID := uuid.New()
	offerID := uuid.New()
	orderGroupID := uuid.New()
	var seenKey atomic.Value

	router := chi.NewRouter()
	router.Post("/buy-requests/{buyRequestID}/offers/{offerID}/accept", func(w http.ResponseWriter, r *http.Request) {
		seenKey.Store(r.Header.Get("Idempotency-Key"))
		json.NewEncoder(w).Encode(map[string]any{"data": AcceptOfferResponse{OrderGroupID: orderGroupID}})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	key := NewIdempotencyKey("accept")
	resp, err := client.AcceptOffer(context.Background(), buyRequestID, offerID, key, AcceptOfferRequest{Qty: 5, DeliveryMode: enums.DeliveryModeRFQ})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.OrderGroupID != orderGroupID {
		t.Fatalf("unexpected order group %+v", resp)
	}
	if got, _ := seenKey.Load().(string); got != key {
		t.Fatalf("expected idempotency key %q to reach the server, got %q", key, got)
	}

	if _, err := client.AcceptOffer(context.Background(), buyRequestID, offerID, "  ", AcceptOfferRequest{}); err == nil {
		t.Fatal("blank idempotency key must be rejected before any request is sent")
	}
}

func TestListOffersResolvesStaleStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	buyRequestID := uuid.New()

	stale := types.Offer{
		ID:                uuid.New(),
		BuyRequestID:      buyRequestID,
		Quantity:          10,
		UnitPriceMinor:    1000,
		DeliveryMode:      enums.DeliveryModeSeller,
		ValidityExpiresAt: now.Add(-time.Hour),
		Status:            enums.OfferStatusPending,
	}
	fresh := stale
	fresh.ID = uuid.New()
	fresh.ValidityExpiresAt = now.Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"offers": []types.Offer{stale, fresh}})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	offers, err := client.ListOffers(context.Background(), buyRequestID, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	if offers[0].Status != enums.OfferStatusExpired {
		t.Fatalf("stale pending offer must read expired, got %s", offers[0].Status)
	}
	if offers[1].Status != enums.OfferStatusPending {
		t.Fatalf("fresh offer must stay pending, got %s", offers[1].Status)
	}
}

func TestNewIdempotencyKeyUniqueness(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := NewIdempotencyKey("accept")
		if seen[key] {
			t.Fatalf("duplicate idempotency key %q", key)
		}
		seen[key] = true
	}
	if key := NewIdempotencyKey(""); key == "" {
		t.Fatal("empty prefix must still yield a key")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	if _, err := NewClient(config.UpstreamConfig{}, logg, nil); err == nil {
		t.Fatal("expected error without base url")
	}
	if _, err := NewClient(config.UpstreamConfig{BaseURL: "http://localhost"}, nil, nil); err == nil {
		t.Fatal("expected error without logger")
	}

	client, err := NewClient(config.UpstreamConfig{BaseURL: "http://localhost"}, logg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.cfg.RequestTimeout != 8*time.Second {
		t.Fatalf("expected 8s default timeout, got %v", client.cfg.RequestTimeout)
	}
	if client.cfg.RetryAttempts != 3 {
		t.Fatalf("expected 3 default attempts, got %d", client.cfg.RetryAttempts)
	}
}
