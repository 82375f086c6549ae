package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

type stubListingFetcher struct {
	listing *types.Listing
	err     error
}

func (s stubListingFetcher) GetListing(ctx context.Context, listingID uuid.UUID) (*types.Listing, error) {
	return s.listing, s.err
}

func openAuctionListing(currentBid int64) *types.Listing {
	starting := int64(10000)
	reserve := int64(15000)
	end := time.Now().Add(2 * time.Hour)
	listing := &types.Listing{
		ID:                 uuid.New(),
		Title:              "Bonsmara weaners",
		Quantity:           10,
		Unit:               enums.QuantityUnitHead,
		Type:               enums.ListingTypeAuction,
		StartingPriceMinor: &starting,
		ReservePriceMinor:  &reserve,
		AuctionEndTime:     &end,
		SellerID:           uuid.New(),
	}
	if currentBid > 0 {
		listing.CurrentBidMinor = &currentBid
		listing.TotalBids = 3
	}
	return listing
}

func TestListingQuoteOpenAuction(t *testing.T) {
	listing := openAuctionListing(12000)
	handler := ListingQuote(stubListingFetcher{listing: listing}, auction.DefaultRules(), pricing.DefaultConfig(), nil)

	req := requestWithParams(http.MethodGet, "/api/v1/listings/"+listing.ID.String()+"/quote", nil,
		map[string]string{"listingID": listing.ID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data listingQuoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.State != enums.AuctionStateOpen {
		t.Fatalf("expected open state, got %s", envelope.Data.State)
	}
	if envelope.Data.EffectivePriceMinor != 12000 {
		t.Fatalf("unexpected effective price %d", envelope.Data.EffectivePriceMinor)
	}
	if envelope.Data.MinimumNextBidMinor == nil || *envelope.Data.MinimumNextBidMinor != 12600 {
		t.Fatalf("expected minimum next bid 12600, got %v", envelope.Data.MinimumNextBidMinor)
	}
	if envelope.Data.ReserveMet {
		t.Fatal("reserve must not read as met below the reserve price")
	}
	if envelope.Data.TimeRemainingSeconds == nil || *envelope.Data.TimeRemainingSeconds <= 0 {
		t.Fatalf("expected positive countdown, got %v", envelope.Data.TimeRemainingSeconds)
	}
}

func TestListingQuoteClosedAuctionOmitsMinimum(t *testing.T) {
	listing := openAuctionListing(16000)
	past := time.Now().Add(-time.Minute)
	listing.AuctionEndTime = &past

	handler := ListingQuote(stubListingFetcher{listing: listing}, auction.DefaultRules(), pricing.DefaultConfig(), nil)
	req := requestWithParams(http.MethodGet, "/api/v1/listings/"+listing.ID.String()+"/quote", nil,
		map[string]string{"listingID": listing.ID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data listingQuoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.State != enums.AuctionStateClosed {
		t.Fatalf("expected closed state, got %s", envelope.Data.State)
	}
	if envelope.Data.MinimumNextBidMinor != nil {
		t.Fatal("closed auctions must not advertise a next bid")
	}
	if envelope.Data.TimeRemainingSeconds == nil || *envelope.Data.TimeRemainingSeconds != 0 {
		t.Fatalf("countdown must clamp at zero, got %v", envelope.Data.TimeRemainingSeconds)
	}
	if !envelope.Data.ReserveMet {
		t.Fatal("reserve should read as met at 16000 against 15000")
	}
}

func TestListingQuoteUpstreamErrorsPassThrough(t *testing.T) {
	handler := ListingQuote(stubListingFetcher{err: pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")}, auction.DefaultRules(), pricing.DefaultConfig(), nil)
	req := requestWithParams(http.MethodGet, "/api/v1/listings/"+uuid.NewString()+"/quote", nil,
		map[string]string{"listingID": uuid.NewString()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestListingQuoteRejectsBadID(t *testing.T) {
	handler := ListingQuote(stubListingFetcher{}, auction.DefaultRules(), pricing.DefaultConfig(), nil)
	req := requestWithParams(http.MethodGet, "/api/v1/listings/abc/quote", nil,
		map[string]string{"listingID": "abc"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListingQuoteShippingEstimate(t *testing.T) {
	listing := openAuctionListing(12000)
	handler := ListingQuote(stubListingFetcher{listing: listing}, auction.DefaultRules(), pricing.DefaultConfig(), nil)

	req := requestWithParams(http.MethodGet, "/api/v1/listings/"+listing.ID.String()+"/quote?distance_km=120", nil,
		map[string]string{"listingID": listing.ID.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data listingQuoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// 120 km at R2/km per head for 10 head.
	if envelope.Data.EstimatedShippingMinor == nil || *envelope.Data.EstimatedShippingMinor != 240000 {
		t.Fatalf("expected shipping 240000, got %v", envelope.Data.EstimatedShippingMinor)
	}

	// Without a distance the estimate is omitted entirely.
	req = requestWithParams(http.MethodGet, "/api/v1/listings/"+listing.ID.String()+"/quote", nil,
		map[string]string{"listingID": listing.ID.String()})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	var plain struct {
		Data listingQuoteResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plain); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if plain.Data.EstimatedShippingMinor != nil {
		t.Fatalf("expected no shipping estimate without distance, got %v", *plain.Data.EstimatedShippingMinor)
	}
}

func TestListingQuoteRejectsOutOfRangeDistance(t *testing.T) {
	listing := openAuctionListing(12000)
	handler := ListingQuote(stubListingFetcher{listing: listing}, auction.DefaultRules(), pricing.DefaultConfig(), nil)

	for _, raw := range []string{"-1", "3001", "far"} {
		req := requestWithParams(http.MethodGet, "/api/v1/listings/"+listing.ID.String()+"/quote?distance_km="+raw, nil,
			map[string]string{"listingID": listing.ID.String()})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("distance %q: expected 400 got %d", raw, resp.Code)
		}
	}
}
