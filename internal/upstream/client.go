package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/pkg/config"
	"github.com/jdupreez/veemark-gateway/pkg/enums"
	"github.com/jdupreez/veemark-gateway/pkg/logger"
	"github.com/jdupreez/veemark-gateway/pkg/metrics"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

var (
	errBaseURLRequired = errors.New("upstream base url is required")
	errLoggerRequired  = errors.New("upstream logger is required")
)

// Client talks to the authoritative marketplace API. It pre-resolves offer
// status on reads and never trusts its own copies over the server's: on any
// conflict the caller re-fetches.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cfg     config.UpstreamConfig
	logger  *logger.Logger
	metrics *metrics.UpstreamMetrics
}

// NewClient validates the configuration and builds the marketplace client.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger, m *metrics.UpstreamMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream base url: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 8 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	return &Client{
		baseURL: parsed,
		http:    &http.Client{},
		cfg:     cfg,
		logger:  logg,
		metrics: m,
	}, nil
}

// NewIdempotencyKey returns a unique key for offer acceptance: time plus
// random so a retried request never duplicates an order server-side.
func NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "vm"
	}
	return fmt.Sprintf("%s-%d-%s", key, time.Now().UnixNano(), uuid.NewString())
}

// PlaceBidRequest is the bid submission body.
type PlaceBidRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	AutoBid     bool   `json:"auto_bid"`
	MaxBidMinor *int64 `json:"max_bid_minor,omitempty"`
}

// CreateOfferRequest is the offer submission body.
type CreateOfferRequest struct {
	Qty               int                `json:"qty"`
	UnitPriceMinor    int64              `json:"unit_price_minor"`
	DeliveryMode      enums.DeliveryMode `json:"delivery_mode"`
	AbattoirFeeMinor  int64              `json:"abattoir_fee_minor"`
	ValidityExpiresAt time.Time          `json:"validity_expires_at"`
	Notes             *string            `json:"notes,omitempty"`
}

// AcceptOfferRequest is the acceptance body.
type AcceptOfferRequest struct {
	Qty          int                `json:"qty"`
	AddressID    uuid.UUID          `json:"address_id"`
	DeliveryMode enums.DeliveryMode `json:"delivery_mode"`
}

// AcceptOfferResponse carries the order group created by the server.
type AcceptOfferResponse struct {
	OrderGroupID uuid.UUID `json:"order_group_id"`
}

// GetListing fetches a listing by id.
func (c *Client) GetListing(ctx context.Context, listingID uuid.UUID) (*types.Listing, error) {
	var listing types.Listing
	err := c.do(ctx, request{
		endpoint: "get_listing",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/listings/%s", listingID),
	}, objectResult(&listing))
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// PlaceBid submits a bid and returns the authoritative listing state. The
// server resolves concurrent bidders; the response supersedes any local copy.
func (c *Client) PlaceBid(ctx context.Context, listingID uuid.UUID, req PlaceBidRequest) (*types.Listing, error) {
	var listing types.Listing
	err := c.do(ctx, request{
		endpoint: "place_bid",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/listings/%s/bids", listingID),
		body:     req,
	}, objectResult(&listing))
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetBuyRequest fetches a buy request by id.
func (c *Client) GetBuyRequest(ctx context.Context, buyRequestID uuid.UUID) (*types.BuyRequest, error) {
	var buyRequest types.BuyRequest
	err := c.do(ctx, request{
		endpoint: "get_buy_request",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/buy-requests/%s", buyRequestID),
	}, objectResult(&buyRequest))
	if err != nil {
		return nil, err
	}
	return &buyRequest, nil
}

// ListOffers fetches the offers on a buy request. Stored status may be stale
// server-side, so each offer passes through the lazy expiry projection
// before it is returned.
func (c *Client) ListOffers(ctx context.Context, buyRequestID uuid.UUID, now time.Time) ([]types.Offer, error) {
	var offers []types.Offer
	err := c.do(ctx, request{
		endpoint: "list_offers",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/buy-requests/%s/offers", buyRequestID),
	}, listResult(&offers))
	if err != nil {
		return nil, err
	}
	for i := range offers {
		offers[i] = negotiation.ResolveOfferStatus(offers[i], now)
	}
	return offers, nil
}

// CreateOffer submits a seller's offer against a buy request.
func (c *Client) CreateOffer(ctx context.Context, buyRequestID uuid.UUID, req CreateOfferRequest) (*types.Offer, error) {
	var offer types.Offer
	err := c.do(ctx, request{
		endpoint: "create_offer",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/buy-requests/%s/offers", buyRequestID),
		body:     req,
	}, objectResult(&offer))
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// AcceptOffer asks the server to accept an offer. The idempotency key is
// mandatory: it is what guarantees at-most-one order even if this request
// fires twice.
func (c *Client) AcceptOffer(ctx context.Context, buyRequestID, offerID uuid.UUID, idempotencyKey string, req AcceptOfferRequest) (*AcceptOfferResponse, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, errors.New("idempotency key is required for offer acceptance")
	}
	var resp AcceptOfferResponse
	err := c.do(ctx, request{
		endpoint: "accept_offer",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/buy-requests/%s/offers/%s/accept", buyRequestID, offerID),
		body:     req,
		headers:  map[string]string{"Idempotency-Key": idempotencyKey},
	}, objectResult(&resp))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping verifies the marketplace API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{
		endpoint: "ping",
		method:   http.MethodGet,
		path:     "/healthz",
	}, discardResult())
}
