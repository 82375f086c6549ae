package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/jdupreez/veemark-gateway/internal/auction"
	"github.com/jdupreez/veemark-gateway/internal/negotiation"
	"github.com/jdupreez/veemark-gateway/internal/pricing"
)

func newTestEngine(t *testing.T) *negotiation.Engine {
	t.Helper()
	engine, err := negotiation.NewEngine(negotiation.EngineParams{
		Rules:   auction.DefaultRules(),
		Pricing: pricing.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("unexpected error building engine: %v", err)
	}
	return engine
}

func requestWithParams(method, url string, body io.Reader, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	for key, value := range params {
		rc.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}
