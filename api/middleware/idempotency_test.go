package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	if str == "" {
		str = fmt.Sprintf("%v", value)
	}
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:idem:%s:%s", scope, id)
}

func (f *fakeStore) InFlightKey(scope string) string {
	return fmt.Sprintf("fake:inflight:%s", scope)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRouteTTLSelection(t *testing.T) {
	listingID := uuid.NewString()
	buyRequestID := uuid.NewString()
	offerID := uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"cart put", http.MethodPut, "/api/v1/cart", defaultIdempotencyTTL, true},
		{"place bid", http.MethodPost, "/api/v1/listings/" + listingID + "/bids", defaultIdempotencyTTL, true},
		{"create offer", http.MethodPost, "/api/v1/buy-requests/" + buyRequestID + "/offers", defaultIdempotencyTTL, true},
		{"create offer trailing slash", http.MethodPost, "/api/v1/buy-requests/" + buyRequestID + "/offers/", defaultIdempotencyTTL, true},
		{"accept offer", http.MethodPost, "/api/v1/buy-requests/" + buyRequestID + "/offers/" + offerID + "/accept", criticalIdempotencyTTL, true},
		{"quote read", http.MethodGet, "/api/v1/listings/" + listingID + "/quote", 0, false},
		{"cart read", http.MethodGet, "/api/v1/cart", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, requestPath(httptest.NewRequest(tt.method, tt.path, nil)))
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"items":[]}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	makeReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"items":[]}`))
		req.Header.Set("Idempotency-Key", "abc")
		return req
	}

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, makeReq())
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, makeReq())
	if replay.Code != http.StatusAccepted {
		t.Fatalf("expected replayed status 202 got %d", replay.Code)
	}
	if replay.Body.String() != `{"ok":true}` {
		t.Fatalf("expected replayed body, got %q", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareRejectsReusedKeyWithNewBody(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"items":[1]}`))
	first.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"items":[2]}`))
	second.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestIdempotencyMiddlewareSkipsUnmatchedRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	mw(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if calls != 2 {
		t.Fatalf("reads must bypass idempotency, handler ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("no records should be stored for reads, got %d", len(store.data))
	}
}

func TestInFlightGuardBlocksConcurrentSubmission(t *testing.T) {
	store := newFakeStore()
	mw := InFlight(store, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	go mw(handler).ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/buy-requests/1/offers/2/accept", nil))
	<-started

	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/buy-requests/1/offers/2/accept", nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for concurrent submission, got %d", second.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(second.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInFlight) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}

	close(release)
}

func TestInFlightGuardReleasesAfterCompletion(t *testing.T) {
	store := newFakeStore()
	mw := InFlight(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/buy-requests/1/offers/2/accept", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("sequential submission %d should pass, got %d", i, resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler runs, got %d", calls)
	}
}

// The gateway mounts the middleware with Use on the /api/v1 subrouter, where
// chi has not yet resolved the nested route. Matching must therefore work
// from the concrete URL path alone.
func TestIdempotencyAppliesUnderSubrouterMounting(t *testing.T) {
	store := newFakeStore()
	var calls int
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/buy-requests/{buyRequestID}/offers", func(r chi.Router) {
			r.Post("/{offerID}/accept", func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"order_group_id":"og-1"}`))
			})
		})
	})

	path := "/api/v1/buy-requests/" + uuid.NewString() + "/offers/" + uuid.NewString() + "/accept"
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"address_id":"a"}`))
		req.Header.Set("Idempotency-Key", "acc-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if len(store.data) == 0 {
		t.Fatal("expected an idempotency record to be stored")
	}

	replay := send()
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed body %q got %q", first.Body.String(), replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}

	missing := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"address_id":"a"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
}

func TestIdempotencyDoesNotStoreFailedResponses(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	makeReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(`{"items":[]}`))
		req.Header.Set("Idempotency-Key", "retry-1")
		return req
	}

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, makeReq())
	if first.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", first.Code)
	}
	if len(store.data) != 0 {
		t.Fatal("failed responses must not be stored for replay")
	}

	retry := httptest.NewRecorder()
	mw(handler).ServeHTTP(retry, makeReq())
	if retry.Code != http.StatusCreated {
		t.Fatalf("retry must re-execute and succeed, got %d", retry.Code)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler runs, got %d", calls)
	}
}
