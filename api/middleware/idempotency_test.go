package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-orders/pkg/errors"
)

type fakeStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttls, k)
	}
	return nil
}

const ordersPath = "/api/v1/orders"

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func orderRequest(key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, ordersPath, ordersPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"create order", http.MethodPost, ordersPath, orderCreateTTL, true},
		{"get order", http.MethodGet, "/api/v1/orders/{orderId}", 0, false},
		{"status update", http.MethodPatch, "/api/admin/v1/orders/{orderId}/status", 0, false},
		{"list orders", http.MethodGet, "/api/admin/v1/orders", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, ok := routeTTL(tt.method, tt.pattern)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, ttl)
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var called bool
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(okHandler(&called)).ServeHTTP(resp, orderRequest("", `{"items":[]}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	var called bool
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(okHandler(&called)).ServeHTTP(resp, orderRequest(strings.Repeat("k", maxKeyLength+1), `{}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestIdempotencySkipsWithoutStore(t *testing.T) {
	var called bool
	resp := httptest.NewRecorder()
	Idempotency(nil, nil)(okHandler(&called)).ServeHTTP(resp, orderRequest("", `{}`))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, called)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"echo":%s}`, body)))
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, orderRequest("abc", `{"n":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, orderRequest("abc", `{"n":1}`))

	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(ReplayedHeader))
	assert.Equal(t, `{"echo":{"n":1}}`, strings.TrimSpace(replay.Body.String()))
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, orderCreateTTL, ttl, key)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var called bool

	mw(okHandler(&called)).ServeHTTP(httptest.NewRecorder(), orderRequest("xyz", `{"n":1}`))

	resp := httptest.NewRecorder()
	mw(okHandler(&called)).ServeHTTP(resp, orderRequest("xyz", `{"n":2}`))

	require.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, orderRequest("retry", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.data)

	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, orderRequest("retry", `{}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}

func TestIdempotencyStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	var called bool

	resp := httptest.NewRecorder()
	Idempotency(store, nil)(okHandler(&called)).ServeHTTP(resp, orderRequest("k", `{}`))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.False(t, called)
}

func TestIdempotencyIgnoresUncoveredRoutes(t *testing.T) {
	var called bool
	req := requestWithPattern(http.MethodGet, "/api/v1/orders/1", "/api/v1/orders/{orderId}", nil)
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(okHandler(&called)).ServeHTTP(resp, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestIdempotencyRejectsRetryWhileFirstAttemptRuns(t *testing.T) {
	store := newFakeStore()
	req := orderRequest("busy", `{}`)
	store.data[inFlightKey(store.IdempotencyKey(requestScope(req), "busy"))] = "other"
	var called bool

	resp := httptest.NewRecorder()
	Idempotency(store, nil)(okHandler(&called)).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.False(t, called)
	assert.Contains(t, resp.Body.String(), "still in progress")
}

func TestIdempotencyReleasesLockAfterHandler(t *testing.T) {
	store := newFakeStore()
	var lockHeld bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, lockHeld = store.data[inFlightKey(store.IdempotencyKey(requestScope(r), "lk"))]
		w.WriteHeader(http.StatusCreated)
	})

	Idempotency(store, nil)(handler).ServeHTTP(httptest.NewRecorder(), orderRequest("lk", `{}`))

	assert.True(t, lockHeld)
	for key := range store.data {
		assert.False(t, strings.HasSuffix(key, ":lock"), key)
	}
}
