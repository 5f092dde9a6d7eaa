package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/api/controllers"
	"github.com/angelmondragon/acertamais-backend/internal/cart"
	"github.com/angelmondragon/acertamais-backend/internal/employees"
	"github.com/angelmondragon/acertamais-backend/internal/requests"
	pkgAuth "github.com/angelmondragon/acertamais-backend/pkg/auth"
	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
	"github.com/angelmondragon/acertamais-backend/pkg/enums"
	"github.com/angelmondragon/acertamais-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*pkgAuth.Identity, error) {
	if token == "valid" {
		return &pkgAuth.Identity{UserID: "uid-1"}, nil
	}
	return nil, errors.New("invalid")
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type stubCart struct{}

func (stubCart) Load(context.Context, string) (*cart.View, error) {
	return &cart.View{Items: []models.CartItem{}, Total: decimal.Zero}, nil
}

func (stubCart) Add(context.Context, string, string) (*models.CartItem, error) {
	return &models.CartItem{ID: uuid.New(), Quantity: 1}, nil
}

func (stubCart) SetQuantity(context.Context, string, uuid.UUID, int) (*models.CartItem, error) {
	return &models.CartItem{}, nil
}

func (stubCart) Remove(context.Context, string, uuid.UUID) error { return nil }

type stubRequests struct {
	mu      sync.Mutex
	submits int
}

func (s *stubRequests) Submit(context.Context, requests.SubmitInput) (*requests.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	return &requests.SubmitResult{RequestID: uuid.New(), Status: enums.RequestStatusPending}, nil
}

func (s *stubRequests) Cancel(context.Context, string, uuid.UUID) (*requests.RequestView, error) {
	return &requests.RequestView{}, nil
}

func (s *stubRequests) Get(context.Context, string, uuid.UUID) (*requests.RequestView, error) {
	return &requests.RequestView{}, nil
}

func (s *stubRequests) ListPending(context.Context, string) (*requests.Snapshot, error) {
	return &requests.Snapshot{Requests: []requests.RequestView{}}, nil
}

func (s *stubRequests) Subscribe(context.Context, string) (requests.Stream, error) {
	return nil, errors.New("not used")
}

func (s *stubRequests) History(context.Context, string, enums.RequestStatus, pagination.Params) (*requests.HistoryPage, error) {
	return &requests.HistoryPage{}, nil
}

type stubEmployees struct{}

func (stubEmployees) Profile(_ context.Context, userID string) (*employees.Profile, error) {
	return &employees.Profile{ID: userID}, nil
}

func (stubEmployees) DisplayName(context.Context, string) (string, error) { return "Maria", nil }

func (stubEmployees) Status(context.Context, string) (enums.EmployeeStatus, error) {
	return enums.EmployeeStatusActive, nil
}

func (stubEmployees) Disable(context.Context, string) error { return nil }

func newTestRouter(t *testing.T, reqs *stubRequests) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Env: "dev"},
		Redis: config.RedisConfig{IdempotencyTTL: time.Hour},
	}
	reg := prometheus.NewRegistry()
	return NewRouter(
		cfg,
		nil,
		map[string]controllers.Pinger{"db": stubPinger{}},
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		stubVerifier{},
		&memStore{data: map[string]string{}},
		nil,
		stubCart{},
		reqs,
		stubEmployees{},
	)
}

func serve(h http.Handler, method, path, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h := newTestRouter(t, &stubRequests{})

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health/live", "", nil).Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health/ready", "", nil).Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	h := newTestRouter(t, &stubRequests{})

	resp := serve(h, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/cart", "valid", nil).Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/me", "valid", nil).Code)
}

func TestCatalogWithoutServiceAnswersInternalError(t *testing.T) {
	h := newTestRouter(t, &stubRequests{})
	require.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/api/v1/catalog/segments", "valid", nil).Code)
}

func TestSubmitIsIdempotentAtTheEdge(t *testing.T) {
	reqs := &stubRequests{}
	h := newTestRouter(t, reqs)

	require.Equal(t, http.StatusBadRequest, serve(h, http.MethodPost, "/api/v1/requests", "valid", nil).Code)

	headers := map[string]string{"Idempotency-Key": "key-1"}
	first := serve(h, http.MethodPost, "/api/v1/requests", "valid", headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := serve(h, http.MethodPost, "/api/v1/requests", "valid", headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, reqs.submits)
}
