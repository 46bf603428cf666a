package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/infra/observability"
	"github.com/spendsphere/spendsphere-go/internal/port"
	"github.com/spendsphere/spendsphere-go/internal/service"
)

// stubStore backs the router tests with an in-memory user table. Routes
// under test only touch users; anything else panics via the embedded
// nil interface.
type stubStore struct {
	port.Store
	users  map[int64]*domain.User
	nextID int64
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[int64]*domain.User)}
}

func (s *stubStore) Users() port.UserStore          { return (*stubUsers)(s) }
func (s *stubStore) Ping(_ context.Context) error   { return nil }

type stubUsers stubStore

func (s *stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubUsers) GetByProvider(_ context.Context, provider, providerID string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Provider == provider && u.ProviderID == providerID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubUsers) Create(_ context.Context, u *domain.User) error {
	s.nextID++
	u.ID = s.nextID
	c := *u
	s.users[u.ID] = &c
	return nil
}

func (s *stubUsers) Update(_ context.Context, u *domain.User) error {
	c := *u
	s.users[u.ID] = &c
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *stubStore) {
	t.Helper()
	store := newStubStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	ledger := service.NewLedgerService(store, metrics, logger)
	svcs := &Services{
		Ledger:     ledger,
		Statistics: service.NewStatisticsService(store, logger),
		Ocr:        service.NewOcrService(store, nil, ledger, "ocr-images", metrics, logger),
		Advice:     service.NewAdviceService(store, nil, "advice-tasks", logger),
		Accounts:   service.NewAccountService(store, logger),
		Categories: service.NewCategoryService(store, logger),
		Reminders:  service.NewReminderService(store, logger),
		Users:      service.NewUserService(store, logger),
		Auth:       service.NewAuthService(store, "test-secret", time.Hour, logger),
	}
	return NewRouter(svcs, store, metrics, logger), store
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router http.Handler, email string) domain.AuthResponse {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/v1/auth/register", "",
		`{"email":"`+email+`","password":"supersecret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp domain.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("register: decode response: %v", err)
	}
	return resp
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/ping", "/metrics"} {
		rec := doRequest(t, router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, rec.Code)
		}
	}
}

func TestRegisterAndFetchProfile(t *testing.T) {
	router, _ := newTestRouter(t)

	auth := registerUser(t, router, "rt@example.com")
	path := "/v1/users/" + strconv.FormatInt(auth.UserID, 10) + "/profile"

	rec := doRequest(t, router, http.MethodGet, path, auth.AccessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	var u domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if u.Email != "rt@example.com" {
		t.Errorf("profile email = %q", u.Email)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") {
		t.Error("profile response must not expose the password hash")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name  string
		token string
		raw   string
	}{
		{"missing token", "", ""},
		{"garbage token", "nonsense", ""},
		{"wrong scheme", "", "Basic dXNlcjpwYXNz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/1/profile", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			if tc.raw != "" {
				req.Header.Set("Authorization", tc.raw)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status %d, want 401", rec.Code)
			}
		})
	}
}

func TestTokenSubjectMustMatchPath(t *testing.T) {
	router, _ := newTestRouter(t)

	auth := registerUser(t, router, "owner@example.com")
	otherPath := "/v1/users/" + strconv.FormatInt(auth.UserID+1, 10) + "/profile"

	rec := doRequest(t, router, http.MethodGet, otherPath, auth.AccessToken, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403 for a foreign user path", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	registerUser(t, router, "login@example.com")

	rec := doRequest(t, router, http.MethodPost, "/v1/auth/login", "",
		`{"email":"login@example.com","password":"supersecret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/auth/login", "",
		`{"email":"login@example.com","password":"wrongwrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", rec.Code)
	}
}

func TestStatisticsRejectsBadWindow(t *testing.T) {
	router, _ := newTestRouter(t)

	auth := registerUser(t, router, "stats@example.com")
	base := "/v1/users/" + strconv.FormatInt(auth.UserID, 10) + "/transactions/statistics"

	rec := doRequest(t, router, http.MethodGet, base+"?months=2", auth.AccessToken, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("months=2: status %d, want 400", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, base+"?months=abc", auth.AccessToken, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("months=abc: status %d, want 400", rec.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	router, store := newTestRouter(t)

	auth := registerUser(t, router, "patch@example.com")
	path := "/v1/users/" + strconv.FormatInt(auth.UserID, 10) + "/profile"

	rec := doRequest(t, router, http.MethodPut, path, auth.AccessToken,
		`{"name":"Ada","surname":"L"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	if got := store.users[auth.UserID].Name; got != "Ada" {
		t.Errorf("stored name = %q, want Ada", got)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/auth/register", "", `{"email": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400 on malformed JSON", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if resp.Error == "" {
		t.Error("error body must carry a message")
	}
}

func TestServiceErrorMapping(t *testing.T) {
	logger := zap.NewNop()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &domain.ErrNotFound{Resource: "account", ID: "1"}, http.StatusNotFound},
		{"validation", &domain.ErrValidation{Field: "amount", Message: "must be positive"}, http.StatusBadRequest},
		{"conflict", &domain.ErrConflict{Message: "email already registered"}, http.StatusBadRequest},
		{"unauthorized", &domain.ErrUnauthorized{Message: "invalid credentials"}, http.StatusUnauthorized},
		{"circuit open", &domain.ErrCircuitOpen{Service: "rabbitmq"}, http.StatusServiceUnavailable},
		{"external", &domain.ErrExternalService{Service: "rabbitmq"}, http.StatusBadGateway},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tc.err, logger)
			if rec.Code != tc.want {
				t.Errorf("status %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
