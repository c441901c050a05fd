package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/SergeiKhy/linkshort-web/internal/api"
	"github.com/SergeiKhy/linkshort-web/internal/handler"
	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"github.com/SergeiKhy/linkshort-web/internal/middleware"
	"github.com/SergeiKhy/linkshort-web/internal/models"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/SergeiKhy/linkshort-web/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router   *gin.Engine
	public   *gin.Engine
	sessions service.SessionManager
	store    *mocks.MockTokenStore
	visits   *service.VisitRegistry
}

// setupTestEnv wires the shell against a fake backend with token already persisted
func setupTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	backend := newFakeBackend(t)
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	client := api.NewClient(backend.URL(), backend.server.Client(), logger)
	store := mocks.NewMockTokenStore(token)
	sessions := service.NewSessionManager(client, store, logger, m)
	require.NoError(t, sessions.Bootstrap(context.Background()))

	visits := service.NewVisitRegistry(client, time.Minute, logger, m)
	t.Cleanup(visits.Close)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 100, BurstSize: 100})
	t.Cleanup(limiter.Stop)

	deps := handler.RouterDeps{
		Backend:     client,
		Sessions:    sessions,
		Visits:      visits,
		VisitTTL:    time.Minute,
		QR:          service.NewQRExporter(192, logger, m),
		PublicBase:  "https://sho.rt",
		RateLimiter: limiter,
		Gatherer:    reg,
		Logger:      logger,
	}

	return &testEnv{
		router:   handler.NewRouter(deps),
		public:   handler.NewPublicRouter(deps),
		sessions: sessions,
		store:    store,
		visits:   visits,
	}
}

const (
	ownerAddr  = "127.0.0.1:52000"
	remoteAddr = "203.0.113.9:40000"
)

// do sends a request from the owner's machine
func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.doFrom(ownerAddr, method, path, body, cookies...)
}

func (e *testEnv) doFrom(addr, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = addr
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func visitCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "linkshort_visit" {
			return c
		}
	}
	t.Fatal("visit cookie not set")
	return nil
}

// TestHealthAndMetrics checks the unauthenticated service endpoints
func TestHealthAndMetrics(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do("GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `linkshort_session_outcomes_total{outcome="anonymous"} 1`)
}

// TestSession_LoginLogout covers the session endpoints end to end
func TestSession_LoginLogout(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("GET", "/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[handler.SessionResponse](t, w).Authenticated)

	w = env.do("POST", "/session/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", decode[handler.ErrorResponse](t, w).Message)

	w = env.do("POST", "/session/login", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handler.SessionResponse](t, w)
	assert.True(t, resp.Authenticated)
	assert.False(t, resp.IsAdmin)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotContains(t, w.Body.String(), userToken)
	assert.Equal(t, userToken, env.store.Token())

	w = env.do("POST", "/session/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.store.Token())
	assert.False(t, env.sessions.Snapshot().Authenticated())
}

// TestSession_BadRequests rejects incomplete bodies and surfaces backend detail
func TestSession_BadRequests(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("POST", "/session/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("POST", "/session/register", `{"username":"alice","email":"a@example.com","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already taken", decode[handler.ErrorResponse](t, w).Message)
}

// TestSession_Restored comes back from a persisted token
func TestSession_Restored(t *testing.T) {
	env := setupTestEnv(t, adminToken)

	w := env.do("GET", "/session", "")
	resp := decode[handler.SessionResponse](t, w)
	assert.True(t, resp.Authenticated)
	assert.True(t, resp.IsAdmin)

	w = env.do("POST", "/session/recheck", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestSession_InvalidTokenDropped clears a token the backend rejects
func TestSession_InvalidTokenDropped(t *testing.T) {
	env := setupTestEnv(t, "expired-token")

	assert.False(t, env.sessions.Snapshot().Authenticated())
	assert.Empty(t, env.store.Token())
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/links", "").Code)
}

// TestLinks_CRUD forwards link operations with the session token
func TestLinks_CRUD(t *testing.T) {
	env := setupTestEnv(t, userToken)

	w := env.do("GET", "/links", "")
	require.Equal(t, http.StatusOK, w.Code)
	links := decode[[]models.Link](t, w)
	require.Len(t, links, 1)
	assert.Equal(t, "abc123", links[0].ShortCode)

	w = env.do("POST", "/links", `{"original_url":"https://example.com","title":"Docs"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do("POST", "/links", `{"original_url":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("POST", "/links", `{"original_url":"https://example.com","custom_slug":"taken"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Short code already in use", decode[handler.ErrorResponse](t, w).Message)

	w = env.do("GET", "/links/l-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/links/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("PUT", "/links/l-1", `{"is_active":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Link](t, w).IsActive)

	w = env.do("DELETE", "/links/l-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestLinks_Analytics returns the projected view model
func TestLinks_Analytics(t *testing.T) {
	env := setupTestEnv(t, userToken)

	w := env.do("GET", "/links/l-1/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)

	vm := decode[models.AnalyticsViewModel](t, w)
	assert.Equal(t, int64(3), vm.TotalClicks)
	assert.Equal(t, []models.LabelCount{{Label: "mobile", Count: 2}, {Label: "desktop", Count: 1}}, vm.Devices)
	assert.Empty(t, vm.OS)
	assert.NotNil(t, vm.OS)
	assert.Equal(t, "Doğrudan", vm.Referrers[0].Label)
	assert.Equal(t, []models.DailyCount{{Date: "2024-05-01", Count: 3}}, vm.DailyClicks)

	w = env.do("GET", "/analytics/overview", "")
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[models.OverviewViewModel](t, w)
	assert.Equal(t, int64(1), overview.TotalLinks)
	require.Len(t, overview.TopLinks, 1)
}

// TestQR_Download sends a PNG attachment
func TestQR_Download(t *testing.T) {
	env := setupTestEnv(t, userToken)

	w := env.do("GET", "/qr/abc123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=qr-abc123.png`, w.Header().Get("Content-Disposition"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 192, img.Bounds().Dx())

	w = env.do("GET", "/qr/abc123?format=svg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))
}

// TestAdmin_Access requires an administrator
func TestAdmin_Access(t *testing.T) {
	user := setupTestEnv(t, userToken)
	assert.Equal(t, http.StatusForbidden, user.do("GET", "/admin/stats", "").Code)

	admin := setupTestEnv(t, adminToken)

	w := admin.do("GET", "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[models.AdminStats](t, w).TotalUsers)

	w = admin.do("GET", "/admin/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 2)

	w = admin.do("PUT", "/admin/users/u-1/toggle-status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.UserStatus](t, w).IsActive)

	w = admin.do("DELETE", "/admin/users/u-0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot delete yourself", decode[handler.ErrorResponse](t, w).Message)

	w = admin.do("DELETE", "/admin/users/u-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRedirect_Open issues a full navigation
func TestRedirect_Open(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("GET", "/r/open", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/open", w.Header().Get("Location"))
	assert.Zero(t, env.visits.Len())
}

// TestRedirect_Terminal answers with the settled attempt
func TestRedirect_Terminal(t *testing.T) {
	env := setupTestEnv(t, "")

	tests := []struct {
		code    string
		status  int
		stage   string
		message string
	}{
		{code: "missing", status: http.StatusNotFound, stage: "not_found", message: service.NotFoundMessage},
		{code: "gone", status: http.StatusGone, stage: "gone", message: "Link expired"},
		{code: "broken", status: http.StatusBadGateway, stage: "error", message: service.GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := env.do("GET", "/r/"+tt.code, "")
			assert.Equal(t, tt.status, w.Code)

			body := decode[map[string]string](t, w)
			assert.Equal(t, tt.code, body["short_code"])
			assert.Equal(t, tt.stage, body["stage"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
	assert.Zero(t, env.visits.Len())
}

// TestRedirect_PasswordFlow keeps the visit between the form and the redirect
func TestRedirect_PasswordFlow(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("GET", "/r/locked", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "password_required", decode[map[string]string](t, w)["stage"])
	cookie := visitCookie(t, w)
	assert.Equal(t, 1, env.visits.Len())

	w = env.do("POST", "/r/locked", `{"password":""}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.EmptyPasswordMessage, decode[map[string]string](t, w)["message"])

	w = env.do("POST", "/r/locked", `{"password":"wrong"}`, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "password_required", body["stage"])
	assert.Equal(t, "Yanlış şifre", body["message"])

	w = env.do("POST", "/r/locked", `{"password":"hunter2"}`, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))
	assert.Zero(t, env.visits.Len())
}

// TestRedirect_SubmitWithoutVisit restarts the lookup
func TestRedirect_SubmitWithoutVisit(t *testing.T) {
	env := setupTestEnv(t, "")

	w := env.do("POST", "/r/locked", `{"password":"hunter2"}`)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))

	w = env.do("POST", "/r/open", `{"password":"anything"}`)
	assert.Equal(t, http.StatusFound, w.Code)

	w = env.do("POST", "/r/gone", `{"password":"anything"}`)
	assert.Equal(t, http.StatusGone, w.Code)
}

// TestRedirect_RateLimited limits password attempts per short code
func TestRedirect_RateLimited(t *testing.T) {
	backend := newFakeBackend(t)
	client := api.NewClient(backend.URL(), backend.server.Client(), nil)
	visits := service.NewVisitRegistry(client, time.Minute, nil, nil)
	defer visits.Close()
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2})
	defer limiter.Stop()

	router := handler.NewPublicRouter(handler.RouterDeps{
		Visits:      visits,
		RateLimiter: limiter,
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/r/missing", nil))
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, statuses)
}

// TestOwnerRoutes_RefuseRemote keeps the owner's session away from other machines
func TestOwnerRoutes_RefuseRemote(t *testing.T) {
	env := setupTestEnv(t, adminToken)

	for _, route := range []struct{ method, path string }{
		{"GET", "/admin/users"},
		{"GET", "/links"},
		{"GET", "/session"},
		{"POST", "/session/logout"},
		{"GET", "/metrics"},
	} {
		w := env.doFrom(remoteAddr, route.method, route.path, "")
		assert.Equal(t, http.StatusForbidden, w.Code, route.path)
		assert.NotContains(t, w.Body.String(), "alice@example.com")
	}

	state := env.sessions.Snapshot()
	assert.True(t, state.Authenticated())
	assert.Equal(t, adminToken, env.store.Token())

	// Visits stay public on the owner's listener too
	w := env.doFrom(remoteAddr, "GET", "/r/open", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, http.StatusOK, env.doFrom(remoteAddr, "GET", "/health", "").Code)
}

// TestPublicRouter serves visits and nothing tied to the session
func TestPublicRouter(t *testing.T) {
	env := setupTestEnv(t, adminToken)

	serve := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		env.public.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, serve("GET", "/health").Code)

	w := serve("GET", "/r/open")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/open", w.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, serve("GET", "/admin/users").Code)
	assert.Equal(t, http.StatusNotFound, serve("POST", "/session/logout").Code)
	assert.Equal(t, http.StatusNotFound, serve("GET", "/links").Code)
	assert.True(t, env.sessions.Snapshot().Authenticated())
}

// TestLinks_Search filters the list by title, URL or short code
func TestLinks_Search(t *testing.T) {
	env := setupTestEnv(t, userToken)

	w := env.do("GET", "/links?q=ABC", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Link](t, w), 1)

	w = env.do("GET", "/links?q=example.COM", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Link](t, w), 1)

	w = env.do("GET", "/links?q=nothing-here", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

// TestAdmin_UserSearch filters users by username or email
func TestAdmin_UserSearch(t *testing.T) {
	env := setupTestEnv(t, adminToken)

	w := env.do("GET", "/admin/users?q=ALICE", "")
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]models.User](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, "u-1", users[0].ID)

	w = env.do("GET", "/admin/users?q=root@example", "")
	require.Equal(t, http.StatusOK, w.Code)
	users = decode[[]models.User](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, "u-0", users[0].ID)
}
