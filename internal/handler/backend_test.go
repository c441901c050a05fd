package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackend emulates the REST API the shell talks to.
type fakeBackend struct {
	server *httptest.Server
}

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

var (
	aliceJSON = `{"id":"u-1","username":"alice","email":"alice@example.com","is_admin":false,"is_active":true}`
	rootJSON  = `{"id":"u-0","username":"root","email":"root@example.com","is_admin":true,"is_active":true}`
	linkJSON  = `{"id":"l-1","short_code":"abc123","original_url":"https://example.com","is_active":true,"click_count":3}`
)

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		switch r.Header.Get("Authorization") {
		case "Bearer " + userToken, "Bearer " + adminToken:
			return true
		}
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		return false
	}

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + userToken:
			writeJSON(w, http.StatusOK, aliceJSON)
		case "Bearer " + adminToken:
			writeJSON(w, http.StatusOK, rootJSON)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
		}
	})

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case body.Username == "alice" && body.Password == "secret":
			writeJSON(w, http.StatusOK, `{"access_token":"`+userToken+`","token_type":"bearer","user":`+aliceJSON+`}`)
		case body.Username == "root" && body.Password == "secret":
			writeJSON(w, http.StatusOK, `{"access_token":"`+adminToken+`","token_type":"bearer","user":`+rootJSON+`}`)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Invalid username or password"}`)
		}
	})

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail":"Username already taken"}`)
	})

	mux.HandleFunc("GET /api/links", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `[`+linkJSON+`]`)
		}
	})

	mux.HandleFunc("POST /api/links", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"custom_slug":"taken"`) {
			writeJSON(w, http.StatusBadRequest, `{"detail":"Short code already in use"}`)
			return
		}
		writeJSON(w, http.StatusCreated, linkJSON)
	})

	mux.HandleFunc("GET /api/links/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.PathValue("id") != "l-1" {
			writeJSON(w, http.StatusNotFound, `{"detail":"Link not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, linkJSON)
	})

	mux.HandleFunc("PUT /api/links/{id}", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, strings.Replace(linkJSON, `"is_active":true`, `"is_active":false`, 1))
		}
	})

	mux.HandleFunc("DELETE /api/links/{id}", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `{"message":"Link deleted"}`)
		}
	})

	mux.HandleFunc("GET /api/links/{id}/analytics", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `{"link":`+linkJSON+`,"total_clicks":3,"devices":{"mobile":2,"desktop":1},`+
				`"os_stats":"broken","referrers":{"Doğrudan":3},"daily_clicks":[{"date":"2024-05-01","clicks":3}]}`)
		}
	})

	mux.HandleFunc("GET /api/analytics/overview", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `{"total_links":1,"active_links":1,"total_clicks":3,"today_clicks":1,"top_links":[`+linkJSON+`]}`)
		}
	})

	mux.HandleFunc("GET /api/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `{"total_users":2,"total_links":5,"total_clicks":40,"today_clicks":4,"today_links":1}`)
		}
	})

	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `[`+rootJSON+`,`+aliceJSON+`]`)
		}
	})

	mux.HandleFunc("PUT /api/admin/users/{id}/toggle-status", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, `{"message":"User deactivated","is_active":false}`)
		}
	})

	mux.HandleFunc("DELETE /api/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.PathValue("id") == "u-0" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"Cannot delete yourself"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"User deleted"}`)
	})

	mux.HandleFunc("GET /api/r/{code}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("code") {
		case "open":
			http.Redirect(w, r, "https://example.com/open", http.StatusFound)
		case "locked":
			writeJSON(w, http.StatusOK, `{"requires_password":true,"link_id":"l-2"}`)
		case "gone":
			writeJSON(w, http.StatusGone, `{"detail":"Link expired"}`)
		case "broken":
			writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"detail":"Link not found"}`)
		}
	})

	mux.HandleFunc("POST /api/r/{code}/verify", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password == "hunter2" {
			writeJSON(w, http.StatusOK, `{"redirect_url":"https://example.com/target"}`)
			return
		}
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Yanlış şifre"}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	require.NotEmpty(t, server.URL)
	return &fakeBackend{server: server}
}

func (b *fakeBackend) URL() string {
	return b.server.URL + "/api"
}
