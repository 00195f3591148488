package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"propertydesk/backend/internal/server/authcookie"
	"propertydesk/backend/internal/server/middleware"
	"propertydesk/backend/internal/session/domain"
	sessionservice "propertydesk/backend/internal/session/service"
)

// mockManager implements SessionManager for handler tests.
type mockManager struct {
	logoutErr  error
	loggedOut  []string
	revokedAll []string
	exceptSeen string
	revokeAllN int
	revokeErr  error
	revoked    []string
	listInfos  []domain.Info
	listErr    error
}

func (m *mockManager) Logout(ctx context.Context, hash string) error {
	m.loggedOut = append(m.loggedOut, hash)
	return m.logoutErr
}

func (m *mockManager) RevokeAllUserSessions(ctx context.Context, userID, except string) (int, error) {
	m.revokedAll = append(m.revokedAll, userID)
	m.exceptSeen = except
	return m.revokeAllN, nil
}

func (m *mockManager) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revoked = append(m.revoked, sessionID)
	return nil
}

func (m *mockManager) ListActive(ctx context.Context, userID string) ([]domain.Info, error) {
	return m.listInfos, m.listErr
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	id := middleware.Identity{UserID: "user-1", SessionID: "sess-1", TokenHash: "hash-1"}
	return req.WithContext(middleware.WithIdentity(req.Context(), id))
}

func clearedRefreshCookie(t *testing.T, rec *httptest.ResponseRecorder) bool {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == authcookie.Name {
			return c.Value == "" && c.MaxAge < 0
		}
	}
	return false
}

func TestLogout(t *testing.T) {
	m := &mockManager{}
	h := NewHandler(m, false)

	rec := httptest.NewRecorder()
	h.Logout(rec, authedRequest(http.MethodPost, "/auth/logout", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(m.loggedOut) != 1 || m.loggedOut[0] != "hash-1" {
		t.Errorf("logout hashes = %v, want [hash-1]", m.loggedOut)
	}
	if !clearedRefreshCookie(t, rec) {
		t.Error("refresh cookie not cleared")
	}
}

func TestLogout_VanishedSessionStillOK(t *testing.T) {
	m := &mockManager{logoutErr: sessionservice.ErrSessionNotFound}
	h := NewHandler(m, false)

	rec := httptest.NewRecorder()
	h.Logout(rec, authedRequest(http.MethodPost, "/auth/logout", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for already-dead session", rec.Code)
	}
	if !clearedRefreshCookie(t, rec) {
		t.Error("refresh cookie not cleared")
	}
}

func TestLogoutAll(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantExcept string
		wantClear  bool
	}{
		{"default revokes all", "", "", true},
		{"explicit false", `{"exceptCurrent":false}`, "", true},
		{"except current", `{"exceptCurrent":true}`, "sess-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockManager{revokeAllN: 2}
			h := NewHandler(m, false)

			rec := httptest.NewRecorder()
			h.LogoutAll(rec, authedRequest(http.MethodPost, "/auth/logout-all", tc.body))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp struct {
				DevicesCount int `json:"devicesCount"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.DevicesCount != 2 {
				t.Errorf("devicesCount = %d, want 2", resp.DevicesCount)
			}
			if m.exceptSeen != tc.wantExcept {
				t.Errorf("except = %q, want %q", m.exceptSeen, tc.wantExcept)
			}
			if clearedRefreshCookie(t, rec) != tc.wantClear {
				t.Errorf("cookie cleared = %v, want %v", !tc.wantClear, tc.wantClear)
			}
		})
	}
}

func TestListSessions_FlagsCurrent(t *testing.T) {
	now := time.Now().UTC()
	m := &mockManager{listInfos: []domain.Info{
		{SessionID: "sess-2", DeviceType: "Mobile", IPAddress: "10.0.0.2", LastActivityAt: now, CreatedAt: now},
		{SessionID: "sess-1", DeviceType: "Desktop", IPAddress: "10.0.0.1", LastActivityAt: now, CreatedAt: now},
	}}
	h := NewHandler(m, false)

	rec := httptest.NewRecorder()
	h.ListSessions(rec, authedRequest(http.MethodGet, "/auth/sessions", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp []struct {
		SessionID string `json:"sessionId"`
		IsCurrent bool   `json:"isCurrent"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}
	for _, s := range resp {
		if want := s.SessionID == "sess-1"; s.IsCurrent != want {
			t.Errorf("session %s isCurrent = %v, want %v", s.SessionID, s.IsCurrent, want)
		}
	}
}

func TestRevokeSession(t *testing.T) {
	m := &mockManager{}
	h := NewHandler(m, false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/sessions/{sessionId}/revoke", h.RevokeSession)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodPost, "/auth/sessions/sess-9/revoke", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(m.revoked) != 1 || m.revoked[0] != "sess-9" {
		t.Errorf("revoked = %v, want [sess-9]", m.revoked)
	}
}

func TestRevokeSession_NotFound(t *testing.T) {
	m := &mockManager{revokeErr: sessionservice.ErrSessionNotFound}
	h := NewHandler(m, false)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/sessions/{sessionId}/revoke", h.RevokeSession)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodPost, "/auth/sessions/sess-9/revoke", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ErrorCode != middleware.CodeSessionNotFound {
		t.Errorf("error_code = %q, want SESSION_NOT_FOUND", body.ErrorCode)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	h := NewHandler(&mockManager{}, false)

	endpoints := map[string]http.HandlerFunc{
		"logout":     h.Logout,
		"logout-all": h.LogoutAll,
		"sessions":   h.ListSessions,
	}
	for name, fn := range endpoints {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest(http.MethodPost, "/auth/"+name, nil))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
