package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"propertydesk/backend/internal/identity/domain"
	identityservice "propertydesk/backend/internal/identity/service"
	"propertydesk/backend/internal/security"
	"propertydesk/backend/internal/server/authcookie"
	sessiondomain "propertydesk/backend/internal/session/domain"
)

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, nil
}

type stubCreator struct {
	sessionID string
	userID    string
	tokens    sessiondomain.IssuedTokens
	client    sessiondomain.ClientContext
	calls     int
}

func (s *stubCreator) Create(ctx context.Context, sessionID, userID string, tokens sessiondomain.IssuedTokens, client sessiondomain.ClientContext) error {
	s.calls++
	s.sessionID = sessionID
	s.userID = userID
	s.tokens = tokens
	s.client = client
	return nil
}

func newLoginHandler(t *testing.T, creator *stubCreator) (*Handler, *security.TokenProvider) {
	t.Helper()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("correct horse battery"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	repo := &stubUserRepo{user: &domain.User{
		ID: "user-1", Email: "ada@example.com", PasswordHash: hash,
		Status: domain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	}}
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	verifier := identityservice.NewVerifier(repo, hasher)
	return NewHandler(verifier, tokens, creator, nil, false), tokens
}

func TestLogin_Success(t *testing.T) {
	creator := &stubCreator{}
	h, tokens := newLoginHandler(t, creator)

	body := `{"email":"ada@example.com","password":"correct horse battery"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")
	req.RemoteAddr = "203.0.113.9:4411"
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID    string    `json:"sessionId"`
		AccessToken  string    `json:"accessToken"`
		RefreshToken string    `json:"refreshToken"`
		ExpiresAt    time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if creator.calls != 1 {
		t.Fatalf("lifecycle Create calls = %d, want 1", creator.calls)
	}
	if resp.SessionID == "" || resp.SessionID != creator.sessionID {
		t.Errorf("sessionId %q does not match created session %q", resp.SessionID, creator.sessionID)
	}
	if creator.userID != "user-1" {
		t.Errorf("created for user %q, want user-1", creator.userID)
	}
	if creator.client.IPAddress != "203.0.113.9" {
		t.Errorf("client IP = %q", creator.client.IPAddress)
	}
	if !creator.tokens.AccessExpiresAt.Equal(resp.ExpiresAt) {
		t.Errorf("access expiry passed to Create = %v, want %v", creator.tokens.AccessExpiresAt, resp.ExpiresAt)
	}
	if !creator.tokens.RefreshExpiresAt.After(creator.tokens.AccessExpiresAt) {
		t.Errorf("refresh expiry %v not after access expiry %v", creator.tokens.RefreshExpiresAt, creator.tokens.AccessExpiresAt)
	}

	// Both tokens carry the session ID as a claim.
	ti, err := tokens.ValidateAccess(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if ti.SessionID != resp.SessionID || ti.UserID != "user-1" {
		t.Errorf("access claims = %+v", ti)
	}
	if _, err := tokens.ValidateRefresh(resp.RefreshToken); err != nil {
		t.Errorf("validate refresh: %v", err)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authcookie.Name {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("refresh cookie not set")
	}
	if cookie.Value != resp.RefreshToken || !cookie.HttpOnly {
		t.Errorf("cookie = %+v", cookie)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h, _ := newLoginHandler(t, &stubCreator{})

	cases := []string{
		`{"email":"ada@example.com","password":"wrong"}`,
		`{"email":"ghost@example.com","password":"correct horse battery"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		var errBody struct {
			ErrorCode string `json:"error_code"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if errBody.ErrorCode != CodeInvalidCredentials {
			t.Errorf("error_code = %q, want INVALID_CREDENTIALS", errBody.ErrorCode)
		}
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	h, _ := newLoginHandler(t, &stubCreator{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
