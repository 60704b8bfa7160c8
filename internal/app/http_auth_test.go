package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"breakroom/api/internal/auth"
	"breakroom/api/internal/authpw"
	"breakroom/api/internal/store"
)

func newTestServer(fs *fakeStore) (*HTTPServer, *Service) {
	svc := newTestService(fs)
	server := NewHTTPServer(svc, authpw.NewService(fs), nil, "*")
	return server, svc
}

func tokenFor(t *testing.T, fs *fakeStore, svc *Service, userID, role string) string {
	t.Helper()
	fs.users[userID] = store.User{ID: userID, Username: "user-" + userID, Role: role}
	token, err := auth.IssueToken([]byte(svc.cfg.JWTSecret), auth.Claims{
		Sub:  userID,
		Role: role,
		JTI:  "jti-" + userID,
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	payload := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("parse response %s %s: %v body=%s", method, path, err, rr.Body.String())
		}
	}
	return rr, payload
}

func TestSignUpAndSignInFlow(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	rr, payload := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"username":"casey","password":"longenough"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rr.Code, rr.Body.String())
	}
	accessToken, _ := payload["accessToken"].(string)
	refreshToken, _ := payload["refreshToken"].(string)
	if accessToken == "" || refreshToken == "" {
		t.Fatalf("signup did not return token pair: %v", payload)
	}
	if payload["role"] != "member" {
		t.Fatalf("signup role = %v, want member", payload["role"])
	}

	rr, _ = doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"username":"casey","password":"longenough"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", rr.Code)
	}

	rr, _ = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", `{"username":"casey","password":"wrongwrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rr.Code)
	}

	rr, payload = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", `{"username":"casey","password":"longenough"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin status = %d body=%s", rr.Code, rr.Body.String())
	}

	token, _ := payload["accessToken"].(string)
	rr, payload = doJSON(t, server, http.MethodGet, "/api/session", token, "")
	if rr.Code != http.StatusOK || payload["authenticated"] != true {
		t.Fatalf("session introspection failed: %d %v", rr.Code, payload)
	}
}

func TestRefreshRotatesTheTokenPair(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	_, payload := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"username":"casey","password":"longenough"}`)
	oldRefresh, _ := payload["refreshToken"].(string)

	rr, rotated := doJSON(t, server, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+oldRefresh+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", rr.Code, rr.Body.String())
	}
	if rotated["refreshToken"] == oldRefresh {
		t.Fatal("refresh token was not rotated")
	}

	// The consumed token is gone.
	rr, _ = doJSON(t, server, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+oldRefresh+`"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d", rr.Code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	_, payload := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"username":"casey","password":"longenough"}`)
	token, _ := payload["accessToken"].(string)
	refresh, _ := payload["refreshToken"].(string)

	rr, _ := doJSON(t, server, http.MethodPost, "/api/session/logout", token, `{"refreshToken":"`+refresh+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rr.Code)
	}

	rr, _ = doJSON(t, server, http.MethodGet, "/api/posts", token, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token still accepted: %d", rr.Code)
	}
	rr, _ = doJSON(t, server, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked refresh still accepted: %d", rr.Code)
	}
}

func TestBoardRoutesRequireASession(t *testing.T) {
	server, _ := newTestServer(newFakeStore())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/posts"},
		{http.MethodPost, "/api/posts"},
		{http.MethodGet, "/api/posts/post-1"},
		{http.MethodPost, "/api/posts/post-1/like"},
		{http.MethodGet, "/api/community/stats"},
		{http.MethodGet, "/api/search?q=grinder"},
	}
	for _, tc := range paths {
		rr, payload := doJSON(t, server, tc.method, tc.path, "", "{}")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.path, rr.Code)
		}
		if payload["code"] != "UNAUTHENTICATED" {
			t.Errorf("%s %s code = %v, want UNAUTHENTICATED", tc.method, tc.path, payload["code"])
		}
	}
}
