package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/chronosync/chronosync-api/config"
)

func testCreds() config.ProviderCredentials {
	return config.ProviderCredentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://api.test/api/auth/google/callback",
	}
}

func TestNewRegistry_OnlyConfiguredProviders(t *testing.T) {
	registry := NewRegistry(config.OAuthConfig{Google: testCreds()})

	if _, err := registry.Get(ProviderGoogle); err != nil {
		t.Fatalf("expected google to be registered: %v", err)
	}
	if _, err := registry.Get(ProviderGitHub); err == nil {
		t.Fatal("expected unconfigured github to be absent")
	}
	if _, err := registry.Get("myspace"); err == nil {
		t.Fatal("expected unknown provider to be absent")
	}
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	provider := NewGoogleProvider(testCreds())

	url := provider.AuthURL("csrf-state")
	if !strings.Contains(url, "state=csrf-state") {
		t.Errorf("expected state in auth URL, got %q", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Errorf("expected client id in auth URL, got %q", url)
	}
}

func oauthTestServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()

	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-access","token_type":"bearer","refresh_token":"provider-refresh"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGoogleProvider_Exchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"goog-123","email":"ada@example.com","name":"Ada","picture":"https://img.test/a.png"}`))
	})
	server := oauthTestServer(t, mux)

	provider := NewGoogleProvider(testCreds())
	provider.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}
	provider.userInfoURL = server.URL + "/userinfo"

	identity, err := provider.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if identity.Provider != ProviderGoogle || identity.ProviderAccountID != "goog-123" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.Email != "ada@example.com" || identity.Name != "Ada" {
		t.Fatalf("unexpected profile: %+v", identity)
	}
	if identity.AccessToken != "provider-access" || identity.RefreshToken != "provider-refresh" {
		t.Fatalf("unexpected tokens: %+v", identity)
	}
}

func TestGitHubProvider_Exchange_PublicEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":99,"login":"ada","name":"Ada","email":"ada@example.com","avatar_url":"https://img.test/a.png"}`))
	})
	server := oauthTestServer(t, mux)

	provider := NewGitHubProvider(testCreds())
	provider.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}
	provider.apiBase = server.URL

	identity, err := provider.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if identity.ProviderAccountID != "99" {
		t.Fatalf("expected numeric id as string, got %q", identity.ProviderAccountID)
	}
	if identity.Email != "ada@example.com" {
		t.Fatalf("unexpected email %q", identity.Email)
	}
}

func TestGitHubProvider_Exchange_PrivateEmailFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":99,"login":"ada","name":"","email":"","avatar_url":""}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"email":"old@example.com","primary":false,"verified":true},
			{"email":"ada@example.com","primary":true,"verified":true}
		]`))
	})
	server := oauthTestServer(t, mux)

	provider := NewGitHubProvider(testCreds())
	provider.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}
	provider.apiBase = server.URL

	identity, err := provider.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if identity.Email != "ada@example.com" {
		t.Fatalf("expected primary verified email, got %q", identity.Email)
	}
	if identity.Name != "ada" {
		t.Fatalf("expected login as name fallback, got %q", identity.Name)
	}
}
