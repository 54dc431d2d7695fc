// Package oauth adapts external OAuth 2.0 providers to a single Identity
// shape the auth service can reconcile against the user store. Each
// provider performs the server-side authorization-code exchange and a
// profile fetch; nothing here touches the database.
package oauth

import (
	"context"
	"errors"

	"github.com/chronosync/chronosync-api/config"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Identity is the provider-issued view of the authenticated user. The
// (Provider, ProviderAccountID) pair is the stable external key; the
// profile fields are advisory and may change between logins. Tokens are
// provider secrets and must never be returned to a client.
type Identity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
	AccessToken       string
	RefreshToken      string
}

type Provider interface {
	Name() string
	// AuthURL returns the provider authorization URL the browser is
	// redirected to. state is the caller's CSRF token.
	AuthURL(state string) string
	// Exchange trades the callback code for an access token and fetches
	// the user profile.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Registry holds one Provider per configured provider name.
type Registry map[string]Provider

func NewRegistry(cfg config.OAuthConfig) Registry {
	registry := Registry{}
	if cfg.Google.Configured() {
		registry[ProviderGoogle] = NewGoogleProvider(cfg.Google)
	}
	if cfg.GitHub.Configured() {
		registry[ProviderGitHub] = NewGitHubProvider(cfg.GitHub)
	}
	return registry
}

func (r Registry) Get(name string) (Provider, error) {
	provider, ok := r[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return provider, nil
}
