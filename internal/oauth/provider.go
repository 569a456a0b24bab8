package oauth

import (
	"context"
	"fmt"
	"strings"
)

// Profile is what a provider resolves an authorization code into.
type Profile struct {
	Provider          string
	ProviderAccountID string
	Email             string
	EmailVerified     bool
	DisplayName       string
	AccessToken       string
	RefreshToken      string
}

// Provider abstracts one external OAuth identity provider. redirectURL
// overrides the configured callback when non-empty; the merge flow uses this
// to route the round-trip through the merge callback instead of the login
// callback.
type Provider interface {
	Name() string
	AuthURL(state, redirectURL string) (string, error)
	ExchangeCode(ctx context.Context, code, redirectURL string) (*Profile, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("oauth provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported oauth provider: %s", name)
	}
	return factory(args)
}
