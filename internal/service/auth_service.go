package service

import (
	"context"
	"strings"
	"time"

	"linkmark/internal/model"
	"linkmark/internal/oauth"
	appErr "linkmark/internal/pkg/errors"
	"linkmark/internal/pkg/sessiontoken"
	"linkmark/internal/pkg/timeutil"
	"linkmark/internal/repo"
)

type AuthService struct {
	users         *repo.UserRepo
	bindings      *repo.BindingRepo
	sessions      *repo.SessionRepo
	sessionSecret []byte
	sessionTTL    time.Duration
	providers     map[string]oauth.Provider
}

func NewAuthService(users *repo.UserRepo, bindings *repo.BindingRepo, sessions *repo.SessionRepo, secret []byte, ttl time.Duration, providers map[string]oauth.Provider) *AuthService {
	if providers == nil {
		providers = map[string]oauth.Provider{}
	}
	return &AuthService{
		users:         users,
		bindings:      bindings,
		sessions:      sessions,
		sessionSecret: secret,
		sessionTTL:    ttl,
		providers:     providers,
	}
}

func (s *AuthService) Provider(name string) (oauth.Provider, error) {
	impl := s.providers[strings.ToLower(name)]
	if impl == nil {
		return nil, appErr.ErrInvalid
	}
	return impl, nil
}

func (s *AuthService) GetAuthURL(provider, state, redirectURL string) (string, error) {
	impl, err := s.Provider(provider)
	if err != nil {
		return "", err
	}
	return impl.AuthURL(state, redirectURL)
}

func (s *AuthService) ExchangeCode(ctx context.Context, provider, code, redirectURL string) (*oauth.Profile, error) {
	impl, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}
	return impl.ExchangeCode(ctx, code, redirectURL)
}

// ResolveUser maps an OAuth profile to an internal user, creating the user
// and binding on first sight of that external identity. Duplicate emails
// across users are allowed on purpose: the same person signing in through a
// second provider gets a second account, and the merge flow is the way those
// are consolidated afterwards.
func (s *AuthService) ResolveUser(ctx context.Context, profile *oauth.Profile) (*model.User, error) {
	if profile == nil || profile.ProviderAccountID == "" || profile.Email == "" || profile.Provider == "" {
		return nil, appErr.ErrInvalid
	}
	if binding, err := s.bindings.GetByProviderAccount(ctx, profile.Provider, profile.ProviderAccountID); err == nil {
		return s.users.GetByID(ctx, binding.UserID)
	} else if err != appErr.ErrNotFound {
		return nil, err
	}
	now := timeutil.NowMilli()
	verified := 0
	if profile.EmailVerified {
		verified = 1
	}
	user := &model.User{
		ID:            newID(),
		Email:         profile.Email,
		DisplayName:   profile.DisplayName,
		EmailVerified: verified,
		Role:          model.RoleUser,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	binding := &model.ProviderBinding{
		ID:                newID(),
		UserID:            user.ID,
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
		Email:             profile.Email,
		AccessToken:       profile.AccessToken,
		RefreshToken:      profile.RefreshToken,
		Ctime:             now,
		Mtime:             now,
	}
	if err := s.bindings.Create(ctx, binding); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginOrCreate is ResolveUser plus a fresh session for the resolved user.
func (s *AuthService) LoginOrCreate(ctx context.Context, profile *oauth.Profile) (*model.User, string, error) {
	user, err := s.ResolveUser(ctx, profile)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueSession creates a server-side session row and returns the signed
// cookie value referencing it.
func (s *AuthService) IssueSession(ctx context.Context, userID string) (string, error) {
	now := timeutil.NowMilli()
	session := &model.Session{
		ID:        newSessionID(),
		UserID:    userID,
		ExpiresAt: now + s.sessionTTL.Milliseconds(),
		Ctime:     now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return sessiontoken.Generate(session.ID, userID, s.sessionSecret, s.sessionTTL)
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.DeleteByID(ctx, sessionID)
}
