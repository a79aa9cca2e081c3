// Package session owns the authenticated identity and its bearer credential.
// Lifecycle: anonymous, then authenticated after a successful login, then
// anonymous again on logout or token rejection. Nothing else.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lenshaus/storefront-core/pkg/api"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/storage"
	"github.com/lenshaus/storefront-core/pkg/types"
)

// EventType marks a session transition.
type EventType string

const (
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"
)

// Event is delivered to subscribers on every transition.
type Event struct {
	Type     EventType
	Identity *types.Identity
}

// Subscriber receives session transitions. Callbacks run outside the store's
// lock and must not assume ordering against in-flight operations.
type Subscriber func(Event)

type authAPI interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResult, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken string, reset api.PasswordReset) (*api.AuthResult, error)
	CurrentUser(ctx context.Context) (*types.Identity, error)
}

// Store is the session state container.
type Store struct {
	mu       sync.Mutex
	backend  authAPI
	storage  storage.Store
	logger   *logger.Logger
	validate *validator.Validate

	identity *types.Identity
	token    string
	subs     []Subscriber
}

// Params groups the session store dependencies.
type Params struct {
	API     authAPI
	Storage storage.Store
	Logger  *logger.Logger
}

// NewStore builds an anonymous session store.
func NewStore(params Params) (*Store, error) {
	if params.API == nil {
		return nil, fmt.Errorf("auth api is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Store{
		backend:  params.API,
		storage:  params.Storage,
		logger:   params.Logger,
		validate: validator.New(),
	}, nil
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Current returns the identity when authenticated.
func (s *Store) Current() (*types.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, false
	}
	snapshot := *s.identity
	return &snapshot, true
}

// Authenticated reports the session state.
func (s *Store) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

// Subscribe registers a transition listener.
func (s *Store) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Login exchanges credentials for an authenticated session. Failed logins
// leave the session untouched.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (*types.Identity, error) {
	if err := s.validateInput(creds); err != nil {
		return nil, err
	}
	result, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "login abandoned")
	}
	return s.adopt(ctx, result), nil
}

// Register creates an account and, because the backend issues a token with the
// new identity, signs the user in.
func (s *Store) Register(ctx context.Context, reg api.Registration) (*types.Identity, error) {
	if err := s.validateInput(reg); err != nil {
		return nil, err
	}
	result, err := s.backend.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "registration abandoned")
	}
	return s.adopt(ctx, result), nil
}

// Logout drops the session locally no matter what. The server notification is
// best effort, skipped entirely when there is no session to end, and its
// failure is only logged.
func (s *Store) Logout(ctx context.Context) {
	if s.Authenticated() {
		if err := s.backend.Logout(ctx); err != nil {
			s.logger.Warn(s.logger.WithOperation(ctx, "logout"), "server logout notify failed: "+err.Error())
		}
	}
	s.clear(ctx, true)
}

// ForcedLogout handles a rejected token reported by the API boundary.
func (s *Store) ForcedLogout() {
	s.clear(context.Background(), true)
}

// Restore rebuilds the session from the persisted token on startup. Invalid
// or expired tokens fall back to anonymous without surfacing an error.
func (s *Store) Restore(ctx context.Context) *types.Identity {
	token, err := s.storage.Get(ctx, tokenKey())
	if errors.Is(err, storage.ErrNotFound) || token == "" {
		return nil
	}
	if err != nil {
		s.logger.Error(ctx, "read persisted token", err)
		return nil
	}

	// A parseable JWT with an expired exp claim saves the round-trip.
	if expired, known := tokenExpired(token, time.Now()); known && expired {
		_ = s.storage.Delete(ctx, tokenKey())
		_ = s.storage.Delete(ctx, identityKey())
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	identity, err := s.backend.CurrentUser(ctx)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeAuth) {
			// Token rejected: scrub it so the next start skips the attempt.
			_ = s.storage.Delete(ctx, tokenKey())
			_ = s.storage.Delete(ctx, identityKey())
			s.clear(ctx, false)
			return nil
		}
		// Offline start: fall back to the cached identity snapshot when one
		// exists, otherwise stay anonymous and keep the token for next time.
		if cached := s.cachedIdentity(ctx); cached != nil {
			s.mu.Lock()
			s.identity = cached
			s.mu.Unlock()
			s.notify(Event{Type: EventLogin, Identity: cached})
			return cached
		}
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	s.persistIdentity(ctx, identity)
	s.notify(Event{Type: EventLogin, Identity: identity})
	return identity
}

// ForgotPassword requests a reset email.
func (s *Store) ForgotPassword(ctx context.Context, email string) error {
	input := struct {
		Email string `validate:"required,email"`
	}{Email: strings.TrimSpace(email)}
	if err := s.validateInput(input); err != nil {
		return err
	}
	return s.backend.ForgotPassword(ctx, input.Email)
}

// ResetPassword exchanges an emailed reset token for a fresh session.
func (s *Store) ResetPassword(ctx context.Context, resetToken string, reset api.PasswordReset) (*types.Identity, error) {
	if strings.TrimSpace(resetToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if err := s.validateInput(reset); err != nil {
		return nil, err
	}
	result, err := s.backend.ResetPassword(ctx, resetToken, reset)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, result), nil
}

func (s *Store) adopt(ctx context.Context, result *api.AuthResult) *types.Identity {
	identity := result.Identity
	s.mu.Lock()
	s.identity = &identity
	s.token = result.Token
	s.mu.Unlock()

	if err := s.storage.Set(ctx, tokenKey(), result.Token); err != nil {
		s.logger.Error(ctx, "persist session token", err)
	}
	s.persistIdentity(ctx, &identity)

	s.notify(Event{Type: EventLogin, Identity: &identity})
	return &identity
}

func (s *Store) clear(ctx context.Context, notifySubs bool) {
	s.mu.Lock()
	wasAuthenticated := s.identity != nil
	s.identity = nil
	s.token = ""
	s.mu.Unlock()

	_ = s.storage.Delete(ctx, tokenKey())
	_ = s.storage.Delete(ctx, identityKey())

	if notifySubs && wasAuthenticated {
		s.notify(Event{Type: EventLogout})
	}
}

func (s *Store) notify(event Event) {
	s.mu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(event)
	}
}

func (s *Store) persistIdentity(ctx context.Context, identity *types.Identity) {
	encoded, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := s.storage.Set(ctx, identityKey(), string(encoded)); err != nil {
		s.logger.Error(ctx, "persist identity snapshot", err)
	}
}

func (s *Store) cachedIdentity(ctx context.Context) *types.Identity {
	raw, err := s.storage.Get(ctx, identityKey())
	if err != nil {
		return nil
	}
	var identity types.Identity
	if json.Unmarshal([]byte(raw), &identity) != nil {
		return nil
	}
	return &identity
}

func (s *Store) validateInput(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		details := make(map[string]string, len(fieldErrors))
		for _, fe := range fieldErrors {
			details[fe.Field()] = fe.Tag()
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid input").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid input")
}

// tokenExpired reports whether the bearer parses as a JWT with a past expiry.
// The second return is false for opaque tokens or tokens without exp.
func tokenExpired(token string, now time.Time) (bool, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Before(now), true
}

func tokenKey() string {
	return storage.Key("session", "token")
}

func identityKey() string {
	return storage.Key("session", "identity")
}
