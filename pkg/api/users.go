package api

import (
	"context"
	"net/http"

	"github.com/lenshaus/storefront-core/pkg/types"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// PasswordReset carries the new password for a reset-token exchange.
type PasswordReset struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// AuthResult is an identity plus the bearer token issued for it.
type AuthResult struct {
	Identity types.Identity
	Token    string
}

type identityPayload struct {
	User types.Identity `json:"user"`
}

// Login exchanges credentials for an identity and bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	envelope, err := c.do(ctx, "login", http.MethodPost, "/users/login", creds)
	if err != nil {
		return nil, err
	}
	var payload identityPayload
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &AuthResult{Identity: payload.User, Token: envelope.Token}, nil
}

// Register creates an account. The backend issues a token on success, so a
// successful registration doubles as a login.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	envelope, err := c.do(ctx, "register", http.MethodPost, "/users/register", reg)
	if err != nil {
		return nil, err
	}
	var payload identityPayload
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &AuthResult{Identity: payload.User, Token: envelope.Token}, nil
}

// Logout tells the backend to discard the session. Best effort only.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, "logout", http.MethodPost, "/users/logout", nil)
	return err
}

// ForgotPassword requests a reset email for the address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	_, err := c.do(ctx, "forgot_password", http.MethodPost, "/users/forgot-password", body)
	return err
}

// ResetPassword exchanges an emailed reset token for a fresh session.
func (c *Client) ResetPassword(ctx context.Context, resetToken string, reset PasswordReset) (*AuthResult, error) {
	envelope, err := c.do(ctx, "reset_password", http.MethodPatch, "/users/resetPassword/"+resetToken, reset)
	if err != nil {
		return nil, err
	}
	var payload identityPayload
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &AuthResult{Identity: payload.User, Token: envelope.Token}, nil
}

// CurrentUser validates the stored token by fetching the identity behind it.
func (c *Client) CurrentUser(ctx context.Context) (*types.Identity, error) {
	envelope, err := c.do(ctx, "current_user", http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var payload identityPayload
	if err := decode(envelope, &payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}
