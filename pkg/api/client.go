// Package api is the typed boundary to the remote storefront backend. Every
// endpoint speaks the {status, data, message, token?} envelope; this client
// decodes it once and maps failures onto the shared error codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lenshaus/storefront-core/pkg/config"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/metrics"
	"github.com/lenshaus/storefront-core/pkg/types"
)

var (
	errBaseURLRequired = errors.New("api base url is required")
	errLoggerRequired  = errors.New("api logger is required")
)

// TokenSource supplies the current bearer credential, empty when anonymous.
type TokenSource interface {
	Token() string
}

// Client wraps the storefront REST backend with centralized auth, logging,
// metrics, and error mapping.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	logger         *logger.Logger
	metrics        *metrics.APIMetrics
	tokens         TokenSource
	onUnauthorized func()
}

// Params groups the dependencies for NewClient.
type Params struct {
	Config  config.APIConfig
	Logger  *logger.Logger
	Metrics *metrics.APIMetrics
	Tokens  TokenSource
	// OnUnauthorized runs whenever the backend rejects the bearer token.
	// The session store hooks its implicit-logout transition here.
	OnUnauthorized func()
}

// NewClient validates the configuration and builds the API wrapper.
func NewClient(params Params) (*Client, error) {
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimSpace(params.Config.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}

	timeout := params.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:        parsed,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         params.Logger,
		metrics:        params.Metrics,
		tokens:         params.Tokens,
		onUnauthorized: params.OnUnauthorized,
	}, nil
}

// do executes one request/response cycle and returns the decoded envelope.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*types.Envelope, error) {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = bytes.NewReader(encoded)
	}

	target := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(op, string(pkgerrors.CodeNetwork))
		c.logger.Error(c.logger.WithOperation(ctx, op), "api request failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("%s request failed", op))
	}
	defer resp.Body.Close()

	envelope := &types.Envelope{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncFailure(op, string(pkgerrors.CodeNetwork))
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("%s read response", op))
	}
	if len(raw) > 0 {
		// Tolerate empty or non-JSON bodies on error statuses.
		_ = json.Unmarshal(raw, envelope)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		c.metrics.IncFailure(op, string(pkgerrors.CodeAuth))
		return nil, pkgerrors.New(pkgerrors.CodeAuth, failureMessage(envelope, "credentials rejected"))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		code := codeForStatus(resp.StatusCode)
		c.metrics.IncFailure(op, string(code))
		return nil, pkgerrors.New(code, failureMessage(envelope, fmt.Sprintf("%s failed with status %d", op, resp.StatusCode)))
	}

	c.metrics.IncSuccess(op)
	return envelope, nil
}

// decode unmarshals the envelope's data field into out when out is non-nil.
func decode(envelope *types.Envelope, out any) error {
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response data")
	}
	return nil
}

func failureMessage(envelope *types.Envelope, fallback string) string {
	if envelope != nil && strings.TrimSpace(envelope.Message) != "" {
		return envelope.Message
	}
	return fallback
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusForbidden:
		return pkgerrors.CodeAuth
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
