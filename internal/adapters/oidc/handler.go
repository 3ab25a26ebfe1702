// Package oidc implements delegated authentication against an upstream
// OpenID Connect identity provider: the protocol layer redirects the browser
// out via BeginURL and hands the returned ID token to the handler as a
// DelegatedIDToken credential.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/ports"
)

// HandlerName identifies the delegated OIDC handler.
const HandlerName = "oidc-delegated"

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	// DiscoveryURL is the issuer URL or its discovery document URL.
	DiscoveryURL string

	// PrincipalClaim selects the claim used as principal id, defaulting to
	// the token subject.
	PrincipalClaim string

	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
	Logger     *slog.Logger
}

// Handler verifies delegated ID tokens and resolves the upstream claims into
// principal attributes.
type Handler struct {
	config         *oauth2.Config
	verifier       *gooidc.IDTokenVerifier
	principalClaim string
	logger         *slog.Logger
}

var _ ports.AuthenticationHandler = (*Handler)(nil)

// NewHandler performs OIDC discovery and builds a Handler.
func NewHandler(ctx context.Context, opts HandlerOptions) (*Handler, error) {
	if opts.ClientID == "" {
		return nil, errors.New("oidc: client ID is required")
	}
	if opts.DiscoveryURL == "" {
		return nil, errors.New("oidc: discovery URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Single discovery fetch initializes both the verifier and the OAuth2
	// endpoints.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(opts.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Handler{
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       strings.Fields(opts.Scope),
			Endpoint:     provider.Endpoint(),
		},
		verifier:       provider.Verifier(&gooidc.Config{ClientID: opts.ClientID}),
		principalClaim: opts.PrincipalClaim,
		logger:         logger.With("component", "oidc-delegated"),
	}, nil
}

// BeginURL builds the upstream authorization URL plus the state and nonce the
// protocol layer must bind to the login request.
func (h *Handler) BeginURL() (authURL, state, nonce string, err error) {
	state, err = randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err = randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL = h.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems an authorization code for the raw ID token, ready to be
// presented as a DelegatedIDToken credential.
func (h *Handler) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("oidc: authorization code is required")
	}
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oidc code exchange: %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("oidc: token response carried no id_token")
	}
	return raw, nil
}

// Name implements ports.AuthenticationHandler.
func (h *Handler) Name() string { return HandlerName }

// Supports implements ports.AuthenticationHandler.
func (h *Handler) Supports(c domainauth.Credential) bool {
	_, ok := c.(*domainauth.DelegatedIDToken)
	return ok
}

// Authenticate implements ports.AuthenticationHandler. It verifies the raw
// ID token signature, issuer, audience and nonce, then lifts all claims into
// principal attributes.
func (h *Handler) Authenticate(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error) {
	cred, ok := c.(*domainauth.DelegatedIDToken)
	if !ok {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailurePrevented,
			errors.New("unsupported credential type"))
	}

	idToken, err := h.verifier.Verify(ctx, cred.RawToken)
	if err != nil {
		if isContextError(err) {
			return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailurePrevented, err)
		}
		h.logger.InfoContext(ctx, "id token rejected", "error", err)
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureBadCredentials, err)
	}
	if cred.Nonce != "" && idToken.Nonce != cred.Nonce {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureBadCredentials,
			errors.New("nonce mismatch"))
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailurePrevented,
			fmt.Errorf("decoding claims: %w", err))
	}

	principalID := idToken.Subject
	if h.principalClaim != "" {
		if v, ok := claims[h.principalClaim].(string); ok && v != "" {
			principalID = v
		}
	}

	attrs := make(map[string][]any, len(claims))
	for k, v := range claims {
		if vs, ok := v.([]any); ok {
			attrs[k] = vs
			continue
		}
		attrs[k] = []any{v}
	}

	return &domainauth.HandlerResult{
		HandlerName: h.Name(),
		Principal:   domainauth.Principal{ID: principalID, Attributes: attrs},
		Metadata:    domainauth.NewCredentialMetadata(c),
	}, nil
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
