package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/ports"
)

// StaticOTPHandlerName identifies the one-time-password handler.
const StaticOTPHandlerName = "static-otp"

// StaticOTPOptions configures a StaticOTPHandler.
type StaticOTPOptions struct {
	// Tokens maps username to the currently accepted one-time token.
	Tokens map[string]string

	Logger *slog.Logger
}

// StaticOTPHandler verifies one-time-password credentials against a
// configured token map. It doubles as the multifactor provider for the
// "mfa-otp" context: a success through this handler marks that provider
// satisfied.
type StaticOTPHandler struct {
	tokens map[string]string
	logger *slog.Logger
}

var (
	_ ports.AuthenticationHandler = (*StaticOTPHandler)(nil)
	_ ports.MultifactorProvider   = (*StaticOTPHandler)(nil)
)

// NewStaticOTPHandler builds a StaticOTPHandler.
func NewStaticOTPHandler(opts StaticOTPOptions) (*StaticOTPHandler, error) {
	if len(opts.Tokens) == 0 {
		return nil, errors.New("static-otp: at least one token is required")
	}
	h := &StaticOTPHandler{tokens: opts.Tokens, logger: opts.Logger}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "static-otp")
	return h, nil
}

// Name implements ports.AuthenticationHandler.
func (h *StaticOTPHandler) Name() string { return StaticOTPHandlerName }

// Supports implements ports.AuthenticationHandler.
func (h *StaticOTPHandler) Supports(c domainauth.Credential) bool {
	_, ok := c.(*domainauth.OneTimePassword)
	return ok
}

// Authenticate implements ports.AuthenticationHandler.
func (h *StaticOTPHandler) Authenticate(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error) {
	otp, ok := c.(*domainauth.OneTimePassword)
	if !ok {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailurePrevented,
			errors.New("unsupported credential type"))
	}
	expected, ok := h.tokens[otp.Username]
	if !ok {
		h.logger.DebugContext(ctx, "no token registered", "username", otp.Username)
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureAccountNotFound, nil)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(otp.Token)) != 1 {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureBadCredentials, nil)
	}
	return &domainauth.HandlerResult{
		HandlerName: h.Name(),
		Principal:   domainauth.NewPrincipal(otp.Username),
		Metadata:    domainauth.NewCredentialMetadata(c),
	}, nil
}

// ProviderID is the multifactor context id satisfied by this handler.
const ProviderID = "mfa-otp"

// ID implements ports.MultifactorProvider.
func (h *StaticOTPHandler) ID() string { return ProviderID }

// RankingOrder implements ports.MultifactorProvider.
func (h *StaticOTPHandler) RankingOrder() int { return 100 }

// Available implements ports.MultifactorProvider. The static handler has no
// backing service to probe.
func (h *StaticOTPHandler) Available(context.Context, *services.RegisteredService) bool {
	return true
}

// FailureMode implements ports.MultifactorProvider.
func (h *StaticOTPHandler) FailureMode() services.FailureMode {
	return services.FailureModeUndefined
}
