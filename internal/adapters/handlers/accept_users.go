// Package handlers contains credential-specific authentication handlers and
// principal resolvers. Each handler supports exactly one credential shape and
// reports failures as typed handler errors so the manager can aggregate them.
package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/ports"
)

// AcceptUsersHandlerName identifies the username/password handler.
const AcceptUsersHandlerName = "accept-users"

// AcceptUsersOptions configures an AcceptUsersHandler.
type AcceptUsersOptions struct {
	// Users maps username to expected password.
	Users map[string]string

	// Attributes are per-user principal attributes attached on success.
	Attributes map[string]map[string][]any

	Logger *slog.Logger
}

// AcceptUsersHandler authenticates username/password credentials against a
// configured user map. Intended for small deployments and tests; directory
// integrations supply their own handler.
type AcceptUsersHandler struct {
	users      map[string]string
	attributes map[string]map[string][]any
	logger     *slog.Logger
}

var _ ports.AuthenticationHandler = (*AcceptUsersHandler)(nil)

// NewAcceptUsersHandler builds an AcceptUsersHandler.
func NewAcceptUsersHandler(opts AcceptUsersOptions) (*AcceptUsersHandler, error) {
	if len(opts.Users) == 0 {
		return nil, errors.New("accept-users: at least one user is required")
	}
	h := &AcceptUsersHandler{
		users:      opts.Users,
		attributes: opts.Attributes,
		logger:     opts.Logger,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "accept-users")
	return h, nil
}

// Name implements ports.AuthenticationHandler.
func (h *AcceptUsersHandler) Name() string { return AcceptUsersHandlerName }

// Supports implements ports.AuthenticationHandler.
func (h *AcceptUsersHandler) Supports(c domainauth.Credential) bool {
	_, ok := c.(*domainauth.UsernamePassword)
	return ok
}

// Authenticate implements ports.AuthenticationHandler.
func (h *AcceptUsersHandler) Authenticate(ctx context.Context, c domainauth.Credential) (*domainauth.HandlerResult, error) {
	up, ok := c.(*domainauth.UsernamePassword)
	if !ok {
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailurePrevented,
			errors.New("unsupported credential type"))
	}
	expected, ok := h.users[up.Username]
	if !ok {
		h.logger.DebugContext(ctx, "unknown account", "username", up.Username)
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureAccountNotFound, nil)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(up.Password)) != 1 {
		h.logger.DebugContext(ctx, "password mismatch", "username", up.Username)
		return nil, domainauth.NewHandlerError(h.Name(), domainauth.FailureBadCredentials, nil)
	}
	return &domainauth.HandlerResult{
		HandlerName: h.Name(),
		Principal:   domainauth.NewPrincipalWithAttributes(up.Username, h.attributes[up.Username]),
		Metadata:    domainauth.NewCredentialMetadata(c),
	}, nil
}
