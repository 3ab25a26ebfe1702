package service

import (
	"context"
	"log/slog"

	"github.com/charon-sso/charon/internal/core"
	domainauth "github.com/charon-sso/charon/internal/domain/auth"
	"github.com/charon-sso/charon/internal/ports"
)

// allHandlersResolver is the default resolver: every registered handler is a
// candidate for every transaction.
type allHandlersResolver struct{}

func (allHandlersResolver) Resolve(
	_ context.Context,
	candidates []ports.HandlerEntry,
	_ domainauth.Transaction,
) ([]ports.HandlerEntry, error) {
	return candidates, nil
}

// RegisteredServiceHandlerResolver narrows the handler set to a registered
// service's required handlers and fails fast, before any handler runs, when
// the target service is unknown or disabled.
type RegisteredServiceHandlerResolver struct {
	Services core.ServiceRegistry
	Logger   *slog.Logger
}

// Resolve implements ports.HandlerResolver.
func (r *RegisteredServiceHandlerResolver) Resolve(
	ctx context.Context,
	candidates []ports.HandlerEntry,
	tx domainauth.Transaction,
) ([]ports.HandlerEntry, error) {
	if tx.Service == nil {
		return candidates, nil
	}

	rs, err := r.Services.FindServiceBy(ctx, *tx.Service)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, &UnauthorizedServiceError{ServiceID: tx.Service.ID, Reason: "service is not registered"}
	}
	if !rs.Enabled {
		return nil, &UnauthorizedServiceError{ServiceID: tx.Service.ID, Reason: "service is disabled"}
	}
	if len(rs.RequiredHandlers) == 0 {
		return candidates, nil
	}

	required := make(map[string]bool, len(rs.RequiredHandlers))
	for _, name := range rs.RequiredHandlers {
		required[name] = true
	}
	narrowed := make([]ports.HandlerEntry, 0, len(rs.RequiredHandlers))
	for _, entry := range candidates {
		if required[entry.Handler.Name()] {
			narrowed = append(narrowed, entry)
		}
	}
	if r.Logger != nil {
		r.Logger.DebugContext(ctx, "narrowed handlers for service",
			"service", tx.Service.ID,
			"required", rs.RequiredHandlers,
			"candidates", len(candidates),
			"narrowed", len(narrowed),
		)
	}
	return narrowed, nil
}
