// Package mocks provides mock implementations for testing the ticket and
// service registries.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the storage ports. To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for TicketRegistry interface from internal/core package.
// This creates MockTicketRegistry with methods for all TicketRegistry
// interface methods: AddTicket, GetTicket, UpdateTicket, DeleteTicket,
// DeleteAll, GetTickets
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ticket_registry_mock.go github.com/charon-sso/charon/internal/core TicketRegistry

// Generate mock for ServiceRegistry interface from internal/core package.
// This creates MockServiceRegistry with methods for all ServiceRegistry
// interface methods: FindServiceBy, Save, Delete, List
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=service_registry_mock.go github.com/charon-sso/charon/internal/core ServiceRegistry
