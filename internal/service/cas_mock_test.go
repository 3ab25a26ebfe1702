package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/charon-sso/charon/internal/adapters/memory"
	"github.com/charon-sso/charon/internal/domain/services"
	"github.com/charon-sso/charon/internal/domain/ticket"
	"github.com/charon-sso/charon/internal/mocks"
	"github.com/charon-sso/charon/internal/testutil"
)

// mockedCentral wires the central service against gomock registries for
// infrastructure failure paths the in-memory adapters cannot produce.
func mockedCentral(t *testing.T, ctrl *gomock.Controller) (*CentralService, *mocks.MockTicketRegistry, *mocks.MockServiceRegistry) {
	t.Helper()

	tickets := mocks.NewMockTicketRegistry(ctrl)
	registry := mocks.NewMockServiceRegistry(ctrl)
	central, err := NewCentralService(CentralServiceOptions{
		Tickets:  tickets,
		Services: registry,
		Locks:    memory.NoopLockFactory{},
		Clock:    testutil.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return central, tickets, registry
}

func TestCreateGrantingTicketPersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	central, tickets, _ := mockedCentral(t, ctrl)

	tickets.EXPECT().AddTicket(gomock.Any(), gomock.Any()).Return(errors.New("redis: connection refused"))

	result := testutil.AuthResult(testutil.Authentication("alice", time.Now()))
	_, err := central.CreateTicketGrantingTicket(context.Background(), result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting granting ticket")
}

func TestGrantServiceTicketLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	central, tickets, registry := mockedCentral(t, ctrl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	gt := ticket.NewGrantingTicket("TGT-1",
		testutil.Authentication("alice", now), ticket.NeverExpiresPolicy(), now)
	tickets.EXPECT().GetTicket(gomock.Any(), "TGT-1", ticket.KindTGT).Return(gt, nil)
	registry.EXPECT().FindServiceBy(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("pg: connection reset"))

	_, err := central.GrantServiceTicket(context.Background(), "TGT-1",
		services.NewService("https://app.example.org"), testutil.AuthResult(testutil.Authentication("alice", now)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "looking up service")
}

func TestGrantCompensatesWhenGrantingUpdateFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	central, tickets, registry := mockedCentral(t, ctrl)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	gt := ticket.NewGrantingTicket("TGT-1",
		testutil.Authentication("alice", now), ticket.NeverExpiresPolicy(), now)
	tickets.EXPECT().GetTicket(gomock.Any(), "TGT-1", ticket.KindTGT).Return(gt, nil)
	registry.EXPECT().FindServiceBy(gomock.Any(), gomock.Any()).
		Return(testutil.RegisteredService(1, "https://app.example.org"), nil)

	var stID string
	tickets.EXPECT().AddTicket(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, st ticket.Ticket) error {
			stID = st.TicketID()
			return nil
		})
	tickets.EXPECT().UpdateTicket(gomock.Any(), gomock.Any()).
		Return(errors.New("redis: connection refused"))
	// The freshly stored service ticket is rolled back.
	tickets.EXPECT().DeleteTicket(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (int, error) {
			assert.Equal(t, stID, id)
			return 1, nil
		})

	_, err := central.GrantServiceTicket(context.Background(), "TGT-1",
		services.NewService("https://app.example.org"),
		testutil.AuthResult(testutil.Authentication("alice", now)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating granting ticket")
}

func TestDestroyGrantingTicketRegistryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	central, tickets, _ := mockedCentral(t, ctrl)

	tickets.EXPECT().DeleteTicket(gomock.Any(), "TGT-1").
		Return(0, errors.New("redis: connection refused"))

	_, err := central.DestroyTicketGrantingTicket(context.Background(), "TGT-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destroying granting ticket")
}
