// internal/services/custody_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/utils"
)

type fakeGateway struct {
	calls []models.ValueIntent
	fail  map[string]error
}

func (g *fakeGateway) Execute(ctx context.Context, intent models.ValueIntent) (string, error) {
	g.calls = append(g.calls, intent)
	if err, ok := g.fail[intent.Kind]; ok {
		return "", err
	}
	return "ref_" + intent.Kind, nil
}

func seededOutbox(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Commit(context.Background(), Changeset{
		Intents: []licensing.Intent{
			licensing.NewEscrowDeposit(1, "licensee", 1000),
			licensing.NewFeeTransfer(100, "licensee", "treasury"),
		},
		Receipt: Receipt{Sequence: 2},
	}))
	return store
}

func TestSettlePending(t *testing.T) {
	store := seededOutbox(t)
	gateway := &fakeGateway{}
	logger, _ := test.NewNullLogger()
	custody := NewCustodyService(store, gateway, 10, nil, logger)

	result, err := custody.SettlePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SettlementResult{Settled: 2}, result)

	require.Len(t, gateway.calls, 2)
	assert.Equal(t, string(licensing.IntentEscrowDeposit), gateway.calls[0].Kind)
	assert.Equal(t, string(licensing.IntentFeeTransfer), gateway.calls[1].Kind)

	pending, err := store.PendingIntents(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// nothing left to do
	result, err = custody.SettlePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SettlementResult{}, result)
}

func TestSettlePendingMarksGatewayFailures(t *testing.T) {
	store := seededOutbox(t)
	gateway := &fakeGateway{fail: map[string]error{
		string(licensing.IntentFeeTransfer): errors.New("card declined"),
	}}
	logger, hook := test.NewNullLogger()
	custody := NewCustodyService(store, gateway, 10, nil, logger)

	result, err := custody.SettlePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SettlementResult{Settled: 1, Failed: 1}, result)

	failed, _, err := store.ListIntents(context.Background(), utils.PaginationParams{Page: 1, Limit: 10, Status: string(models.IntentStatusFailed)})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "card declined", failed[0].FailureReason)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestSettlePendingRespectsBatchSize(t *testing.T) {
	store := seededOutbox(t)
	gateway := &fakeGateway{}
	logger, _ := test.NewNullLogger()
	custody := NewCustodyService(store, gateway, 1, nil, logger)

	result, err := custody.SettlePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Settled)

	pending, _ := store.PendingIntents(context.Background(), 0)
	assert.Len(t, pending, 1)
}

func TestSettlePendingStopsOnCancel(t *testing.T) {
	store := seededOutbox(t)
	logger, _ := test.NewNullLogger()
	custody := NewCustodyService(store, &fakeGateway{}, 10, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := custody.SettlePending(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoggingGateway(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ref, err := LoggingGateway{Logger: logger}.Execute(context.Background(), models.ValueIntent{Kind: "fee_transfer"})
	require.NoError(t, err)
	assert.Contains(t, ref, "noop_")
	assert.Len(t, hook.AllEntries(), 1)
}

func TestSettlePendingZeroAmountSkipsGateway(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Commit(context.Background(), Changeset{
		Intents: []licensing.Intent{
			licensing.NewEscrowDeposit(1, "licensee", 1000),
			licensing.NewFeeTransfer(0, "licensee", "treasury"),
		},
		Receipt: Receipt{Sequence: 2},
	}))
	gateway := &fakeGateway{}
	logger, _ := test.NewNullLogger()
	custody := NewCustodyService(store, gateway, 10, nil, logger)

	result, err := custody.SettlePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SettlementResult{Settled: 2}, result)

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, string(licensing.IntentEscrowDeposit), gateway.calls[0].Kind)

	settled, _, err := store.ListIntents(context.Background(), utils.PaginationParams{
		Page: 1, Limit: 10, Order: "asc", Status: string(models.IntentStatusSettled),
	})
	require.NoError(t, err)
	require.Len(t, settled, 2)
	assert.Equal(t, "zero_"+settled[1].ID.String(), settled[1].PaymentReference)
}
