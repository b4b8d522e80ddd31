// internal/services/state_store.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/utils"
)

var ErrIntentNotPending = errors.New("intent is not pending")

// StoredState is what a store hands back on startup.
type StoredState struct {
	Snapshot     licensing.Snapshot
	HeadSequence uint64
	HeadHash     string
}

// Changeset carries everything one successful operation changed. Stores
// apply it atomically.
type Changeset struct {
	Settings   licensing.Settings
	Agreements map[uint64]licensing.Agreement
	Licenses   map[uint64]licensing.License
	Royalties  []licensing.RoyaltyEntry
	Intents    []licensing.Intent
	Receipt    Receipt
}

func newChangeset() Changeset {
	return Changeset{
		Agreements: make(map[uint64]licensing.Agreement),
		Licenses:   make(map[uint64]licensing.License),
	}
}

// StateStore persists contract state. Load returns (nil, nil) when nothing
// has been stored yet.
type StateStore interface {
	Load(ctx context.Context) (*StoredState, error)
	Commit(ctx context.Context, cs Changeset) error
}

// IntentOutbox is the queue of emitted intents awaiting custody.
type IntentOutbox interface {
	PendingIntents(ctx context.Context, limit int) ([]models.ValueIntent, error)
	MarkIntentSettled(ctx context.Context, id uuid.UUID, reference string) error
	MarkIntentFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListIntents(ctx context.Context, params utils.PaginationParams) ([]models.ValueIntent, int64, error)
}
