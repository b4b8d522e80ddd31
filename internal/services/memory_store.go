// internal/services/memory_store.go
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/utils"
)

// MemoryStore keeps committed state in process. It is used when no database
// is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	committed bool
	snap      licensing.Snapshot
	royalties map[licensing.RoyaltyKey]uint64
	intents   []models.ValueIntent
	receipts  []Receipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snap: licensing.Snapshot{
			Agreements: make(map[uint64]licensing.Agreement),
			Licenses:   make(map[uint64]licensing.License),
		},
		royalties: make(map[licensing.RoyaltyKey]uint64),
	}
}

func (m *MemoryStore) Load(ctx context.Context) (*StoredState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.committed {
		return nil, nil
	}

	out := &StoredState{Snapshot: m.copySnapshot()}
	if n := len(m.receipts); n > 0 {
		out.HeadSequence = m.receipts[n-1].Sequence
		out.HeadHash = m.receipts[n-1].Hash
	}
	return out, nil
}

func (m *MemoryStore) Commit(ctx context.Context, cs Changeset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.committed = true
	m.snap.Settings = cs.Settings
	for id, a := range cs.Agreements {
		m.snap.Agreements[id] = a
	}
	for id, l := range cs.Licenses {
		m.snap.Licenses[id] = l
	}
	for _, r := range cs.Royalties {
		m.royalties[licensing.RoyaltyKey{AgreementID: r.AgreementID, Recipient: r.Recipient}] = r.Share
	}

	now := time.Now()
	for i, intent := range cs.Intents {
		row := models.NewValueIntent(cs.Receipt.Sequence, i, intent)
		row.ID = uuid.New()
		row.CreatedAt = now
		row.UpdatedAt = now
		m.intents = append(m.intents, row)
	}
	if cs.Receipt.Sequence != 0 {
		m.receipts = append(m.receipts, cs.Receipt)
	}
	return nil
}

func (m *MemoryStore) copySnapshot() licensing.Snapshot {
	snap := licensing.Snapshot{
		Settings:   m.snap.Settings,
		Agreements: make(map[uint64]licensing.Agreement, len(m.snap.Agreements)),
		Licenses:   make(map[uint64]licensing.License, len(m.snap.Licenses)),
		Royalties:  make([]licensing.RoyaltyEntry, 0, len(m.royalties)),
	}
	for id, a := range m.snap.Agreements {
		if a.Licensee != nil {
			licensee := *a.Licensee
			a.Licensee = &licensee
		}
		snap.Agreements[id] = a
	}
	for id, l := range m.snap.Licenses {
		snap.Licenses[id] = l
	}
	for key, share := range m.royalties {
		snap.Royalties = append(snap.Royalties, licensing.RoyaltyEntry{
			AgreementID: key.AgreementID,
			Recipient:   key.Recipient,
			Share:       share,
		})
	}
	return snap
}

// Receipts returns the committed receipts in order.
func (m *MemoryStore) Receipts() []Receipt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Receipt, len(m.receipts))
	copy(out, m.receipts)
	return out
}

func (m *MemoryStore) PendingIntents(ctx context.Context, limit int) ([]models.ValueIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ValueIntent
	for _, row := range m.intents {
		if row.Status != models.IntentStatusPending {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkIntentSettled(ctx context.Context, id uuid.UUID, reference string) error {
	return m.updatePending(id, func(row *models.ValueIntent) {
		now := time.Now()
		row.Status = models.IntentStatusSettled
		row.PaymentReference = reference
		row.SettledAt = &now
	})
}

func (m *MemoryStore) MarkIntentFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.updatePending(id, func(row *models.ValueIntent) {
		row.Status = models.IntentStatusFailed
		row.FailureReason = reason
	})
}

func (m *MemoryStore) updatePending(id uuid.UUID, fn func(*models.ValueIntent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.intents {
		if m.intents[i].ID != id {
			continue
		}
		if m.intents[i].Status != models.IntentStatusPending {
			return ErrIntentNotPending
		}
		m.intents[i].Attempts++
		m.intents[i].UpdatedAt = time.Now()
		fn(&m.intents[i])
		return nil
	}
	return ErrIntentNotPending
}

func (m *MemoryStore) ListIntents(ctx context.Context, params utils.PaginationParams) ([]models.ValueIntent, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []models.ValueIntent
	for _, row := range m.intents {
		if params.Status != "" && string(row.Status) != params.Status {
			continue
		}
		filtered = append(filtered, row)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.ReceiptSequence != b.ReceiptSequence {
			if params.Order == "asc" {
				return a.ReceiptSequence < b.ReceiptSequence
			}
			return a.ReceiptSequence > b.ReceiptSequence
		}
		return a.Position < b.Position
	})

	total := int64(len(filtered))
	start := (params.Page - 1) * params.Limit
	if start < 0 || start >= len(filtered) {
		return []models.ValueIntent{}, total, nil
	}
	end := start + params.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

var (
	_ StateStore   = (*MemoryStore)(nil)
	_ IntentOutbox = (*MemoryStore)(nil)
)
