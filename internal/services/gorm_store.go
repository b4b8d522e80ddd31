// internal/services/gorm_store.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/imi-licensing/internal/database"
	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/utils"
)

// GormStore persists contract state and the intent outbox in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context) (*StoredState, error) {
	db := s.db.WithContext(ctx)

	var settings models.ContractSettings
	if err := db.First(&settings, models.ContractSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load contract settings: %w", err)
	}

	var agreements []models.AgreementRecord
	if err := db.Order("id").Find(&agreements).Error; err != nil {
		return nil, fmt.Errorf("failed to load agreements: %w", err)
	}

	var licenses []models.LicenseRecord
	if err := db.Order("id").Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to load licenses: %w", err)
	}

	var royalties []models.RoyaltyRecipientRecord
	if err := db.Order("agreement_id, recipient").Find(&royalties).Error; err != nil {
		return nil, fmt.Errorf("failed to load royalty recipients: %w", err)
	}

	out := &StoredState{
		Snapshot: licensing.Snapshot{
			Settings:   settings.Settings(),
			Agreements: make(map[uint64]licensing.Agreement, len(agreements)),
			Licenses:   make(map[uint64]licensing.License, len(licenses)),
			Royalties:  make([]licensing.RoyaltyEntry, 0, len(royalties)),
		},
	}
	for _, rec := range agreements {
		out.Snapshot.Agreements[rec.ID] = rec.Agreement()
	}
	for _, rec := range licenses {
		out.Snapshot.Licenses[rec.ID] = rec.License()
	}
	for _, rec := range royalties {
		out.Snapshot.Royalties = append(out.Snapshot.Royalties, licensing.RoyaltyEntry{
			AgreementID: rec.AgreementID,
			Recipient:   licensing.Principal(rec.Recipient),
			Share:       rec.Share,
		})
	}

	var head models.OperationReceipt
	err := db.Order("sequence DESC").First(&head).Error
	switch {
	case err == nil:
		if err := VerifyReceipts(head.Sequence-1, head.PrevHash, []Receipt{receiptFromModel(head)}); err != nil {
			return nil, fmt.Errorf("stored receipt head is invalid: %w", err)
		}
		out.HeadSequence = head.Sequence
		out.HeadHash = head.Hash
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load receipt head: %w", err)
	}

	return out, nil
}

func (s *GormStore) Commit(ctx context.Context, cs Changeset) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		settings := models.ContractSettings{
			ID:              models.ContractSettingsID,
			PlatformFee:     cs.Settings.PlatformFee,
			LastAgreementID: cs.Settings.LastAgreementID,
			LastLicenseID:   cs.Settings.LastLicenseID,
		}
		if err := upsert(tx, &settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}

		for id, a := range cs.Agreements {
			rec := models.NewAgreementRecord(id, a)
			if err := upsert(tx, &rec); err != nil {
				return fmt.Errorf("failed to save agreement %d: %w", id, err)
			}
		}

		for id, l := range cs.Licenses {
			rec := models.NewLicenseRecord(id, l)
			if err := upsert(tx, &rec); err != nil {
				return fmt.Errorf("failed to save license %d: %w", id, err)
			}
		}

		for _, r := range cs.Royalties {
			rec := models.RoyaltyRecipientRecord{
				AgreementID: r.AgreementID,
				Recipient:   string(r.Recipient),
				Share:       r.Share,
			}
			if err := upsert(tx, &rec); err != nil {
				return fmt.Errorf("failed to save royalty recipient: %w", err)
			}
		}

		if len(cs.Intents) > 0 {
			rows := make([]models.ValueIntent, 0, len(cs.Intents))
			for i, intent := range cs.Intents {
				rows = append(rows, models.NewValueIntent(cs.Receipt.Sequence, i, intent))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to enqueue intents: %w", err)
			}
		}

		if cs.Receipt.Sequence != 0 {
			receipt := receiptModel(cs.Receipt)
			if err := tx.Create(&receipt).Error; err != nil {
				return fmt.Errorf("failed to save receipt: %w", err)
			}
		}

		return nil
	})
}

func upsert(tx *gorm.DB, value interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func receiptModel(r Receipt) models.OperationReceipt {
	return models.OperationReceipt{
		Sequence:    r.Sequence,
		Operation:   r.Operation,
		Caller:      string(r.Caller),
		BlockHeight: r.BlockHeight,
		Payload:     string(r.Payload),
		PrevHash:    r.PrevHash,
		Hash:        r.Hash,
	}
}

func receiptFromModel(m models.OperationReceipt) Receipt {
	return Receipt{
		Sequence:    m.Sequence,
		Operation:   m.Operation,
		Caller:      licensing.Principal(m.Caller),
		BlockHeight: m.BlockHeight,
		Payload:     json.RawMessage(m.Payload),
		PrevHash:    m.PrevHash,
		Hash:        m.Hash,
	}
}

func (s *GormStore) PendingIntents(ctx context.Context, limit int) ([]models.ValueIntent, error) {
	var rows []models.ValueIntent
	query := s.db.WithContext(ctx).
		Where("status = ?", models.IntentStatusPending).
		Order("receipt_sequence, position")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending intents: %w", err)
	}
	return rows, nil
}

func (s *GormStore) MarkIntentSettled(ctx context.Context, id uuid.UUID, reference string) error {
	now := time.Now()
	return s.updatePending(ctx, id, map[string]interface{}{
		"status":            models.IntentStatusSettled,
		"payment_reference": reference,
		"settled_at":        &now,
		"attempts":          gorm.Expr("attempts + 1"),
	})
}

func (s *GormStore) MarkIntentFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.updatePending(ctx, id, map[string]interface{}{
		"status":         models.IntentStatusFailed,
		"failure_reason": reason,
		"attempts":       gorm.Expr("attempts + 1"),
	})
}

func (s *GormStore) updatePending(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(&models.ValueIntent{}).
		Where("id = ? AND status = ?", id, models.IntentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update intent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIntentNotPending
	}
	return nil
}

func (s *GormStore) ListIntents(ctx context.Context, params utils.PaginationParams) ([]models.ValueIntent, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ValueIntent{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count intents: %w", err)
	}

	var rows []models.ValueIntent
	query = utils.ApplySort(query, params, []string{"receipt_sequence", "created_at", "amount", "status"})
	query = utils.ApplyPagination(query.Order("position"), params)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list intents: %w", err)
	}
	return rows, total, nil
}

var (
	_ StateStore   = (*GormStore)(nil)
	_ IntentOutbox = (*GormStore)(nil)
)
