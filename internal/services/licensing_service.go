// internal/services/licensing_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/metrics"
)

var ErrStateUnavailable = errors.New("contract state is unavailable")

const (
	OpCreateAgreement     = "create_agreement"
	OpIssueLicense        = "issue_license"
	OpTransferLicense     = "transfer_license"
	OpSetRoyaltyRecipient = "set_royalty_recipient"
	OpSetPlatformFee      = "set_platform_fee"
)

// Request types. Term limits are left to the engine so that rejections
// carry contract codes.
type CreateAgreementRequest struct {
	ContentID    uint64 `json:"content_id"`
	TemplateID   uint64 `json:"template_id"`
	RoyaltyRate  uint32 `json:"royalty_rate"`
	Duration     uint64 `json:"duration"`
	Price        uint64 `json:"price"`
	MaxTransfers uint64 `json:"max_transfers"`
}

func (r CreateAgreementRequest) Terms() licensing.Terms {
	return licensing.Terms{
		ContentID:    r.ContentID,
		TemplateID:   r.TemplateID,
		RoyaltyRate:  r.RoyaltyRate,
		Duration:     r.Duration,
		Price:        r.Price,
		MaxTransfers: r.MaxTransfers,
	}
}

type IssueLicenseRequest struct {
	Licensee string `json:"licensee" validate:"required,principal"`
}

type TransferLicenseRequest struct {
	NewOwner string `json:"new_owner" validate:"required,principal"`
}

type SetRoyaltyRecipientRequest struct {
	Share uint64 `json:"share"`
}

type SetPlatformFeeRequest struct {
	Fee uint64 `json:"fee"`
}

// LicensingService serializes contract operations and commits each
// successful one, together with its intents and receipt, to the store.
// When a commit fails the in-memory state is reloaded from the store so the
// two never diverge.
type LicensingService struct {
	mu       sync.Mutex
	engine   *licensing.Engine
	registry licensing.Registry
	owner    licensing.Principal
	fee      uint64
	buffer   *licensing.IntentLog
	store    StateStore
	receipts *ReceiptChain
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	stale    bool
}

type LicensingServiceConfig struct {
	Registry    licensing.Registry
	Store       StateStore
	Owner       licensing.Principal
	PlatformFee uint64
	Metrics     *metrics.Metrics
	Logger      *logrus.Logger
}

// NewLicensingService loads any stored state and returns a ready service.
func NewLicensingService(ctx context.Context, cfg LicensingServiceConfig) (*LicensingService, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Owner == "" {
		cfg.Owner = licensing.DefaultOwner
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	s := &LicensingService{
		registry: cfg.Registry,
		owner:    cfg.Owner,
		fee:      cfg.PlatformFee,
		buffer:   licensing.NewIntentLog(),
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	stored, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract state: %w", err)
	}
	if stored == nil {
		s.install(licensing.NewState(s.fee), 0, "")
		return s, nil
	}
	if err := s.restore(stored); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"agreements":   stored.Snapshot.Settings.LastAgreementID,
		"licenses":     stored.Snapshot.Settings.LastLicenseID,
		"platform_fee": stored.Snapshot.Settings.PlatformFee,
		"receipt_head": stored.HeadSequence,
	}).Info("Contract state loaded")
	return s, nil
}

func (s *LicensingService) install(state *licensing.State, sequence uint64, head string) {
	s.engine = licensing.NewEngine(state, s.registry,
		licensing.WithOwner(s.owner),
		licensing.WithIntentSink(s.buffer),
	)
	s.receipts = NewReceiptChain(sequence, head)
	s.buffer.Drain()
}

func (s *LicensingService) restore(stored *StoredState) error {
	state, err := licensing.Restore(stored.Snapshot)
	if err != nil {
		return fmt.Errorf("stored contract state is invalid: %w", err)
	}
	s.install(state, stored.HeadSequence, stored.HeadHash)
	return nil
}

// reload replaces the in-memory state with the stored one. Callers hold mu.
func (s *LicensingService) reload(ctx context.Context) error {
	stored, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		s.install(licensing.NewState(s.fee), 0, "")
		s.stale = false
		return nil
	}
	if err := s.restore(stored); err != nil {
		return err
	}
	s.stale = false
	return nil
}

// ensureFresh is called with mu held before every operation.
func (s *LicensingService) ensureFresh(ctx context.Context) error {
	if !s.stale {
		return nil
	}
	if err := s.reload(ctx); err != nil {
		s.logger.WithError(err).Error("Contract state reload failed")
		return fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	s.logger.Info("Contract state reloaded from store")
	return nil
}

func (s *LicensingService) Owner() licensing.Principal {
	return s.owner
}

func (s *LicensingService) CreateAgreement(ctx context.Context, cc licensing.CallContext, terms licensing.Terms) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return 0, err
	}

	id, err := s.engine.CreateAgreement(cc, terms)
	if err != nil {
		return 0, s.rejected(OpCreateAgreement, cc, err)
	}

	cs := newChangeset()
	cs.Agreements[id], _ = s.engine.State().Agreement(id)
	payload := map[string]interface{}{"agreement_id": id, "terms": terms}
	if err := s.commit(ctx, OpCreateAgreement, cc, payload, cs); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *LicensingService) IssueLicense(ctx context.Context, cc licensing.CallContext, agreementID uint64, licensee licensing.Principal) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return 0, err
	}

	id, err := s.engine.IssueLicense(cc, agreementID, licensee)
	if err != nil {
		return 0, s.rejected(OpIssueLicense, cc, err)
	}

	cs := newChangeset()
	cs.Agreements[agreementID], _ = s.engine.State().Agreement(agreementID)
	cs.Licenses[id], _ = s.engine.State().License(id)
	payload := map[string]interface{}{"agreement_id": agreementID, "license_id": id, "licensee": licensee}
	if err := s.commit(ctx, OpIssueLicense, cc, payload, cs); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *LicensingService) TransferLicense(ctx context.Context, cc licensing.CallContext, licenseID uint64, newOwner licensing.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := s.engine.TransferLicense(cc, licenseID, newOwner); err != nil {
		return s.rejected(OpTransferLicense, cc, err)
	}

	cs := newChangeset()
	cs.Licenses[licenseID], _ = s.engine.State().License(licenseID)
	payload := map[string]interface{}{"license_id": licenseID, "new_owner": newOwner}
	return s.commit(ctx, OpTransferLicense, cc, payload, cs)
}

func (s *LicensingService) SetRoyaltyRecipient(ctx context.Context, cc licensing.CallContext, agreementID uint64, recipient licensing.Principal, share uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := s.engine.SetRoyaltyRecipient(cc, agreementID, recipient, share); err != nil {
		return s.rejected(OpSetRoyaltyRecipient, cc, err)
	}

	cs := newChangeset()
	cs.Royalties = []licensing.RoyaltyEntry{{AgreementID: agreementID, Recipient: recipient, Share: share}}
	payload := map[string]interface{}{"agreement_id": agreementID, "recipient": recipient, "share": share}
	return s.commit(ctx, OpSetRoyaltyRecipient, cc, payload, cs)
}

func (s *LicensingService) SetPlatformFee(ctx context.Context, cc licensing.CallContext, fee uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return err
	}

	if err := s.engine.SetPlatformFee(cc, fee); err != nil {
		return s.rejected(OpSetPlatformFee, cc, err)
	}

	payload := map[string]interface{}{"fee": fee}
	return s.commit(ctx, OpSetPlatformFee, cc, payload, newChangeset())
}

// Queries

func (s *LicensingService) VerifyLicense(ctx context.Context, cc licensing.CallContext, licenseID uint64) (licensing.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.Verification{}, err
	}
	v, err := s.engine.VerifyLicense(cc, licenseID)
	if err != nil {
		s.observe("verify_license", err)
		return licensing.Verification{}, err
	}
	s.observe("verify_license", nil)
	return v, nil
}

func (s *LicensingService) AgreementDetails(ctx context.Context, agreementID uint64) (licensing.Agreement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.Agreement{}, false, err
	}
	a, ok := s.engine.AgreementDetails(agreementID)
	return a, ok, nil
}

func (s *LicensingService) LicenseDetails(ctx context.Context, licenseID uint64) (licensing.License, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.License{}, false, err
	}
	l, ok := s.engine.LicenseDetails(licenseID)
	return l, ok, nil
}

func (s *LicensingService) RoyaltyRecipient(ctx context.Context, agreementID uint64, recipient licensing.Principal) (licensing.RoyaltyRecipient, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.RoyaltyRecipient{}, false, err
	}
	r, ok := s.engine.RoyaltyRecipient(agreementID, recipient)
	return r, ok, nil
}

func (s *LicensingService) Settings(ctx context.Context) (licensing.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.Settings{}, err
	}
	return s.engine.State().Settings(), nil
}

// Snapshot returns a detached copy of the current state along with the
// receipt head it corresponds to.
func (s *LicensingService) Snapshot(ctx context.Context) (licensing.Snapshot, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return licensing.Snapshot{}, 0, err
	}
	sequence, _ := s.receipts.Head()
	return s.engine.State().Snapshot(), sequence, nil
}

func (s *LicensingService) ReceiptHead() (uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipts.Head()
}

// commit persists a successful operation. Callers hold mu.
func (s *LicensingService) commit(ctx context.Context, op string, cc licensing.CallContext, payload interface{}, cs Changeset) error {
	cs.Intents = s.buffer.Drain()
	cs.Settings = s.engine.State().Settings()

	receipt, err := s.receipts.Next(op, cc, payload)
	if err == nil {
		cs.Receipt = receipt
		err = s.store.Commit(ctx, cs)
	}
	if err != nil {
		s.stale = true
		if reloadErr := s.reload(ctx); reloadErr != nil {
			s.logger.WithError(reloadErr).Error("Contract state reload failed, writes suspended")
		}
		s.observe(op, err)
		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"caller":    cc.Caller,
			"error":     err.Error(),
		}).Error("Failed to commit contract operation")
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}

	if err := s.receipts.Append(receipt); err != nil {
		// The store accepted the receipt, so the chain head is out of date.
		s.stale = true
		s.logger.WithError(err).Error("Receipt chain out of sync with store")
	}

	for _, intent := range cs.Intents {
		s.metrics.ObserveIntent(string(intent.Kind))
	}
	s.observe(op, nil)
	s.logger.WithFields(logrus.Fields{
		"operation":    op,
		"caller":       cc.Caller,
		"block_height": cc.BlockHeight,
		"receipt":      receipt.Sequence,
		"intents":      len(cs.Intents),
	}).Info("Contract operation committed")
	return nil
}

func (s *LicensingService) rejected(op string, cc licensing.CallContext, err error) error {
	// Rejected operations never emit intents; drop anything left over.
	s.buffer.Drain()
	s.observe(op, err)
	s.logger.WithFields(logrus.Fields{
		"operation":    op,
		"caller":       cc.Caller,
		"block_height": cc.BlockHeight,
		"reason":       err.Error(),
	}).Debug("Contract operation rejected")
	return err
}

func (s *LicensingService) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if kind, ok := licensing.KindOf(err); ok {
			outcome = string(kind)
		}
	}
	s.metrics.ObserveOperation(op, outcome)
}
