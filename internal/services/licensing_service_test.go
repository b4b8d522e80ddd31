// internal/services/licensing_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/registry"
	"github.com/javajoker/imi-licensing/internal/utils"
)

var errStoreDown = errors.New("store down")

// flakyStore fails the next Commit and/or Load when told to.
type flakyStore struct {
	*MemoryStore
	failCommit bool
	failLoad   bool
}

func (f *flakyStore) Commit(ctx context.Context, cs Changeset) error {
	if f.failCommit {
		f.failCommit = false
		return errStoreDown
	}
	return f.MemoryStore.Commit(ctx, cs)
}

func (f *flakyStore) Load(ctx context.Context) (*StoredState, error) {
	if f.failLoad {
		return nil, errStoreDown
	}
	return f.MemoryStore.Load(ctx)
}

type LicensingServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *flakyStore
	service *LicensingService
	logs    *test.Hook
}

func (s *LicensingServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &flakyStore{MemoryStore: NewMemoryStore()}
	s.service = s.newService()
}

func (s *LicensingServiceTestSuite) newService() *LicensingService {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s.logs = hook

	svc, err := NewLicensingService(s.ctx, LicensingServiceConfig{
		Registry:    registry.NewStatic([]uint64{1}, []uint64{1}, []licensing.Principal{"creator"}),
		Store:       s.store,
		Owner:       "treasury",
		PlatformFee: 100,
		Logger:      logger,
	})
	s.Require().NoError(err)
	return svc
}

func call(caller licensing.Principal, height uint64) licensing.CallContext {
	return licensing.CallContext{Caller: caller, BlockHeight: height}
}

func terms() licensing.Terms {
	return licensing.Terms{ContentID: 1, TemplateID: 1, RoyaltyRate: 500, Duration: 1000, Price: 1000, MaxTransfers: 5}
}

func (s *LicensingServiceTestSuite) issue() (uint64, uint64) {
	aid, err := s.service.CreateAgreement(s.ctx, call("creator", 10), terms())
	s.Require().NoError(err)
	lid, err := s.service.IssueLicense(s.ctx, call("creator", 20), aid, "licensee")
	s.Require().NoError(err)
	return aid, lid
}

func (s *LicensingServiceTestSuite) TestIssueCommitsStateIntentsAndReceipts() {
	aid, lid := s.issue()
	s.Equal(uint64(1), aid)
	s.Equal(uint64(1), lid)

	stored, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(uint64(1), stored.Snapshot.Settings.LastLicenseID)
	s.Require().NotNil(stored.Snapshot.Agreements[aid].Licensee)
	s.Equal(licensing.Principal("licensee"), *stored.Snapshot.Agreements[aid].Licensee)
	s.Equal(uint64(20), stored.Snapshot.Licenses[lid].IssuedAt)

	pending, err := s.store.PendingIntents(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(licensing.NewEscrowDeposit(aid, "licensee", 1000), pending[0].Intent())
	s.Equal(licensing.NewFeeTransfer(100, "licensee", "treasury"), pending[1].Intent())
	s.Equal(uint64(2), pending[0].ReceiptSequence)

	receipts := s.store.Receipts()
	s.Require().Len(receipts, 2)
	s.Equal(OpCreateAgreement, receipts[0].Operation)
	s.Equal(OpIssueLicense, receipts[1].Operation)
	s.NoError(VerifyReceipts(0, "", receipts))

	seq, head := s.service.ReceiptHead()
	s.Equal(uint64(2), seq)
	s.Equal(receipts[1].Hash, head)
}

func (s *LicensingServiceTestSuite) TestRejectionCommitsNothing() {
	_, err := s.service.CreateAgreement(s.ctx, call("stranger", 10), terms())
	s.ErrorIs(err, licensing.ErrUnauthorized)

	code, ok := licensing.CodeOf(err)
	s.True(ok)
	s.Equal(licensing.CodeUnauthorized, code)

	stored, err := s.store.Load(s.ctx)
	s.NoError(err)
	s.Nil(stored)
	s.Empty(s.store.Receipts())
}

func (s *LicensingServiceTestSuite) TestTransferPersistsCount() {
	_, lid := s.issue()

	s.Require().NoError(s.service.TransferLicense(s.ctx, call("licensee", 30), lid, "buyer"))

	stored, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(licensing.Principal("buyer"), stored.Snapshot.Licenses[lid].Owner)
	s.Equal(uint64(1), stored.Snapshot.Licenses[lid].TransferCount)

	pending, _ := s.store.PendingIntents(s.ctx, 0)
	s.Len(pending, 2, "transfers emit no intents")

	err = s.service.TransferLicense(s.ctx, call("licensee", 31), lid, "other")
	s.ErrorIs(err, licensing.ErrTransferNotAllowed)
	s.ErrorIs(err, licensing.ErrNotLicenseOwner)
}

func (s *LicensingServiceTestSuite) TestCommitFailureRollsBack() {
	s.store.failCommit = true

	_, err := s.service.CreateAgreement(s.ctx, call("creator", 10), terms())
	s.Require().Error(err)
	s.ErrorIs(err, errStoreDown)
	_, isContract := licensing.KindOf(err)
	s.False(isContract)

	_, found, err := s.service.AgreementDetails(s.ctx, 1)
	s.NoError(err)
	s.False(found)

	// ids are not burned by the failed commit
	aid, err := s.service.CreateAgreement(s.ctx, call("creator", 11), terms())
	s.NoError(err)
	s.Equal(uint64(1), aid)
}

func (s *LicensingServiceTestSuite) TestFailedFeeChangeReverts() {
	s.issue()
	s.store.failCommit = true

	err := s.service.SetPlatformFee(s.ctx, call("treasury", 40), 999)
	s.Require().Error(err)

	settings, err := s.service.Settings(s.ctx)
	s.NoError(err)
	s.Equal(uint64(100), settings.PlatformFee)
}

func (s *LicensingServiceTestSuite) TestStateUnavailableUntilReload() {
	s.store.failCommit = true
	s.store.failLoad = true

	_, err := s.service.CreateAgreement(s.ctx, call("creator", 10), terms())
	s.Require().Error(err)

	_, _, err = s.service.LicenseDetails(s.ctx, 1)
	s.ErrorIs(err, ErrStateUnavailable)

	s.store.failLoad = false
	_, found, err := s.service.LicenseDetails(s.ctx, 1)
	s.NoError(err)
	s.False(found)
}

func (s *LicensingServiceTestSuite) TestRestartResumesFromStore() {
	aid, _ := s.issue()
	s.Require().NoError(s.service.SetRoyaltyRecipient(s.ctx, call("creator", 25), aid, "cowriter", 300))

	restarted := s.newService()

	a, found, err := restarted.AgreementDetails(s.ctx, aid)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(licensing.Principal("creator"), a.Creator)

	r, found, err := restarted.RoyaltyRecipient(s.ctx, aid, "cowriter")
	s.NoError(err)
	s.True(found)
	s.Equal(uint64(300), r.Share)

	seq, _ := restarted.ReceiptHead()
	s.Equal(uint64(3), seq)

	next, err := restarted.CreateAgreement(s.ctx, call("creator", 50), terms())
	s.NoError(err)
	s.Equal(uint64(2), next)
	s.NoError(VerifyReceipts(0, "", s.store.Receipts()))
}

func (s *LicensingServiceTestSuite) TestVerifyLicense() {
	aid, lid := s.issue()

	v, err := s.service.VerifyLicense(s.ctx, call("anyone", 500), lid)
	s.Require().NoError(err)
	s.Equal(licensing.Principal("licensee"), v.Owner)
	s.Equal(uint64(1000), v.Agreement.Price)

	_, err = s.service.VerifyLicense(s.ctx, call("anyone", 1011), lid)
	s.ErrorIs(err, licensing.ErrExpired)

	_, err = s.service.VerifyLicense(s.ctx, call("anyone", 500), 99)
	s.ErrorIs(err, licensing.ErrNotFound)
	_ = aid
}

func (s *LicensingServiceTestSuite) TestCommittedOperationsAreLogged() {
	s.issue()

	var committed int
	for _, entry := range s.logs.AllEntries() {
		if entry.Message == "Contract operation committed" {
			committed++
		}
	}
	s.Equal(2, committed)
}

func TestLicensingServiceSuite(t *testing.T) {
	suite.Run(t, new(LicensingServiceTestSuite))
}

func TestNewLicensingServiceRequiresRegistry(t *testing.T) {
	_, err := NewLicensingService(context.Background(), LicensingServiceConfig{})
	assert.Error(t, err)
}

func TestNewLicensingServiceRejectsCorruptState(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Commit(context.Background(), Changeset{
		Settings: licensing.Settings{PlatformFee: 1, LastAgreementID: 0},
		Agreements: map[uint64]licensing.Agreement{
			7: {Creator: "c", Price: 1, Status: licensing.StatusActive},
		},
	}))

	_, err := NewLicensingService(context.Background(), LicensingServiceConfig{
		Registry: registry.AllowAll(),
		Store:    store,
	})
	assert.Error(t, err)
}

func TestMemoryStoreIntentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Commit(ctx, Changeset{
		Intents: []licensing.Intent{
			licensing.NewEscrowDeposit(1, "l", 10),
			licensing.NewFeeTransfer(1, "l", "o"),
		},
		Receipt: Receipt{Sequence: 1},
	}))

	pending, err := store.PendingIntents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, string(licensing.IntentEscrowDeposit), pending[0].Kind)

	require.NoError(t, store.MarkIntentSettled(ctx, pending[0].ID, "pi_1"))
	assert.ErrorIs(t, store.MarkIntentFailed(ctx, pending[0].ID, "late"), ErrIntentNotPending)

	rows, total, err := store.ListIntents(ctx, utils.PaginationParams{Page: 1, Limit: 10, Status: string(models.IntentStatusSettled)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "pi_1", rows[0].PaymentReference)
	assert.Equal(t, 1, rows[0].Attempts)

	rows, total, err = store.ListIntents(ctx, utils.PaginationParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, rows)
}
