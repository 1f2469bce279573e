package reconcile_test

//go:generate mockgen -source=../ports/ports.go -destination=../ports/mocks/mocks.go -package=mocks Source,StoreClient,Notifier,Locker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intake/internal/intake/models"
	"intake/internal/intake/ports"
	"intake/internal/intake/ports/mocks"
	"intake/internal/intake/reconcile"
	lockmemory "intake/internal/lock/memory"
	storememory "intake/internal/store/memory"
	pkgerrors "intake/pkg/errors"
)

type ReconcileSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockStoreClient
	locker   *mocks.MockLocker
	service  *reconcile.Service
	released int
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func (s *ReconcileSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStoreClient(s.ctrl)
	s.locker = mocks.NewMockLocker(s.ctrl)
	s.released = 0

	svc, err := reconcile.New(s.store, s.locker,
		reconcile.WithCallTimeout(time.Second),
		reconcile.WithMaxElapsed(2*time.Second),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ReconcileSuite) expectLock() {
	s.locker.EXPECT().
		Acquire(gomock.Any(), "intake:lock:main:EE123456", gomock.Any()).
		Return(func(context.Context) error {
			s.released++
			return nil
		}, nil)
}

func resolved(code string) models.ResolvedRecord {
	return models.ResolvedRecord{
		ValidatedRecord: models.ValidatedRecord{
			CompanyName:      "Acme AS",
			RegistrationCode: code,
			Participants:     []string{},
		},
		Location: "Estonia",
	}
}

func (s *ReconcileSuite) TestCreateWhenNoMatch() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, nil)
	s.store.EXPECT().NextSequence(gomock.Any(), sel).Return(int64(42), nil)
	s.store.EXPECT().Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d models.MatchDecision) (string, error) {
			s.Equal(models.OpCreate, d.Op)
			s.Equal(int64(42), d.Record.SequenceKey)
			s.Empty(d.ExistingID)
			return "store-id-1", nil
		})

	result, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().NoError(err)
	s.Equal(models.OpCreate, result.Op)
	s.Equal("store-id-1", result.StoreID)
	s.Equal(int64(42), result.SequenceKey)
	s.Equal(1, s.released)
}

func (s *ReconcileSuite) TestUpdatePreservesSequenceKey() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").
		Return([]models.Candidate{{ID: "existing", SequenceKey: 7}}, nil)
	s.store.EXPECT().Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d models.MatchDecision) (string, error) {
			s.Equal(models.OpUpdate, d.Op)
			s.Equal("existing", d.ExistingID)
			s.Equal(int64(7), d.Record.SequenceKey)
			return "existing", nil
		})

	result, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().NoError(err)
	s.Equal(models.OpUpdate, result.Op)
	s.Equal(int64(7), result.SequenceKey)
	s.Equal(1, s.released)
}

func (s *ReconcileSuite) TestAmbiguousMatchAborts() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").
		Return([]models.Candidate{{ID: "a", SequenceKey: 1}, {ID: "b", SequenceKey: 2}}, nil)

	_, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().Error(err)
	s.Equal(pkgerrors.CodeAmbiguousMatch, pkgerrors.CodeOf(err))
	s.Equal(1, s.released, "lock released even on abort")
}

func (s *ReconcileSuite) TestTransientFindErrorIsRetried() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	transient := pkgerrors.New(pkgerrors.CodeStoreUnavailable, "connection refused")
	gomock.InOrder(
		s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, transient),
		s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, nil),
	)
	s.store.EXPECT().NextSequence(gomock.Any(), sel).Return(int64(1), nil)
	s.store.EXPECT().Commit(gomock.Any(), gomock.Any()).Return("id", nil)

	result, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().NoError(err)
	s.Equal(models.OpCreate, result.Op)
}

func (s *ReconcileSuite) TestPermanentStoreErrorIsNotRetried() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	permanent := pkgerrors.New(pkgerrors.CodeStore, "constraint violation")
	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, permanent).Times(1)

	_, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().Error(err)
	s.Equal(pkgerrors.CodeStore, pkgerrors.CodeOf(err))
}

func (s *ReconcileSuite) TestSequenceKeyConsumedWhenCommitFails() {
	ctx := context.Background()
	sel := models.Selector("main")
	s.expectLock()

	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, nil)
	s.store.EXPECT().NextSequence(gomock.Any(), sel).Return(int64(9), nil).Times(1)
	s.store.EXPECT().Commit(gomock.Any(), gomock.Any()).
		Return("", pkgerrors.New(pkgerrors.CodeStore, "insert failed"))

	_, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().Error(err)
	// no compensating call: the allocated key stays consumed
	s.Equal(1, s.released)
}

func (s *ReconcileSuite) TestLockAcquisitionFailure() {
	ctx := context.Background()

	s.locker.EXPECT().
		Acquire(gomock.Any(), "intake:lock:main:EE123456", gomock.Any()).
		Return(nil, errors.New("lock backend down"))

	_, err := s.service.Reconcile(ctx, models.Selector("main"), resolved("EE123456"))
	s.Require().Error(err)
	s.Equal(pkgerrors.CodeStoreUnavailable, pkgerrors.CodeOf(err))
}

// slowCommitStore stalls Commit long enough for a short lease to expire.
type slowCommitStore struct {
	ports.StoreClient
	delay time.Duration
}

func (s slowCommitStore) Commit(ctx context.Context, d models.MatchDecision) (string, error) {
	time.Sleep(s.delay)
	return s.StoreClient.Commit(ctx, d)
}

func TestExpiredLeaseDoesNotDoubleCreate(t *testing.T) {
	store := storememory.New()
	locker := lockmemory.New()
	sel := models.Selector("main")

	// The first writer's lease expires while its commit is still in flight.
	opts := []reconcile.Option{
		reconcile.WithLockTTL(50 * time.Millisecond),
		reconcile.WithCallTimeout(2 * time.Second),
		reconcile.WithMaxElapsed(2 * time.Second),
	}
	slow, err := reconcile.New(slowCommitStore{StoreClient: store, delay: 300 * time.Millisecond}, locker, opts...)
	require.NoError(t, err)
	fast, err := reconcile.New(store, locker, opts...)
	require.NoError(t, err)

	slowErr := make(chan error, 1)
	go func() {
		_, err := slow.Reconcile(context.Background(), sel, resolved("EE123456"))
		slowErr <- err
	}()

	time.Sleep(100 * time.Millisecond)
	result, err := fast.Reconcile(context.Background(), sel, resolved("EE123456"))
	require.NoError(t, err)
	require.Equal(t, models.OpCreate, result.Op)

	err = <-slowErr
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	require.Equal(t, 1, store.Len(sel), "exactly one entry for the code")
}

func (s *ReconcileSuite) TestCommitSurvivesCallerCancellation() {
	sel := models.Selector("main")
	s.expectLock()

	ctx, cancel := context.WithCancel(context.Background())

	s.store.EXPECT().FindCandidates(gomock.Any(), sel, "EE123456").Return(nil, nil)
	s.store.EXPECT().NextSequence(gomock.Any(), sel).Return(int64(1), nil)
	s.store.EXPECT().Commit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(commitCtx context.Context, _ models.MatchDecision) (string, error) {
			// the caller cancels mid-commit; the write must still complete
			cancel()
			s.NoError(commitCtx.Err())
			return "id", nil
		})

	result, err := s.service.Reconcile(ctx, sel, resolved("EE123456"))
	s.Require().NoError(err)
	s.Equal("id", result.StoreID)
}
