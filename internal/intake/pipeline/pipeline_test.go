package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"intake/internal/intake/models"
	"intake/internal/intake/pipeline"
	"intake/internal/intake/ports/mocks"
	"intake/internal/intake/reconcile"
	"intake/internal/intake/report"
	lockmemory "intake/internal/lock/memory"
	"intake/internal/source"
	storememory "intake/internal/store/memory"
)

const estonianForm = `Ettevõtte või organisatsiooni nimi: Aktsiaselts Näidis
Registrikood: EE123456
E-post: info@naidis.ee
Telefoni number: +372 5555 5555
Tööstusharu: Tootmine
Osaleja nimi: Mari Maasikas
Robotiseerimise nõustamine: 2 kordne`

type PipelineSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *storememory.Store
	notifier *mocks.MockNotifier
	service  *pipeline.Service
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = storememory.New()
	s.notifier = mocks.NewMockNotifier(s.ctrl)

	reconciler, err := reconcile.New(s.store, lockmemory.New(),
		reconcile.WithCallTimeout(time.Second),
		reconcile.WithMaxElapsed(2*time.Second),
	)
	s.Require().NoError(err)

	reporter := report.New(report.Config{
		Recipients: map[models.Selector][]string{
			"main":                 {"main@example.com"},
			"robotics-consultancy": {"robots@example.com"},
		},
		CC:                "cc@example.com",
		DefaultRecipients: []string{"fallback@example.com"},
		MaxRawBody:        2048,
	})

	svc, err := pipeline.New(reconciler, reporter, s.notifier)
	s.Require().NoError(err)
	s.service = svc
}

func (s *PipelineSuite) message(body string) models.RawMessage {
	return models.RawMessage{
		ID:         "msg-1",
		Subject:    "Teenusele registreerimine",
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

func (s *PipelineSuite) TestHappyPathCreatesEntry() {
	var sent models.NotificationRequest
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.NotificationRequest) error {
			sent = req
			return nil
		}).Times(1)

	outcome := s.service.Process(context.Background(), s.message(estonianForm))

	s.Equal(models.OutcomeSuccess, outcome.Status)
	s.Equal(models.OpCreate, outcome.Op)
	s.Equal(models.Selector("robotics-consultancy"), outcome.Selector)
	s.Equal(int64(1), outcome.SequenceKey)
	s.Equal("Näidis AS", outcome.CompanyName)
	s.Equal(1, s.store.Len("robotics-consultancy"))

	s.Equal([]string{"robots@example.com"}, sent.Recipients)
	s.Contains(sent.Subject, "Edu")
	s.Contains(sent.Subject, "Näidis AS")
}

func (s *PipelineSuite) TestReprocessingUpdatesInPlace() {
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	ctx := context.Background()

	first := s.service.Process(ctx, s.message(estonianForm))
	s.Equal(models.OpCreate, first.Op)

	second := s.service.Process(ctx, s.message(estonianForm))
	s.Equal(models.OutcomeSuccess, second.Status)
	s.Equal(models.OpUpdate, second.Op)
	s.Equal(first.StoreID, second.StoreID)
	s.Equal(first.SequenceKey, second.SequenceKey)
	s.Equal(1, s.store.Len("robotics-consultancy"))
}

func (s *PipelineSuite) TestValidationFailureNotifiesOnce() {
	var sent models.NotificationRequest
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.NotificationRequest) error {
			sent = req
			return nil
		}).Times(1)

	body := "E-post: info@naidis.ee\nTelefon: +372 5555 5555"
	outcome := s.service.Process(context.Background(), s.message(body))

	s.Equal(models.OutcomeFailure, outcome.Status)
	s.Contains(outcome.Reason, "companyName")
	s.Contains(outcome.Reason, "registrationCode")
	s.Equal(0, s.store.Len("main"))

	s.Contains(sent.Subject, "Viga")
	s.Contains(sent.Body, "info@naidis.ee")
}

func (s *PipelineSuite) TestUnknownPrefixContinuesWithNote() {
	var sent models.NotificationRequest
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.NotificationRequest) error {
			sent = req
			return nil
		}).Times(1)

	body := "Company: Example Ltd\nRegistration code: XX123456"
	outcome := s.service.Process(context.Background(), s.message(body))

	s.Equal(models.OutcomeSuccess, outcome.Status)
	s.Require().Len(outcome.Notes, 1)
	s.Contains(outcome.Notes[0], "XX123456")
	s.Contains(sent.Body, "Märkused:")

	entry, ok := s.store.Get("main", outcome.StoreID)
	s.Require().True(ok)
	s.Equal("unknown", entry.Record.Location)
}

func (s *PipelineSuite) TestAmbiguousMatchFails() {
	ctx := context.Background()
	// two legacy entries already share the code
	for i := 0; i < 2; i++ {
		s.store.Seed("robotics-consultancy", models.ResolvedRecord{
			ValidatedRecord: models.ValidatedRecord{
				CompanyName:      "Duplikaat OÜ",
				RegistrationCode: "EE123456",
			},
		})
	}

	var sent models.NotificationRequest
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.NotificationRequest) error {
			sent = req
			return nil
		}).Times(1)

	outcome := s.service.Process(ctx, s.message(estonianForm))
	s.Equal(models.OutcomeFailure, outcome.Status)
	s.Contains(outcome.Reason, "EE123456")
	s.Equal(2, s.store.Len("robotics-consultancy"), "no write on ambiguity")
	s.Contains(sent.Subject, "Viga")
}

func (s *PipelineSuite) TestNotifierFailureDoesNotFailMessage() {
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded).Times(1)

	outcome := s.service.Process(context.Background(), s.message(estonianForm))
	s.Equal(models.OutcomeSuccess, outcome.Status)
	s.Equal(1, s.store.Len("robotics-consultancy"))
}

func (s *PipelineSuite) TestWorkerDrainsSource() {
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	src := source.NewChannel(8)
	ctx := context.Background()
	for _, id := range []string{"m1", "m2", "m3"} {
		body := strings.Replace(estonianForm, "EE123456", "EE"+id[1:]+"23456", 1)
		s.Require().NoError(src.Submit(ctx, models.RawMessage{ID: id, Body: body, ReceivedAt: time.Now()}))
	}
	src.Close()

	worker, err := pipeline.NewWorker(src, s.service, pipeline.WithConcurrency(2))
	s.Require().NoError(err)
	s.Require().NoError(worker.Run(ctx))
	s.Equal(3, s.store.Len("robotics-consultancy"))
}

func (s *PipelineSuite) TestWorkerDrainsBufferedMessagesOnShutdown() {
	s.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	src := source.NewChannel(8)
	s.Require().NoError(src.Submit(context.Background(), models.RawMessage{
		ID:         "accepted-before-shutdown",
		Body:       estonianForm,
		ReceivedAt: time.Now(),
	}))

	// shutdown sequence: the signal context is already cancelled when the
	// source closes, but the worker runs detached and must still drain
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	src.Close()

	worker, err := pipeline.NewWorker(src, s.service, pipeline.WithConcurrency(2))
	s.Require().NoError(err)
	s.Require().NoError(worker.Run(context.WithoutCancel(cancelled)))
	s.Equal(1, s.store.Len("robotics-consultancy"))
}
