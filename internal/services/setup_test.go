package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/repository"
	"github.com/bhojansetu/bhojansetu/internal/testutil"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errSMTPDown = errors.New("smtp: connection refused")

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, mail notify.Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events...)
}

type testEnv struct {
	db        *gorm.DB
	fx        *testutil.Fixtures
	notifier  *mockNotifier
	publisher *recordingPublisher
	metrics   *metrics.Manager

	donationRepo *repository.DonationRepository
	userRepo     *repository.UserRepository
	messageRepo  *repository.SQLMessageRepository

	donations *DonationService
	chat      *ChatService
	users     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	env := &testEnv{
		db:           db,
		fx:           testutil.NewFixtures(t, db),
		notifier:     &mockNotifier{},
		publisher:    &recordingPublisher{},
		metrics:      metrics.NewManager("test"),
		donationRepo: repository.NewDonationRepository(db),
		userRepo:     repository.NewUserRepository(db),
		messageRepo:  repository.NewSQLMessageRepository(db),
	}
	env.donations = NewDonationService(env.donationRepo, env.messageRepo, env.notifier, env.metrics, log)
	env.chat = NewChatService(env.donationRepo, env.userRepo, env.messageRepo, env.publisher, env.metrics, log)
	env.users = NewUserService(env.userRepo, env.donationRepo, env.notifier, helpers.NewTokenIssuer("test-secret", time.Hour), log)
	env.users.bcryptCost = bcrypt.MinCost
	return env
}

// fixedCode makes code generation deterministic.
func fixedCode(code string) CodeGenerator {
	return func(int) (string, error) { return code, nil }
}
