package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"kidquest/internal/database"
	"kidquest/internal/models"
	"kidquest/internal/repository"
	"kidquest/internal/testutil"
)

// recordingNotifier captures link notifications
type recordingNotifier struct {
	mu        sync.Mutex
	requests  []string
	responses []string
	err       error
}

func (n *recordingNotifier) NotifyLinkRequest(ctx context.Context, target, requester *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, requester.Name+"->"+target.Name)
	return n.err
}

func (n *recordingNotifier) NotifyLinkResponse(ctx context.Context, requester, responder *models.User, status string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses = append(n.responses, responder.Name+":"+status+"->"+requester.Name)
	return n.err
}

type fixture struct {
	db       *database.DB
	logger   *zap.Logger
	notifier *recordingNotifier

	users      *repository.UserRepository
	links      *repository.LinkRequestRepository
	progress   *repository.ProgressRepository
	badges     *repository.BadgeRepository
	activities *repository.ActivityRepository
	community  *repository.CommunityRepository
	badWords   *repository.BadWordRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:         db,
		logger:     zaptest.NewLogger(t),
		notifier:   &recordingNotifier{},
		users:      repository.NewUserRepository(db),
		links:      repository.NewLinkRequestRepository(db),
		progress:   repository.NewProgressRepository(db),
		badges:     repository.NewBadgeRepository(db),
		activities: repository.NewActivityRepository(db),
		community:  repository.NewCommunityRepository(db),
		badWords:   repository.NewBadWordRepository(db),
	}
}

func (f *fixture) linkService(policy string) *LinkService {
	return NewLinkService(f.db, f.users, f.links, f.notifier, policy, f.logger)
}

func (f *fixture) progressService(policy string) *ProgressService {
	return NewProgressService(f.db, f.progress, f.badges, f.users, f.activities, policy, f.logger)
}

func (f *fixture) communityService() *CommunityService {
	return NewCommunityService(f.db, f.community, f.users, f.badWords, f.logger)
}

func identity(u *models.User) models.Identity {
	return models.Identity{UserID: u.ID, Role: u.Role}
}
