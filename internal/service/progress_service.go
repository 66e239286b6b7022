package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kidquest/internal/config"
	"kidquest/internal/database"
	"kidquest/internal/models"
	"kidquest/internal/repository"
)

// recentActivityLimit is how many activities a parent sees for a kid
const recentActivityLimit = 20

// badgeLevels maps completed-topic counts in one subject to badge levels, lowest first
var badgeLevels = []struct {
	count int
	level string
}{
	{5, "Beginner"},
	{10, "Expert"},
	{20, "Master"},
}

// BadgeName builds the badge name for a subject and level
func BadgeName(subject, level string) string {
	return subject + " " + level
}

// ProgressService records topic mastery, derives badges and serves role-scoped views
type ProgressService struct {
	db           *database.DB
	progressRepo *repository.ProgressRepository
	badgeRepo    *repository.BadgeRepository
	userRepo     *repository.UserRepository
	activityRepo *repository.ActivityRepository
	badgePolicy  string
	logger       *zap.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(db *database.DB, progressRepo *repository.ProgressRepository, badgeRepo *repository.BadgeRepository,
	userRepo *repository.UserRepository, activityRepo *repository.ActivityRepository, badgePolicy string, logger *zap.Logger) *ProgressService {
	return &ProgressService{
		db:           db,
		progressRepo: progressRepo,
		badgeRepo:    badgeRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		badgePolicy:  badgePolicy,
		logger:       logger,
	}
}

// RecordProgress upserts the (subject, topic) record for userID and awards at most one badge.
// The whole update runs in one transaction.
func (s *ProgressService) RecordProgress(ctx context.Context, userID int64, subject, topic string, score, stars int) (*models.ProgressUpdate, error) {
	subject = strings.TrimSpace(subject)
	topic = strings.TrimSpace(topic)
	if subject == "" || topic == "" {
		return nil, withMessage(ErrInvalidInput, "subject and topic are required")
	}
	if score < 0 || stars < 0 {
		return nil, withMessage(ErrInvalidInput, "score and stars must not be negative")
	}

	result := &models.ProgressUpdate{}
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		progressRepo := s.progressRepo.WithTx(tx)
		badgeRepo := s.badgeRepo.WithTx(tx)

		existing, err := progressRepo.GetRecord(ctx, userID, subject, topic)
		if err != nil {
			return err
		}
		if existing == nil {
			err = progressRepo.InsertCompleted(ctx, userID, subject, topic, score, stars)
		} else {
			err = progressRepo.UpdateCompleted(ctx, existing.ID, score, stars)
		}
		if err != nil {
			return err
		}

		record, err := progressRepo.GetRecord(ctx, userID, subject, topic)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("progress for %s/%s missing after write", subject, topic)
		}
		result.Progress = record

		count, err := progressRepo.CountCompleted(ctx, userID, subject)
		if err != nil {
			return err
		}

		name, ok, err := s.eligibleBadge(ctx, badgeRepo, userID, subject, count)
		if err != nil || !ok {
			return err
		}

		awarded, err := badgeRepo.AwardBadge(ctx, userID, name, subject)
		if err != nil || !awarded {
			return err
		}
		result.Badge, err = badgeRepo.GetBadge(ctx, userID, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Badge != nil {
		s.logger.Info("Badge awarded",
			zap.Int64("user_id", userID),
			zap.String("badge", result.Badge.BadgeName))
	}

	return result, nil
}

// eligibleBadge picks the badge a completed count earns under the configured policy
func (s *ProgressService) eligibleBadge(ctx context.Context, badgeRepo *repository.BadgeRepository, userID int64, subject string, count int) (string, bool, error) {
	if s.badgePolicy != config.BadgePolicyThreshold {
		for _, b := range badgeLevels {
			if count == b.count {
				return BadgeName(subject, b.level), true, nil
			}
		}
		return "", false, nil
	}

	for _, b := range badgeLevels {
		if count < b.count {
			break
		}
		name := BadgeName(subject, b.level)
		held, err := badgeRepo.HasBadge(ctx, userID, name)
		if err != nil {
			return "", false, err
		}
		if !held {
			return name, true, nil
		}
	}
	return "", false, nil
}

// GetProgress returns a user's progress, badges and stats.
// Kids may only view their own.
func (s *ProgressService) GetProgress(ctx context.Context, caller models.Identity, targetUserID int64) (*models.ProgressBundle, error) {
	if caller.Role == models.RoleKid && targetUserID != caller.UserID {
		return nil, ErrForbidden
	}

	progress, err := s.progressRepo.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	badges, err := s.badgeRepo.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	return &models.ProgressBundle{
		Progress: progress,
		Badges:   badges,
		Stats:    models.ComputeStats(progress, badges),
	}, nil
}

// GetChildrenSummary aggregates progress per kid: a parent's linked kids, or every kid for a teacher
func (s *ProgressService) GetChildrenSummary(ctx context.Context, caller models.Identity) ([]models.ChildSummary, error) {
	switch caller.Role {
	case models.RoleParent:
		return s.progressRepo.ListChildSummariesForParent(ctx, caller.UserID)
	case models.RoleTeacher:
		return s.progressRepo.ListChildSummaries(ctx)
	default:
		return nil, ErrForbidden
	}
}

// GetKidProgressForParent returns a linked kid's progress with recent activities
func (s *ProgressService) GetKidProgressForParent(ctx context.Context, caller models.Identity, kidID int64) (*models.KidProgress, error) {
	if caller.Role != models.RoleParent {
		return nil, withMessage(ErrForbidden, "only parents can access this")
	}

	linked, err := s.userRepo.IsLinked(ctx, kidID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, withMessage(ErrForbidden, "this kid is not linked to your account")
	}

	progress, err := s.progressRepo.ListByUser(ctx, kidID)
	if err != nil {
		return nil, err
	}
	badges, err := s.badgeRepo.ListByUser(ctx, kidID)
	if err != nil {
		return nil, err
	}
	activities, err := s.activityRepo.ListByUser(ctx, kidID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	stats := models.ComputeStats(progress, badges)
	return &models.KidProgress{
		Progress:   progress,
		Badges:     badges,
		Activities: activities,
		Stats: models.KidProgressStats{
			ProgressStats:    stats,
			CompletedLessons: stats.CompletedTopics,
		},
	}, nil
}
