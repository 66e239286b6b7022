package service

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"kidquest/internal/database"
	"kidquest/internal/models"
	"kidquest/internal/repository"
)

// approvedFeedLimit is how many approved posts the feed shows
const approvedFeedLimit = 50

// CommunityService runs the moderated community feed
type CommunityService struct {
	db            *database.DB
	communityRepo *repository.CommunityRepository
	userRepo      *repository.UserRepository
	badWordRepo   *repository.BadWordRepository
	logger        *zap.Logger
}

// NewCommunityService creates a new community service
func NewCommunityService(db *database.DB, communityRepo *repository.CommunityRepository, userRepo *repository.UserRepository,
	badWordRepo *repository.BadWordRepository, logger *zap.Logger) *CommunityService {
	return &CommunityService{
		db:            db,
		communityRepo: communityRepo,
		userRepo:      userRepo,
		badWordRepo:   badWordRepo,
		logger:        logger,
	}
}

// ListApproved returns the newest approved posts
func (s *CommunityService) ListApproved(ctx context.Context) ([]models.CommunityPost, error) {
	return s.communityRepo.ListApproved(ctx, approvedFeedLimit)
}

// ListPending returns posts awaiting approval that the caller may moderate
func (s *CommunityService) ListPending(ctx context.Context, caller models.Identity) ([]models.CommunityPost, error) {
	switch caller.Role {
	case models.RoleParent:
		return s.communityRepo.ListPendingForParent(ctx, caller.UserID)
	case models.RoleTeacher:
		return s.communityRepo.ListPending(ctx)
	default:
		return nil, ErrForbidden
	}
}

// CreatePost stores an unapproved post by a kid after running the content filter
func (s *CommunityService) CreatePost(ctx context.Context, caller models.Identity, postType, title, content, imageURL string) (*models.CommunityPost, error) {
	if caller.Role != models.RoleKid {
		return nil, withMessage(ErrForbidden, "only kids can create posts")
	}

	postType = strings.TrimSpace(postType)
	title = strings.TrimSpace(title)
	if postType == "" || title == "" {
		return nil, withMessage(ErrInvalidInput, "postType and title are required")
	}

	found, err := s.badWordRepo.FindBadWords(ctx, filterCandidates(title+" "+content))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		s.logger.Info("Post rejected by content filter",
			zap.Int64("user_id", caller.UserID),
			zap.Int("matches", len(found)))
		return nil, ErrInappropriateContent
	}

	return s.communityRepo.CreatePost(ctx, caller.UserID, postType, title, content, strings.TrimSpace(imageURL))
}

// ApprovePost publishes a post. Parents may only approve posts by their linked kids.
func (s *CommunityService) ApprovePost(ctx context.Context, caller models.Identity, postID int64) (*models.CommunityPost, error) {
	if caller.Role != models.RoleParent && caller.Role != models.RoleTeacher {
		return nil, ErrForbidden
	}

	post, err := s.communityRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, withMessage(ErrNotFound, "post not found")
	}

	if caller.Role == models.RoleParent {
		linked, err := s.userRepo.IsLinked(ctx, post.UserID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !linked {
			return nil, withMessage(ErrForbidden, "you can only approve posts by your own kids")
		}
	}

	if err := s.communityRepo.ApprovePost(ctx, postID, caller.UserID); err != nil {
		return nil, err
	}

	s.logger.Info("Post approved", zap.Int64("post_id", postID), zap.Int64("approver_id", caller.UserID))
	return s.communityRepo.GetPost(ctx, postID)
}

// DeletePost removes a post. Authors may delete their own; parents and teachers any.
func (s *CommunityService) DeletePost(ctx context.Context, caller models.Identity, postID int64) error {
	post, err := s.communityRepo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return withMessage(ErrNotFound, "post not found")
	}

	moderator := caller.Role == models.RoleParent || caller.Role == models.RoleTeacher
	if post.UserID != caller.UserID && !moderator {
		return ErrForbidden
	}

	return s.db.InTx(ctx, func(tx *database.Tx) error {
		return s.communityRepo.WithTx(tx).DeletePost(ctx, postID)
	})
}

// ToggleReaction adds the caller's emoji reaction or removes it if present.
// It reports true when the reaction was added.
func (s *CommunityService) ToggleReaction(ctx context.Context, caller models.Identity, postID int64, emoji string) (bool, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return false, withMessage(ErrInvalidInput, "emoji is required")
	}

	post, err := s.communityRepo.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, withMessage(ErrNotFound, "post not found")
	}

	removed, err := s.communityRepo.RemoveReaction(ctx, postID, caller.UserID, emoji)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	if err := s.communityRepo.AddReaction(ctx, postID, caller.UserID, emoji); err != nil {
		return false, err
	}
	return true, nil
}

// ListReactions counts a post's reactions by emoji
func (s *CommunityService) ListReactions(ctx context.Context, postID int64) ([]models.ReactionCount, error) {
	return s.communityRepo.ListReactionCounts(ctx, postID)
}

// filterCandidates lowercases text into single words and adjacent word pairs,
// since the filter list contains some two-word phrases
func filterCandidates(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words)*2)
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for i, w := range words {
		add(w)
		if i+1 < len(words) {
			add(w + " " + words[i+1])
		}
	}
	return out
}
