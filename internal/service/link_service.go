package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kidquest/internal/config"
	"kidquest/internal/database"
	"kidquest/internal/models"
	"kidquest/internal/repository"
)

// LinkNotifier is told about link requests and their outcome
type LinkNotifier interface {
	NotifyLinkRequest(ctx context.Context, target, requester *models.User) error
	NotifyLinkResponse(ctx context.Context, requester, responder *models.User, status string) error
}

// LinkService manages the parent-kid link lifecycle.
// It is the only writer of users.parent_id.
type LinkService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	linkRepo        *repository.LinkRequestRepository
	notifier        LinkNotifier
	rerequestPolicy string
	logger          *zap.Logger
}

// NewLinkService creates a new link service
func NewLinkService(db *database.DB, userRepo *repository.UserRepository, linkRepo *repository.LinkRequestRepository,
	notifier LinkNotifier, rerequestPolicy string, logger *zap.Logger) *LinkService {
	return &LinkService{
		db:              db,
		userRepo:        userRepo,
		linkRepo:        linkRepo,
		notifier:        notifier,
		rerequestPolicy: rerequestPolicy,
		logger:          logger,
	}
}

// CreateRequest proposes a link between the caller and the user owning targetEmail
func (s *LinkService) CreateRequest(ctx context.Context, caller models.Identity, requestedBy, targetEmail string) (*models.LinkRequest, error) {
	if requestedBy != caller.Role {
		return nil, ErrInvalidRequestType
	}

	target, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(targetEmail))
	if err != nil {
		return nil, fmt.Errorf("failed to look up target: %w", err)
	}
	if target == nil {
		return nil, withMessage(ErrNotFound, "user not found with this email")
	}

	var kidID, parentID int64
	switch requestedBy {
	case models.RoleKid:
		if target.Role != models.RoleParent {
			return nil, withMessage(ErrRoleMismatch, "target user must be a parent")
		}
		kidID, parentID = caller.UserID, target.ID
	case models.RoleParent:
		if target.Role != models.RoleKid {
			return nil, withMessage(ErrRoleMismatch, "target user must be a kid")
		}
		kidID, parentID = target.ID, caller.UserID
	default:
		return nil, withMessage(ErrRoleMismatch, "only kids and parents can link accounts")
	}

	// The duplicate checks and the insert share a transaction so concurrent callers cannot both pass
	pendingOnly := s.rerequestPolicy == config.RerequestReopen
	var req *models.LinkRequest
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		linkRepo := s.linkRepo.WithTx(tx)

		exists, err := linkRepo.PairHasRequest(ctx, kidID, parentID, pendingOnly)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateRequest
		}

		linked, err := s.userRepo.WithTx(tx).IsLinked(ctx, kidID, parentID)
		if err != nil {
			return err
		}
		if linked {
			return ErrAlreadyLinked
		}

		req, err = linkRepo.CreateRequest(ctx, kidID, parentID, requestedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("kid_id", kidID),
		zap.Int64("parent_id", parentID),
		zap.String("requested_by", requestedBy))

	if requester, err := s.userRepo.GetUserByID(ctx, caller.UserID); err == nil && requester != nil {
		s.notify(func() error { return s.notifier.NotifyLinkRequest(ctx, target, requester) }, req.ID)
	}

	return req, nil
}

// ListPendingRequests returns pending requests involving the caller, newest first.
// Teachers never have any.
func (s *LinkService) ListPendingRequests(ctx context.Context, caller models.Identity) ([]models.PendingRequest, error) {
	switch caller.Role {
	case models.RoleKid:
		return s.linkRepo.ListPendingForKid(ctx, caller.UserID)
	case models.RoleParent:
		return s.linkRepo.ListPendingForParent(ctx, caller.UserID)
	default:
		return []models.PendingRequest{}, nil
	}
}

// Respond approves or rejects a pending request addressed to the caller
func (s *LinkService) Respond(ctx context.Context, caller models.Identity, requestID int64, action string) (*models.LinkRequest, error) {
	req, err := s.linkRepo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, withMessage(ErrNotFound, "request not found")
	}

	if req.Recipient() != caller.UserID {
		return nil, withMessage(ErrForbidden, "not authorized to respond to this request")
	}

	var status string
	switch action {
	case models.LinkActionApprove:
		status = models.LinkStatusApproved
	case models.LinkActionReject:
		status = models.LinkStatusRejected
	default:
		return nil, ErrInvalidAction
	}

	if !req.IsPending() {
		return nil, ErrRequestNotPending
	}

	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		resolved, err := s.linkRepo.WithTx(tx).ResolvePending(ctx, req.ID, status)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrRequestNotPending
		}
		if status == models.LinkStatusApproved {
			return s.userRepo.WithTx(tx).SetParent(ctx, req.KidID, req.ParentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Link request answered",
		zap.Int64("request_id", req.ID),
		zap.String("status", status),
		zap.Int64("responder_id", caller.UserID))

	updated, err := s.linkRepo.GetRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	requester, rErr := s.userRepo.GetUserByID(ctx, req.Requester())
	responder, pErr := s.userRepo.GetUserByID(ctx, caller.UserID)
	if rErr == nil && pErr == nil && requester != nil && responder != nil {
		s.notify(func() error { return s.notifier.NotifyLinkResponse(ctx, requester, responder, status) }, req.ID)
	}

	return updated, nil
}

// ListLinkedKids returns the kids linked to the calling parent ordered by name
func (s *LinkService) ListLinkedKids(ctx context.Context, caller models.Identity) ([]models.LinkedKid, error) {
	if caller.Role != models.RoleParent {
		return nil, withMessage(ErrForbidden, "only parents can access this")
	}
	return s.userRepo.ListKidsByParent(ctx, caller.UserID)
}

// Unlink removes the link between the calling parent and kidID
func (s *LinkService) Unlink(ctx context.Context, caller models.Identity, kidID int64) error {
	if caller.Role != models.RoleParent {
		return withMessage(ErrForbidden, "only parents can unlink kids")
	}

	removed, err := s.userRepo.ClearParent(ctx, kidID, caller.UserID)
	if err != nil {
		return err
	}
	if !removed {
		return withMessage(ErrForbidden, "this kid is not linked to your account")
	}

	s.logger.Info("Kid unlinked", zap.Int64("kid_id", kidID), zap.Int64("parent_id", caller.UserID))
	return nil
}

// notify runs a best-effort notification; failures are logged and swallowed
func (s *LinkService) notify(send func() error, requestID int64) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		s.logger.Warn("Failed to send link notification",
			zap.Int64("request_id", requestID),
			zap.Error(err))
	}
}
