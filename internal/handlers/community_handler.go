package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"kidquest/internal/service"
)

// CommunityHandler serves the moderated community feed
type CommunityHandler struct {
	communityService *service.CommunityService
	logger           *zap.Logger
}

// NewCommunityHandler creates a new community handler
func NewCommunityHandler(communityService *service.CommunityService, logger *zap.Logger) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
		logger:           logger,
	}
}

type createPostBody struct {
	PostType string `json:"postType" validate:"required,max=50"`
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

type reactBody struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// ListPosts returns the approved feed
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.communityService.ListApproved(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// ListPending returns posts the caller may approve
func (h *CommunityHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	posts, err := h.communityService.ListPending(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get pending posts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// CreatePost submits a post for approval
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var body createPostBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to create post")
		return
	}

	post, err := h.communityService.CreatePost(r.Context(), caller, body.PostType, body.Title, body.Content, body.ImageURL)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to create post")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post created! Waiting for approval.",
		"post":    post,
	})
}

// ApprovePost publishes a pending post
func (h *CommunityHandler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, err := h.communityService.ApprovePost(r.Context(), caller, postID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to approve post")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post approved!",
		"post":    post,
	})
}

// DeletePost removes a post and its reactions
func (h *CommunityHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.communityService.DeletePost(r.Context(), caller, postID); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to delete post")
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Post deleted"})
}

// React toggles the caller's emoji reaction on a post
func (h *CommunityHandler) React(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var body reactBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to react")
		return
	}

	added, err := h.communityService.ToggleReaction(r.Context(), caller, postID, body.Emoji)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to react")
		return
	}

	message := "Reaction removed"
	if added {
		message = "Reaction added"
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: message})
}

// ListReactions returns reaction counts per emoji
func (h *CommunityHandler) ListReactions(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	reactions, err := h.communityService.ListReactions(r.Context(), postID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to get reactions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"reactions": reactions})
}
