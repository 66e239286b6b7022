package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kidquest/internal/models"
	"kidquest/internal/service"
)

// LinkHandler serves the parent-kid linking endpoints
type LinkHandler struct {
	linkService     *service.LinkService
	progressService *service.ProgressService
	logger          *zap.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(linkService *service.LinkService, progressService *service.ProgressService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		linkService:     linkService,
		progressService: progressService,
		logger:          logger,
	}
}

// Checks on these fields belong to the service, which orders them
type linkRequestBody struct {
	TargetEmail string `json:"targetEmail"`
	RequestedBy string `json:"requestedBy"`
}

type respondBody struct {
	Action string `json:"action"`
}

// CreateRequest sends a link request to the account owning targetEmail
func (h *LinkHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	var body linkRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to send link request")
		return
	}

	req, err := h.linkService.CreateRequest(r.Context(), caller, body.RequestedBy, body.TargetEmail)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to send link request")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Link request sent successfully",
		"request": req,
	})
}

// ListRequests returns the caller's pending requests
func (h *LinkHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	requests, err := h.linkService.ListPendingRequests(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to fetch requests")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// Respond approves or rejects a request addressed to the caller
func (h *LinkHandler) Respond(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	requestID, ok := parseIDParam(w, r, "requestId")
	if !ok {
		return
	}

	var body respondBody
	if err := decodeJSON(r, &body); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to respond to request")
		return
	}

	req, err := h.linkService.Respond(r.Context(), caller, requestID, body.Action)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to respond to request")
		return
	}

	message := "Link request rejected"
	if req.Status == models.LinkStatusApproved {
		message = "Link request approved successfully"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"request": req,
	})
}

// MyKids lists the kids linked to the calling parent
func (h *LinkHandler) MyKids(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	kids, err := h.linkService.ListLinkedKids(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to fetch kids")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"kids": kids})
}

// KidProgress returns a linked kid's progress, badges and recent activities
func (h *LinkHandler) KidProgress(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	kidID, ok := parseIDParam(w, r, "kidId")
	if !ok {
		return
	}

	progress, err := h.progressService.GetKidProgressForParent(r.Context(), caller, kidID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to fetch kid progress")
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// Unlink removes a kid from the calling parent
func (h *LinkHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())

	kidID, ok := parseIDParam(w, r, "kidId")
	if !ok {
		return
	}

	if err := h.linkService.Unlink(r.Context(), caller, kidID); err != nil {
		respondWithServiceError(w, r, h.logger, err, "Failed to unlink kid")
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "Kid unlinked successfully"})
}

// parseIDParam reads a positive integer URL parameter, answering 400 when it is malformed
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}
