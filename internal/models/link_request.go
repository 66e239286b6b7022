package models

import "time"

// Link request statuses. Approved and rejected are terminal.
const (
	LinkStatusPending  = "pending"
	LinkStatusApproved = "approved"
	LinkStatusRejected = "rejected"
)

// Responses to a link request
const (
	LinkActionApprove = "approve"
	LinkActionReject  = "reject"
)

// LinkRequest is a proposal to link a kid and a parent
type LinkRequest struct {
	ID          int64     `json:"id"`
	KidID       int64     `json:"kid_id"`
	ParentID    int64     `json:"parent_id"`
	RequestedBy string    `json:"requested_by"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPending reports whether the request can still be answered
func (r *LinkRequest) IsPending() bool {
	return r.Status == LinkStatusPending
}

// Recipient returns the user id expected to answer the request
func (r *LinkRequest) Recipient() int64 {
	if r.RequestedBy == RoleKid {
		return r.ParentID
	}
	return r.KidID
}

// Requester returns the user id that created the request
func (r *LinkRequest) Requester() int64 {
	if r.RequestedBy == RoleKid {
		return r.KidID
	}
	return r.ParentID
}

// PendingRequest is a link request annotated with the counter-party.
// Kids see the parent fields, parents see the kid fields.
type PendingRequest struct {
	LinkRequest
	ParentName  string `json:"parent_name,omitempty"`
	ParentEmail string `json:"parent_email,omitempty"`
	KidName     string `json:"kid_name,omitempty"`
	KidEmail    string `json:"kid_email,omitempty"`
}
