package dto

import (
	"time"

	"github.com/noah-isme/gatekeeper-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ReviewActionListRequest defines filters for listing audit entries.
type ReviewActionListRequest struct {
	Page          int
	PageSize      int
	ApplicationID string
	ActorID       string
	Action        string
}

// ReviewActionResponse serializes one audit trail entry.
type ReviewActionResponse struct {
	ID            uint                   `json:"id"`
	ApplicationID string                 `json:"application_id"`
	ActorID       string                 `json:"actor_id"`
	Action        string                 `json:"action"`
	Reason        string                 `json:"reason,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewReviewActionResponse maps an audit entry to its response shape.
func NewReviewActionResponse(entry models.ReviewAction) ReviewActionResponse {
	return ReviewActionResponse{
		ID:            entry.ID,
		ApplicationID: entry.ApplicationID,
		ActorID:       entry.ActorID,
		Action:        entry.Action,
		Reason:        entry.Reason,
		Metadata:      entry.Metadata,
		CreatedAt:     entry.CreatedAt,
	}
}

// ReviewActionListResponse wraps a paginated audit trail view.
type ReviewActionListResponse struct {
	Items      []ReviewActionResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
}
