package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/repository"
)

// Actor represents the authenticated staff member performing an action.
type Actor struct {
	ID   string
	Role string
}

// AuditEntry captures the details required to persist one audit row.
type AuditEntry struct {
	ApplicationID string
	ActorID       string
	Action        string
	Reason        string
	Metadata      map[string]interface{}
}

// AuditRecorder defines behaviour for appending review actions.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditService exposes the append-only review history.
type AuditService interface {
	AuditRecorder
	Recent(ctx context.Context, applicationID string, limit int) ([]dto.ReviewActionResponse, error)
	List(ctx context.Context, req dto.ReviewActionListRequest) (dto.ReviewActionListResponse, error)
}

type auditService struct {
	repo   repository.ReviewActionRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.ReviewActionRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.ApplicationID) == "" {
		return fmt.Errorf("application id is required")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}

	actorID := strings.TrimSpace(entry.ActorID)
	if actorID == "" {
		actorID = "system"
	}

	model := models.ReviewAction{
		ApplicationID: entry.ApplicationID,
		ActorID:       actorID,
		Action:        strings.ToLower(strings.TrimSpace(entry.Action)),
		Reason:        strings.TrimSpace(entry.Reason),
		Metadata:      sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("application_id", entry.ApplicationID).Msg("failed to persist review action")
		return err
	}

	return nil
}

func (s *auditService) Recent(ctx context.Context, applicationID string, limit int) ([]dto.ReviewActionResponse, error) {
	entries, err := s.repo.ListRecent(ctx, applicationID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ReviewActionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewReviewActionResponse(entry))
	}

	return responses, nil
}

func (s *auditService) List(ctx context.Context, req dto.ReviewActionListRequest) (dto.ReviewActionListResponse, error) {
	filter := repository.ReviewActionFilter{
		Page:          req.Page,
		PageSize:      req.PageSize,
		ApplicationID: strings.TrimSpace(req.ApplicationID),
		ActorID:       strings.TrimSpace(req.ActorID),
		Action:        strings.TrimSpace(req.Action),
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ReviewActionListResponse{}, err
	}

	responses := make([]dto.ReviewActionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewReviewActionResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.ReviewActionListResponse{Items: responses, Pagination: pagination}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
