package service

import (
	"context"
	"errors"
	"log"
	"time"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/repository"
	"ai-tunemate-be/pkg/knowledge"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentLogLimit  = 100
)

// ErrAnalyticsDisabled is returned by the user and stats endpoints when no
// database was configured at startup.
var ErrAnalyticsDisabled = errors.New("analytics storage not configured")

type IAdminService interface {
	DeleteSong(ctx context.Context, id int) error
	KnowledgeStats(ctx context.Context) (knowledge.Stats, error)
	ListUsers(ctx context.Context, page, pageSize int) (*dto.ListUsersResponse, error)
	Stats(ctx context.Context) (*dto.AdminStatsResponse, error)
}

type adminService struct {
	store         *knowledge.Store
	analyticsRepo repository.AnalyticsRepository
}

func NewAdminService(store *knowledge.Store, analyticsRepo repository.AnalyticsRepository) IAdminService {
	return &adminService{
		store:         store,
		analyticsRepo: analyticsRepo,
	}
}

func (s *adminService) DeleteSong(ctx context.Context, id int) error {
	if s.store == nil {
		return ErrNotInitialized
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	log.Printf("[ADMIN] Deleted song %d from the catalog", id)
	return nil
}

func (s *adminService) KnowledgeStats(ctx context.Context) (knowledge.Stats, error) {
	if s.store == nil {
		return knowledge.Stats{}, ErrNotInitialized
	}
	return s.store.Statistics(), nil
}

func (s *adminService) ListUsers(ctx context.Context, page, pageSize int) (*dto.ListUsersResponse, error) {
	if s.analyticsRepo == nil {
		return nil, ErrAnalyticsDisabled
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	users, total, err := s.analyticsRepo.ListUsers(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, dto.UserDTO{
			ID:               u.ID,
			ExternalID:       u.ExternalID,
			FirstSeen:        u.FirstSeen,
			LastActive:       u.LastActive,
			InteractionCount: u.InteractionCount,
		})
	}

	return &dto.ListUsersResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Users:    out,
	}, nil
}

func (s *adminService) Stats(ctx context.Context) (*dto.AdminStatsResponse, error) {
	if s.analyticsRepo == nil {
		return nil, ErrAnalyticsDisabled
	}

	total, err := s.analyticsRepo.TotalUsers(ctx)
	if err != nil {
		return nil, err
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	activeToday, err := s.analyticsRepo.ActiveUsersSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	logs, err := s.analyticsRepo.RecentChatLogs(ctx, recentLogLimit)
	if err != nil {
		return nil, err
	}
	recent := make([]dto.ChatLogDTO, 0, len(logs))
	for _, l := range logs {
		recent = append(recent, dto.ChatLogDTO{
			ID:         l.ID,
			UserID:     l.UserID,
			UserInput:  l.UserInput,
			AiReply:    l.AiReply,
			IntentType: l.IntentType,
			Source:     l.Source,
			CreatedAt:  l.CreatedAt,
		})
	}

	intents, err := s.analyticsRepo.PopularIntents(ctx)
	if err != nil {
		return nil, err
	}
	popular := make([]dto.IntentCountDTO, 0, len(intents))
	for _, ic := range intents {
		popular = append(popular, dto.IntentCountDTO{IntentType: ic.IntentType, Count: ic.Count})
	}

	return &dto.AdminStatsResponse{
		TotalUsers:       total,
		TodayActiveUsers: activeToday,
		RecentLogs:       recent,
		PopularIntents:   popular,
	}, nil
}
