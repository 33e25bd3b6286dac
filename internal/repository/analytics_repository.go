package repository

import (
	"context"
	"time"

	"ai-tunemate-be/internal/model"
)

// AnalyticsRepository persists the user registry and chat logs. The whole
// analytics concern is optional: when no database is configured the services
// receive a nil repository and skip recording.
type AnalyticsRepository interface {
	// UpsertUserActivity creates the user on first contact, otherwise bumps
	// last_active and the interaction counter.
	UpsertUserActivity(ctx context.Context, externalID string) (*model.User, error)

	CreateChatLog(ctx context.Context, chatLog *model.ChatLog) error

	ListUsers(ctx context.Context, page, pageSize int) ([]model.User, int64, error)
	TotalUsers(ctx context.Context) (int64, error)
	ActiveUsersSince(ctx context.Context, since time.Time) (int64, error)
	RecentChatLogs(ctx context.Context, limit int) ([]model.ChatLog, error)
	PopularIntents(ctx context.Context) ([]model.IntentCount, error)
}
