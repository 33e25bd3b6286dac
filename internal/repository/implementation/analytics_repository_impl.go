package implementation

import (
	"context"
	"errors"
	"time"

	"ai-tunemate-be/internal/model"
	"ai-tunemate-be/internal/repository"

	"gorm.io/gorm"
)

type AnalyticsRepositoryImpl struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) repository.AnalyticsRepository {
	return &AnalyticsRepositoryImpl{db: db}
}

func (r *AnalyticsRepositoryImpl) UpsertUserActivity(ctx context.Context, externalID string) (*model.User, error) {
	now := time.Now().UTC()

	var user model.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{
			ExternalID:       externalID,
			FirstSeen:        now,
			LastActive:       now,
			InteractionCount: 1,
		}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&user).
		Updates(map[string]interface{}{
			"last_active":       now,
			"interaction_count": gorm.Expr("interaction_count + 1"),
		}).Error
	if err != nil {
		return nil, err
	}

	user.LastActive = now
	user.InteractionCount++
	return &user, nil
}

func (r *AnalyticsRepositoryImpl) CreateChatLog(ctx context.Context, chatLog *model.ChatLog) error {
	return r.db.WithContext(ctx).Create(chatLog).Error
}

func (r *AnalyticsRepositoryImpl) ListUsers(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := db.Order("last_active DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&users).Error

	return users, total, err
}

func (r *AnalyticsRepositoryImpl) TotalUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

func (r *AnalyticsRepositoryImpl) ActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("last_active >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *AnalyticsRepositoryImpl) RecentChatLogs(ctx context.Context, limit int) ([]model.ChatLog, error) {
	var logs []model.ChatLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *AnalyticsRepositoryImpl) PopularIntents(ctx context.Context) ([]model.IntentCount, error) {
	var rows []model.IntentCount
	err := r.db.WithContext(ctx).
		Model(&model.ChatLog{}).
		Select("intent_type, COUNT(id) AS count").
		Group("intent_type").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
