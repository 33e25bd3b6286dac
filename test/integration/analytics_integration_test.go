package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-tunemate-be/internal/model"
	"ai-tunemate-be/internal/repository/implementation"
	"ai-tunemate-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestAnalyticsRepository(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	if err := gormDB.AutoMigrate(&model.User{}, &model.ChatLog{}); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	repo := implementation.NewAnalyticsRepository(gormDB)
	ctx := context.Background()
	externalID := "it-" + uuid.NewString()

	t.Run("Upsert creates then increments", func(t *testing.T) {
		first, err := repo.UpsertUserActivity(ctx, externalID)
		assert.NoError(t, err)
		assert.Equal(t, 1, first.InteractionCount)

		second, err := repo.UpsertUserActivity(ctx, externalID)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 2, second.InteractionCount)
		assert.False(t, second.LastActive.Before(first.LastActive))
	})

	t.Run("Chat logs feed stats queries", func(t *testing.T) {
		user, err := repo.UpsertUserActivity(ctx, externalID)
		assert.NoError(t, err)

		err = repo.CreateChatLog(ctx, &model.ChatLog{
			UserID:     user.ID,
			UserInput:  "recommend me something sad",
			AiReply:    "Here you go",
			IntentType: "find_music",
			Source:     "knowledge_base",
		})
		assert.NoError(t, err)

		logs, err := repo.RecentChatLogs(ctx, 10)
		assert.NoError(t, err)
		assert.NotEmpty(t, logs)

		intents, err := repo.PopularIntents(ctx)
		assert.NoError(t, err)
		assert.NotEmpty(t, intents)

		total, err := repo.TotalUsers(ctx)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(1))
	})

	t.Run("ListUsers paginates", func(t *testing.T) {
		users, total, err := repo.ListUsers(ctx, 1, 5)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(1))
		assert.LessOrEqual(t, len(users), 5)
	})
}
