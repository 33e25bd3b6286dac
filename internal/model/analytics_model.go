package model

import (
	"time"

	"gorm.io/datatypes"
)

// User tracks one external conversation identity (a relay recipient or a
// direct API session) for analytics.
type User struct {
	ID               uint      `gorm:"primaryKey"`
	ExternalID       string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	FirstSeen        time.Time `gorm:"not null"`
	LastActive       time.Time `gorm:"not null;index"`
	InteractionCount int       `gorm:"not null;default:0"`

	ChatLogs []ChatLog
}

func (User) TableName() string {
	return "users"
}

// ChatLog records one exchange: what the user asked, what the pipeline
// answered, and which path produced it.
type ChatLog struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"not null;index"`
	UserInput     string `gorm:"type:text;not null"`
	AiReply       string `gorm:"type:text;not null"`
	IntentType    string `gorm:"type:varchar(64)"`
	IntentPayload datatypes.JSON
	Source        string    `gorm:"type:varchar(32)"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (ChatLog) TableName() string {
	return "chat_logs"
}

// IntentCount is a grouped-count projection over chat logs.
type IntentCount struct {
	IntentType string
	Count      int64
}
