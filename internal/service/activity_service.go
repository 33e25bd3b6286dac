package service

import (
	"context"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/pkg/logger"
	"ai-tunemate-be/internal/websocket"
	"ai-tunemate-be/pkg/events"
	pktNats "ai-tunemate-be/pkg/nats"
)

type IActivityService interface {
	// Start subscribes to completed-recommendation events and relays them to
	// the dashboard websocket hub.
	Start() error
}

type activityService struct {
	subscriber *pktNats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewActivityService(subscriber *pktNats.Subscriber, hub *websocket.Hub, log logger.ILogger) IActivityService {
	return &activityService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

func (s *activityService) Start() error {
	subject := "events." + events.RecommendationCompletedType
	s.logger.Info("ActivityService", "Starting activity feed consumer", map[string]interface{}{"subject": subject})
	return s.subscriber.Subscribe(subject, "activity-feed", s.handleEvent)
}

func (s *activityService) handleEvent(ctx context.Context, event events.Event) error {
	data := event.Payload()

	activity := dto.ActivityEvent{
		SessionID: asString(data["session_id"]),
		Source:    asString(data["source"]),
		Intent:    asString(data["intent"]),
		At:        event.Timestamp(),
	}
	if raw, ok := data["songs"].([]interface{}); ok {
		for _, v := range raw {
			activity.Songs = append(activity.Songs, asString(v))
		}
	}
	if n, ok := data["song_count"].(float64); ok {
		activity.SongCount = int(n)
	} else {
		activity.SongCount = len(activity.Songs)
	}

	s.logger.Debug("ActivityService", "Relaying activity event", map[string]interface{}{
		"session_id": activity.SessionID,
		"source":     activity.Source,
		"song_count": activity.SongCount,
	})
	s.hub.Broadcast(activity)
	return nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
