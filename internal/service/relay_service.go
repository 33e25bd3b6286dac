package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ai-tunemate-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IRelayService hands inbound relay messages to the background consumer so
// the webhook can acknowledge within the relay server's timeout.
type IRelayService interface {
	PublishInbound(ctx context.Context, req *dto.RelayMessageRequest) error
}

type relayService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewRelayService(pubSub *gochannel.GoChannel, topicName string) IRelayService {
	return &relayService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (s *relayService) PublishInbound(ctx context.Context, req *dto.RelayMessageRequest) error {
	payload := dto.RelayMessagePayload{
		RecipientID: req.RecipientID,
		Message:     req.Message,
		MessageType: req.MessageType,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}

	log.Printf("[RELAY] Queued inbound message from %s", req.RecipientID)
	return nil
}
