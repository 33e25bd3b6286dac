package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/model"
	"ai-tunemate-be/internal/repository"
	"ai-tunemate-be/pkg/relay"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/datatypes"
)

const unsupportedMessageReply = "I can only read text messages for now. Tell me what you are in the mood for and I will find you some music."

type IRelayConsumerService interface {
	Consume(ctx context.Context) error
}

// relayConsumerService drains the relay topic: for every inbound message it
// runs the recommendation pipeline, records analytics, and delivers the reply
// through the relay client. Delivery failures are logged, never retried; the
// conversation state was already updated and a replay would double-serve it.
type relayConsumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	recoService   IRecommendationService
	relayClient   *relay.Client
	analyticsRepo repository.AnalyticsRepository
}

func NewRelayConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	recoService IRecommendationService,
	relayClient *relay.Client,
	analyticsRepo repository.AnalyticsRepository,
) IRelayConsumerService {
	return &relayConsumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		recoService:   recoService,
		relayClient:   relayClient,
		analyticsRepo: analyticsRepo,
	}
}

func (cs *relayConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *relayConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.RelayMessagePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal relay message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing relay message from %s", payload.RecipientID)

	if payload.MessageType != "" && payload.MessageType != "text" {
		log.Printf("[WARN] Unsupported relay message type %q from %s", payload.MessageType, payload.RecipientID)
		cs.deliver(ctx, payload.RecipientID, unsupportedMessageReply)
		msg.Ack()
		return
	}

	user := cs.upsertUser(ctx, payload.RecipientID)

	// The recipient identifier doubles as the session key so a relay
	// conversation keeps its dedup state across messages.
	resp, err := cs.recoService.Recommend(ctx, payload.Message, payload.RecipientID)
	if err != nil {
		if errors.Is(err, ErrNotInitialized) {
			log.Printf("[ERROR] Pipeline unavailable for relay message from %s", payload.RecipientID)
			cs.deliver(ctx, payload.RecipientID, "The music service is warming up, please try again in a moment.")
		} else {
			log.Printf("[ERROR] Pipeline failed for relay message from %s: %v", payload.RecipientID, err)
			cs.deliver(ctx, payload.RecipientID, "Something went wrong finding your music. Please try again.")
		}
		msg.Ack()
		return
	}

	cs.recordChatLog(ctx, user, payload.Message, resp)
	cs.deliver(ctx, payload.RecipientID, resp.Recommendation)

	log.Printf("[SUCCESS] Relay message from %s answered via %s", payload.RecipientID, resp.Source)
	msg.Ack()
}

func (cs *relayConsumerService) deliver(ctx context.Context, recipientID, content string) {
	if cs.relayClient == nil {
		log.Printf("[WARN] No relay client configured, dropping reply for %s", recipientID)
		return
	}
	if err := cs.relayClient.SendText(ctx, recipientID, content); err != nil {
		log.Printf("[ERROR] Failed to deliver relay reply to %s: %v", recipientID, err)
	}
}

func (cs *relayConsumerService) upsertUser(ctx context.Context, externalID string) *model.User {
	if cs.analyticsRepo == nil {
		return nil
	}
	user, err := cs.analyticsRepo.UpsertUserActivity(ctx, externalID)
	if err != nil {
		log.Printf("[WARN] Failed to upsert user %s: %v", externalID, err)
		return nil
	}
	return user
}

func (cs *relayConsumerService) recordChatLog(ctx context.Context, user *model.User, userInput string, resp *dto.RecommendResponse) {
	if cs.analyticsRepo == nil || user == nil {
		return
	}

	chatLog := &model.ChatLog{
		UserID:    user.ID,
		UserInput: userInput,
		AiReply:   resp.Recommendation,
		Source:    resp.Source,
	}
	if resp.Intent != nil {
		chatLog.IntentType = resp.Intent.Intent
		if data, err := json.Marshal(resp.Intent); err == nil {
			chatLog.IntentPayload = datatypes.JSON(data)
		}
	}

	if err := cs.analyticsRepo.CreateChatLog(ctx, chatLog); err != nil {
		log.Printf("[WARN] Failed to record chat log for user %d: %v", user.ID, err)
	}
}
