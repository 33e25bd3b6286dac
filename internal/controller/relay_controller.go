package controller

import (
	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/pkg/serverutils"
	"ai-tunemate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRelayController interface {
	RegisterRoutes(r fiber.Router)
	HandleInbound(ctx *fiber.Ctx) error
}

// relayController fronts the relay server webhook. The relay server expects
// an answer within a few seconds, so the handler only queues the message and
// acknowledges with a fixed placeholder; the real reply arrives later through
// the outbound relay client.
type relayController struct {
	service service.IRelayService
	ackText string
}

func NewRelayController(service service.IRelayService, ackText string) IRelayController {
	return &relayController{
		service: service,
		ackText: ackText,
	}
}

func (c *relayController) RegisterRoutes(r fiber.Router) {
	r.Post("/relay/message", c.HandleInbound)
}

func (c *relayController) HandleInbound(ctx *fiber.Ctx) error {
	var req dto.RelayMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.service.PublishInbound(ctx.Context(), &req); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessMessage(c.ackText))
}
