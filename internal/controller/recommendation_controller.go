package controller

import (
	"errors"
	"strings"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/internal/pkg/serverutils"
	"ai-tunemate-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRecommendationController interface {
	RegisterRoutes(r fiber.Router)
	Recommend(ctx *fiber.Ctx) error
	ResetContext(ctx *fiber.Ctx) error
}

type recommendationController struct {
	service service.IRecommendationService
}

func NewRecommendationController(service service.IRecommendationService) IRecommendationController {
	return &recommendationController{
		service: service,
	}
}

func (c *recommendationController) RegisterRoutes(r fiber.Router) {
	r.Post("/recommend", c.Recommend)
	r.Post("/reset", c.ResetContext)
}

func (c *recommendationController) Recommend(ctx *fiber.Ctx) error {
	var req dto.RecommendRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}
	if strings.TrimSpace(req.Message) == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "message must not be empty"))
	}

	// Callers without a session get one minted for them; the response echoes
	// it so they can keep the conversation going.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := c.service.Recommend(ctx.Context(), req.Message, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrNotInitialized) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(resp)
}

func (c *recommendationController) ResetContext(ctx *fiber.Ctx) error {
	c.service.ResetContext(ctx.Context())
	return ctx.JSON(serverutils.SuccessMessage("Conversation memory cleared"))
}
