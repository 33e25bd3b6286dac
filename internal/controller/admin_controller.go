package controller

import (
	"errors"
	"strconv"

	"ai-tunemate-be/internal/pkg/serverutils"
	"ai-tunemate-be/internal/service"
	ws "ai-tunemate-be/internal/websocket"
	"ai-tunemate-be/pkg/knowledge"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	DeleteSong(ctx *fiber.Ctx) error
	GetSongStats(ctx *fiber.Ctx) error
	GetUsers(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
	hub     *ws.Hub
}

func NewAdminController(service service.IAdminService, hub *ws.Hub) IAdminController {
	return &adminController{
		service: service,
		hub:     hub,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")

	h.Delete("/songs/:id", c.DeleteSong)
	h.Get("/songs/stats", c.GetSongStats)
	h.Get("/users", c.GetUsers)
	h.Get("/stats", c.GetStats)

	// Live activity feed: plain HTTP requests to the websocket path get a 426.
	h.Use("/activity/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("/activity/ws", websocket.New(func(conn *websocket.Conn) {
		ws.ServeWs(c.hub, conn)
	}))
}

func (c *adminController) DeleteSong(ctx *fiber.Ctx) error {
	id, err := strconv.Atoi(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid song ID"))
	}

	if err := c.service.DeleteSong(ctx.Context(), id); err != nil {
		switch {
		case errors.Is(err, knowledge.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Song not found"))
		case errors.Is(err, service.ErrNotInitialized):
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
		}
	}
	return ctx.JSON(serverutils.SuccessMessage("Song deleted"))
}

func (c *adminController) GetSongStats(ctx *fiber.Ctx) error {
	stats, err := c.service.KnowledgeStats(ctx.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotInitialized) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(stats))
}

func (c *adminController) GetUsers(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "20"))

	users, err := c.service.ListUsers(ctx.Context(), page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrAnalyticsDisabled) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(users))
}

func (c *adminController) GetStats(ctx *fiber.Ctx) error {
	stats, err := c.service.Stats(ctx.Context())
	if err != nil {
		if errors.Is(err, service.ErrAnalyticsDisabled) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse(stats))
}
