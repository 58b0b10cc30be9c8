package handlers

import (
	"context"

	"github.com/coachhub/coachhub-api/internal/models"
	"github.com/coachhub/coachhub-api/internal/services"
	forumws "github.com/coachhub/coachhub-api/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type forumApplicationService interface {
	CreateTopic(ctx context.Context, actor services.Actor, input services.CreateTopicInput) (*models.TopicDetail, error)
	ListTopics(ctx context.Context, input services.TopicListInput) ([]models.Topic, int, error)
	GetTopic(ctx context.Context, topicID int64, viewer string) (*models.TopicDetail, error)
	CreateReply(ctx context.Context, actor services.Actor, topicID int64, body string) (*models.Post, error)
	DeletePost(ctx context.Context, actor services.Actor, postID int64) (*models.Topic, error)
	DeleteTopic(ctx context.Context, actor services.Actor, topicID int64) error
	SetPinned(ctx context.Context, actor services.Actor, topicID int64, pinned bool) (*models.Topic, error)
	SetLocked(ctx context.Context, actor services.Actor, topicID int64, locked bool) (*models.Topic, error)
}

type ForumHandler struct {
	service forumApplicationService
	hub     *forumws.Hub
}

func NewForumHandler(service *services.ForumService, hub *forumws.Hub) *ForumHandler {
	return &ForumHandler{service: service, hub: hub}
}

type createTopicRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category" validate:"omitempty,max=50"`
	Body     string `json:"body" validate:"required"`
}

type createReplyRequest struct {
	Body string `json:"body" validate:"required"`
}

type pinTopicRequest struct {
	Pinned *bool `json:"pinned" validate:"required"`
}

type lockTopicRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

func (h *ForumHandler) ListTopics(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	topics, total, err := h.service.ListTopics(c.Context(), services.TopicListInput{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"topics":     topics,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// GetTopic is public; the viewer is the authenticated user when present, else the client IP.
func (h *ForumHandler) GetTopic(c *fiber.Ctx) error {
	topicID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var userID int64
	if actor, err := actorFromCtx(c); err == nil {
		userID = actor.ID
	}

	topic, err := h.service.GetTopic(c.Context(), topicID, services.ViewerIdentity(userID, c.IP()))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "topic": topic})
}

func (h *ForumHandler) CreateTopic(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}

	var req createTopicRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	topic, err := h.service.CreateTopic(c.Context(), actor, services.CreateTopicInput{
		Title:    req.Title,
		Category: req.Category,
		Body:     req.Body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "topic": topic})
}

func (h *ForumHandler) CreateReply(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	topicID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req createReplyRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	post, err := h.service.CreateReply(c.Context(), actor, topicID, req.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "post": post})
}

func (h *ForumHandler) DeletePost(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	topic, err := h.service.DeletePost(c.Context(), actor, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "topic": topic})
}

func (h *ForumHandler) DeleteTopic(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	topicID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.DeleteTopic(c.Context(), actor, topicID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *ForumHandler) PinTopic(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	topicID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req pinTopicRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	topic, err := h.service.SetPinned(c.Context(), actor, topicID, *req.Pinned)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "topic": topic})
}

func (h *ForumHandler) LockTopic(c *fiber.Ctx) error {
	actor, err := actorFromCtx(c)
	if err != nil {
		return respondError(c, err)
	}
	topicID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req lockTopicRequest
	if err := decodeBody(c, &req); err != nil {
		return respondError(c, err)
	}

	topic, err := h.service.SetLocked(c.Context(), actor, topicID, *req.Locked)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "topic": topic})
}

// FeedUpgrade validates the topic before the websocket handshake.
func (h *ForumHandler) FeedUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fail(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}
	topicID, err := parseOptionalID(c.Query("topic_id"))
	if err != nil || topicID == 0 {
		return fail(c, fiber.StatusBadRequest, "topic_id must be a positive integer")
	}

	c.Locals("topic_id", topicID)
	return c.Next()
}

func (h *ForumHandler) Feed(conn *websocket.Conn) {
	topicID, _ := conn.Locals("topic_id").(int64)
	client := forumws.NewClient(h.hub, conn, topicID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}
