package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/loopline-app/loopline/backend/internal/models"
	"github.com/loopline-app/loopline/backend/internal/services"
)

// ChatHandler handles direct-messaging HTTP requests
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// RegisterChatRoutes registers chat-related routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/chats", h.StartChat)
	g.GET("/chats", h.GetChats)
	g.GET("/chats/unread-count", h.GetUnreadChatCount)
	g.GET("/chats/:id/messages", h.ListMessages)
	g.POST("/chats/:id/messages", h.SendMessage)
	g.PUT("/chats/:id/read", h.MarkChatRead)
	g.DELETE("/messages/:id", h.DeleteMessage)
}

// StartChat opens (or returns) the chat with another user
func (h *ChatHandler) StartChat(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.StartChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	chat, err := h.chatService.StartChat(currentUserID, req.OtherUserID)
	if err != nil {
		if errors.Is(err, services.ErrSelfChat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"chat": chat}})
}

// GetChats lists the requester's chats, most recently active first
func (h *ChatHandler) GetChats(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chats, err := h.chatService.GetChats(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"chats": chats}})
}

// ListMessages returns one page of chat history. Clients page either by
// page/limit (page 0 is newest) or by a "before" message-id cursor, which
// does not drift under concurrent sends.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chatID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid chat ID")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 30
	}

	if before := c.QueryParam("before"); before != "" {
		beforeID, err := strconv.ParseUint(before, 10, 32)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
		}
		messages, err := h.chatService.ListMessagesBefore(uint(chatID), currentUserID, uint(beforeID), limit)
		if err != nil {
			return chatServiceError(err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data": echo.Map{
				"messages": messages,
				"has_more": len(messages) == limit,
			},
		})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 0 {
		page = 0
	}

	result, err := h.chatService.ListMessages(uint(chatID), currentUserID, page, limit)
	if err != nil {
		return chatServiceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

// SendMessage persists a message and notifies the other participant
func (h *ChatHandler) SendMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chatID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid chat ID")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message, err := h.chatService.SendMessage(uint(chatID), currentUserID, req.Content, req.Img)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return chatServiceError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"message": message}})
}

// DeleteMessage hard-deletes one of the requester's own messages
func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}

	if err := h.chatService.DeleteMessage(uint(messageID), currentUserID); err != nil {
		if errors.Is(err, services.ErrNotSender) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// MarkChatRead records that the requester has opened the chat
func (h *ChatHandler) MarkChatRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	chatID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid chat ID")
	}

	if err := h.chatService.MarkRead(uint(chatID), currentUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Chat not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// GetUnreadChatCount returns how many chats hold unseen messages
func (h *ChatHandler) GetUnreadChatCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.chatService.UnreadChatCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// chatServiceError maps messaging-store errors onto HTTP statuses. A user
// outside a chat sees 404, not 403, so chat existence is not leaked.
func chatServiceError(err error) error {
	if errors.Is(err, services.ErrNotParticipant) || errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Chat not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
