package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/egi-ims/messages-backend/internal/apperrors"
	mw "github.com/egi-ims/messages-backend/internal/middleware"
	"github.com/egi-ims/messages-backend/internal/models"
	"github.com/egi-ims/messages-backend/internal/services"
)

// cursorLayout is the naive UTC timestamp format used in pagination cursors.
const cursorLayout = "2006-01-02T15:04:05.999999"

// MessageHandler handles notification message HTTP requests
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// RegisterMessageRoutes registers message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.SendMessage)
	g.PATCH("/message/:messageId/read", h.MarkRead)
	g.PATCH("/messages/read", h.MarkAllRead)
	g.GET("/messages/unread", h.CountUnread)
	g.GET("/messages", h.ListMessages)
}

// callerID returns the Check-in user Id of the authenticated caller.
func callerID(c echo.Context) (string, error) {
	identity := mw.GetIdentity(c)
	if identity == nil || identity.CheckinUserID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return identity.CheckinUserID, nil
}

// SendMessage sends a message to a user or to all users holding a role
func (h *MessageHandler) SendMessage(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sent, err := h.messageService.Send(c.Request().Context(), caller, &req)
	if err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	count := models.NewCount("Sent")
	count.SentMessages = &sent
	return c.JSON(http.StatusCreated, count)
}

// MarkRead marks one message of the caller as read
func (h *MessageHandler) MarkRead(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message ID")
	}

	if err := h.messageService.MarkRead(c.Request().Context(), caller, uint(messageID)); err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	return c.JSON(http.StatusCreated, models.NewActionSuccess("Read"))
}

// MarkAllRead marks all messages of the caller as read
func (h *MessageHandler) MarkAllRead(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	if err := h.messageService.MarkAllRead(c.Request().Context(), caller); err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	return c.JSON(http.StatusCreated, models.NewActionSuccess("Read"))
}

// CountUnread returns the number of unread messages of the caller
func (h *MessageHandler) CountUnread(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	unread, err := h.messageService.CountUnread(c.Request().Context(), caller)
	if err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	message := "No unread messages"
	if unread > 0 {
		message = "Found unread messages"
	}
	count := models.NewCount(message)
	count.UnreadMessages = &unread
	return c.JSON(http.StatusOK, count)
}

// ListMessages returns the caller's messages in reverse chronological order
func (h *MessageHandler) ListMessages(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return err
	}

	from, err := parseFrom(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid parameter from")
	}

	limit := 0
	if rawLimit := c.QueryParam("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parameter limit")
		}
	}

	page, err := h.messageService.List(c.Request().Context(), caller, from, limit)
	if err != nil {
		return echo.NewHTTPError(apperrors.HTTPStatus(err), err.Error())
	}

	if page.NextFrom != nil {
		page.NextPage = fmt.Sprintf("%s?from=%s&limit=%d",
			c.Request().URL.Path,
			url.QueryEscape(page.NextFrom.UTC().Format(cursorLayout)),
			page.Limit)
	}

	return c.JSON(http.StatusOK, page)
}

// parseFrom interprets the pagination cursor. Empty or "now" means the
// current instant; otherwise the value must be an RFC 3339 timestamp or a
// naive UTC timestamp in the cursor layout.
func parseFrom(raw string) (time.Time, error) {
	if raw == "" || strings.EqualFold(raw, "now") {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(cursorLayout, raw)
}
