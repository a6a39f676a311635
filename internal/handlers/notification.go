package handlers

import (
	"supermock/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, list)
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, MessageResponse{Message: "Notification marked as read"})
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, MessageResponse{Message: "All notifications marked as read"})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, MessageResponse{Message: "Notification deleted"})
}
