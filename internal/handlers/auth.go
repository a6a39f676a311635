package handlers

import (
	"supermock/internal/auth"
	"supermock/internal/models"
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users         *services.UserService
	notifications *services.NotificationService
	tokens        *auth.TokenManager
}

func NewAuthHandler(users *services.UserService, notifications *services.NotificationService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, notifications: notifications, tokens: tokens}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 注册和登录的返回
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// ProfileResponse 当前用户及未读通知数
type ProfileResponse struct {
	*models.User
	UnreadCount int64 `json:"unread_count"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithToken(c, user, true)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.respondWithToken(c, user, false)
}

// Profile 返回本人完整资料（包括联系方式）
func (h *AuthHandler) Profile(c *gin.Context) {
	user := currentUser(c)
	count, err := h.notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ProfileResponse{User: user, UnreadCount: count})
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User, isNew bool) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		fail(c, err)
		return
	}
	resp := TokenResponse{AccessToken: token, User: user}
	if isNew {
		created(c, resp)
		return
	}
	ok(c, resp)
}
