package handlers

import (
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users   *services.UserService
	avatars *services.AvatarUploader
}

func NewUserHandler(users *services.UserService, avatars *services.AvatarUploader) *UserHandler {
	return &UserHandler{users: users, avatars: avatars}
}

type UpdateProfileRequest struct {
	Name        *string           `json:"name" binding:"omitempty,max=100"`
	Avatar      *string           `json:"avatar" binding:"omitempty,url"`
	Contacts    map[string]string `json:"contacts" binding:"omitempty,contacts"`
	Professions []string          `json:"professions" binding:"omitempty,max=10,dive,max=100"`
	Skills      []string          `json:"skills" binding:"omitempty,max=30,dive,max=50"`
}

type AvatarUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// UpdateProfile 修改本人资料，未传的字段保持不变
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, services.ProfileUpdate{
		Name:        req.Name,
		Avatar:      req.Avatar,
		Contacts:    req.Contacts,
		Professions: req.Professions,
		Skills:      req.Skills,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// AvatarUpload 返回 S3 预签名上传地址
func (h *UserHandler) AvatarUpload(c *gin.Context) {
	var req AvatarUploadRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	upload, err := h.avatars.PresignAvatar(c.Request.Context(), currentUser(c).ID, req.ContentType)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, upload)
}
