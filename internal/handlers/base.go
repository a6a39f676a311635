package handlers

import (
	"net/http"

	"supermock/internal/apperrors"
	"supermock/internal/middleware"
	"supermock/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MessageResponse 只带提示信息的响应
type MessageResponse struct {
	Message string `json:"message"`
}

// fail 统一错误出口
func fail(c *gin.Context, err error) {
	apperrors.Abort(c, err)
}

func ok(c *gin.Context, obj any) {
	c.JSON(http.StatusOK, obj)
}

func created(c *gin.Context, obj any) {
	c.JSON(http.StatusCreated, obj)
}

// currentUser 受保护路由里一定存在
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// uuidParam 解析路径中的 ID
func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("Invalid " + name)
	}
	return id, nil
}
