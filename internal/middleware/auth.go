package middleware

import (
	"strings"

	"supermock/internal/apperrors"
	"supermock/internal/auth"
	"supermock/internal/models"
	"supermock/internal/services"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser 解析 Authorization: Bearer 令牌并把用户放进 context。
// 没有令牌或令牌无效时不拦截，由 AuthRequired 决定
func LoadUser(tokens *auth.TokenManager, users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Next()
			return
		}

		userID, _, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			c.Next()
			return
		}

		// 每次请求都读库，角色和计划的变更立即生效
		user, err := users.Get(c.Request.Context(), userID)
		if err != nil {
			// 用户已删除按未登录处理，数据库故障直接 500
			if apperrors.KindOf(err) != apperrors.KindNotFound {
				apperrors.Abort(c, err)
				return
			}
			c.Next()
			return
		}
		c.Set(CheckUserKey, user)
		c.Next()
	}
}

// AuthRequired 未登录返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			apperrors.Abort(c, apperrors.Unauthorized("Authentication required"))
			return
		}
		c.Next()
	}
}

// AdminRequired 非管理员返回 403，需放在 AuthRequired 之后
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			apperrors.Abort(c, apperrors.Unauthorized("Authentication required"))
			return
		}
		if !user.IsAdmin() {
			apperrors.Abort(c, apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// CurrentUser 当前登录用户，未登录时为 nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
