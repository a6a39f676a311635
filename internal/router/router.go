package router

import (
	"net/http"

	"supermock/internal/auth"
	"supermock/internal/handlers"
	"supermock/internal/metrics"
	"supermock/internal/middleware"
	"supermock/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, reg *services.Registry, tokens *auth.TokenManager) {
	// Handlers
	authHandler := handlers.NewAuthHandler(reg.Users, reg.Notifications, tokens)
	userHandler := handlers.NewUserHandler(reg.Users, reg.Avatars)
	cardHandler := handlers.NewCardHandler(reg.Cards)
	matchHandler := handlers.NewMatchHandler(reg.Matches)
	paymentHandler := handlers.NewPaymentHandler(reg.Ledger, reg.Purchases)
	notificationHandler := handlers.NewNotificationHandler(reg.Notifications)
	adminHandler := handlers.NewAdminHandler(reg.Users, reg.Ledger, reg.Purchases)

	r.Use(middleware.LoadUser(tokens, reg.Users))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // 健康检查
	r.GET("/metrics", metrics.Handler())                                                    // Prometheus 指标

	// 公共路由 (Public Routes)
	r.POST("/auth/register", authHandler.Register) // 注册
	r.POST("/auth/login", authHandler.Login)       // 登录
	r.GET("/cards", cardHandler.List)              // 开放卡片列表
	r.GET("/cards/:id", cardHandler.Get)           // 卡片详情

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/profile", authHandler.Profile)                      // 当前用户资料
		authorized.PATCH("/users/profile", userHandler.UpdateProfile)             // 修改资料
		authorized.POST("/users/profile/avatar-upload", userHandler.AvatarUpload) // 头像上传地址

		authorized.POST("/cards", cardHandler.Create)       // 发布卡片
		authorized.DELETE("/cards/:id", cardHandler.Delete) // 删除卡片

		authorized.POST("/matches", matchHandler.Create)               // 发起匹配请求
		authorized.GET("/matches", matchHandler.List)                  // 我的匹配
		authorized.PATCH("/matches/:id", matchHandler.Rate)            // 评分和反馈
		authorized.PATCH("/matches/:id/confirm", matchHandler.Confirm) // 卡片所有者确认
		authorized.PATCH("/matches/:id/reject", matchHandler.Reject)   // 卡片所有者拒绝
		authorized.PATCH("/matches/:id/cancel", matchHandler.Cancel)   // 任一方取消

		authorized.GET("/payments/transactions", paymentHandler.Transactions)                      // 积分流水
		authorized.POST("/payments/purchase-request", paymentHandler.CreatePurchaseRequest)        // 申请购买积分
		authorized.GET("/payments/purchase-requests", paymentHandler.PurchaseRequests)             // 我的购买申请
		authorized.DELETE("/payments/purchase-requests/:id", paymentHandler.DeletePurchaseRequest) // 删除待处理申请

		authorized.GET("/notifications", notificationHandler.List)              // 我的通知列表
		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部通知标记为已读
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)     // 删除单条通知
	}

	// 管理员路由 (Admin Routes)
	admin := r.Group("/")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/users/admin/all", adminHandler.ListUsers)      // 所有用户
		admin.GET("/users/admin/:id", adminHandler.GetUser)        // 用户详情
		admin.PATCH("/users/admin/:id/plan", adminHandler.SetPlan) // 修改计划

		admin.GET("/payments/admin/transactions", adminHandler.Transactions)             // 全部流水
		admin.GET("/payments/admin/transactions/:userId", adminHandler.UserTransactions) // 某用户流水
		admin.POST("/payments/admin/add-points", adminHandler.AddPoints)                 // 加积分
		admin.POST("/payments/admin/deduct-points", adminHandler.DeductPoints)           // 扣积分

		admin.GET("/payments/admin/purchase-requests", adminHandler.PurchaseRequests)             // 全部购买申请
		admin.POST("/payments/admin/purchase-requests/:id/approve", adminHandler.ApprovePurchase) // 批准
		admin.POST("/payments/admin/purchase-requests/:id/reject", adminHandler.RejectPurchase)   // 拒绝
	}
}
