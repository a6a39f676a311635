package handlers

import (
	"context"

	"supermock/internal/apperrors"
	"supermock/internal/models"
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler 管理员接口，路由组上挂 AdminRequired
type AdminHandler struct {
	users     *services.UserService
	ledger    *services.LedgerService
	purchases *services.PurchaseService
}

func NewAdminHandler(users *services.UserService, ledger *services.LedgerService, purchases *services.PurchaseService) *AdminHandler {
	return &AdminHandler{users: users, ledger: ledger, purchases: purchases}
}

type SetPlanRequest struct {
	Plan string `json:"plan" binding:"required,plan"`
}

// AdjustPointsRequest user_id 缺失时由 service 返回 "UserId is required"
type AdjustPointsRequest struct {
	UserID      string `json:"user_id"`
	Amount      int    `json:"amount"`
	Description string `json:"description" binding:"max=500"`
}

type ProcessPurchaseRequest struct {
	AdminNotes string `json:"admin_notes" binding:"max=1000"`
}

// AdjustPointsResponse 调整后的余额和新流水
type AdjustPointsResponse struct {
	User        *models.User        `json:"user"`
	Transaction *models.Transaction `json:"transaction"`
}

// ListUsers 联系方式只对本人和已确认的对方可见，这里统一去掉
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]models.User, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	ok(c, out)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user.Public())
}

// SetPlan 修改用户计划（free / premium）
func (h *AdminHandler) SetPlan(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req SetPlanRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	user, err := h.users.SetPlan(c.Request.Context(), id, models.Plan(req.Plan))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user.Public())
}

func (h *AdminHandler) Transactions(c *gin.Context) {
	txns, err := h.ledger.ListAllTransactions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, txns)
}

func (h *AdminHandler) UserTransactions(c *gin.Context) {
	id, err := uuidParam(c, "userId")
	if err != nil {
		fail(c, err)
		return
	}
	txns, err := h.ledger.ListTransactionsForUser(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, txns)
}

func (h *AdminHandler) AddPoints(c *gin.Context)    { h.adjust(c, false) }
func (h *AdminHandler) DeductPoints(c *gin.Context) { h.adjust(c, true) }

func (h *AdminHandler) adjust(c *gin.Context, deduct bool) {
	var req AdjustPointsRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	userID := uuid.Nil
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			fail(c, apperrors.BadRequest("Invalid user_id"))
			return
		}
		userID = id
	}

	user, txn, err := h.ledger.AdminAdjust(c.Request.Context(), currentUser(c).ID, userID, req.Amount, req.Description, deduct)
	if err != nil {
		fail(c, err)
		return
	}
	pub := user.Public()
	ok(c, AdjustPointsResponse{User: &pub, Transaction: txn})
}

func (h *AdminHandler) PurchaseRequests(c *gin.Context) {
	reqs, err := h.purchases.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, reqs)
}

func (h *AdminHandler) ApprovePurchase(c *gin.Context) { h.process(c, h.purchases.Approve) }
func (h *AdminHandler) RejectPurchase(c *gin.Context)  { h.process(c, h.purchases.Reject) }

type processFunc = func(ctx context.Context, id, adminID uuid.UUID, notes string) (*models.PurchaseRequest, error)

func (h *AdminHandler) process(c *gin.Context, fn processFunc) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req ProcessPurchaseRequest
	// 备注可选，允许空请求体
	if c.Request.ContentLength != 0 {
		if err := validator.BindJSON(c, &req); err != nil {
			fail(c, err)
			return
		}
	}

	pr, err := fn(c.Request.Context(), id, currentUser(c).ID, req.AdminNotes)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, pr)
}
