package handlers

import (
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	ledger    *services.LedgerService
	purchases *services.PurchaseService
}

func NewPaymentHandler(ledger *services.LedgerService, purchases *services.PurchaseService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger, purchases: purchases}
}

// 金额由 service 校验，保持统一的错误提示
type PurchaseRequestBody struct {
	Amount      int    `json:"amount"`
	Description string `json:"description" binding:"max=500"`
}

func (h *PaymentHandler) Transactions(c *gin.Context) {
	txns, err := h.ledger.ListTransactions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, txns)
}

func (h *PaymentHandler) CreatePurchaseRequest(c *gin.Context) {
	var req PurchaseRequestBody
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	pr, err := h.purchases.Create(c.Request.Context(), currentUser(c).ID, req.Amount, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, pr)
}

func (h *PaymentHandler) PurchaseRequests(c *gin.Context) {
	reqs, err := h.purchases.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, reqs)
}

func (h *PaymentHandler) DeletePurchaseRequest(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.purchases.Delete(c.Request.Context(), id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, MessageResponse{Message: "Purchase request deleted successfully"})
}
