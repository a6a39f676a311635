package handlers

import (
	"net/http"
	"time"

	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	cards *services.CardService
}

func NewCardHandler(cards *services.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

type CreateCardRequest struct {
	Profession string    `json:"profession" binding:"required,notblank,max=100"`
	Skills     []string  `json:"skills" binding:"required,max=30,dive,max=50"`
	Datetime   time.Time `json:"datetime" binding:"required"`
}

// ListCardsQuery GET /cards 的过滤参数
type ListCardsQuery struct {
	Profession string     `form:"profession"`
	Skills     []string   `form:"skill"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h *CardHandler) Create(c *gin.Context) {
	var req CreateCardRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	card, err := h.cards.Create(c.Request.Context(), currentUser(c).ID, req.Profession, req.Skills, req.Datetime)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, card)
}

// List 公开的开放卡片列表
func (h *CardHandler) List(c *gin.Context) {
	var q ListCardsQuery
	if err := validator.BindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}

	cards, err := h.cards.ListOpen(c.Request.Context(), services.CardFilter{
		Profession: q.Profession,
		Skills:     q.Skills,
		From:       q.From,
		To:         q.To,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cards)
}

func (h *CardHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	card, err := h.cards.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, card)
}

// Delete 非所有者或非开放状态时静默成功
func (h *CardHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.cards.Delete(c.Request.Context(), id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
