package handlers

import (
	"context"

	"supermock/internal/models"
	"supermock/internal/services"
	"supermock/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matches *services.MatchService
}

func NewMatchHandler(matches *services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

type CreateMatchRequest struct {
	CardID uuid.UUID `json:"card_id" binding:"required"`
}

type RateMatchRequest struct {
	Rating   *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Feedback *string `json:"feedback" binding:"omitempty,max=5000"`
}

func (h *MatchHandler) Create(c *gin.Context) {
	var req CreateMatchRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	match, err := h.matches.Request(c.Request.Context(), currentUser(c).ID, req.CardID)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, match)
}

// List 我发起的和我卡片收到的匹配
func (h *MatchHandler) List(c *gin.Context) {
	matches, err := h.matches.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, matches)
}

// Rate PATCH /matches/:id 提交评分和反馈
func (h *MatchHandler) Rate(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req RateMatchRequest
	if err := validator.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	match, err := h.matches.Rate(c.Request.Context(), id, currentUser(c).ID, services.MatchReview{
		Rating:   req.Rating,
		Feedback: req.Feedback,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, match)
}

func (h *MatchHandler) Confirm(c *gin.Context) { h.transition(c, h.matches.Confirm) }
func (h *MatchHandler) Reject(c *gin.Context)  { h.transition(c, h.matches.Reject) }
func (h *MatchHandler) Cancel(c *gin.Context)  { h.transition(c, h.matches.Cancel) }

type transitionFunc func(ctx context.Context, matchID, callerID uuid.UUID) (*models.Match, error)

func (h *MatchHandler) transition(c *gin.Context, fn transitionFunc) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	match, err := fn(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, match)
}
