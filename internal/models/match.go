package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchConfirmed MatchStatus = "confirmed"
	MatchCompleted MatchStatus = "completed"
	MatchRejected  MatchStatus = "rejected"
	MatchCancelled MatchStatus = "cancelled"
)

// Match 请求者对某张卡片发起的匹配，同一请求者对同一卡片最多一条
type Match struct {
	ID           uuid.UUID   `gorm:"type:char(36);primaryKey" json:"id"`
	CardID       uuid.UUID   `gorm:"type:char(36);not null;uniqueIndex:idx_card_requester" json:"card_id"`
	Card         Card        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"card"`
	RequesterID  uuid.UUID   `gorm:"type:char(36);not null;uniqueIndex:idx_card_requester;index" json:"requester_id"`
	Requester    User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"requester"`
	Status       MatchStatus `gorm:"size:20;default:'pending';not null;index" json:"status"`
	Rating       *int        `json:"rating"`
	Feedback     *string     `gorm:"type:text" json:"feedback"`
	FeedbackHTML string      `gorm:"-" json:"feedback_html,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsParticipant 是否为请求者或卡片所有者，需要已加载 Card
func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return m.RequesterID == userID || m.Card.OwnerID == userID
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
