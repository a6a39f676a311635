package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationMatchRequested   NotificationType = "match_requested"
	NotificationMatchConfirmed   NotificationType = "match_confirmed"
	NotificationMatchRejected    NotificationType = "match_rejected"
	NotificationMatchCancelled   NotificationType = "match_cancelled"
	NotificationMatchRated       NotificationType = "match_rated"
	NotificationPurchaseApproved NotificationType = "purchase_approved"
	NotificationPurchaseRejected NotificationType = "purchase_rejected"
	NotificationPointsAdjusted   NotificationType = "points_adjusted"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:char(36);not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uuid.UUID       `gorm:"type:char(36);index" json:"actor_id"` // Sender
	Actor     *User            `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"actor,omitempty"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	MatchID   *uuid.UUID       `gorm:"type:char(36);index" json:"match_id"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
