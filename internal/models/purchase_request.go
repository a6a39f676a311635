package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseApproved PurchaseStatus = "approved"
	PurchaseRejected PurchaseStatus = "rejected"
)

// PurchaseRequest 用户申请购买积分，由管理员审批。
// 处理人、备注、处理时间三列只通过 Resolve 一起写入
type PurchaseRequest struct {
	ID            uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:char(36);not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Amount        int            `gorm:"not null" json:"amount"`
	Description   string         `gorm:"size:500" json:"description"`
	Status        PurchaseStatus `gorm:"size:20;default:'pending';not null;index" json:"status"`
	AdminNotes    *string        `gorm:"type:text" json:"admin_notes"`
	ProcessedByID *uuid.UUID     `gorm:"type:char(36)" json:"processed_by_id"`
	ProcessedBy   *User          `gorm:"foreignKey:ProcessedByID;constraint:OnDelete:SET NULL;" json:"processed_by,omitempty"`
	ProcessedAt   *time.Time     `json:"processed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Resolution 已处理请求的审批信息
type Resolution struct {
	By    uuid.UUID
	Notes string
	At    time.Time
}

func (p *PurchaseRequest) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Resolve 记录审批结果
func (p *PurchaseRequest) Resolve(status PurchaseStatus, adminID uuid.UUID, notes string, at time.Time) {
	p.Status = status
	p.ProcessedByID = &adminID
	p.ProcessedAt = &at
	if notes != "" {
		p.AdminNotes = &notes
	} else {
		p.AdminNotes = nil
	}
}

// Resolution 未处理时 ok 为 false
func (p *PurchaseRequest) Resolution() (Resolution, bool) {
	if p.ProcessedByID == nil || p.ProcessedAt == nil {
		return Resolution{}, false
	}
	r := Resolution{By: *p.ProcessedByID, At: *p.ProcessedAt}
	if p.AdminNotes != nil {
		r.Notes = *p.AdminNotes
	}
	return r, true
}
