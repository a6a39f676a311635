package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionPurchase   TransactionType = "purchase"
	TransactionReward     TransactionType = "reward"
)

// ErrImmutableTransaction 流水只能追加
var ErrImmutableTransaction = errors.New("transactions are append-only")

// Transaction 积分流水，存入为正数，扣除为负数
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	User        *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Amount      int             `gorm:"not null" json:"amount"`
	Type        TransactionType `gorm:"size:20;not null" json:"type"`
	Description string          `gorm:"size:500" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
