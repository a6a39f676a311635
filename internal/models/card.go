package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CardStatus string

const (
	CardOpen      CardStatus = "open"
	CardMatched   CardStatus = "matched"
	CardCompleted CardStatus = "completed"
)

// Card 面试卡片：职业、技能和时间段
type Card struct {
	ID         uuid.UUID                   `gorm:"type:char(36);primaryKey" json:"id"`
	Profession string                      `gorm:"size:100;not null;index" json:"profession"`
	Skills     datatypes.JSONSlice[string] `json:"skills"`
	Datetime   time.Time                   `gorm:"not null;index" json:"datetime"`
	Status     CardStatus                  `gorm:"size:20;default:'open';not null;index" json:"status"`
	OwnerID    uuid.UUID                   `gorm:"type:char(36);not null;index" json:"owner_id"`
	Owner      User                        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"owner"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasSkills 卡片是否包含全部给定技能（忽略大小写）
func (c *Card) HasSkills(skills []string) bool {
	for _, want := range skills {
		found := false
		for _, have := range c.Skills {
			if equalFold(have, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
