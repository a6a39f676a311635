package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// 支持的联系方式平台
var ContactPlatforms = []string{"telegram", "whatsapp", "discord"}

type User struct {
	ID          uuid.UUID                   `gorm:"type:char(36);primaryKey" json:"id"`
	Email       string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string                      `gorm:"not null" json:"-"` // Hash
	Name        string                      `gorm:"size:100" json:"name"`
	Avatar      string                      `gorm:"size:500" json:"avatar"`
	Contacts    datatypes.JSONMap           `json:"contacts,omitempty"` // 仅本人及已确认的匹配对象可见
	Professions datatypes.JSONSlice[string] `json:"professions"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	Plan        Plan                        `gorm:"size:20;default:'free';not null" json:"plan"`
	Role        Role                        `gorm:"size:20;default:'user';not null" json:"role"`
	Points      int                         `gorm:"default:0;not null" json:"points"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public 返回去掉联系方式的副本
func (u User) Public() User {
	u.Contacts = nil
	return u
}
