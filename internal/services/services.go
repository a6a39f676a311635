package services

import (
	"errors"
	"fmt"

	"supermock/internal/apperrors"
	"supermock/internal/config"
	"supermock/internal/events"
	"supermock/internal/utils"

	"gorm.io/gorm"
)

// Registry 汇总所有业务服务，供 handler 和命令行工具使用
type Registry struct {
	Users         *UserService
	Cards         *CardService
	Matches       *MatchService
	Ledger        *LedgerService
	Purchases     *PurchaseService
	Notifications *NotificationService
	Mail          *MailService
	Avatars       *AvatarUploader
}

// Deps 外部依赖，nil 的可选项会被替换为禁用实现
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Publisher events.Publisher
	Mail      *MailService
	Avatars   *AvatarUploader
}

func NewRegistry(d Deps) (*Registry, error) {
	if d.DB == nil {
		return nil, errors.New("services: nil database")
	}
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	pub := d.Publisher
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	mail := d.Mail
	if mail == nil {
		mail = NewMailService(cfg.SMTP)
	}

	cache, err := utils.NewCache(cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	notifications := NewNotificationService(d.DB)
	cards := NewCardService(d.DB, cache)

	return &Registry{
		Users:         NewUserService(d.DB),
		Cards:         cards,
		Matches:       NewMatchService(d.DB, cfg.Match.FreePlanLimit, pub, notifications, mail, cards),
		Ledger:        NewLedgerService(d.DB, pub, notifications),
		Purchases:     NewPurchaseService(d.DB, pub, notifications, mail),
		Notifications: notifications,
		Mail:          mail,
		Avatars:       d.Avatars,
	}, nil
}

// notFound 把 gorm 的记录不存在转换为 NotFound，其它错误视为内部错误
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(msg)
	}
	return apperrors.Internal(err)
}
