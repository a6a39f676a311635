package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supermock/internal/apperrors"
	"supermock/internal/models"
	"supermock/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const openCardsCachePrefix = "cards:open:"

// CardFilter 开放卡片的可选过滤条件
type CardFilter struct {
	Profession string
	Skills     []string
	From       *time.Time
	To         *time.Time
}

func (f CardFilter) cacheKey() string {
	var b strings.Builder
	b.WriteString(openCardsCachePrefix)
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Profession)))
	b.WriteString("|")
	for _, s := range f.Skills {
		b.WriteString(strings.ToLower(strings.TrimSpace(s)))
		b.WriteString(",")
	}
	if f.From != nil {
		fmt.Fprintf(&b, "|from=%d", f.From.Unix())
	}
	if f.To != nil {
		fmt.Fprintf(&b, "|to=%d", f.To.Unix())
	}
	return b.String()
}

type CardService struct {
	db    *gorm.DB
	cache *utils.Cache
}

func NewCardService(db *gorm.DB, cache *utils.Cache) *CardService {
	return &CardService{db: db, cache: cache}
}

// Create 发布一张开放卡片
func (s *CardService) Create(ctx context.Context, ownerID uuid.UUID, profession string, skills []string, datetime time.Time) (*models.Card, error) {
	profession = utils.SanitizeText(profession)
	if profession == "" {
		return nil, apperrors.BadRequest("Profession is required")
	}
	if datetime.IsZero() {
		return nil, apperrors.BadRequest("Datetime is required")
	}

	card := models.Card{
		Profession: profession,
		Skills:     utils.SanitizeList(skills),
		Datetime:   datetime.UTC(),
		Status:     models.CardOpen,
		OwnerID:    ownerID,
	}
	if err := s.db.WithContext(ctx).Create(&card).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	s.invalidate()

	return s.Get(ctx, card.ID)
}

// ListOpen 开放卡片按时间升序。结果会短暂缓存，卡片变化时清空
func (s *CardService) ListOpen(ctx context.Context, f CardFilter) ([]models.Card, error) {
	key := f.cacheKey()
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return append([]models.Card(nil), v.([]models.Card)...), nil
		}
	}

	q := s.db.WithContext(ctx).Preload("Owner").Where("status = ?", models.CardOpen)
	if p := strings.TrimSpace(f.Profession); p != "" {
		q = q.Where("LOWER(profession) LIKE ?", "%"+strings.ToLower(p)+"%")
	}
	if f.From != nil {
		q = q.Where("datetime >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("datetime <= ?", f.To.UTC())
	}

	var cards []models.Card
	if err := q.Order("datetime ASC").Find(&cards).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	// 技能存在 JSON 列里，各数据库的 JSON 查询语法不同，这里在内存中过滤
	result := make([]models.Card, 0, len(cards))
	for i := range cards {
		if !cards[i].HasSkills(f.Skills) {
			continue
		}
		cards[i].Owner = cards[i].Owner.Public()
		result = append(result, cards[i])
	}

	if s.cache != nil {
		s.cache.Set(key, result)
	}
	return append([]models.Card(nil), result...), nil
}

func (s *CardService) Get(ctx context.Context, id uuid.UUID) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).Preload("Owner").First(&card, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Card not found")
	}
	card.Owner = card.Owner.Public()
	return &card, nil
}

// Delete 只有所有者能删除开放的卡片；其余情况静默忽略。
// 卡片上的匹配请求一并删除
func (s *CardService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		err := tx.Where("id = ? AND owner_id = ? AND status = ?", id, callerID, models.CardOpen).
			First(&card).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("card_id = ?", card.ID).Delete(&models.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&card).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	if deleted {
		s.invalidate()
	}
	return nil
}

func (s *CardService) invalidate() {
	if s.cache != nil {
		s.cache.DeletePrefix(openCardsCachePrefix)
	}
}
