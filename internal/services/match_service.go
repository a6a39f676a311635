package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supermock/internal/apperrors"
	"supermock/internal/events"
	"supermock/internal/metrics"
	"supermock/internal/models"
	"supermock/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchReview 评分和反馈，nil 表示不修改
type MatchReview struct {
	Rating   *int
	Feedback *string
}

// MatchService 匹配状态机：
// pending -> confirmed | cancelled | rejected，confirmed -> completed（提交评价时）
type MatchService struct {
	db            *gorm.DB
	freePlanLimit int
	pub           events.Publisher
	notifications *NotificationService
	mail          *MailService
	cards         *CardService
}

func NewMatchService(db *gorm.DB, freePlanLimit int, pub events.Publisher, notifications *NotificationService, mail *MailService, cards *CardService) *MatchService {
	return &MatchService{
		db:            db,
		freePlanLimit: freePlanLimit,
		pub:           pub,
		notifications: notifications,
		mail:          mail,
		cards:         cards,
	}
}

// QuotaMessage 免费计划超限提示
func QuotaMessage(limit int) string {
	return fmt.Sprintf("Free plan limit reached. You can create up to %d matches. Upgrade to Pro for unlimited matches.", limit)
}

// Request 对开放卡片发起匹配请求。免费计划按请求者的全部匹配数计算配额
func (s *MatchService) Request(ctx context.Context, requesterID, cardID uuid.UUID) (*models.Match, error) {
	var (
		match     models.Match
		card      models.Card
		requester models.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住卡片，和 Confirm 串行，确认后不会再出现新的待处理请求
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&card, "id = ?", cardID).Error; err != nil {
			return notFound(err, "Card not found")
		}
		if card.OwnerID == requesterID {
			return apperrors.BadRequest("Cannot request match for your own card")
		}
		if card.Status != models.CardOpen {
			return apperrors.BadRequest("Card is not open for matching")
		}

		// 锁住请求者，避免并发请求同时通过配额检查
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&requester, "id = ?", requesterID).Error; err != nil {
			return notFound(err, "User not found")
		}

		var existing int64
		if err := tx.Model(&models.Match{}).
			Where("card_id = ? AND requester_id = ?", cardID, requesterID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.BadRequest("Match request already sent")
		}

		if requester.Plan == models.PlanFree {
			var count int64
			if err := tx.Model(&models.Match{}).Where("requester_id = ?", requesterID).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(s.freePlanLimit) {
				return apperrors.BadRequest(QuotaMessage(s.freePlanLimit))
			}
		}

		match = models.Match{CardID: cardID, RequesterID: requesterID, Status: models.MatchPending}
		if err := tx.Create(&match).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.BadRequest("Match request already sent")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	metrics.MatchTransitions.WithLabelValues(string(models.MatchPending)).Inc()
	s.publish(events.SubjectMatchRequested, &match, &card)
	s.notifications.Notify(ctx, models.Notification{
		UserID:  card.OwnerID,
		ActorID: &requesterID,
		Type:    models.NotificationMatchRequested,
		Message: fmt.Sprintf("%s requested a mock interview for your %s card", displayName(&requester), card.Profession),
		MatchID: &match.ID,
	})

	return s.Get(ctx, match.ID, requesterID)
}

// Confirm 卡片所有者确认。匹配变为 confirmed、卡片变为 matched，
// 同一卡片上其它待处理请求自动拒绝，全部在一个事务里
func (s *MatchService) Confirm(ctx context.Context, matchID, callerID uuid.UUID) (*models.Match, error) {
	var (
		match    models.Match
		card     models.Card
		siblings []models.Match
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMatchAndCard(tx, matchID, &match, &card); err != nil {
			return err
		}
		if card.OwnerID != callerID {
			return apperrors.Forbidden("Only card owner can confirm match")
		}
		if match.Status != models.MatchPending {
			return apperrors.BadRequest("Match is not pending")
		}
		if card.Status != models.CardOpen {
			return apperrors.BadRequest("Card is not open for matching")
		}

		if err := tx.Model(&match).Update("status", models.MatchConfirmed).Error; err != nil {
			return err
		}
		if err := tx.Model(&card).Update("status", models.CardMatched).Error; err != nil {
			return err
		}

		if err := tx.Where("card_id = ? AND id <> ? AND status = ?", card.ID, match.ID, models.MatchPending).
			Find(&siblings).Error; err != nil {
			return err
		}
		if len(siblings) > 0 {
			if err := tx.Model(&models.Match{}).
				Where("card_id = ? AND id <> ? AND status = ?", card.ID, match.ID, models.MatchPending).
				Update("status", models.MatchRejected).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	s.cards.invalidate()
	metrics.MatchTransitions.WithLabelValues(string(models.MatchConfirmed)).Inc()
	s.publish(events.SubjectMatchConfirmed, &match, &card)
	s.notifications.Notify(ctx, models.Notification{
		UserID:  match.RequesterID,
		ActorID: &callerID,
		Type:    models.NotificationMatchConfirmed,
		Message: fmt.Sprintf("Your mock interview request for %s was confirmed", card.Profession),
		MatchID: &match.ID,
	})
	for i := range siblings {
		sib := siblings[i]
		sib.Status = models.MatchRejected
		metrics.MatchTransitions.WithLabelValues(string(models.MatchRejected)).Inc()
		s.publish(events.SubjectMatchRejected, &sib, &card)
		s.notifications.Notify(ctx, models.Notification{
			UserID:  sib.RequesterID,
			ActorID: &callerID,
			Type:    models.NotificationMatchRejected,
			Message: fmt.Sprintf("The %s slot you requested was given to another candidate", card.Profession),
			MatchID: &sib.ID,
		})
	}

	full, err := s.load(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	s.mail.SendMatchConfirmed(&full.Requester, &full.Card.Owner, &full.Card)
	s.mail.SendMatchConfirmed(&full.Card.Owner, &full.Requester, &full.Card)

	return present(full, callerID), nil
}

// Reject 卡片所有者拒绝待处理请求
func (s *MatchService) Reject(ctx context.Context, matchID, callerID uuid.UUID) (*models.Match, error) {
	var (
		match models.Match
		card  models.Card
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMatchAndCard(tx, matchID, &match, &card); err != nil {
			return err
		}
		if card.OwnerID != callerID {
			return apperrors.Forbidden("Only card owner can reject match")
		}
		if match.Status != models.MatchPending {
			return apperrors.BadRequest("Match is not pending")
		}
		return tx.Model(&match).Update("status", models.MatchRejected).Error
	})
	if err != nil {
		return nil, txError(err)
	}

	metrics.MatchTransitions.WithLabelValues(string(models.MatchRejected)).Inc()
	s.publish(events.SubjectMatchRejected, &match, &card)
	s.notifications.Notify(ctx, models.Notification{
		UserID:  match.RequesterID,
		ActorID: &callerID,
		Type:    models.NotificationMatchRejected,
		Message: fmt.Sprintf("Your mock interview request for %s was declined", card.Profession),
		MatchID: &match.ID,
	})
	return s.Get(ctx, match.ID, callerID)
}

// Cancel 任一参与者取消待处理的匹配，卡片状态不变
func (s *MatchService) Cancel(ctx context.Context, matchID, callerID uuid.UUID) (*models.Match, error) {
	var (
		match models.Match
		card  models.Card
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMatchAndCard(tx, matchID, &match, &card); err != nil {
			return err
		}
		if match.RequesterID != callerID && card.OwnerID != callerID {
			return apperrors.Forbidden("You are not a participant in this match")
		}
		if match.Status != models.MatchPending {
			return apperrors.BadRequest("Only pending matches can be cancelled")
		}
		return tx.Model(&match).Update("status", models.MatchCancelled).Error
	})
	if err != nil {
		return nil, txError(err)
	}

	counterpart := card.OwnerID
	if callerID == card.OwnerID {
		counterpart = match.RequesterID
	}
	metrics.MatchTransitions.WithLabelValues(string(models.MatchCancelled)).Inc()
	s.publish(events.SubjectMatchCancelled, &match, &card)
	s.notifications.Notify(ctx, models.Notification{
		UserID:  counterpart,
		ActorID: &callerID,
		Type:    models.NotificationMatchCancelled,
		Message: fmt.Sprintf("A pending mock interview for %s was cancelled", card.Profession),
		MatchID: &match.ID,
	})
	return s.Get(ctx, match.ID, callerID)
}

// Rate 参与者在确认后提交评分或反馈；confirmed 的匹配和卡片随之变为 completed
func (s *MatchService) Rate(ctx context.Context, matchID, callerID uuid.UUID, review MatchReview) (*models.Match, error) {
	if review.Rating == nil && review.Feedback == nil {
		return nil, apperrors.BadRequest("Rating or feedback is required")
	}
	if review.Rating != nil && (*review.Rating < 1 || *review.Rating > 5) {
		return nil, apperrors.BadRequest("Rating must be between 1 and 5")
	}

	var (
		match     models.Match
		card      models.Card
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMatchAndCard(tx, matchID, &match, &card); err != nil {
			return err
		}
		if match.RequesterID != callerID && card.OwnerID != callerID {
			return apperrors.Forbidden("You are not a participant in this match")
		}
		if match.Status != models.MatchConfirmed && match.Status != models.MatchCompleted {
			return apperrors.BadRequest("Only confirmed matches can be rated")
		}

		updates := map[string]interface{}{}
		if review.Rating != nil {
			updates["rating"] = *review.Rating
		}
		if review.Feedback != nil {
			updates["feedback"] = strings.TrimSpace(*review.Feedback)
		}
		if match.Status == models.MatchConfirmed {
			updates["status"] = models.MatchCompleted
			completed = true
		}
		if err := tx.Model(&match).Updates(updates).Error; err != nil {
			return err
		}
		if completed {
			return tx.Model(&card).Update("status", models.CardCompleted).Error
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}

	counterpart := card.OwnerID
	if callerID == card.OwnerID {
		counterpart = match.RequesterID
	}
	if completed {
		metrics.MatchTransitions.WithLabelValues(string(models.MatchCompleted)).Inc()
		s.publish(events.SubjectMatchCompleted, &match, &card)
	}
	s.notifications.Notify(ctx, models.Notification{
		UserID:  counterpart,
		ActorID: &callerID,
		Type:    models.NotificationMatchRated,
		Message: fmt.Sprintf("You received feedback for the %s mock interview", card.Profession),
		MatchID: &match.ID,
	})
	return s.Get(ctx, match.ID, callerID)
}

// ListForUser 用户作为请求者或卡片所有者的全部匹配，最新在前
func (s *MatchService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Match, error) {
	owned := s.db.Model(&models.Card{}).Select("id").Where("owner_id = ?", userID)

	var matches []models.Match
	err := s.db.WithContext(ctx).
		Preload("Card.Owner").
		Preload("Requester").
		Where("requester_id = ? OR card_id IN (?)", userID, owned).
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	for i := range matches {
		present(&matches[i], userID)
	}
	return matches, nil
}

// Get 单个匹配，只有参与者可见
func (s *MatchService) Get(ctx context.Context, matchID, viewerID uuid.UUID) (*models.Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(viewerID) {
		return nil, apperrors.Forbidden("You are not a participant in this match")
	}
	return present(m, viewerID), nil
}

func (s *MatchService) load(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := s.db.WithContext(ctx).
		Preload("Card.Owner").
		Preload("Requester").
		First(&m, "id = ?", matchID).Error
	if err != nil {
		return nil, notFound(err, "Match not found")
	}
	return &m, nil
}

func (s *MatchService) publish(subject string, m *models.Match, card *models.Card) {
	s.pub.PublishMatch(subject, events.MatchEvent{
		MatchID:     m.ID,
		CardID:      card.ID,
		OwnerID:     card.OwnerID,
		RequesterID: m.RequesterID,
		Status:      string(m.Status),
		OccurredAt:  time.Now(),
	})
}

// lockMatchAndCard 加行锁读取匹配及其卡片
func lockMatchAndCard(tx *gorm.DB, matchID uuid.UUID, match *models.Match, card *models.Card) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(match, "id = ?", matchID).Error; err != nil {
		return notFound(err, "Match not found")
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(card, "id = ?", match.CardID).Error; err != nil {
		return notFound(err, "Card not found")
	}
	return nil
}

// present 按查看者处理字段：联系方式只对已确认匹配的对方可见
func present(m *models.Match, viewerID uuid.UUID) *models.Match {
	disclose := m.Status == models.MatchConfirmed || m.Status == models.MatchCompleted
	ownerContacts := m.Card.Owner.Contacts
	requesterContacts := m.Requester.Contacts

	m.Card.Owner = m.Card.Owner.Public()
	m.Requester = m.Requester.Public()
	if disclose {
		switch viewerID {
		case m.RequesterID:
			m.Card.Owner.Contacts = ownerContacts
		case m.Card.OwnerID:
			m.Requester.Contacts = requesterContacts
		}
	}

	if m.Feedback != nil && *m.Feedback != "" {
		m.FeedbackHTML = utils.RenderMarkdown(*m.Feedback)
	}
	return m
}

// txError 事务里返回的业务错误原样透出，其它包装成内部错误
func txError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}
