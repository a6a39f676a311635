package services

import (
	"context"
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

// PurchaseService 购买积分申请。批准时入账与状态变更在同一事务
type PurchaseService struct {
	db            *gorm.DB
	pub           events.Publisher
	notifications *NotificationService
	mail          *MailService
}

func NewPurchaseService(db *gorm.DB, pub events.Publisher, notifications *NotificationService, mail *MailService) *PurchaseService {
	return &PurchaseService{db: db, pub: pub, notifications: notifications, mail: mail}
}

// ApprovalDescription 批准后入账流水的说明
func ApprovalDescription(req *models.PurchaseRequest) string {
	desc := req.Description
	if desc == "" {
		desc = "No description"
	}
	return "Purchase request approved: " + desc
}

func (s *PurchaseService) Create(ctx context.Context, userID uuid.UUID, amount int, description string) (*models.PurchaseRequest, error) {
	if amount <= 0 {
		return nil, errNonPositiveAmount()
	}
	req := models.PurchaseRequest{
		UserID:      userID,
		Amount:      amount,
		Description: utils.SanitizeText(description),
		Status:      models.PurchasePending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return &req, nil
}

// ListForUser 用户自己的申请，最新在前
func (s *PurchaseService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := s.db.WithContext(ctx).Preload("ProcessedBy").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stripPurchaseUsers(reqs), nil
}

// ListAll 管理员查看全部申请
func (s *PurchaseService) ListAll(ctx context.Context) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := s.db.WithContext(ctx).Preload("User").Preload("ProcessedBy").
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stripPurchaseUsers(reqs), nil
}

// Approve 批准申请：入账、记录处理人，一个事务完成
func (s *PurchaseService) Approve(ctx context.Context, id, adminID uuid.UUID, notes string) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPendingRequest(tx, id, &req); err != nil {
			return err
		}
		if _, err := credit(tx, req.UserID, req.Amount, models.TransactionDeposit, ApprovalDescription(&req)); err != nil {
			return err
		}
		return resolve(tx, &req, models.PurchaseApproved, adminID, notes)
	})
	if err != nil {
		return nil, txError(err)
	}

	metrics.LedgerEntries.WithLabelValues(string(models.TransactionDeposit)).Inc()
	s.afterDecision(ctx, &req, adminID, events.SubjectPurchaseApproved, models.NotificationPurchaseApproved)
	return s.get(ctx, req.ID)
}

// Reject 拒绝申请，不影响余额
func (s *PurchaseService) Reject(ctx context.Context, id, adminID uuid.UUID, notes string) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPendingRequest(tx, id, &req); err != nil {
			return err
		}
		return resolve(tx, &req, models.PurchaseRejected, adminID, notes)
	})
	if err != nil {
		return nil, txError(err)
	}

	s.afterDecision(ctx, &req, adminID, events.SubjectPurchaseRejected, models.NotificationPurchaseRejected)
	return s.get(ctx, req.ID)
}

// Delete 申请人删除自己待处理的申请
func (s *PurchaseService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.PurchaseRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			return notFound(err, "Purchase request not found")
		}
		if req.UserID != callerID {
			return apperrors.Forbidden("You can only delete your own requests")
		}
		if req.Status != models.PurchasePending {
			return apperrors.BadRequest("You can only delete pending requests")
		}
		return tx.Delete(&req).Error
	})
	return txError(err)
}

func (s *PurchaseService) get(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	if err := s.db.WithContext(ctx).Preload("User").Preload("ProcessedBy").First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Purchase request not found")
	}
	out := stripPurchaseUsers([]models.PurchaseRequest{req})
	return &out[0], nil
}

func (s *PurchaseService) afterDecision(ctx context.Context, req *models.PurchaseRequest, adminID uuid.UUID, subject string, kind models.NotificationType) {
	metrics.PurchaseDecisions.WithLabelValues(string(req.Status)).Inc()
	s.pub.PublishPurchase(subject, events.PurchaseEvent{
		RequestID:  req.ID,
		UserID:     req.UserID,
		AdminID:    adminID,
		Amount:     req.Amount,
		OccurredAt: time.Now(),
	})

	msg := fmt.Sprintf("Your request for %d points was %s", req.Amount, req.Status)
	if res, ok := req.Resolution(); ok && res.Notes != "" {
		msg += ": " + res.Notes
	}
	s.notifications.Notify(ctx, models.Notification{
		UserID:  req.UserID,
		ActorID: &adminID,
		Type:    kind,
		Message: msg,
	})

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", req.UserID).Error; err == nil {
		s.mail.SendPurchaseProcessed(&user, req, user.Points)
	}
}

func lockPendingRequest(tx *gorm.DB, id uuid.UUID, req *models.PurchaseRequest) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(req, "id = ?", id).Error; err != nil {
		return notFound(err, "Purchase request not found")
	}
	if req.Status != models.PurchasePending {
		return apperrors.BadRequest("Request is not pending")
	}
	return nil
}

func resolve(tx *gorm.DB, req *models.PurchaseRequest, status models.PurchaseStatus, adminID uuid.UUID, notes string) error {
	req.Resolve(status, adminID, strings.TrimSpace(notes), time.Now())
	return tx.Model(req).Select("status", "admin_notes", "processed_by_id", "processed_at").Updates(req).Error
}

func stripPurchaseUsers(reqs []models.PurchaseRequest) []models.PurchaseRequest {
	for i := range reqs {
		if reqs[i].User != nil {
			pub := reqs[i].User.Public()
			reqs[i].User = &pub
		}
		if reqs[i].ProcessedBy != nil {
			pub := reqs[i].ProcessedBy.Public()
			reqs[i].ProcessedBy = &pub
		}
	}
	return reqs
}
