package services

import (
	"context"
	"fmt"
	"time"

	"supermock/internal/apperrors"
	"supermock/internal/events"
	"supermock/internal/metrics"
	"supermock/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 管理员调整积分的默认说明
const DefaultAdjustmentDescription = "Admin adjustment"

func errNonPositiveAmount() error {
	return apperrors.BadRequest("Amount must be a positive number")
}

// LedgerService 积分余额与流水。余额变动和流水写入总在同一事务里
type LedgerService struct {
	db            *gorm.DB
	pub           events.Publisher
	notifications *NotificationService
}

func NewLedgerService(db *gorm.DB, pub events.Publisher, notifications *NotificationService) *LedgerService {
	return &LedgerService{db: db, pub: pub, notifications: notifications}
}

// AddPoints 增加积分并记录 deposit 流水
func (s *LedgerService) AddPoints(ctx context.Context, userID uuid.UUID, amount int, description string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = credit(tx, userID, amount, models.TransactionDeposit, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerEntries.WithLabelValues(string(txn.Type)).Inc()
	return txn, nil
}

// DeductPoints 扣除积分并记录 withdrawal 流水（金额为负）。余额不足时不做任何修改
func (s *LedgerService) DeductPoints(ctx context.Context, userID uuid.UUID, amount int, description string) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = debit(tx, userID, amount, models.TransactionWithdrawal, description)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerEntries.WithLabelValues(string(txn.Type)).Inc()
	return txn, nil
}

// AdminAdjust 管理员直接调整余额，deduct 为 true 时扣除
func (s *LedgerService) AdminAdjust(ctx context.Context, adminID, userID uuid.UUID, amount int, description string, deduct bool) (*models.User, *models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, nil, apperrors.BadRequest("UserId is required")
	}
	if description == "" {
		description = DefaultAdjustmentDescription
	}

	var (
		txn *models.Transaction
		err error
	)
	if deduct {
		txn, err = s.DeductPoints(ctx, userID, amount, description)
	} else {
		txn, err = s.AddPoints(ctx, userID, amount, description)
	}
	if err != nil {
		return nil, nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, nil, notFound(err, "User not found")
	}

	s.pub.PublishPoints(events.PointsEvent{
		UserID:      userID,
		Amount:      txn.Amount,
		Balance:     user.Points,
		Description: description,
		OccurredAt:  time.Now(),
	})
	s.notifications.Notify(ctx, models.Notification{
		UserID:  userID,
		ActorID: &adminID,
		Type:    models.NotificationPointsAdjusted,
		Message: fmt.Sprintf("Your balance changed by %+d points: %s", txn.Amount, description),
	})
	return &user, txn, nil
}

// ListTransactions 用户自己的流水，最新在前
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return txns, nil
}

// ListAllTransactions 全部流水，带上用户信息（不含联系方式）
func (s *LedgerService) ListAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).Preload("User").
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stripTransactionUsers(txns), nil
}

// ListTransactionsForUser 管理员查看某个用户的流水
func (s *LedgerService) ListTransactionsForUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if count == 0 {
		return nil, apperrors.NotFound("User not found")
	}

	var txns []models.Transaction
	err := s.db.WithContext(ctx).Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stripTransactionUsers(txns), nil
}

// credit 在调用方事务中增加余额并追加流水
func credit(tx *gorm.DB, userID uuid.UUID, amount int, kind models.TransactionType, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, errNonPositiveAmount()
	}

	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("User not found")
	}

	return appendTransaction(tx, userID, amount, kind, description)
}

// debit 条件扣减：只有余额足够时才更新，避免并发扣成负数
func debit(tx *gorm.DB, userID uuid.UUID, amount int, kind models.TransactionType, description string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, errNonPositiveAmount()
	}

	res := tx.Model(&models.User{}).
		Where("id = ? AND points >= ?", userID, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return nil, apperrors.Internal(err)
		}
		if count == 0 {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.BadRequest("Insufficient points")
	}

	return appendTransaction(tx, userID, -amount, kind, description)
}

func appendTransaction(tx *gorm.DB, userID uuid.UUID, amount int, kind models.TransactionType, description string) (*models.Transaction, error) {
	txn := &models.Transaction{
		UserID:      userID,
		Amount:      amount,
		Type:        kind,
		Description: description,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return txn, nil
}

func stripTransactionUsers(txns []models.Transaction) []models.Transaction {
	for i := range txns {
		if txns[i].User != nil {
			pub := txns[i].User.Public()
			txns[i].User = &pub
		}
	}
	return txns
}
