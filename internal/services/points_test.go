package services

import (
	"testing"

	"supermock/internal/apperrors"
	"supermock/internal/events"
	"supermock/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndDeductPoints(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	txn, err := f.reg.Ledger.AddPoints(f.ctx, u.ID, 30, "Welcome bonus")
	require.NoError(t, err)
	assert.Equal(t, 30, txn.Amount)
	assert.Equal(t, models.TransactionDeposit, txn.Type)

	txn, err = f.reg.Ledger.DeductPoints(f.ctx, u.ID, 12, "Session")
	require.NoError(t, err)
	assert.Equal(t, -12, txn.Amount)
	assert.Equal(t, models.TransactionWithdrawal, txn.Type)

	assert.Equal(t, 18, f.balance(t, u))

	txns := f.transactions(t, u)
	require.Len(t, txns, 2)
	sum := 0
	for _, t := range txns {
		sum += t.Amount
	}
	assert.Equal(t, 18, sum, "balance equals the sum of ledger entries")
}

func TestDeductInsufficientHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	_, err := f.reg.Ledger.AddPoints(f.ctx, u.ID, 10, "seed")
	require.NoError(t, err)

	_, err = f.reg.Ledger.DeductPoints(f.ctx, u.ID, 20, "too much")
	requireAppError(t, err, apperrors.KindBadRequest, "Insufficient points")

	assert.Equal(t, 10, f.balance(t, u))
	assert.Len(t, f.transactions(t, u), 1)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	for _, amount := range []int{0, -5} {
		_, err := f.reg.Ledger.AddPoints(f.ctx, u.ID, amount, "")
		requireAppError(t, err, apperrors.KindBadRequest, "Amount must be a positive number")
		_, err = f.reg.Ledger.DeductPoints(f.ctx, u.ID, amount, "")
		requireAppError(t, err, apperrors.KindBadRequest, "Amount must be a positive number")
	}

	_, err := f.reg.Ledger.AddPoints(f.ctx, uuid.New(), 5, "")
	requireAppError(t, err, apperrors.KindNotFound, "User not found")
	_, err = f.reg.Ledger.DeductPoints(f.ctx, uuid.New(), 5, "")
	requireAppError(t, err, apperrors.KindNotFound, "User not found")

	assert.Empty(t, f.transactions(t, u))
}

func TestAdminAdjust(t *testing.T) {
	f := newFixture(t)
	admin, _, err := f.reg.Users.EnsureAdmin(f.ctx, "admin@example.com", "admin123", "Admin")
	require.NoError(t, err)
	u := f.user(t, "u@example.com")

	user, txn, err := f.reg.Ledger.AdminAdjust(f.ctx, admin.ID, u.ID, 40, "", false)
	require.NoError(t, err)
	assert.Equal(t, 40, user.Points)
	assert.Equal(t, DefaultAdjustmentDescription, txn.Description)

	user, txn, err = f.reg.Ledger.AdminAdjust(f.ctx, admin.ID, u.ID, 15, "Refund reversal", true)
	require.NoError(t, err)
	assert.Equal(t, 25, user.Points)
	assert.Equal(t, -15, txn.Amount)

	_, _, err = f.reg.Ledger.AdminAdjust(f.ctx, admin.ID, u.ID, 100, "", true)
	requireAppError(t, err, apperrors.KindBadRequest, "Insufficient points")

	_, _, err = f.reg.Ledger.AdminAdjust(f.ctx, admin.ID, uuid.Nil, 5, "", false)
	requireAppError(t, err, apperrors.KindBadRequest, "UserId is required")

	assert.Equal(t, []string{events.SubjectPointsAdjusted, events.SubjectPointsAdjusted}, f.events.Subjects())

	all, err := f.reg.Ledger.ListTransactionsForUser(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].User)
	assert.Equal(t, u.ID, all[0].User.ID)

	_, err = f.reg.Ledger.ListTransactionsForUser(f.ctx, uuid.New())
	requireAppError(t, err, apperrors.KindNotFound, "User not found")

	inbox, err := f.reg.Notifications.List(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, models.NotificationPointsAdjusted, inbox[0].Type)
	require.NotNil(t, inbox[0].Actor)
	assert.Nil(t, inbox[0].Actor.Contacts)
}

func TestTransactionsAreImmutable(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "u@example.com")

	txn, err := f.reg.Ledger.AddPoints(f.ctx, u.ID, 5, "seed")
	require.NoError(t, err)

	err = f.db.Model(txn).Update("amount", 500).Error
	assert.ErrorIs(t, err, models.ErrImmutableTransaction)
	err = f.db.Delete(txn).Error
	assert.ErrorIs(t, err, models.ErrImmutableTransaction)

	assert.Equal(t, 5, f.balance(t, u))
}
