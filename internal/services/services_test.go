package services

import (
	"context"
	"testing"
	"time"

	"supermock/internal/apperrors"
	"supermock/internal/config"
	"supermock/internal/db/dbtest"
	"supermock/internal/events"
	"supermock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	reg    *Registry
	db     *gorm.DB
	events *events.Recorder
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	rec := &events.Recorder{}

	reg, err := NewRegistry(Deps{
		DB:        conn,
		Config:    config.Default(),
		Publisher: rec,
		Mail:      &MailService{},
	})
	require.NoError(t, err)

	return &fixture{reg: reg, db: conn, events: rec, ctx: context.Background()}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.reg.Users.Register(f.ctx, email, "password1", email)
	require.NoError(t, err)
	return u
}

func (f *fixture) premium(t *testing.T, email string) *models.User {
	t.Helper()
	u := f.user(t, email)
	u, err := f.reg.Users.SetPlan(f.ctx, u.ID, models.PlanPremium)
	require.NoError(t, err)
	return u
}

func (f *fixture) card(t *testing.T, owner *models.User) *models.Card {
	t.Helper()
	c, err := f.reg.Cards.Create(f.ctx, owner.ID, "Backend Engineer", []string{"Go", "SQL"}, time.Now().Add(24*time.Hour).Truncate(time.Hour))
	require.NoError(t, err)
	return c
}

func (f *fixture) balance(t *testing.T, u *models.User) int {
	t.Helper()
	fresh, err := f.reg.Users.Get(f.ctx, u.ID)
	require.NoError(t, err)
	return fresh.Points
}

func (f *fixture) transactions(t *testing.T, u *models.User) []models.Transaction {
	t.Helper()
	txns, err := f.reg.Ledger.ListTransactions(f.ctx, u.ID)
	require.NoError(t, err)
	return txns
}

// requireAppError 断言错误类型和提示信息
func requireAppError(t *testing.T, err error, kind apperrors.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	if msg != "" {
		assert.Equal(t, msg, appErr.Message)
	}
}
