package services

import (
	"context"
	"errors"
	"strings"

	"supermock/internal/apperrors"
	"supermock/internal/models"
	"supermock/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ProfileUpdate 只更新非 nil 字段
type ProfileUpdate struct {
	Name        *string
	Avatar      *string
	Contacts    map[string]string
	Professions []string
	Skills      []string
}

// Register 创建免费计划的普通用户
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("Email already registered")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := models.User{
		Email:       email,
		Password:    hash,
		Name:        utils.SanitizeText(name),
		Contacts:    map[string]interface{}{},
		Professions: []string{},
		Skills:      []string{},
		Plan:        models.PlanFree,
		Role:        models.RoleUser,
		Points:      0,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, apperrors.Internal(err)
	}
	return &user, nil
}

// Authenticate 校验邮箱和密码
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, apperrors.Internal(err)
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperrors.Unauthorized("Invalid credentials")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

// List 管理员查看所有用户，最新注册在前
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}

// UpdateProfile 修改本人资料，文本字段会被清理
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = utils.SanitizeText(*upd.Name)
	}
	if upd.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*upd.Avatar)
	}
	if upd.Contacts != nil {
		contacts := make(map[string]interface{}, len(upd.Contacts))
		for platform, handle := range upd.Contacts {
			if clean := utils.SanitizeText(handle); clean != "" {
				contacts[platform] = clean
			}
		}
		updates["contacts"] = datatypes.JSONMap(contacts)
	}
	if upd.Professions != nil {
		updates["professions"] = datatypes.JSONSlice[string](utils.SanitizeList(upd.Professions))
	}
	if upd.Skills != nil {
		updates["skills"] = datatypes.JSONSlice[string](utils.SanitizeList(upd.Skills))
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, apperrors.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperrors.NotFound("User not found")
		}
	}
	return s.Get(ctx, id)
}

// SetPlan 管理员修改用户计划
func (s *UserService) SetPlan(ctx context.Context, id uuid.UUID, plan models.Plan) (*models.User, error) {
	if !plan.Valid() {
		return nil, apperrors.BadRequest("Invalid plan")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("plan", plan)
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("User not found")
	}
	return s.Get(ctx, id)
}

// EnsureAdmin 创建或提升管理员账号，已存在时重置密码并设为 premium
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.Password = hash
		user.Role = models.RoleAdmin
		user.Plan = models.PlanPremium
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:       email,
			Password:    hash,
			Name:        name,
			Contacts:    map[string]interface{}{},
			Professions: []string{},
			Skills:      []string{},
			Plan:        models.PlanPremium,
			Role:        models.RoleAdmin,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	default:
		return nil, false, err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
