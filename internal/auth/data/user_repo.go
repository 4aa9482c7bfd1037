package data

import (
	"context"
	"time"

	"github.com/duongdat/filehub-backend/internal/auth/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/database"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// UserPO is the gorm model for accounts
type UserPO struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:50;uniqueIndex;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	FullName     string    `gorm:"size:100"`
	Role         string    `gorm:"size:20;not null;default:USER"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserPO) TableName() string {
	return "users"
}

// UserRepo persists accounts via gorm
type UserRepo struct {
	db *database.DB
}

func NewUserRepo(db *database.DB) *UserRepo {
	return &UserRepo{db: db}
}

// RoleOf resolves the global role of an active account. Unknown or
// disabled users carry no role, which denies everything downstream.
func (r *UserRepo) RoleOf(ctx context.Context, userID int64) (string, error) {
	var role string
	err := r.db.WithContext(ctx).
		Model(&UserPO{}).
		Where("id = ? AND is_active = true", userID).
		Limit(1).
		Pluck("role", &role).Error
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *UserRepo) Create(ctx context.Context, user *biz.User) error {
	po := toUserPO(user)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrUserExists)
		}
		return err
	}
	user.ID = po.ID
	user.CreatedAt = po.CreatedAt
	user.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*biz.User, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).First(&po, id).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAuthUserNotFound)
		}
		return nil, err
	}
	return toBizUser(&po), nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*biz.User, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAuthUserNotFound)
		}
		return nil, err
	}
	return toBizUser(&po), nil
}

func (r *UserRepo) GetByUsernameOrEmail(ctx context.Context, account string) (*biz.User, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", account, account).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAuthUserNotFound)
		}
		return nil, err
	}
	return toBizUser(&po), nil
}

func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return database.Exists(ctx, r.db.DB, &UserPO{}, "username = ?", username)
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return database.Exists(ctx, r.db.DB, &UserPO{}, "email = ?", email)
}

func toUserPO(user *biz.User) *UserPO {
	return &UserPO{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Role:         user.Role,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toBizUser(po *UserPO) *biz.User {
	return &biz.User{
		ID:           po.ID,
		Username:     po.Username,
		Email:        po.Email,
		PasswordHash: po.PasswordHash,
		FullName:     po.FullName,
		Role:         po.Role,
		IsActive:     po.IsActive,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}
