package biz

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/duongdat/filehub-backend/internal/auth"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// Global user roles
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is the account model used by authentication
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	Role         string // ADMIN or USER
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepo is the persistence contract for accounts
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameOrEmail(ctx context.Context, account string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// AuthUseCase implements register/login/current-user flows
type AuthUseCase struct {
	userRepo   UserRepo
	jwtManager *auth.JWTManager
}

func NewAuthUseCase(userRepo UserRepo, jwtManager *auth.JWTManager) *AuthUseCase {
	return &AuthUseCase{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// RegisterInput carries the fields of a registration request
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Register creates a new account with the USER role
func (uc *AuthUseCase) Register(ctx context.Context, in RegisterInput) (*User, error) {
	taken, err := uc.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.New(apperrors.ErrAuthUsernameExists)
	}

	taken, err = uc.userRepo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.New(apperrors.ErrAuthEmailExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(passwordHash),
		FullName:     in.FullName,
		Role:         RoleUser,
		IsActive:     true,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// LoginResult carries the issued token and the authenticated user
type LoginResult struct {
	Token     string
	ExpiresIn int // seconds
	User      *User
}

// Login authenticates by username or email plus password
func (uc *AuthUseCase) Login(ctx context.Context, account, password string) (*LoginResult, error) {
	user, err := uc.userRepo.GetByUsernameOrEmail(ctx, account)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrAuthUserNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthInvalidCredentials)
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.New(apperrors.ErrAuthAccountDisabled)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.New(apperrors.ErrAuthInvalidCredentials)
	}

	token, err := uc.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresIn: int((24 * time.Hour).Seconds()),
		User:      user,
	}, nil
}

// CurrentUser loads the account for an authenticated caller
func (uc *AuthUseCase) CurrentUser(ctx context.Context, userID int64) (*User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}
