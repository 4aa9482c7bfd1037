package service

import (
	"github.com/gin-gonic/gin"

	"github.com/duongdat/filehub-backend/internal/auth/biz"
	"github.com/duongdat/filehub-backend/internal/auth/middleware"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// AuthService exposes register/login/current-user endpoints
type AuthService struct {
	authUseCase *biz.AuthUseCase
	logger      *logger.Logger
}

func NewAuthService(authUseCase *biz.AuthUseCase, log *logger.Logger) *AuthService {
	return &AuthService{
		authUseCase: authUseCase,
		logger:      log,
	}
}

// RegisterPublicRoutes binds the unauthenticated endpoints
func (s *AuthService) RegisterPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", s.Register)
		auth.POST("/login", s.Login)
	}
}

// RegisterProtectedRoutes binds the endpoints requiring a valid token
func (s *AuthService) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.GET("/me", s.Me)
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName" binding:"max=100"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func toUserResponse(u *biz.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// Register handles POST /auth/register
func (s *AuthService) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	user, err := s.authUseCase.Register(c.Request.Context(), biz.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))

	response.Created(c, toUserResponse(user))
}

type loginRequest struct {
	Account  string `json:"account" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
	User      userResponse `json:"user"`
}

// Login handles POST /auth/login. Account may be a username or an email.
func (s *AuthService) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	result, err := s.authUseCase.Login(c.Request.Context(), req.Account, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, loginResponse{
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		User:      toUserResponse(result.User),
	})
}

// Me handles GET /auth/me
func (s *AuthService) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	user, err := s.authUseCase.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toUserResponse(user))
}
