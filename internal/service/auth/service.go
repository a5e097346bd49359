package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/zacharykka/prompt-lab/internal/config"
	"github.com/zacharykka/prompt-lab/internal/domain"
	authutil "github.com/zacharykka/prompt-lab/pkg/auth"
	"github.com/google/uuid"
)

const issuer = "prompt-lab"

// TokenPair 返回给客户端的访问/刷新令牌组合。
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Service 负责注册、登录与令牌刷新。
type Service struct {
	users  domain.UserRepository
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewService 构造认证服务。
func NewService(users domain.UserRepository, cfg config.AuthConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, cfg: cfg, logger: logger}
}

// Register 创建新用户并直接签发令牌。
func (s *Service) Register(ctx context.Context, email string, password string, role string) (*domain.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, nil, ErrInvalidInput
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Role:           normalizeRole(role),
		Status:         "active",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, pair, nil
}

// Login 校验凭证并签发令牌。
func (s *Service) Login(ctx context.Context, email string, password string) (*domain.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !authutil.VerifyPassword(user.HashedPassword, password) {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status != "active" {
		return nil, nil, ErrUserDisabled
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, pair, nil
}

// Refresh 使用刷新令牌换取新的令牌对。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := authutil.ParseToken(refreshToken, s.cfg.RefreshTokenSecret)
	if err != nil || claims.TokenType != authutil.TokenTypeRefresh {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if user.Status != "active" {
		return nil, ErrUserDisabled
	}
	return s.issueTokens(user)
}

// issueTokens 同时签发访问令牌与刷新令牌。
func (s *Service) issueTokens(user *domain.User) (*TokenPair, error) {
	base := jwt.RegisteredClaims{
		Issuer:   issuer,
		Audience: jwt.ClaimStrings{issuer},
		Subject:  user.ID,
	}

	access, err := authutil.GenerateToken(s.cfg.AccessTokenSecret, s.cfg.AccessTokenTTL, authutil.Claims{
		UserID:           user.ID,
		Role:             user.Role,
		TokenType:        authutil.TokenTypeAccess,
		RegisteredClaims: base,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := authutil.GenerateToken(s.cfg.RefreshTokenSecret, s.cfg.RefreshTokenTTL, authutil.Claims{
		UserID:           user.ID,
		Role:             user.Role,
		TokenType:        authutil.TokenTypeRefresh,
		RegisteredClaims: base,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return "admin"
	case "editor":
		return "editor"
	default:
		return "viewer"
	}
}
