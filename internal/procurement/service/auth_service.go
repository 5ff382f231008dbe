package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/config"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	repos *repository.Repositories
	rdb   *redis.Client
	cfg   config.JWTConfig
}

// NewAuthService 创建认证服务，rdb 为空时刷新令牌不做服务端校验
func NewAuthService(repos *repository.Repositories, rdb *redis.Client, cfg config.JWTConfig) *AuthService {
	return &AuthService{repos: repos, rdb: rdb, cfg: cfg}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	User  *entity.User `json:"user"`
	Token *TokenPair   `json:"token"`
}

func refreshKey(jti string) string {
	return "token:refresh:" + jti
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, in *LoginRequest) (*LoginResult, error) {
	user, err := s.repos.User.FindByUsername(ctx, trimmed(in.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if user.Status != entity.StatusActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrUnauthorized
	}

	if err := s.loadPermissions(ctx, user); err != nil {
		return nil, err
	}
	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	_ = s.repos.User.UpdateLastLogin(ctx, user.ID, time.Now())
	return &LoginResult{User: user, Token: pair}, nil
}

func (s *AuthService) loadPermissions(ctx context.Context, user *entity.User) error {
	codes, err := s.repos.User.EffectivePermissionCodes(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("加载权限失败: %w", err)
	}
	user.PermissionCodes = codes
	return nil
}

func roleCodes(user *entity.User) []string {
	if user.Role == nil {
		return []string{}
	}
	return []string{user.Role.Code}
}

// generateTokenPair 生成Token对
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"roles": roleCodes(user),
		"perms": user.PermissionCodes,
		"iss":   s.cfg.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, refreshKey(refreshJti), user.ID, s.cfg.RefreshTokenExpire).Err(); err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) parseRefresh(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || claims["type"] != "refresh" {
		return nil, fmt.Errorf("%w: invalid token type", ErrUnauthorized)
	}
	return claims, nil
}

// RefreshToken 刷新Token，旧的刷新令牌作废
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	userID, _ := claims["sub"].(string)

	if s.rdb != nil {
		stored, err := s.rdb.Get(ctx, refreshKey(jti)).Result()
		if err != nil || stored != userID {
			return nil, fmt.Errorf("%w: refresh token expired or revoked", ErrUnauthorized)
		}
		s.rdb.Del(ctx, refreshKey(jti))
	}

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
	}
	if user.Status != entity.StatusActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}
	if err := s.loadPermissions(ctx, user); err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 作废刷新令牌
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.rdb == nil {
		return nil
	}
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	return s.rdb.Del(ctx, refreshKey(jti)).Err()
}

// GetCurrentUser 获取当前用户（含有效权限）
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.loadPermissions(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
