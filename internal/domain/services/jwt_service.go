package services

import (
	"errors"
	"fmt"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"

	"github.com/golang-jwt/jwt/v4"
)

// InterfaceJWTService 定义JWT服务接口
//
// 令牌由外部账号系统签发，本服务只负责校验并取出身份与角色。
type InterfaceJWTService interface {
	GenerateToken(actor models.Actor, ttl time.Duration) (string, error)
	ExtractActor(tokenString string) (*models.Actor, error)
}

// JWTClaims 定义JWT令牌的声明结构
type JWTClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService 提供JWT相关服务
type JWTService struct {
	secretKey string
	issuer    string
}

// NewJWTService 创建一个新的JWT服务
func NewJWTService(cfg *config.Config) InterfaceJWTService {
	return &JWTService{
		secretKey: cfg.JWTSecretKey,
		issuer:    cfg.JWTIssuer,
	}
}

// 1 GenerateToken 生成JWT令牌，ttl为0时默认24小时
func (s *JWTService) GenerateToken(actor models.Actor, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()

	claims := &JWTClaims{
		UserID: actor.UserID,
		Name:   actor.Name,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// 2 ExtractActor 验证令牌并取出操作者身份
func (s *JWTService) ExtractActor(tokenString string) (*models.Actor, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("令牌缺少用户ID")
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, err
	}

	return &models.Actor{UserID: claims.UserID, Name: claims.Name, Role: role}, nil
}
