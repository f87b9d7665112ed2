package services

import (
	"context"
	"strings"

	"rescue-alert-service/internal/domain/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPushTokenInvalid 推送令牌为空
var ErrPushTokenInvalid = errors.New("push token is empty")

// InterfacePushTokenService 定义推送令牌服务接口
type InterfacePushTokenService interface {
	Register(ctx context.Context, actor models.Actor, token, platform string) (*models.PushToken, error)
	UsersWithTokens(ctx context.Context, userIDs []string) ([]string, error)
}

// PushTokenService 记录设备推送令牌
type PushTokenService struct {
	DB *gorm.DB
}

// NewPushTokenService 创建推送令牌服务
func NewPushTokenService(db *gorm.DB) InterfacePushTokenService {
	return &PushTokenService{DB: db}
}

// 1 Register 登记令牌；同一令牌换了用户时归属最新登录的用户
func (s *PushTokenService) Register(ctx context.Context, actor models.Actor, token, platform string) (*models.PushToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrPushTokenInvalid
	}

	pt := &models.PushToken{UserID: actor.UserID, Token: token, Platform: platform}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(pt).Error
	if err != nil {
		return nil, errors.Wrap(err, "register push token")
	}
	return pt, nil
}

// 2 UsersWithTokens 过滤出至少登记过一个推送令牌的用户
func (s *PushTokenService) UsersWithTokens(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []string
	err := s.DB.WithContext(ctx).Model(&models.PushToken{}).
		Where("user_id IN ?", userIDs).
		Distinct().Pluck("user_id", &users).Error
	if err != nil {
		return nil, errors.Wrap(err, "query push tokens")
	}
	return users, nil
}
