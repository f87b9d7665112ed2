package services

import (
	"context"
	"strings"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPhoneNumberRequired 登记响应者时缺少电话号码
var ErrPhoneNumberRequired = errors.New("phone number is required")

// InterfaceResponderService 定义响应者目录服务接口
type InterfaceResponderService interface {
	List(ctx context.Context) ([]models.Responder, error)
	PhoneNumbers(ctx context.Context) ([]string, error)
	Register(ctx context.Context, actor models.Actor, phoneNumber string, priority int) (*models.Responder, error)
}

// ResponderService 提供响应者目录，电话号码列表缓存在Redis
type ResponderService struct {
	DB       *gorm.DB
	Redis    InterfaceRedisService
	CacheTTL time.Duration
}

// NewResponderService 创建响应者服务，redisService 可以为空
func NewResponderService(db *gorm.DB, cfg *config.Config, redisService InterfaceRedisService) InterfaceResponderService {
	return &ResponderService{
		DB:       db,
		Redis:    redisService,
		CacheTTL: cfg.ResponderCacheTTL,
	}
}

// 1 List 获取所有在岗响应者，按优先级排序
func (s *ResponderService) List(ctx context.Context) ([]models.Responder, error) {
	responders := []models.Responder{}
	err := s.DB.WithContext(ctx).
		Where("status = ?", "active").
		Order("priority DESC").Order("id ASC").
		Find(&responders).Error
	if err != nil {
		return nil, errors.Wrap(err, "list responders")
	}
	return responders, nil
}

// 2 PhoneNumbers 获取去重后的电话号码，优先读取缓存
func (s *ResponderService) PhoneNumbers(ctx context.Context) ([]string, error) {
	if s.Redis != nil {
		if numbers, err := s.Redis.GetResponderNumbers(ctx); err == nil {
			return numbers, nil
		}
	}

	responders, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(responders))
	numbers := make([]string, 0, len(responders))
	for _, r := range responders {
		n := strings.TrimSpace(r.PhoneNumber)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}

	if s.Redis != nil {
		if err := s.Redis.CacheResponderNumbers(ctx, numbers, s.CacheTTL); err != nil {
			Logger.Warning("[RESPONDER] 缓存电话号码失败: %v", err)
		}
	}
	return numbers, nil
}

// 3 Register 响应者登记或更新自己的联系电话
func (s *ResponderService) Register(ctx context.Context, actor models.Actor, phoneNumber string, priority int) (*models.Responder, error) {
	if !actor.Role.CanResolve() {
		return nil, models.ErrResolveForbidden
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, ErrPhoneNumberRequired
	}

	responder := &models.Responder{
		UserID:      actor.UserID,
		Name:        actor.Name,
		PhoneNumber: phoneNumber,
		Status:      "active",
		Priority:    priority,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone_number", "status", "priority", "updated_at"}),
	}).Create(responder).Error
	if err != nil {
		return nil, errors.Wrap(err, "register responder")
	}

	if s.Redis != nil {
		if err := s.Redis.InvalidateResponderNumbers(ctx); err != nil {
			Logger.Warning("[RESPONDER] 清除电话号码缓存失败: %v", err)
		}
	}
	return responder, nil
}
