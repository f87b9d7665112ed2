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
)

var (
	// ErrAlertNotFound 警报不存在
	ErrAlertNotFound = errors.New("alert not found")
	// ErrAlertInvalid 警报缺少必填字段
	ErrAlertInvalid = errors.New("alert is missing building id")
	// ErrAlertKeyConflict 幂等键属于其他发送者的警报
	ErrAlertKeyConflict = errors.New("idempotency key belongs to another sender")
)

// InterfaceAlertService 定义规范警报存储的服务接口
type InterfaceAlertService interface {
	Create(ctx context.Context, actor models.Actor, input CreateAlertInput) (*models.Alert, bool, error)
	Resolve(ctx context.Context, actor models.Actor, id uint) (*models.Alert, error)
	Get(ctx context.Context, id uint) (*models.Alert, error)
	Query(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	Active(ctx context.Context, actor models.Actor) ([]models.Alert, error)
	History(ctx context.Context, actor models.Actor) ([]models.Alert, error)
}

// CreateAlertInput 创建警报的参数，发送者身份来自令牌
type CreateAlertInput struct {
	BuildingID     string
	Description    string
	MediaIDs       []string
	IdempotencyKey string
	// SenderName 离线记录中保存的发送者名称，为空时使用令牌中的名称
	SenderName string
}

// AlertFilter 查询条件，nil 字段表示不过滤
type AlertFilter struct {
	Resolved *bool
	SenderID string
	Limit    int
}

// AlertService 提供警报相关服务
type AlertService struct {
	DB     *gorm.DB
	Config *config.Config
	Events InterfaceEventService
	Now    func() time.Time
}

// NewAlertService 创建警报服务，events 可以为空（不发布变更事件）
func NewAlertService(db *gorm.DB, cfg *config.Config, events InterfaceEventService) InterfaceAlertService {
	return &AlertService{
		DB:     db,
		Config: cfg,
		Events: events,
		Now:    time.Now,
	}
}

// 1 Create 创建规范警报
//
// 携带幂等键且已存在同键记录时返回已有记录，replayed 为 true，不发布变更事件。
func (s *AlertService) Create(ctx context.Context, actor models.Actor, input CreateAlertInput) (*models.Alert, bool, error) {
	buildingID := strings.TrimSpace(input.BuildingID)
	if buildingID == "" {
		return nil, false, ErrAlertInvalid
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" {
		if existing, err := s.findByKey(ctx, key); err == nil {
			if existing.SenderID != actor.UserID {
				Logger.Warning("[ALERT] 幂等键冲突: 警报 %d 属于 %s，请求者 %s", existing.ID, existing.SenderID, actor.UserID)
				return nil, false, ErrAlertKeyConflict
			}
			alertsReplayed.Inc()
			Logger.Info("[ALERT] 幂等键重放，返回已有警报 id=%d", existing.ID)
			return existing, true, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, errors.Wrap(err, "lookup idempotency key")
		}
	}

	senderName := input.SenderName
	if senderName == "" {
		senderName = actor.Name
	}

	alert := &models.Alert{
		SenderID:    actor.UserID,
		SenderName:  senderName,
		BuildingID:  buildingID,
		Description: input.Description,
		MediaRefs:   append([]string{}, input.MediaIDs...),
	}
	if key != "" {
		alert.IdempotencyKey = &key
	}

	if err := s.DB.WithContext(ctx).Create(alert).Error; err != nil {
		// 并发提交同一幂等键时，唯一索引拒绝第二条记录
		if key != "" {
			if existing, findErr := s.findByKey(ctx, key); findErr == nil {
				if existing.SenderID != actor.UserID {
					return nil, false, ErrAlertKeyConflict
				}
				alertsReplayed.Inc()
				return existing, true, nil
			}
		}
		return nil, false, errors.Wrap(err, "create alert")
	}

	origin := "online"
	if key != "" {
		origin = "sync"
	}
	alertsCreated.WithLabelValues(origin).Inc()
	Logger.Info("[ALERT] 已创建警报 id=%d building=%s sender=%s media=%d", alert.ID, alert.BuildingID, alert.SenderID, len(alert.MediaRefs))

	s.publish(models.AlertChangeCreate, alert.ID)
	return alert, false, nil
}

func (s *AlertService) findByKey(ctx context.Context, key string) (*models.Alert, error) {
	var alert models.Alert
	if err := s.DB.WithContext(ctx).Where("idempotency_key = ?", key).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// 2 Resolve 将警报标记为已解除，只允许响应者
//
// 已解除的警报再次解除视为成功，不再发布事件。
func (s *AlertService) Resolve(ctx context.Context, actor models.Actor, id uint) (*models.Alert, error) {
	if !actor.Role.CanResolve() {
		return nil, models.ErrResolveForbidden
	}

	var alert models.Alert
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return err
		}

		if err := alert.Resolve(actor, s.Now()); err != nil {
			if errors.Is(err, models.ErrAlertAlreadyResolved) {
				return nil
			}
			return err
		}

		// 条件更新保证 is_resolved 只会从 false 变为 true
		result := tx.Model(&models.Alert{}).
			Where("id = ? AND is_resolved = ?", id, false).
			Updates(map[string]interface{}{
				"is_resolved": true,
				"resolved_at": alert.ResolvedAt,
				"resolved_by": alert.ResolvedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "resolve alert %d", id)
	}

	if changed {
		alertsResolved.Inc()
		Logger.Info("[ALERT] 警报 id=%d 已由 %s 解除", id, actor.UserID)
		s.publish(models.AlertChangeUpdate, id)
	}
	return &alert, nil
}

// 3 Get 获取单个警报
func (s *AlertService) Get(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.DB.WithContext(ctx).First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, errors.Wrapf(err, "get alert %d", id)
	}
	return &alert, nil
}

// 4 Query 按条件查询警报，按创建时间倒序
func (s *AlertService) Query(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := s.DB.WithContext(ctx).Model(&models.Alert{})
	if filter.Resolved != nil {
		query = query.Where("is_resolved = ?", *filter.Resolved)
	}
	if filter.SenderID != "" {
		query = query.Where("sender_id = ?", filter.SenderID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	alerts := []models.Alert{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&alerts).Error; err != nil {
		return nil, errors.Wrap(err, "query alerts")
	}
	return alerts, nil
}

// 5 Active 按角色返回未解除的警报：响应者看到全部，其他角色只看到自己发出的
func (s *AlertService) Active(ctx context.Context, actor models.Actor) ([]models.Alert, error) {
	return s.Query(ctx, scopedFilter(actor, false))
}

// 6 History 按角色返回已解除的警报
func (s *AlertService) History(ctx context.Context, actor models.Actor) ([]models.Alert, error) {
	return s.Query(ctx, scopedFilter(actor, true))
}

func scopedFilter(actor models.Actor, resolved bool) AlertFilter {
	filter := AlertFilter{Resolved: &resolved}
	if !actor.Role.SeesAllAlerts() {
		filter.SenderID = actor.UserID
	}
	return filter
}

// publish 发布变更事件；失败只记录日志，订阅方会在下一次事件或重连时重新查询
func (s *AlertService) publish(changeType models.AlertChangeType, id uint) {
	if s.Events == nil {
		return
	}
	evt := models.AlertChangeEvent{Type: changeType, AlertID: id, Timestamp: s.Now().UnixMilli()}
	if err := s.Events.PublishAlertChange(evt); err != nil {
		Logger.Warning("[ALERT] 发布变更事件失败: %v", err)
	}
}
