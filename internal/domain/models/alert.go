package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// AlertStatus 警报的规范状态
type AlertStatus string

const (
	AlertStatusUnresolved AlertStatus = "unresolved"
	AlertStatusResolved   AlertStatus = "resolved"
)

var (
	// ErrAlertAlreadyResolved 警报已解除，不能重新打开
	ErrAlertAlreadyResolved = errors.New("警报已解除")
	// ErrResolveForbidden 只有响应者可以解除警报
	ErrResolveForbidden = errors.New("只有响应者可以解除警报")
)

// Alert 表示共享的规范警报记录，是永久历史的一部分，从不删除
type Alert struct {
	BaseModel
	SenderID       string                      `gorm:"type:varchar(64);index;not null" json:"sender_id"`
	SenderName     string                      `gorm:"type:varchar(100)" json:"sender_name"`
	BuildingID     string                      `gorm:"type:varchar(20);index;not null" json:"building_id"`
	Description    string                      `gorm:"type:text" json:"description"`
	MediaRefs      datatypes.JSONSlice[string] `gorm:"type:json" json:"media_refs"`
	IsResolved     bool                        `gorm:"index;default:false" json:"is_resolved"`
	ResolvedAt     *time.Time                  `json:"resolved_at,omitempty"`
	ResolvedBy     string                      `gorm:"type:varchar(64)" json:"resolved_by,omitempty"`
	IdempotencyKey *string                     `gorm:"type:varchar(64);uniqueIndex" json:"-"` // 离线同步的去重键，在线创建为空
}

// Status 返回警报当前所处的生命周期状态
func (a *Alert) Status() AlertStatus {
	if a.IsResolved {
		return AlertStatusResolved
	}
	return AlertStatusUnresolved
}

// Resolve 执行 Unresolved -> Resolved 状态转换
//
// 只有响应者可以执行；对已解除的警报返回 ErrAlertAlreadyResolved，调用方可视为幂等成功。
func (a *Alert) Resolve(actor Actor, at time.Time) error {
	if !actor.Role.CanResolve() {
		return ErrResolveForbidden
	}
	if a.IsResolved {
		return ErrAlertAlreadyResolved
	}
	a.IsResolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = actor.UserID
	return nil
}

// VisibleTo 判断警报是否出现在该角色的视图中
func (a *Alert) VisibleTo(actor Actor) bool {
	if actor.Role.SeesAllAlerts() {
		return true
	}
	return a.SenderID == actor.UserID
}

// AlertChangeType 变更通知类型
type AlertChangeType string

const (
	AlertChangeCreate AlertChangeType = "create"
	AlertChangeUpdate AlertChangeType = "update"
)

// AlertChangeEvent 警报集合的变更通知，只承诺“有变化，请重新查询”
type AlertChangeEvent struct {
	Type      AlertChangeType `json:"type"`
	AlertID   uint            `json:"alert_id"`
	Timestamp int64           `json:"timestamp"`
}
