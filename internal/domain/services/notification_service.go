package services

import (
	"context"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"
	"rescue-alert-service/internal/infrastructure/smsgateway"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/pkg/errors"
)

// ErrNotificationFailed 所有通道都没有成功投递
var ErrNotificationFailed = errors.New("notification was not delivered on any channel")

// SMSSender 短信发送通道
type SMSSender interface {
	Send(ctx context.Context, to, body string, simSlot int) error
}

// InterfaceNotificationService 定义在线路径的通知扇出接口
type InterfaceNotificationService interface {
	Send(ctx context.Context, req NotificationRequest) (*NotificationResult, error)
}

// NotificationRequest send-notification 调用参数
type NotificationRequest struct {
	SenderID string `json:"sender_id"`
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	SMSBody  string `json:"sms_body"`
}

// NotificationResult 各通道的投递统计
type NotificationResult struct {
	Pushed     int `json:"pushed"`
	PushFailed int `json:"push_failed"`
	SMSSent    int `json:"sms_sent"`
	SMSFailed  int `json:"sms_failed"`
}

// NotificationService 向响应者推送通知，并在配置了短信网关时发送短信
type NotificationService struct {
	Responders InterfaceResponderService
	PushTokens InterfacePushTokenService
	Events     InterfaceEventService
	SMS        SMSSender
	Now        func() time.Time
}

// NewNotificationService 创建通知服务；未配置短信网关时只推送
func NewNotificationService(cfg *config.Config, responders InterfaceResponderService, pushTokens InterfacePushTokenService, events InterfaceEventService) InterfaceNotificationService {
	s := &NotificationService{
		Responders: responders,
		PushTokens: pushTokens,
		Events:     events,
		Now:        time.Now,
	}
	if cfg.SMSGatewayURL != "" {
		s.SMS = smsgateway.New(cfg.SMSGatewayURL, cfg.SMSGatewayToken)
	}
	return s
}

// 1 Send 通知所有响应者（发送者本人除外）
//
// 单个响应者投递失败不影响其余响应者；只有全部失败时返回 ErrNotificationFailed。
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) (*NotificationResult, error) {
	responders, err := s.Responders.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &NotificationResult{}
	targets := make([]models.Responder, 0, len(responders))
	for _, r := range responders {
		if r.UserID != req.SenderID {
			targets = append(targets, r)
		}
	}
	if len(targets) == 0 {
		Logger.Warning("[NOTIFY] 没有可通知的响应者")
		return result, nil
	}

	s.push(ctx, req, targets, result)
	s.sendSMS(ctx, req, targets, result)

	Logger.Info("[NOTIFY] 通知完成: 推送 %d/%d, 短信 %d/%d",
		result.Pushed, result.Pushed+result.PushFailed, result.SMSSent, result.SMSSent+result.SMSFailed)

	if result.Pushed == 0 && result.SMSSent == 0 && result.PushFailed+result.SMSFailed > 0 {
		return result, ErrNotificationFailed
	}
	return result, nil
}

func (s *NotificationService) push(ctx context.Context, req NotificationRequest, targets []models.Responder, result *NotificationResult) {
	if s.Events == nil || s.PushTokens == nil {
		return
	}

	userIDs := make([]string, 0, len(targets))
	for _, r := range targets {
		userIDs = append(userIDs, r.UserID)
	}
	withTokens, err := s.PushTokens.UsersWithTokens(ctx, userIDs)
	if err != nil {
		Logger.Error("[NOTIFY] 查询推送令牌失败: %v", err)
		return
	}

	n := models.PushNotification{SenderID: req.SenderID, Title: req.Title, Body: req.Body, SentAt: s.Now().UnixMilli()}
	for _, userID := range withTokens {
		err := s.Events.PublishNotification(userID, n)
		notificationsSent.WithLabelValues("push", outcome(err)).Inc()
		if err != nil {
			result.PushFailed++
			Logger.Warning("[NOTIFY] 推送给 %s 失败: %v", userID, err)
			continue
		}
		result.Pushed++
	}
}

func (s *NotificationService) sendSMS(ctx context.Context, req NotificationRequest, targets []models.Responder, result *NotificationResult) {
	if s.SMS == nil || req.SMSBody == "" {
		return
	}
	for _, r := range targets {
		if r.PhoneNumber == "" {
			continue
		}
		err := s.SMS.Send(ctx, r.PhoneNumber, req.SMSBody, -1)
		notificationsSent.WithLabelValues("sms", outcome(err)).Inc()
		if err != nil {
			result.SMSFailed++
			Logger.Warning("[NOTIFY] 短信发送到 %s 失败: %v", r.PhoneNumber, err)
			continue
		}
		result.SMSSent++
	}
}
