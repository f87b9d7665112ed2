package services

import (
	"fmt"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"
	"rescue-alert-service/internal/infrastructure/mqtt"
)

// InterfaceEventService 定义变更事件与推送通知的发布接口
type InterfaceEventService interface {
	PublishAlertChange(evt models.AlertChangeEvent) error
	PublishNotification(userID string, n models.PushNotification) error
	Connect() error
	Disconnect()
}

// MQTTEventService 通过MQTT发布事件
type MQTTEventService struct {
	Client      *mqtt.Client
	ChangeTopic string
	NotifyTopic string
}

// NewMQTTEventService 创建MQTT事件服务，连接由调用方显式发起
func NewMQTTEventService(cfg *config.Config) InterfaceEventService {
	return &MQTTEventService{
		Client:      mqtt.NewClient(mqtt.OptionsFromConfig(cfg)),
		ChangeTopic: cfg.MQTTChangeTopic,
		NotifyTopic: cfg.MQTTNotifyTopic,
	}
}

// 1 Connect 连接到MQTT服务器
func (s *MQTTEventService) Connect() error {
	return s.Client.Connect()
}

// 2 Disconnect 断开连接
func (s *MQTTEventService) Disconnect() {
	s.Client.Disconnect()
}

// 3 PublishAlertChange 发布警报集合变更事件
func (s *MQTTEventService) PublishAlertChange(evt models.AlertChangeEvent) error {
	return s.Client.Publish(s.ChangeTopic, evt)
}

// 4 PublishNotification 向单个用户的通知主题发布推送
func (s *MQTTEventService) PublishNotification(userID string, n models.PushNotification) error {
	return s.Client.Publish(NotifyTopicFor(s.NotifyTopic, userID), n)
}

// NotifyTopicFor 返回用户的通知主题，例如 rescue/notify/<userId>
func NotifyTopicFor(base, userID string) string {
	return fmt.Sprintf("%s/%s", base, userID)
}
