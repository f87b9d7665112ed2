package container

import (
	"context"
	"sync"
	"time"

	"rescue-alert-service/internal/domain/services"
	"rescue-alert-service/internal/infrastructure/config"
	"rescue-alert-service/internal/infrastructure/storage"
	Logger "rescue-alert-service/pkg/logger"

	"gorm.io/gorm"
)

// Options 可替换的外部依赖，为空时按配置创建
type Options struct {
	Redis  services.InterfaceRedisService
	Events services.InterfaceEventService
	Blobs  storage.BlobStore
}

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 基础服务
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService
	eventService services.InterfaceEventService
	blobStore    storage.BlobStore

	// 业务服务
	alertService        services.InterfaceAlertService
	mediaService        services.InterfaceMediaService
	responderService    services.InterfaceResponderService
	pushTokenService    services.InterfacePushTokenService
	notificationService services.InterfaceNotificationService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config, opts Options) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	container := &ServiceContainer{
		db:           db,
		config:       cfg,
		redisService: opts.Redis,
		eventService: opts.Events,
		blobStore:    opts.Blobs,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jwtService = services.NewJWTService(c.config)

	// 初始化Redis服务，连接失败时不使用缓存
	if c.redisService == nil && c.config.RedisHost != "" {
		redisService := services.NewRedisService(c.config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisService.Ping(ctx); err != nil {
			Logger.Warning("Redis连接测试失败: %v，将不使用Redis缓存", err)
		} else {
			c.redisService = redisService
		}
	}

	// 初始化MQTT事件服务
	if c.eventService == nil && c.config.MQTTBrokerURL != "" {
		eventService := services.NewMQTTEventService(c.config)
		if err := eventService.Connect(); err != nil {
			Logger.Error("MQTT服务连接失败: %v", err)
		}
		c.eventService = eventService
	}

	// 初始化对象存储
	if c.blobStore == nil && c.config.S3Bucket != "" {
		store, err := storage.NewS3Store(context.Background(), c.config)
		if err != nil {
			Logger.Error("对象存储初始化失败: %v", err)
		} else {
			c.blobStore = store
		}
	}

	// 初始化业务服务
	c.alertService = services.NewAlertService(c.db, c.config, c.eventService)
	c.responderService = services.NewResponderService(c.db, c.config, c.redisService)
	c.pushTokenService = services.NewPushTokenService(c.db)
	c.notificationService = services.NewNotificationService(c.config, c.responderService, c.pushTokenService, c.eventService)
	if c.blobStore != nil {
		c.mediaService = services.NewMediaService(c.db, c.config, c.blobStore)
	}
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "events":
		return c.eventService
	case "alert":
		return c.alertService
	case "media":
		return c.mediaService
	case "responder":
		return c.responderService
	case "push_token":
		return c.pushTokenService
	case "notification":
		return c.notificationService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	return c.config
}

// JWT 获取JWT服务
func (c *ServiceContainer) JWT() services.InterfaceJWTService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtService
}

// Alerts 获取警报服务
func (c *ServiceContainer) Alerts() services.InterfaceAlertService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertService
}

// Media 获取媒体服务，未配置对象存储时为空
func (c *ServiceContainer) Media() services.InterfaceMediaService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mediaService
}

// Responders 获取响应者服务
func (c *ServiceContainer) Responders() services.InterfaceResponderService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.responderService
}

// PushTokens 获取推送令牌服务
func (c *ServiceContainer) PushTokens() services.InterfacePushTokenService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pushTokenService
}

// Notifications 获取通知服务
func (c *ServiceContainer) Notifications() services.InterfaceNotificationService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notificationService
}

// Close 释放外部连接
func (c *ServiceContainer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eventService != nil {
		c.eventService.Disconnect()
	}
}
