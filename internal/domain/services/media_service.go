package services

import (
	"context"
	"io"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/config"
	"rescue-alert-service/internal/infrastructure/storage"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrMediaTooLarge 单个媒体超过大小限制，只影响该条目
	ErrMediaTooLarge = errors.New("media exceeds size limit")
	// ErrMediaNotFound 媒体不存在
	ErrMediaNotFound = errors.New("media not found")
)

// InterfaceMediaService 定义媒体存储服务接口
type InterfaceMediaService interface {
	Upload(ctx context.Context, actor models.Actor, input UploadMediaInput) (*models.MediaObject, error)
	ViewURL(ctx context.Context, id string) (string, error)
}

// UploadMediaInput 待存储的媒体
type UploadMediaInput struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// MediaService 把媒体写入对象存储并记录元数据
type MediaService struct {
	DB      *gorm.DB
	Store   storage.BlobStore
	MaxSize int64
	URLTTL  time.Duration
}

// NewMediaService 创建媒体服务
func NewMediaService(db *gorm.DB, cfg *config.Config, store storage.BlobStore) InterfaceMediaService {
	return &MediaService{
		DB:      db,
		Store:   store,
		MaxSize: cfg.MaxMediaSize,
		URLTTL:  cfg.PresignTTL,
	}
}

// 1 Upload 存储一个媒体并返回不透明ID
func (s *MediaService) Upload(ctx context.Context, actor models.Actor, input UploadMediaInput) (*models.MediaObject, error) {
	if s.MaxSize > 0 && input.Size > s.MaxSize {
		mediaUploads.WithLabelValues("too_large").Inc()
		return nil, errors.Wrapf(ErrMediaTooLarge, "%s is %d bytes, limit %d", input.Name, input.Size, s.MaxSize)
	}

	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	obj := &models.MediaObject{
		ID:         uuid.New().String(),
		Name:       input.Name,
		MimeType:   mimeType,
		Size:       input.Size,
		UploadedBy: actor.UserID,
	}
	obj.StorageKey = storage.BuildMediaKey(actor.UserID, obj.ID, input.Name)

	if err := s.Store.Put(ctx, obj.StorageKey, mimeType, input.Body, input.Size); err != nil {
		mediaUploads.WithLabelValues("failure").Inc()
		return nil, errors.Wrapf(err, "put %s", obj.StorageKey)
	}

	if err := s.DB.WithContext(ctx).Create(obj).Error; err != nil {
		mediaUploads.WithLabelValues("failure").Inc()
		return nil, errors.Wrap(err, "save media metadata")
	}

	mediaUploads.WithLabelValues("success").Inc()
	Logger.Info("[MEDIA] 已存储媒体 %s (%s, %d bytes)", obj.ID, obj.MimeType, obj.Size)
	return obj, nil
}

// 2 ViewURL 返回媒体的限时查看地址
func (s *MediaService) ViewURL(ctx context.Context, id string) (string, error) {
	var obj models.MediaObject
	if err := s.DB.WithContext(ctx).First(&obj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMediaNotFound
		}
		return "", errors.Wrapf(err, "get media %s", id)
	}

	ttl := s.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return s.Store.PresignGet(ctx, obj.StorageKey, ttl)
}
