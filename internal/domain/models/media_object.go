package models

import "time"

// MediaObject 已存入对象存储的媒体元数据，ID 即警报中引用的不透明存储ID
type MediaObject struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	MimeType   string    `gorm:"type:varchar(100)" json:"mime_type"`
	Size       int64     `json:"size"`
	StorageKey string    `gorm:"type:varchar(255);not null" json:"-"`
	UploadedBy string    `gorm:"type:varchar(64);index" json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}
