package models

// Responder 表示可接收离线短信的响应者联系方式
type Responder struct {
	BaseModel
	UserID      string `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	Name        string `gorm:"type:varchar(100)" json:"name"`
	PhoneNumber string `gorm:"type:varchar(20);not null" json:"phone_number"`
	Status      string `gorm:"type:varchar(20);default:'active'" json:"status"` // 状态：active, inactive
	Priority    int    `gorm:"default:0" json:"priority"`                       // 联系优先级，数字越大优先级越高
}

// PushToken 设备推送令牌
type PushToken struct {
	BaseModel
	UserID   string `gorm:"type:varchar(64);index;not null" json:"user_id"`
	Token    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	Platform string `gorm:"type:varchar(20)" json:"platform"` // android, ios, web
}
