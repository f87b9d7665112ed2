package models

// PushNotification 推送给响应者设备的通知内容
type PushNotification struct {
	SenderID string `json:"sender_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"`
}
