package apiclient

import (
	"context"

	"github.com/go-resty/resty/v2"
)

// NotificationRequest is the body of the send-notification function.
type NotificationRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	SMSBody string `json:"sms_body,omitempty"`
}

// NotificationResult reports per-channel delivery counts.
type NotificationResult struct {
	Pushed     int `json:"pushed"`
	PushFailed int `json:"push_failed"`
	SMSSent    int `json:"sms_sent"`
	SMSFailed  int `json:"sms_failed"`
}

// SendNotification triggers the online push/SMS fan-out. The sender is taken from the token.
func (c *Client) SendNotification(ctx context.Context, req NotificationRequest) (NotificationResult, error) {
	var out NotificationResult
	err := c.do(c.HTTP.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(req),
		resty.MethodPost, "/api/notifications/send", &out)
	return out, err
}

// ResponderNumbers returns the responder phone directory.
func (c *Client) ResponderNumbers(ctx context.Context) ([]string, error) {
	var out struct {
		PhoneNumbers []string `json:"phone_numbers"`
	}
	err := c.do(c.HTTP.R().SetContext(ctx), resty.MethodGet, "/api/responders", &out)
	return out.PhoneNumbers, err
}

// RegisterPushToken uploads this device's push token.
func (c *Client) RegisterPushToken(ctx context.Context, token, platform string) error {
	body := map[string]string{"token": token, "platform": platform}
	return c.do(c.HTTP.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(body),
		resty.MethodPost, "/api/push-tokens", nil)
}
