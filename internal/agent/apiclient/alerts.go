package apiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Alert as returned by the canonical store.
type Alert struct {
	ID          uint       `json:"id"`
	SenderID    string     `json:"sender_id"`
	SenderName  string     `json:"sender_name"`
	BuildingID  string     `json:"building_id"`
	Description string     `json:"description"`
	MediaRefs   []string   `json:"media_refs"`
	IsResolved  bool       `json:"is_resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAlertRequest is the body of POST /api/alerts.
type CreateAlertRequest struct {
	BuildingID     string   `json:"building_id"`
	Description    string   `json:"description"`
	MediaIDs       []string `json:"media_ids"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
	SenderName     string   `json:"sender_name,omitempty"`
}

// CreateAlertResponse reports whether the idempotency key matched an existing record.
type CreateAlertResponse struct {
	Alert    Alert `json:"alert"`
	Replayed bool  `json:"replayed"`
}

// CreateAlert commits one canonical alert.
func (c *Client) CreateAlert(ctx context.Context, req CreateAlertRequest) (CreateAlertResponse, error) {
	if req.MediaIDs == nil {
		req.MediaIDs = []string{}
	}
	var out CreateAlertResponse
	err := c.do(c.HTTP.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(req),
		resty.MethodPost, "/api/alerts", &out)
	return out, err
}

// ResolveAlert marks an alert resolved.
func (c *Client) ResolveAlert(ctx context.Context, id uint) (Alert, error) {
	var out Alert
	err := c.do(c.HTTP.R().SetContext(ctx), resty.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", id), &out)
	return out, err
}

// ActiveAlerts returns the role-scoped unresolved alerts, newest first.
func (c *Client) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	var out []Alert
	err := c.do(c.HTTP.R().SetContext(ctx), resty.MethodGet, "/api/alerts/active", &out)
	return out, err
}

// History returns the role-scoped resolved alerts, newest first.
func (c *Client) History(ctx context.Context) ([]Alert, error) {
	var out []Alert
	err := c.do(c.HTTP.R().SetContext(ctx), resty.MethodGet, "/api/alerts/history", &out)
	return out, err
}
