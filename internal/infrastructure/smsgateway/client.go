// Package smsgateway sends text messages through an HTTP SMS gateway.
package smsgateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ErrUnauthorized is returned when the gateway refuses the credential.
var ErrUnauthorized = errors.New("sms gateway refused credentials")

// SIM describes one modem slot reported by GET /sims.
type SIM struct {
	Slot           int    `json:"slot"`
	SubscriptionID int    `json:"subscription_id"`
	Carrier        string `json:"carrier"`
}

// Client posts messages to the gateway's /messages endpoint.
type Client struct {
	HTTP *resty.Client
}

// Message matches the JSON body accepted by POST /messages.
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
	// SimSlot selects the modem SIM on gateways backed by a physical device; -1 leaves it to the gateway.
	SimSlot int `json:"sim_slot"`
}

// New returns a client for baseURL. token is sent as a bearer credential when non-empty.
func New(baseURL, token string) *Client {
	r := resty.New()
	r.SetBaseURL(baseURL)
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")
	r.SetTimeout(10 * time.Second)
	if token != "" {
		r.SetAuthToken(token)
	}
	return &Client{HTTP: r}
}

// Send submits one message. Gateways only acknowledge acceptance, not delivery.
func (c *Client) Send(ctx context.Context, to, body string, simSlot int) error {
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetBody(Message{To: to, Body: body, SimSlot: simSlot}).
		Post("/messages")
	if err != nil {
		return err
	}
	if isAuthError(resp.StatusCode()) {
		return ErrUnauthorized
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway rejected message to %s: %s", to, resp.Status())
	}
	return nil
}

// SIMs lists the gateway's SIM slots.
func (c *Client) SIMs(ctx context.Context) ([]SIM, error) {
	var sims []SIM
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&sims).
		Get("/sims")
	if err != nil {
		return nil, err
	}
	if isAuthError(resp.StatusCode()) {
		return nil, ErrUnauthorized
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sms gateway sim listing failed: %s", resp.Status())
	}
	return sims, nil
}

func isAuthError(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
