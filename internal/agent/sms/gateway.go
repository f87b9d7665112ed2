package sms

import (
	"context"

	"rescue-alert-service/internal/infrastructure/smsgateway"

	"github.com/pkg/errors"
)

// GatewayModem drives an HTTP SMS gateway paired with the device.
type GatewayModem struct {
	Client *smsgateway.Client
}

// NewGatewayModem returns a modem for the gateway at baseURL.
func NewGatewayModem(baseURL, token string) *GatewayModem {
	return &GatewayModem{Client: smsgateway.New(baseURL, token)}
}

// RequestPermission probes the gateway; a refused credential is a denied permission.
func (m *GatewayModem) RequestPermission(ctx context.Context) error {
	_, err := m.Client.SIMs(ctx)
	return mapGatewayErr(err)
}

// SIMs lists the gateway's SIM slots.
func (m *GatewayModem) SIMs(ctx context.Context) ([]SIM, error) {
	sims, err := m.Client.SIMs(ctx)
	if err != nil {
		return nil, mapGatewayErr(err)
	}
	out := make([]SIM, 0, len(sims))
	for _, s := range sims {
		out = append(out, SIM{Slot: s.Slot, SubscriptionID: s.SubscriptionID, Carrier: s.Carrier})
	}
	return out, nil
}

// Send submits one message.
func (m *GatewayModem) Send(ctx context.Context, number, message string, slot int) error {
	return mapGatewayErr(m.Client.Send(ctx, number, message, slot))
}

func mapGatewayErr(err error) error {
	if errors.Is(err, smsgateway.ErrUnauthorized) {
		return ErrPermissionDenied
	}
	return err
}

// NoModem is used when the device has no SMS capability configured.
type NoModem struct{}

func (NoModem) RequestPermission(context.Context) error { return nil }

func (NoModem) SIMs(context.Context) ([]SIM, error) { return nil, nil }

func (NoModem) Send(context.Context, string, string, int) error { return ErrNoSIM }
