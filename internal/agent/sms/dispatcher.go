// Package sms broadcasts offline alerts over the device's cellular capability.
package sms

import (
	"context"
	"time"

	"rescue-alert-service/internal/agent/clock"
	"rescue-alert-service/internal/agent/metrics"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/pkg/errors"
)

var (
	// ErrPermissionDenied means the platform refused SMS access.
	ErrPermissionDenied = errors.New("sms permission denied")
	// ErrNoSIM means no usable SIM slot is present.
	ErrNoSIM = errors.New("no sim card available")
)

// DefaultInterval is the minimum gap between two consecutive sends.
const DefaultInterval = 500 * time.Millisecond

// SIM is one modem slot.
type SIM struct {
	Slot           int    `json:"slot"`
	SubscriptionID int    `json:"subscriptionId"`
	Carrier        string `json:"carrier"`
}

// Modem is the platform SMS capability.
type Modem interface {
	RequestPermission(ctx context.Context) error
	SIMs(ctx context.Context) ([]SIM, error)
	Send(ctx context.Context, number, message string, slot int) error
}

// Attempt is the outcome of one send.
type Attempt struct {
	Number string
	Err    error
}

// Report summarises one broadcast.
type Report struct {
	Attempts []Attempt
}

// Sent counts successful attempts.
func (r Report) Sent() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts failed attempts.
func (r Report) Failed() int {
	return len(r.Attempts) - r.Sent()
}

// Dispatcher sends one message per number, sequentially.
type Dispatcher struct {
	Modem    Modem
	Clock    clock.Clock
	Interval time.Duration
}

// NewDispatcher returns a dispatcher pacing sends by DefaultInterval.
func NewDispatcher(modem Modem, clk clock.Clock) *Dispatcher {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Dispatcher{Modem: modem, Clock: clk, Interval: DefaultInterval}
}

// Ready checks permission and that slot refers to a present SIM. A negative slot accepts any SIM.
func (d *Dispatcher) Ready(ctx context.Context, slot int) error {
	if err := d.Modem.RequestPermission(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return errors.Wrap(ErrPermissionDenied, err.Error())
	}
	sims, err := d.Modem.SIMs(ctx)
	if err != nil {
		return errors.Wrap(err, "list sim cards")
	}
	if len(sims) == 0 {
		return ErrNoSIM
	}
	if slot < 0 {
		return nil
	}
	for _, s := range sims {
		if s.Slot == slot {
			return nil
		}
	}
	return errors.Wrapf(ErrNoSIM, "slot %d", slot)
}

// SendToAll sends message to every number in input order. Each send is awaited and
// consecutive sends are at least Interval apart. A failed send is recorded and the loop
// continues. Only cancellation of ctx stops the broadcast early.
func (d *Dispatcher) SendToAll(ctx context.Context, numbers []string, message string, slot int) Report {
	report := Report{Attempts: make([]Attempt, 0, len(numbers))}

	for i, number := range numbers {
		if i > 0 {
			if err := d.Clock.Sleep(ctx, d.Interval); err != nil {
				Logger.Warning("[SMS] 群发被取消，剩余 %d 个号码未发送", len(numbers)-i)
				return report
			}
		}

		err := d.Modem.Send(ctx, number, message, slot)
		metrics.SMSAttempts.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			Logger.Warning("[SMS] 发送到 %s 失败: %v", number, err)
		} else {
			Logger.Info("[SMS] 已发送到 %s", number)
		}
		report.Attempts = append(report.Attempts, Attempt{Number: number, Err: err})
	}
	return report
}
