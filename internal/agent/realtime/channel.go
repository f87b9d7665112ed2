// Package realtime keeps the device's view of unresolved alerts converged with the canonical store.
package realtime

import (
	"context"
	"sync"
	"time"

	"rescue-alert-service/internal/agent/apiclient"
	"rescue-alert-service/internal/infrastructure/mqtt"
	Logger "rescue-alert-service/pkg/logger"
)

// Fetcher runs the role-scoped "latest unresolved alerts" query.
type Fetcher interface {
	ActiveAlerts(ctx context.Context) ([]apiclient.Alert, error)
}

// Subscriber registers topic handlers on a message broker.
type Subscriber interface {
	Handle(topic string, handler mqtt.MessageHandler) error
}

// View is the projection published to the UI.
type View struct {
	Alerts    []apiclient.Alert
	FetchedAt time.Time
}

// Latest returns the newest alert in the view.
func (v View) Latest() (apiclient.Alert, bool) {
	if len(v.Alerts) == 0 {
		return apiclient.Alert{}, false
	}
	return v.Alerts[0], true
}

// Contains reports whether the alert id is in the view.
func (v View) Contains(id uint) bool {
	for _, a := range v.Alerts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Channel re-queries on every change notification. Fetches may overlap; whichever completes
// last overwrites the view.
type Channel struct {
	fetcher Fetcher
	timeout time.Duration

	mu        sync.RWMutex
	view      View
	listeners []func(View)

	inflight sync.WaitGroup
}

// New returns a channel with an empty view.
func New(fetcher Fetcher) *Channel {
	return &Channel{fetcher: fetcher, timeout: 10 * time.Second}
}

// Attach subscribes to change notifications on topic.
func (c *Channel) Attach(sub Subscriber, topic string) error {
	return sub.Handle(topic, func(_ string, _ []byte) {
		// 变更事件不携带可信数据，只作为重新查询的信号
		c.Notify()
	})
}

// Subscribe registers fn for every published view.
func (c *Channel) Subscribe(fn func(View)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Current returns the last published view.
func (c *Channel) Current() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Notify starts an asynchronous re-query.
func (c *Channel) Notify() {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.Refresh(ctx); err != nil {
			Logger.Warning("[REALTIME] 重新查询未解除警报失败: %v", err)
		}
	}()
}

// Wait blocks until every fetch started by Notify has finished.
func (c *Channel) Wait() {
	c.inflight.Wait()
}

// Refresh runs the query now and publishes the result. A failed fetch keeps the old view.
func (c *Channel) Refresh(ctx context.Context) error {
	alerts, err := c.fetcher.ActiveAlerts(ctx)
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []apiclient.Alert{}
	}
	v := View{Alerts: alerts, FetchedAt: time.Now()}

	c.mu.Lock()
	c.view = v
	listeners := append([]func(View){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
	return nil
}
