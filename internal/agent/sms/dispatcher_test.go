package sms

import (
	"context"
	"sync"
	"testing"
	"time"

	"rescue-alert-service/internal/testutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	number string
	slot   int
	at     time.Time
}

type fakeModem struct {
	clock      *testutil.FakeClock
	permission error
	sims       []SIM
	failFor    map[string]bool

	mu   sync.Mutex
	sent []sent
}

func (m *fakeModem) RequestPermission(context.Context) error { return m.permission }

func (m *fakeModem) SIMs(context.Context) ([]SIM, error) { return m.sims, nil }

func (m *fakeModem) Send(_ context.Context, number, _ string, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{number: number, slot: slot, at: m.clock.Now()})
	if m.failFor[number] {
		return errors.New("radio busy")
	}
	return nil
}

func newFixture() (*Dispatcher, *fakeModem, *testutil.FakeClock) {
	clk := testutil.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	m := &fakeModem{clock: clk, sims: []SIM{{Slot: 0, SubscriptionID: 1, Carrier: "Globe"}}}
	return NewDispatcher(m, clk), m, clk
}

func TestDispatcher_SendsInOrderWithSpacing(t *testing.T) {
	d, m, clk := newFixture()
	m.failFor = map[string]bool{"+222": true}

	report := d.SendToAll(context.Background(), []string{"+111", "+222", "+333"}, "help", 1)

	require.Len(t, m.sent, 3)
	assert.Equal(t, "+111", m.sent[0].number)
	assert.Equal(t, "+222", m.sent[1].number)
	assert.Equal(t, "+333", m.sent[2].number)
	for i := 1; i < len(m.sent); i++ {
		assert.GreaterOrEqual(t, m.sent[i].at.Sub(m.sent[i-1].at), 500*time.Millisecond)
	}
	for _, s := range m.sent {
		assert.Equal(t, 1, s.slot)
	}

	assert.Equal(t, 2, report.Sent())
	assert.Equal(t, 1, report.Failed())
	assert.Error(t, report.Attempts[1].Err)
	assert.Equal(t, []time.Duration{DefaultInterval, DefaultInterval}, clk.Sleeps())
}

func TestDispatcher_NoNumbers(t *testing.T) {
	d, m, clk := newFixture()
	report := d.SendToAll(context.Background(), nil, "help", 0)
	assert.Empty(t, report.Attempts)
	assert.Empty(t, m.sent)
	assert.Empty(t, clk.Sleeps())
}

func TestDispatcher_CancelStopsBroadcast(t *testing.T) {
	d, m, _ := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.SendToAll(ctx, []string{"+111", "+222"}, "help", 0)
	assert.Len(t, report.Attempts, 1)
	assert.Len(t, m.sent, 1)
}

func TestDispatcher_Ready(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		d, _, _ := newFixture()
		assert.NoError(t, d.Ready(context.Background(), 0))
		assert.NoError(t, d.Ready(context.Background(), -1))
	})

	t.Run("permission denied", func(t *testing.T) {
		d, m, _ := newFixture()
		m.permission = errors.New("user said no")
		assert.ErrorIs(t, d.Ready(context.Background(), 0), ErrPermissionDenied)
	})

	t.Run("no sim", func(t *testing.T) {
		d, m, _ := newFixture()
		m.sims = nil
		assert.ErrorIs(t, d.Ready(context.Background(), 0), ErrNoSIM)
	})

	t.Run("missing slot", func(t *testing.T) {
		d, _, _ := newFixture()
		assert.ErrorIs(t, d.Ready(context.Background(), 3), ErrNoSIM)
	})
}
