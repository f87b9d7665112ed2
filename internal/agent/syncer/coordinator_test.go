package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rescue-alert-service/internal/agent/apiclient"
	"rescue-alert-service/internal/agent/localstore"
	"rescue-alert-service/internal/agent/media"
	"rescue-alert-service/internal/agent/outbox"
	"rescue-alert-service/internal/testutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a canonical store honouring idempotency keys.
type fakeStore struct {
	mu      sync.Mutex
	alerts  []apiclient.Alert
	byKey   map[string]uint
	failFor map[string]error // building id -> error
	block   chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: map[string]uint{}, failFor: map[string]error{}}
}

func (s *fakeStore) CreateAlert(_ context.Context, req apiclient.CreateAlertRequest) (apiclient.CreateAlertResponse, error) {
	if s.block != nil {
		s.entered <- struct{}{}
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[req.BuildingID]; err != nil {
		return apiclient.CreateAlertResponse{}, err
	}
	if id, ok := s.byKey[req.IdempotencyKey]; ok {
		return apiclient.CreateAlertResponse{Alert: s.alerts[id-1], Replayed: true}, nil
	}
	a := apiclient.Alert{
		ID:          uint(len(s.alerts) + 1),
		BuildingID:  req.BuildingID,
		Description: req.Description,
		MediaRefs:   req.MediaIDs,
	}
	s.alerts = append(s.alerts, a)
	s.byKey[req.IdempotencyKey] = a.ID
	return apiclient.CreateAlertResponse{Alert: a}, nil
}

func (s *fakeStore) all() []apiclient.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apiclient.Alert(nil), s.alerts...)
}

// fakeUploader fails blobs whose name is listed.
type fakeUploader struct {
	fail map[string]bool
}

func (u *fakeUploader) UploadMedia(_ context.Context, b media.Blob) (string, error) {
	if u.fail[b.Name] {
		return "", errors.New("exceeds size limit")
	}
	return "id-" + b.Name, nil
}

type fixture struct {
	queue    *outbox.Store
	clock    *testutil.FakeClock
	store    *fakeStore
	uploader *fakeUploader
	coord    *Coordinator
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	clk := testutil.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	q := outbox.New(localstore.New(root), clk)
	st := newFakeStore()
	up := &fakeUploader{fail: map[string]bool{}}
	return &fixture{
		queue: q, clock: clk, store: st, uploader: up, root: root,
		coord: New(q, media.NewPipeline(up, 2), st, "device-1"),
	}
}

func (f *fixture) enqueue(t *testing.T, building string, blobs ...string) outbox.Key {
	t.Helper()
	rec := outbox.Record{BuildingID: building, Description: "emergency in " + building}
	for _, b := range blobs {
		rec.Media = append(rec.Media, media.Blob{Name: b, MimeType: "image/jpeg", Data: []byte(b)})
	}
	f.clock.Advance(time.Millisecond)
	k, err := f.queue.Enqueue(rec)
	require.NoError(t, err)
	return k
}

func TestSync_DrainsEveryRecordExactlyOnce(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			f := newFixture(t)
			for i := 0; i < n; i++ {
				f.enqueue(t, fmt.Sprint(i), fmt.Sprintf("p%d.jpg", i))
			}

			res, err := f.coord.Sync(context.Background())
			require.NoError(t, err)
			assert.Equal(t, n, res.Committed)
			assert.Zero(t, res.Failed)

			left, err := f.queue.Len()
			require.NoError(t, err)
			assert.Zero(t, left)

			alerts := f.store.all()
			require.Len(t, alerts, n)
			for i, a := range alerts {
				assert.Equal(t, fmt.Sprint(i), a.BuildingID, "按创建顺序提交")
				assert.Equal(t, []string{fmt.Sprintf("id-p%d.jpg", i)}, a.MediaRefs)
			}
		})
	}
}

func TestSync_PartialMediaFailureStillCommits(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail["b.jpg"] = true
	f.enqueue(t, "25", "a.jpg", "b.jpg", "c.jpg")

	res, err := f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Committed)
	assert.Equal(t, 1, res.MediaFailures)

	alerts := f.store.all()
	require.Len(t, alerts, 1)
	assert.Len(t, alerts[0].MediaRefs, 2)
	assert.ElementsMatch(t, []string{"id-a.jpg", "id-c.jpg"}, alerts[0].MediaRefs)
}

func TestSync_CommitFailureKeepsRecordForNextPass(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "1")
	bad := f.enqueue(t, "2")
	f.enqueue(t, "3")
	f.store.failFor["2"] = &apiclient.APIError{Status: 400, Message: "bad"}

	res, err := f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, PhaseQueued, res.Records[1].Phase)

	keys, err := f.queue.Keys()
	require.NoError(t, err)
	assert.Equal(t, []outbox.Key{bad}, keys)

	delete(f.store.failFor, "2")
	res, err = f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Committed)
	assert.Len(t, f.store.all(), 3)
}

func TestSync_UnreachableEndsPassEarly(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "1")
	f.enqueue(t, "2")
	f.store.failFor["1"] = errors.Wrap(apiclient.ErrUnreachable, "dial")

	res, err := f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Records, 1)

	n, _ := f.queue.Len()
	assert.Equal(t, 2, n)
}

func TestSync_CrashBetweenCommitAndDeleteReplays(t *testing.T) {
	f := newFixture(t)
	k := f.enqueue(t, "25", "a.jpg")
	doc := filepath.Join(f.root, "offline", "emergencies", k.String()+".json")
	saved, err := os.ReadFile(doc)
	require.NoError(t, err)

	_, err = f.coord.Sync(context.Background())
	require.NoError(t, err)

	// 模拟删除前崩溃：记录仍在队列里
	require.NoError(t, os.WriteFile(doc, saved, 0o644))

	res, err := f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Len(t, f.store.all(), 1)
	n, _ := f.queue.Len()
	assert.Zero(t, n)
}

func TestSync_OnePassAtATime(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "1")
	f.store.block = make(chan struct{})
	f.store.entered = make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.coord.Sync(context.Background())
		assert.NoError(t, err)
	}()

	<-f.store.entered
	_, err := f.coord.Sync(context.Background())
	assert.ErrorIs(t, err, ErrPassInProgress)

	close(f.store.block)
	<-done
	assert.Len(t, f.store.all(), 1)
}

func TestSync_CancelledBeforeStartLeavesQueue(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.coord.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Committed)

	n, _ := f.queue.Len()
	assert.Equal(t, 1, n)
}

func TestIdempotencyKey(t *testing.T) {
	k := outbox.Key{BuildingID: "25", EnqueuedAt: 1700000000000}
	a := IdempotencyKey(k, "dev-1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, IdempotencyKey(k, "dev-1"))
	assert.NotEqual(t, a, IdempotencyKey(k, "dev-2"))
	assert.NotEqual(t, a, IdempotencyKey(outbox.Key{BuildingID: "25", EnqueuedAt: 1700000000001}, "dev-1"))
}

func TestSync_CancelDuringPassFinishesEveryRecord(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "1")
	f.enqueue(t, "2")
	f.store.block = make(chan struct{})
	f.store.entered = make(chan struct{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan PassResult)
	go func() {
		res, err := f.coord.Sync(ctx)
		assert.NoError(t, err)
		done <- res
	}()

	<-f.store.entered
	cancel()
	close(f.store.block)

	res := <-done
	assert.Equal(t, 2, res.Committed)
	assert.Len(t, f.store.all(), 2)
	n, _ := f.queue.Len()
	assert.Zero(t, n)
}

func TestSync_UsesKeyCarriedByRecord(t *testing.T) {
	f := newFixture(t)
	// 在线提交已经落库，但设备没有收到响应
	f.store.alerts = []apiclient.Alert{{ID: 1, BuildingID: "25"}}
	f.store.byKey["raised-key"] = 1

	f.clock.Advance(time.Millisecond)
	_, err := f.queue.Enqueue(outbox.Record{BuildingID: "25", IdempotencyKey: "raised-key"})
	require.NoError(t, err)

	res, err := f.coord.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Len(t, f.store.all(), 1)
}
