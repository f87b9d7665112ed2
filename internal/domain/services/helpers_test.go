package services

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/infrastructure/database"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	responderA = models.Actor{UserID: "resp-a", Name: "Ana", Role: models.RoleResponder}
	responderB = models.Actor{UserID: "resp-b", Name: "Ben", Role: models.RoleResponder}
	student    = models.Actor{UserID: "stu-1", Name: "Sam", Role: models.RoleStudent}
	teacher    = models.Actor{UserID: "tch-1", Name: "Tia", Role: models.RoleTeacher}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// fakeEvents 记录发布的事件
type fakeEvents struct {
	mu            sync.Mutex
	changes       []models.AlertChangeEvent
	notifications map[string][]models.PushNotification
	failFor       map[string]bool
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{notifications: map[string][]models.PushNotification{}, failFor: map[string]bool{}}
}

func (f *fakeEvents) PublishAlertChange(evt models.AlertChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, evt)
	return nil
}

func (f *fakeEvents) PublishNotification(userID string, n models.PushNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return io.ErrClosedPipe
	}
	f.notifications[userID] = append(f.notifications[userID], n)
	return nil
}

func (f *fakeEvents) Connect() error { return nil }
func (f *fakeEvents) Disconnect()    {}

func (f *fakeEvents) Changes() []models.AlertChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AlertChangeEvent(nil), f.changes...)
}

// memoryBlobStore 内存对象存储
type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}}
}

func (m *memoryBlobStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return nil
}

func (m *memoryBlobStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blob.test/" + key + "?ttl=" + ttl.String(), nil
}

// memoryRedis 内存实现的 InterfaceRedisService
type memoryRedis struct {
	numbers     []string
	cached      bool
	invalidated int
}

func (m *memoryRedis) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (m *memoryRedis) Get(context.Context, string, interface{}) error            { return redis.Nil }
func (m *memoryRedis) Delete(context.Context, string) error                      { return nil }
func (m *memoryRedis) Ping(context.Context) error                                { return nil }

func (m *memoryRedis) CacheResponderNumbers(_ context.Context, numbers []string, _ time.Duration) error {
	m.numbers = append([]string(nil), numbers...)
	m.cached = true
	return nil
}

func (m *memoryRedis) GetResponderNumbers(context.Context) ([]string, error) {
	if !m.cached {
		return nil, redis.Nil
	}
	return m.numbers, nil
}

func (m *memoryRedis) InvalidateResponderNumbers(context.Context) error {
	m.cached = false
	m.invalidated++
	return nil
}

// recordingSMS 记录短信发送
type recordingSMS struct {
	sent    []string
	failFor map[string]bool
}

func (r *recordingSMS) Send(_ context.Context, to, _ string, _ int) error {
	if r.failFor[to] {
		return io.ErrUnexpectedEOF
	}
	r.sent = append(r.sent, to)
	return nil
}
