package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rescue-alert-service/internal/domain/models"
	"rescue-alert-service/internal/domain/services/container"
	"rescue-alert-service/internal/error/code"
	"rescue-alert-service/internal/infrastructure/config"
	"rescue-alert-service/internal/infrastructure/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordedEvents struct {
	mu      sync.Mutex
	changes []models.AlertChangeEvent
}

func (r *recordedEvents) PublishAlertChange(evt models.AlertChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, evt)
	return nil
}
func (r *recordedEvents) PublishNotification(string, models.PushNotification) error { return nil }
func (r *recordedEvents) Connect() error                                            { return nil }
func (r *recordedEvents) Disconnect()                                               {}

type memBlobs struct{ objects map[string][]byte }

func (m *memBlobs) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	m.objects[key] = b
	return err
}

func (m *memBlobs) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blob.test/" + key, nil
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	events *recordedEvents
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	cfg := &config.Config{JWTSecretKey: "test-secret", MaxMediaSize: 8}
	events := &recordedEvents{}
	c := container.NewServiceContainer(db, cfg, container.Options{Events: events, Blobs: &memBlobs{objects: map[string][]byte{}}})

	s := &testServer{router: SetupRouter(c), events: events, tokens: map[string]string{}}
	for _, a := range []models.Actor{
		{UserID: "stu-1", Name: "Sam", Role: models.RoleStudent},
		{UserID: "resp-a", Name: "Ana", Role: models.RoleResponder},
		{UserID: "resp-b", Name: "Ben", Role: models.RoleResponder},
	} {
		token, err := c.JWT().GenerateToken(a, time.Hour)
		require.NoError(t, err)
		s.tokens[a.UserID] = token
	}
	return s
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (int, apiResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var resp apiResponse
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	status, resp := s.do(t, http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, code.ErrSuccess, resp.Code)
}

func TestHealthStatus(t *testing.T) {
	s := newTestServer(t)
	status, resp := s.do(t, http.MethodGet, "/api/health/status", "", nil)
	require.Equal(t, http.StatusOK, status)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "up", data["database"])
	assert.Equal(t, true, data["media_enabled"])
	assert.Equal(t, false, data["redis_enabled"])
	assert.Equal(t, true, data["mqtt_enabled"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/alerts/active", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp := s.do(t, http.MethodPost, "/api/alerts", "stu-1", map[string]interface{}{
		"building_id": "25",
		"description": "fire",
		"media_ids":   []string{"m1"},
	})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var created struct {
		Alert    models.Alert `json:"alert"`
		Replayed bool         `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.False(t, created.Replayed)
	assert.Equal(t, "stu-1", created.Alert.SenderID)
	id := created.Alert.ID

	// 学生不能解除警报
	status, resp = s.do(t, http.MethodPost, "/api/alerts/1/resolve", "stu-1", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, code.ErrForbidden, resp.Code)

	// 两个响应者都能看到该警报
	for _, user := range []string{"resp-a", "resp-b"} {
		_, resp = s.do(t, http.MethodGet, "/api/alerts/active", user, nil)
		var active []models.Alert
		require.NoError(t, json.Unmarshal(resp.Data, &active))
		require.Len(t, active, 1)
		assert.Equal(t, id, active[0].ID)
	}

	status, _ = s.do(t, http.MethodPost, "/api/alerts/1/resolve", "resp-a", nil)
	assert.Equal(t, http.StatusOK, status)

	_, resp = s.do(t, http.MethodGet, "/api/alerts/active", "resp-b", nil)
	var active []models.Alert
	require.NoError(t, json.Unmarshal(resp.Data, &active))
	assert.Empty(t, active)

	_, resp = s.do(t, http.MethodGet, "/api/alerts/history", "stu-1", nil)
	var history []models.Alert
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 1)
	assert.True(t, history[0].IsResolved)

	require.Len(t, s.events.changes, 2)
	assert.Equal(t, models.AlertChangeCreate, s.events.changes[0].Type)
	assert.Equal(t, models.AlertChangeUpdate, s.events.changes[1].Type)
}

func TestCreateAlert_Validation(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, http.MethodPost, "/api/alerts", "stu-1", map[string]interface{}{"description": "no building"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, code.ErrBind, resp.Code)

	status, resp = s.do(t, http.MethodPost, "/api/alerts/404/resolve", "resp-a", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, code.ErrAlertNotFound, resp.Code)

	status, _ = s.do(t, http.MethodGet, "/api/alerts?resolved=maybe", "resp-a", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateAlert_IdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"building_id": "25", "idempotency_key": "k-1"}

	_, first := s.do(t, http.MethodPost, "/api/alerts", "stu-1", body)
	_, second := s.do(t, http.MethodPost, "/api/alerts", "stu-1", body)

	var a, b struct {
		Alert    models.Alert `json:"alert"`
		Replayed bool         `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(first.Data, &a))
	require.NoError(t, json.Unmarshal(second.Data, &b))
	assert.Equal(t, a.Alert.ID, b.Alert.ID)
	assert.True(t, b.Replayed)

	_, resp := s.do(t, http.MethodGet, "/api/alerts", "resp-a", nil)
	var all []models.Alert
	require.NoError(t, json.Unmarshal(resp.Data, &all))
	assert.Len(t, all, 1)
}

func TestCreateAlert_IdempotencyKeyOfAnotherSender(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"building_id": "25", "idempotency_key": "k-1"}

	status, _ := s.do(t, http.MethodPost, "/api/alerts", "stu-1", body)
	require.Equal(t, http.StatusOK, status)

	status, resp := s.do(t, http.MethodPost, "/api/alerts", "resp-a", body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, code.ErrAlertKeyConflict, resp.Code)
}

func TestMediaUpload(t *testing.T) {
	s := newTestServer(t)

	upload := func(name string, content []byte) (int, apiResponse) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+s.tokens["stu-1"])
		return s.serve(t, req)
	}

	status, resp := upload("a.jpg", []byte("small"))
	require.Equal(t, http.StatusOK, status, resp.Message)
	var obj models.MediaObject
	require.NoError(t, json.Unmarshal(resp.Data, &obj))
	assert.NotEmpty(t, obj.ID)

	status, resp = s.do(t, http.MethodGet, "/api/media/"+obj.ID+"/view", "resp-a", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), obj.ID)

	status, resp = upload("big.mp4", []byte("far too large"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.Equal(t, code.ErrMediaTooLarge, resp.Code)
}

func TestResponderDirectory(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/responders", "stu-1", map[string]interface{}{"phone_number": "+1"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPost, "/api/responders", "resp-a", map[string]interface{}{"phone_number": "+63917"})
	require.Equal(t, http.StatusOK, status)

	_, resp := s.do(t, http.MethodGet, "/api/responders", "stu-1", nil)
	var dir struct {
		PhoneNumbers []string `json:"phone_numbers"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &dir))
	assert.Equal(t, []string{"+63917"}, dir.PhoneNumbers)

	status, _ = s.do(t, http.MethodPost, "/api/push-tokens", "resp-a", map[string]interface{}{"token": "tok", "platform": "android"})
	assert.Equal(t, http.StatusOK, status)

	status, resp = s.do(t, http.MethodPost, "/api/notifications/send", "stu-1", map[string]interface{}{"title": "t", "body": "b"})
	require.Equal(t, http.StatusOK, status, resp.Message)
	assert.Contains(t, string(resp.Data), `"pushed":1`)
}
