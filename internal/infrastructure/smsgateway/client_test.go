package smsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	require.NoError(t, c.Send(context.Background(), "+15550001", "hello", 1))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, Message{To: "+15550001", Body: "hello", SimSlot: 1}, got)
}

func TestClient_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Send(context.Background(), "+1", "x", -1)
	assert.Error(t, err)
}

func TestClient_SIMs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sims", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"slot":0,"subscription_id":7,"carrier":"Globe"},{"slot":1,"subscription_id":9,"carrier":"Smart"}]`))
	}))
	defer srv.Close()

	sims, err := New(srv.URL, "").SIMs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SIM{{Slot: 0, SubscriptionID: 7, Carrier: "Globe"}, {Slot: 1, SubscriptionID: 9, Carrier: "Smart"}}, sims)
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	_, err := c.SIMs(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, c.Send(context.Background(), "+1", "x", 0), ErrUnauthorized)
}
