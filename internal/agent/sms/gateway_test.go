package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayModem(t *testing.T) {
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sims":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"slot":1,"subscription_id":4,"carrier":"Smart"}]`))
		case "/messages":
			var b map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
			bodies = append(bodies, b)
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m := NewGatewayModem(srv.URL, "tok")
	require.NoError(t, m.RequestPermission(context.Background()))

	sims, err := m.SIMs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []SIM{{Slot: 1, SubscriptionID: 4, Carrier: "Smart"}}, sims)

	require.NoError(t, m.Send(context.Background(), "+639", "help", 1))
	require.Len(t, bodies, 1)
	assert.Equal(t, "+639", bodies[0]["to"])
	assert.EqualValues(t, 1, bodies[0]["sim_slot"])
}

func TestGatewayModem_RefusedCredentialIsPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewGatewayModem(srv.URL, "bad")
	assert.ErrorIs(t, m.RequestPermission(context.Background()), ErrPermissionDenied)
	assert.ErrorIs(t, m.Send(context.Background(), "+1", "x", 0), ErrPermissionDenied)
}

func TestNoModemIsNeverReady(t *testing.T) {
	d := NewDispatcher(NoModem{}, nil)
	assert.ErrorIs(t, d.Ready(context.Background(), -1), ErrNoSIM)
}
