package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rastreo/internal/carriers"
	"rastreo/internal/database"
	"rastreo/internal/handlers"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL + "/")
}

func TestTrack(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/track", r.URL.Path)

		var req handlers.TrackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "oca", req.Carrier)
		assert.Equal(t, "5079800000002376408", req.TrackingNumber)

		info := carriers.NewTrackingInfo(carriers.OCA, req.TrackingNumber)
		info.CurrentStatus = "Entregado"
		json.NewEncoder(w).Encode(carriers.Successful(info))
	})

	result, err := client.Track(handlers.TrackRequest{
		Carrier:        "oca",
		TrackingNumber: "5079800000002376408",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Entregado", result.Data.CurrentStatus)
}

func TestTrack_APIError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown carrier: dhl"})
	})

	_, err := client.Track(handlers.TrackRequest{Carrier: "dhl"})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Equal(t, "unknown carrier: dhl", apiErr.Message)
}

func TestGetHistory(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "delivered", r.URL.Query().Get("status"))

		entries := []database.HistoryEntry{
			{ID: "oca-1111", Carrier: carriers.OCA, TrackingNumber: "1111",
				Timestamp: time.Now().UTC(), LastStatus: "Entregado"},
		}
		json.NewEncoder(w).Encode(entries)
	})

	entries, err := client.GetHistory(5, "delivered")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "oca-1111", entries[0].ID)
}

func TestDeleteHistoryEntry(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/history/oca-1111", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteHistoryEntry("oca-1111"))
}

func TestRefresh(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/refresh", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"refreshed": 3})
	})

	n, err := client.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetCarriers(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/carriers", r.URL.Path)
		json.NewEncoder(w).Encode(carriers.AllInfo())
	})

	infos, err := client.GetCarriers()
	require.NoError(t, err)
	assert.Len(t, infos, len(carriers.AllCarriers()))
}

func TestInvalidateCache(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/cache/oca-1111", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.InvalidateCache("oca-1111"))
}

func TestHealthCheck_ServerDown(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	require.Error(t, client.HealthCheck())
}
