package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spilist/tokscale/internal/config"
	"github.com/spilist/tokscale/internal/model"
)

func TestSubmit(t *testing.T) {
	var got SubmitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/submit", r.URL.Path)
		assert.Equal(t, "tokscale_secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(SubmitResponse{Success: true, DaysMerged: 3})
	}))
	defer server.Close()

	client := NewClient(&config.Config{
		Server:   server.URL,
		APIKey:   "tokscale_secret",
		DeviceID: "device-1",
	})

	graph := model.Graph{Summary: model.Summary{TotalCost: 1.5}}
	merged, err := client.Submit(context.Background(), graph, []model.Source{model.SourceClaude})

	require.NoError(t, err)
	assert.Equal(t, 3, merged)
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, []model.Source{model.SourceClaude}, got.Sources)
	assert.Equal(t, 1.5, got.Snapshot.Summary.TotalCost)
}

func TestSubmitServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(SubmitResponse{Error: "invalid API key"})
	}))
	defer server.Close()

	client := NewClient(&config.Config{Server: server.URL, APIKey: "bad"})

	_, err := client.Submit(context.Background(), model.Graph{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
}
