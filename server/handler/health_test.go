package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/domain"
	"github.com/touka-aoi/tanzbot/server/handler"
)

func TestHealth(t *testing.T) {
	_, m := newAdmin(t, inlineLoop{})
	_, err := m.Add(context.Background(), application.AddRequest{Name: "health-bot", Team: domain.TeamAliens})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.NewHealthHandler(inlineLoop{}, m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string `json:"status"`
		Bots    int    `json:"bots"`
		Clients int    `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Bots)
	assert.Equal(t, 1, body.Clients)
}

func TestHealth_LoopStopped(t *testing.T) {
	_, m := newAdmin(t, inlineLoop{})

	rec := httptest.NewRecorder()
	handler.NewHealthHandler(inlineLoop{err: domain.ErrRoomStopped}, m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
