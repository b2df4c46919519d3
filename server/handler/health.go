package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/touka-aoi/tanzbot/server/application"
)

// healthTimeout を過ぎてもループが応答しなければ停止中とみなします。
const healthTimeout = time.Second

type healthResponse struct {
	Status  string `json:"status"`
	Bots    int    `json:"bots"`
	Clients int    `json:"clients"`
}

// NewHealthHandler はRoomのループが回っているかを確認し、ボット数と接続数を返します。
// ループが応答しない場合は503です。
func NewHealthHandler(loop Loop, manager *application.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var resp healthResponse
		err := loop.Do(ctx, func(ctx context.Context) error {
			resp.Bots = len(manager.List())
			resp.Clients = len(manager.World().Clients())
			return nil
		})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: err.Error()})
			return
		}
		resp.Status = "ok"
		writeJSON(w, http.StatusOK, resp)
	}
}
