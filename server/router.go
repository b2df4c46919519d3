package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/domain"
	"github.com/touka-aoi/tanzbot/server/handler"
)

// Route はHTTPのルーティングを組み立てます。
// /health以外の管理APIはadminロールのJWTを要求します。
func Route(room *domain.Room, manager *application.Manager, names *application.NameSync, adminSecret []byte, originPatterns []string) http.Handler {
	admin := handler.NewAdminHandler(room, manager, names)

	mux := http.NewServeMux()
	mux.Handle("GET /health", handler.NewHealthHandler(room, manager))
	mux.Handle("/ws", handler.NewAcceptHandler(room, originPatterns))
	mux.Handle("/", handler.RequireAdmin(adminSecret, admin.Routes()))
	return otelhttp.NewHandler(mux, "tanzbot",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}
