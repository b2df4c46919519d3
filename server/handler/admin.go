package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/touka-aoi/tanzbot/server/application"
	"github.com/touka-aoi/tanzbot/server/domain"
	"github.com/touka-aoi/tanzbot/utils"
)

var ErrBadRequest = errors.New("bad request")

type Loop = application.Loop

// AdminHandler はボット管理APIです。
// Managerはループ上でしか触れないため、ボットの操作はLoop.Doの中で行います。
// 名前プールへの入出力はループを止めないよう、NameSyncを通してループの外で行います。
type AdminHandler struct {
	loop    Loop
	manager *application.Manager
	names   *application.NameSync
}

func NewAdminHandler(loop Loop, manager *application.Manager, names *application.NameSync) *AdminHandler {
	return &AdminHandler{loop: loop, manager: manager, names: names}
}

// Routes は管理APIのルーティングを返します。
func (h *AdminHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bots", h.addBot)
	mux.HandleFunc("GET /bots", h.listBots)
	mux.HandleFunc("DELETE /bots", h.removeAllBots)
	mux.HandleFunc("DELETE /bots/{slot}", h.removeBot)
	mux.HandleFunc("PUT /bots/{slot}/behavior", h.changeBehavior)
	mux.HandleFunc("POST /areas/disable", h.disableArea)
	mux.HandleFunc("POST /areas/enable", h.enableArea)
	mux.HandleFunc("POST /names", h.addNames)
	mux.HandleFunc("GET /names", h.listNames)
	mux.HandleFunc("DELETE /names", h.clearNames)
	mux.HandleFunc("POST /fill", h.fill)
	return mux
}

type addBotRequest struct {
	Name     string      `json:"name"`
	Team     domain.Team `json:"team"`
	Skill    int         `json:"skill"`
	Behavior string      `json:"behavior"`
	Filler   bool        `json:"filler"`
}

func (h *AdminHandler) addBot(w http.ResponseWriter, r *http.Request) {
	var req addBotRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == application.NameFromPool {
		h.syncNames(r.Context())
	}
	var info application.BotInfo
	err := h.loop.Do(r.Context(), func(ctx context.Context) error {
		var err error
		info, err = h.manager.Add(ctx, application.AddRequest{
			Name:     req.Name,
			Team:     req.Team,
			Skill:    req.Skill,
			Behavior: req.Behavior,
			Filler:   req.Filler,
		})
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *AdminHandler) listBots(w http.ResponseWriter, r *http.Request) {
	var bots []application.BotInfo
	err := h.loop.Do(r.Context(), func(context.Context) error {
		bots = h.manager.List()
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bots)
}

func (h *AdminHandler) removeAllBots(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.loop.Do(r.Context(), func(ctx context.Context) error {
		n = h.manager.RemoveAll(ctx)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *AdminHandler) removeBot(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	err = h.loop.Do(r.Context(), func(ctx context.Context) error {
		return h.manager.Remove(ctx, slot)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type behaviorRequest struct {
	Behavior string `json:"behavior"`
}

func (h *AdminHandler) changeBehavior(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req behaviorRequest
	if !decode(w, r, &req) {
		return
	}
	err = h.loop.Do(r.Context(), func(ctx context.Context) error {
		return h.manager.ChangeBehavior(ctx, slot, req.Behavior)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type areaRequest struct {
	Origin domain.Vec3 `json:"origin"`
	Mins   domain.Vec3 `json:"mins"`
	Maxs   domain.Vec3 `json:"maxs"`
}

func (a areaRequest) valid() bool {
	if !utils.FiniteVec(a.Origin) || !utils.FiniteVec(a.Mins) || !utils.FiniteVec(a.Maxs) {
		return false
	}
	return a.Mins.X <= a.Maxs.X && a.Mins.Y <= a.Maxs.Y && a.Mins.Z <= a.Maxs.Z
}

func (h *AdminHandler) disableArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.valid() {
		h.fail(w, r, fmt.Errorf("%w: area must be finite with mins not exceeding maxs", ErrBadRequest))
		return
	}
	err := h.loop.Do(r.Context(), func(ctx context.Context) error {
		h.manager.DisableArea(ctx, req.Origin, req.Mins, req.Maxs)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) enableArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if !decode(w, r, &req) {
		return
	}
	var found bool
	err := h.loop.Do(r.Context(), func(ctx context.Context) error {
		found = h.manager.EnableArea(ctx, req.Origin, req.Mins, req.Maxs)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("no such disabled area"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type namesRequest struct {
	Team  domain.Team `json:"team"`
	Names []string    `json:"names"`
}

func (h *AdminHandler) addNames(w http.ResponseWriter, r *http.Request) {
	var req namesRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.names.AddNames(r.Context(), req.Team, req.Names)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": n})
}

func (h *AdminHandler) listNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.names.ListNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if names == nil {
		names = []application.PooledName{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *AdminHandler) clearNames(w http.ResponseWriter, r *http.Request) {
	if err := h.names.ClearNames(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fillRequest struct {
	Team  domain.Team `json:"team"`
	Count int         `json:"count"`
}

func (h *AdminHandler) fill(w http.ResponseWriter, r *http.Request) {
	var req fillRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Count < 0 {
		h.fail(w, r, fmt.Errorf("%w: negative count", ErrBadRequest))
		return
	}
	err := h.loop.Do(r.Context(), func(context.Context) error {
		return h.manager.Fill(req.Team, req.Count)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.syncNames(r.Context())
	err = h.loop.Do(r.Context(), func(ctx context.Context) error {
		h.manager.FillNow(ctx)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// syncNames はボットを追加する前に名前を手元へ補充します。
// 失敗しても追加は続け、名前が足りなければ追加側のエラーとして返します。
func (h *AdminHandler) syncNames(ctx context.Context) {
	if err := h.names.Sync(ctx); err != nil {
		slog.WarnContext(ctx, "bot name sync failed", "err", err)
	}
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "admin request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		slog.InfoContext(r.Context(), "admin request refused", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err)
}

// statusFor はエラーをHTTPステータスに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, application.ErrInvalidTeam):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrNameCollision), errors.Is(err, application.ErrNamesInUse):
		return http.StatusConflict
	case errors.Is(err, application.ErrUnknownBehavior), errors.Is(err, application.ErrNotABot):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNoFreeSlot), errors.Is(err, application.ErrNameUnavailable),
		errors.Is(err, domain.ErrRoomBusy), errors.Is(err, domain.ErrRoomStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func slotParam(r *http.Request) (int, error) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || slot < 0 {
		return 0, fmt.Errorf("%w: invalid slot %q", ErrBadRequest, r.PathValue("slot"))
	}
	return slot, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
