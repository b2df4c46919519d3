package application

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/touka-aoi/tanzbot/server/domain"
)

var (
	ErrNoFreeSlot = errors.New("no free client slot")
	ErrNameInUse  = errors.New("name already in use")
)

// EntityKind はエンティティの種別です。
type EntityKind uint8

const (
	KindClient EntityKind = iota + 1
	KindBuildable
)

const (
	DefaultMaxClients = 24

	defaultViewDistance = 2000
	defaultMoveSpeed    = 320 // forwardmove 127 のときの毎秒の移動量
	defaultWeaponRange  = 1200
	defaultWeaponDamage = 4
	defaultRepairRange  = 100
	defaultRepairAmount = 2
	defaultClientHealth = 100
	navStep             = 32
	aimConeCos          = 0.98
)

// Entity はフィールド上のプレイヤーや建造物です。
type Entity struct {
	ID        domain.EntityID
	Kind      EntityKind
	Team      domain.Team
	Buildable domain.Buildable
	Position  domain.Vec3
	Angles    domain.Vec3
	Health    int
	MaxHealth int
	Slot      int // KindClient のときのみ有効
	Weapon    WeaponModes

	free domain.DeferredFree
}

// Client はクライアントスロットです。人間かボットが1つずつ占有します。
type Client struct {
	Slot    int
	Name    string
	Bot     bool
	Session domain.SessionID
	Team    domain.Team
	Entity  domain.EntityID
	Ready   bool
	Cmd     domain.UserCmd
}

type box struct {
	origin, mins, maxs domain.Vec3
}

// World はエンティティとクライアントスロットを管理する構造体です。
// エンティティの存在確認・位置解決・移動・遅延解放・ナビゲーションを提供します。
type World struct {
	mins, maxs   domain.Vec3
	entities     map[domain.EntityID]*Entity
	lastID       domain.EntityID
	clients      []*Client
	disabled     []box
	viewDistance float32
}

// NewWorld はmins/maxsの範囲を持つワールドを作成します。
func NewWorld(maxClients int, mins, maxs domain.Vec3) *World {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &World{
		mins:         mins,
		maxs:         maxs,
		entities:     make(map[domain.EntityID]*Entity),
		clients:      make([]*Client, maxClients),
		viewDistance: defaultViewDistance,
	}
}

// Spawn はエンティティを追加してIDを返します。IDは再利用されません。
func (w *World) Spawn(e Entity) domain.EntityID {
	w.lastID++
	e.ID = w.lastID
	if e.MaxHealth <= 0 {
		e.MaxHealth = defaultClientHealth
	}
	if e.Health <= 0 {
		e.Health = e.MaxHealth
	}
	if e.Kind != KindClient {
		e.Slot = -1
	}
	w.entities[e.ID] = &e
	return e.ID
}

// Entity は生存中のエンティティを返します。
func (w *World) Entity(id domain.EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Alive はエンティティが存在し体力が残っているかを返します。
func (w *World) Alive(id domain.EntityID) bool {
	e, ok := w.entities[id]
	return ok && e.Health > 0
}

func (w *World) Position(id domain.EntityID) (domain.Vec3, bool) {
	e, ok := w.entities[id]
	if !ok {
		return domain.Vec3{}, false
	}
	return e.Position, true
}

// MarkFree はエンティティの解放タイミングを予約します。
func (w *World) MarkFree(id domain.EntityID, when domain.FreeTime) {
	if e, ok := w.entities[id]; ok {
		e.free.FreeAt(when)
	}
}

// FreeScheduled はwhenで解放予約されたエンティティを破棄し、そのIDを返します。
func (w *World) FreeScheduled(when domain.FreeTime) []domain.EntityID {
	var freed []domain.EntityID
	for id, e := range w.entities {
		if !e.free.Due(when) {
			continue
		}
		delete(w.entities, id)
		if e.Kind == KindClient && e.Slot >= 0 && e.Slot < len(w.clients) {
			if c := w.clients[e.Slot]; c != nil && c.Entity == id {
				c.Entity = domain.NoEntity
			}
		}
		freed = append(freed, id)
	}
	sort.Slice(freed, func(i, j int) bool { return freed[i] < freed[j] })
	return freed
}

// ClaimSlot は空いているクライアントスロットを確保します。
// 接続中のクライアントと同じ名前ならErrNameInUseを返します。
func (w *World) ClaimSlot(name string, bot bool, team domain.Team) (*Client, error) {
	if w.NameInUse(name) {
		return nil, ErrNameInUse
	}
	for i, c := range w.clients {
		if c != nil {
			continue
		}
		c = &Client{Slot: i, Name: name, Bot: bot, Team: team}
		w.clients[i] = c
		return c, nil
	}
	return nil, ErrNoFreeSlot
}

// ReleaseSlot はスロットを解放し、そのクライアントのエンティティを思考後に解放します。
func (w *World) ReleaseSlot(slot int) {
	c := w.Client(slot)
	if c == nil {
		return
	}
	if c.Entity.Valid() {
		w.MarkFree(c.Entity, domain.FreeAfterThinking)
		if e, ok := w.entities[c.Entity]; ok {
			e.Slot = -1
		}
	}
	w.clients[slot] = nil
}

// Client はスロットのクライアントを返します。空きならnilです。
func (w *World) Client(slot int) *Client {
	if slot < 0 || slot >= len(w.clients) {
		return nil
	}
	return w.clients[slot]
}

// ClientBySession はセッションに対応する人間のクライアントを返します。
func (w *World) ClientBySession(id domain.SessionID) *Client {
	for _, c := range w.clients {
		if c != nil && !c.Bot && c.Session == id {
			return c
		}
	}
	return nil
}

// Clients は接続中のクライアントをスロット順に返します。
func (w *World) Clients() []*Client {
	out := make([]*Client, 0, len(w.clients))
	for _, c := range w.clients {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (w *World) MaxClients() int { return len(w.clients) }

// NameInUse は接続中のクライアントがその名前を使っているかを返します。
func (w *World) NameInUse(name string) bool {
	for _, c := range w.clients {
		if c != nil && c.Name == name {
			return true
		}
	}
	return false
}

// TeamCount はチームに所属するクライアント数を返します。
func (w *World) TeamCount(team domain.Team) int {
	n := 0
	for _, c := range w.clients {
		if c != nil && c.Team == team {
			n++
		}
	}
	return n
}

// SpawnClient はクライアントの体をチームのスポーン地点に生成します。
func (w *World) SpawnClient(slot int) (domain.EntityID, bool) {
	c := w.Client(slot)
	if c == nil || c.Team == domain.TeamNone {
		return domain.NoEntity, false
	}
	if c.Entity.Valid() && w.Alive(c.Entity) {
		return c.Entity, true
	}
	c.Entity = w.Spawn(Entity{
		Kind:     KindClient,
		Team:     c.Team,
		Position: w.spawnPoint(c.Team),
		Slot:     slot,
		Weapon:   ModesOf(WeaponModePrimary, WeaponModeSecondary),
	})
	return c.Entity, true
}

func (w *World) spawnPoint(team domain.Team) domain.Vec3 {
	spawn := domain.BuildableTelenode
	if team == domain.TeamAliens {
		spawn = domain.BuildableEggpod
	}
	var best *Entity
	for _, e := range w.entities {
		if e.Kind == KindBuildable && e.Buildable == spawn && e.Team == team && e.Health > 0 {
			if best == nil || e.ID < best.ID {
				best = e
			}
		}
	}
	if best != nil {
		return best.Position
	}
	center := w.mins.Add(w.maxs).Scale(0.5)
	center.Z = w.mins.Z
	return center
}

// ApplyCmd はクライアントのコマンドをワールドに反映します。
// 体を持たないクライアントが攻撃ボタンを押すとスポーンを要求したことになります。
func (w *World) ApplyCmd(ctx context.Context, slot int, cmd domain.UserCmd, dt float32) {
	c := w.Client(slot)
	if c == nil {
		return
	}
	c.Cmd = cmd
	if cmd.Buttons.Has(domain.ButtonReady) {
		c.Ready = true
	}
	e, ok := w.entities[c.Entity]
	if !ok || e.Health <= 0 {
		if cmd.Buttons.Has(domain.ButtonAttack) {
			if id, ok := w.SpawnClient(slot); ok {
				slog.DebugContext(ctx, "client spawned", "slot", slot, "entity", id)
			}
		}
		return
	}

	e.Angles = cmd.ViewAngles()
	forward, right := domain.AngleVectors(e.Angles.Y)
	speed := float32(defaultMoveSpeed) * dt / 127
	if cmd.Buttons.Has(domain.ButtonSprint) {
		speed *= 1.5
	}
	if cmd.Buttons.Has(domain.ButtonWalking) {
		speed *= 0.5
	}
	move := forward.Scale(float32(cmd.ForwardMove) * speed).
		Add(right.Scale(float32(cmd.RightMove) * speed)).
		Add(domain.Vec3{Z: float32(cmd.UpMove) * speed})
	e.Position = w.clampToBounds(e.Position.Add(move))

	switch {
	case cmd.Buttons.Has(domain.ButtonAttack):
		w.fire(ctx, e, WeaponModePrimary)
	case cmd.Buttons.Has(domain.ButtonAttack2):
		w.fire(ctx, e, WeaponModeSecondary)
	}
	if cmd.Buttons.Has(domain.ButtonActivate) {
		w.repair(e)
	}
}

func (w *World) clampToBounds(v domain.Vec3) domain.Vec3 {
	return domain.Vec3{
		X: clamp(v.X, w.mins.X, w.maxs.X),
		Y: clamp(v.Y, w.mins.Y, w.maxs.Y),
		Z: clamp(v.Z, w.mins.Z, w.maxs.Z),
	}
}

// fire は照準方向の円錐内で最も近い敵にダメージを与えます。
func (w *World) fire(ctx context.Context, shooter *Entity, mode WeaponMode) {
	if !shooter.Weapon.Has(mode) {
		return
	}
	aim := angleForward(shooter.Angles)
	var hit *Entity
	var hitDist float32 = math.MaxFloat32
	for _, e := range w.entities {
		if e.Health <= 0 || !shooter.Team.Hostile(e.Team) {
			continue
		}
		d := e.Position.Sub(shooter.Position)
		dist := d.Len()
		if dist > defaultWeaponRange || dist < 0.001 {
			continue
		}
		if dot(d.Scale(1/dist), aim) < aimConeCos {
			continue
		}
		if dist < hitDist {
			hit, hitDist = e, dist
		}
	}
	if hit == nil {
		return
	}
	damage := defaultWeaponDamage
	if mode == WeaponModeSecondary {
		damage *= 2
	}
	w.Damage(ctx, hit.ID, damage)
}

// Damage はエンティティにダメージを与えます。体力が0になった体は思考後に解放されます。
func (w *World) Damage(ctx context.Context, id domain.EntityID, damage int) {
	e, ok := w.entities[id]
	if !ok || e.Health <= 0 {
		return
	}
	e.Health -= damage
	if e.Health <= 0 {
		e.Health = 0
		e.free.FreeAt(domain.FreeAfterThinking)
		slog.DebugContext(ctx, "entity destroyed", "entity", id, "team", e.Team)
	}
}

func (w *World) repair(e *Entity) {
	for _, b := range w.entities {
		if b.Kind != KindBuildable || b.Team != e.Team || b.Health <= 0 || b.Health >= b.MaxHealth {
			continue
		}
		if b.Position.Dist(e.Position) > defaultRepairRange {
			continue
		}
		b.Health = min(b.Health+defaultRepairAmount, b.MaxHealth)
		return
	}
}

// Visible はfromからtoが視認できるかを返します。
func (w *World) Visible(from, to domain.EntityID) bool {
	a, ok := w.entities[from]
	if !ok {
		return false
	}
	b, ok := w.entities[to]
	if !ok || b.Health <= 0 {
		return false
	}
	return a.Position.Dist(b.Position) <= w.viewDistance
}

// FlatDist は高さを無視した2点間の距離です。
func FlatDist(a, b domain.Vec3) float32 {
	a.Z, b.Z = 0, 0
	return a.Dist(b)
}

// Nearby はエンティティの視界内にあるエンティティを距離つきで返します。
func (w *World) Nearby(id domain.EntityID) []Nearby {
	self, ok := w.entities[id]
	if !ok {
		return nil
	}
	var out []Nearby
	for _, e := range w.entities {
		if e.ID == id || e.Health <= 0 {
			continue
		}
		dist := e.Position.Dist(self.Position)
		if dist > w.viewDistance {
			continue
		}
		out = append(out, Nearby{
			EntityAndDistance: EntityAndDistance{Entity: e.ID, Distance: dist},
			Team:              e.Team,
			Buildable:         e.Buildable,
			Health:            e.Health,
			MaxHealth:         e.MaxHealth,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

// Navigate はゴールへ向かう移動方向を返します。
// ゴールか次の一歩が無効化された領域にある場合は失敗します。
func (w *World) Navigate(id domain.EntityID, goal domain.Vec3) (domain.Vec3, bool) {
	e, ok := w.entities[id]
	if !ok {
		return domain.Vec3{}, false
	}
	d := goal.Sub(e.Position)
	d.Z = 0
	dir := d.Normalize()
	next := e.Position.Add(dir.Scale(navStep))
	for _, b := range w.disabled {
		if goal.Within(b.origin, b.mins, b.maxs) || next.Within(b.origin, b.mins, b.maxs) {
			return domain.Vec3{}, false
		}
	}
	return dir, true
}

// DisableArea は箱の範囲をナビゲーション不可にします。
func (w *World) DisableArea(origin, mins, maxs domain.Vec3) {
	w.disabled = append(w.disabled, box{origin: origin, mins: mins, maxs: maxs})
}

// EnableArea はDisableAreaで無効化した同じ箱を元に戻します。戻したらtrueを返します。
func (w *World) EnableArea(origin, mins, maxs domain.Vec3) bool {
	for i, b := range w.disabled {
		if b.origin == origin && b.mins == mins && b.maxs == maxs {
			w.disabled = append(w.disabled[:i], w.disabled[i+1:]...)
			return true
		}
	}
	return false
}

// RandomPoint はワールド範囲内の点を返します。fx, fyは0〜1です。
func (w *World) RandomPoint(fx, fy float32) domain.Vec3 {
	return domain.Vec3{
		X: w.mins.X + (w.maxs.X-w.mins.X)*fx,
		Y: w.mins.Y + (w.maxs.Y-w.mins.Y)*fy,
		Z: w.mins.Z,
	}
}

func angleForward(angles domain.Vec3) domain.Vec3 {
	pitch := float64(angles.X) * math.Pi / 180
	yaw := float64(angles.Y) * math.Pi / 180
	cp := math.Cos(pitch)
	return domain.Vec3{
		X: float32(cp * math.Cos(yaw)),
		Y: float32(cp * math.Sin(yaw)),
		Z: float32(-math.Sin(pitch)),
	}
}

func dot(a, b domain.Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
