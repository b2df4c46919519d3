package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/touka-aoi/tanzbot/server/domain"
)

var (
	ErrNameCollision   = errors.New("name collides with a connected client")
	ErrUnknownBehavior = errors.New("unknown behavior")
	ErrNotABot         = errors.New("slot is not a bot")
	ErrInvalidTeam     = errors.New("invalid team")

	errAwaitingNames = errors.New("awaiting bot names from pool")
)

const (
	// UnnamedBot は名前を指定せずに追加したボットの名前です。
	UnnamedBot = "[bot] Bot"
	// NameFromPool を名前に指定するとチームの名前プールから選びます。
	NameFromPool = "*"

	// DefaultFillInterval はフィラーボットを補充・削減する間隔です。
	DefaultFillInterval = 2 * time.Second
)

// AddRequest はボット追加の要求です。ゼロ値のフィールドは既定値になります。
type AddRequest struct {
	Name     string
	Team     domain.Team
	Skill    int
	Behavior string
	Filler   bool
}

// BotInfo は一覧表示用のボットの情報です。
type BotInfo struct {
	Slot     int         `json:"slot"`
	Name     string      `json:"name"`
	Team     domain.Team `json:"team"`
	Skill    int         `json:"skill"`
	Behavior string      `json:"behavior"`
	Filler   bool        `json:"filler"`
	Alive    bool        `json:"alive"`
}

// Manager はボットの追加・削除・毎tickの思考を担います。
// すべてのメソッドはRoomのループゴルーチンから呼ばれる前提で、ロックを持ちません。
// NamePoolには触れず、NameSyncが補充した手元の名前だけを使うので、I/Oで止まることはありません。
type Manager struct {
	world   *World
	lib     *Behaviors
	reserve nameReserve

	bots map[int]*Bot
	fill [domain.NumTeams]int

	seed         uint64
	spawned      uint64
	fillInterval time.Duration

	start     time.Time
	lastFrame time.Time
	lastFill  time.Time
}

type ManagerOption func(*Manager)

// WithSeed はボットの乱数の種を固定します。
func WithSeed(seed uint64) ManagerOption {
	return func(m *Manager) { m.seed = seed }
}

func WithFillInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.fillInterval = d }
}

func NewManager(world *World, lib *Behaviors, opts ...ManagerOption) *Manager {
	m := &Manager{
		world:        world,
		lib:          lib,
		reserve:      newNameReserve(),
		bots:         make(map[int]*Bot),
		seed:         uint64(time.Now().UnixNano()),
		fillInterval: DefaultFillInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) World() *World { return m.world }

// Bot はスロットのボットを返します。
func (m *Manager) Bot(slot int) (*Bot, bool) {
	b, ok := m.bots[slot]
	return b, ok
}

// Add はボットを追加します。
// ビヘイビアの確認はスロットの確保より先に行うため、失敗してもスロットは消費されません。
func (m *Manager) Add(ctx context.Context, req AddRequest) (BotInfo, error) {
	if req.Team != domain.TeamAliens && req.Team != domain.TeamHumans {
		return BotInfo{}, fmt.Errorf("%w: %d", ErrInvalidTeam, req.Team)
	}
	if req.Behavior == "" {
		req.Behavior = DefaultBehavior
	}
	tree, ok := m.lib.Get(req.Behavior)
	if !ok {
		return BotInfo{}, fmt.Errorf("%w: %s", ErrUnknownBehavior, req.Behavior)
	}
	if req.Skill == 0 {
		req.Skill = DefaultSkill
	}

	name, pooled, err := m.pickName(ctx, req)
	if err != nil {
		return BotInfo{}, err
	}
	c, err := m.world.ClaimSlot(name, true, req.Team)
	if err != nil {
		if pooled {
			m.reserve.putBack(req.Team, name)
		}
		if errors.Is(err, ErrNameInUse) {
			return BotInfo{}, fmt.Errorf("%w: %s", ErrNameCollision, name)
		}
		return BotInfo{}, err
	}

	m.spawned++
	seed := m.seed + m.spawned
	b := newBot(c.Slot, name, seed)
	b.world = m.world
	b.pooled = pooled
	b.Filler = req.Filler
	b.Behavior = req.Behavior
	b.mind = newMemory(req.Team, NewSkill(req.Skill), tree, seed)
	m.bots[c.Slot] = b

	slog.InfoContext(ctx, "bot added",
		"slot", c.Slot,
		"name", name,
		"team", req.Team,
		"skill", b.mind.Skill.Level(),
		"behavior", req.Behavior,
		"filler", req.Filler,
	)
	return m.info(b), nil
}

// pickName は要求から名前を決めます。プールから取った名前ならpooledがtrueです。
func (m *Manager) pickName(ctx context.Context, req AddRequest) (name string, pooled bool, err error) {
	switch req.Name {
	case NameFromPool:
		name, err := m.reserve.take(req.Team, m.world.NameInUse)
		return name, err == nil, err
	case "":
		return m.unnamed(), false, nil
	}
	if m.world.NameInUse(req.Name) {
		return "", false, fmt.Errorf("%w: %s", ErrNameCollision, req.Name)
	}
	return req.Name, false, nil
}

// releaseName はプールの名前を手放します。プールへの返却はNameSyncが行います。
func (m *Manager) releaseName(ctx context.Context, team domain.Team, name string) {
	m.reserve.give(team, name)
	slog.DebugContext(ctx, "bot name returned", "team", team, "name", name)
}

// unnamed は名前未指定のボットの名前です。既に使われていれば番号を付けます。
func (m *Manager) unnamed() string {
	name := UnnamedBot
	for i := 2; m.world.NameInUse(name); i++ {
		name = fmt.Sprintf("%s %d", UnnamedBot, i)
	}
	return name
}

// ChangeBehavior はボットのビヘイビアを差し替えます。実行中のノードは破棄されます。
func (m *Manager) ChangeBehavior(ctx context.Context, slot int, behavior string) error {
	b, ok := m.bots[slot]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotABot, slot)
	}
	tree, ok := m.lib.Get(behavior)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBehavior, behavior)
	}
	b.mind.Behavior = tree
	b.mind.Stack.Reset()
	b.Behavior = behavior
	slog.InfoContext(ctx, "bot behavior changed", "slot", slot, "behavior", behavior)
	return nil
}

// SetDefaults はボットの状態をチーム・難易度・ビヘイビアから作り直します。
// チームが変わった場合、今の体は次のtickの思考前に解放されます。
func (m *Manager) SetDefaults(ctx context.Context, slot int, team domain.Team, skill int, behavior string) error {
	b, ok := m.bots[slot]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotABot, slot)
	}
	if team != domain.TeamAliens && team != domain.TeamHumans {
		return fmt.Errorf("%w: %d", ErrInvalidTeam, team)
	}
	if behavior == "" {
		behavior = DefaultBehavior
	}
	tree, ok := m.lib.Get(behavior)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBehavior, behavior)
	}
	if skill == 0 {
		skill = DefaultSkill
	}

	c := m.world.Client(slot)
	if c.Team != team {
		if c.Entity.Valid() {
			m.world.MarkFree(c.Entity, domain.FreeBeforeThinking)
		}
		if b.pooled {
			m.releaseName(ctx, c.Team, b.Name)
			b.pooled = false
		}
		c.Team = team
	}

	m.spawned++
	b.mind = newMemory(team, NewSkill(skill), tree, m.seed+m.spawned)
	b.Behavior = behavior
	b.entity = domain.NoEntity
	b.stuck = false
	b.retreatUntil = 0
	slog.InfoContext(ctx, "bot defaults set", "slot", slot, "team", team, "skill", skill, "behavior", behavior)
	return nil
}

// Remove はボットを削除します。体は思考後に解放されます。
func (m *Manager) Remove(ctx context.Context, slot int) error {
	b, ok := m.bots[slot]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotABot, slot)
	}
	team := b.mind.Team
	m.world.ReleaseSlot(slot)
	if b.pooled {
		m.releaseName(ctx, team, b.Name)
	}
	delete(m.bots, slot)
	slog.InfoContext(ctx, "bot removed", "slot", slot, "name", b.Name)
	return nil
}

// RemoveAll はすべてのボットを削除し、削除した数を返します。
func (m *Manager) RemoveAll(ctx context.Context) int {
	slots := m.slots()
	for _, slot := range slots {
		_ = m.Remove(ctx, slot)
	}
	return len(slots)
}

// List はボットをスロット順に返します。
func (m *Manager) List() []BotInfo {
	out := make([]BotInfo, 0, len(m.bots))
	for _, slot := range m.slots() {
		out = append(out, m.info(m.bots[slot]))
	}
	return out
}

func (m *Manager) info(b *Bot) BotInfo {
	c := m.world.Client(b.Slot)
	return BotInfo{
		Slot:     b.Slot,
		Name:     b.Name,
		Team:     b.mind.Team,
		Skill:    b.mind.Skill.Level(),
		Behavior: b.Behavior,
		Filler:   b.Filler,
		Alive:    c != nil && m.world.Alive(c.Entity),
	}
}

func (m *Manager) slots() []int {
	slots := make([]int, 0, len(m.bots))
	for slot := range m.bots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func (m *Manager) DisableArea(ctx context.Context, origin, mins, maxs domain.Vec3) {
	m.world.DisableArea(origin, mins, maxs)
	slog.InfoContext(ctx, "navigation area disabled", "origin", origin, "mins", mins, "maxs", maxs)
}

// EnableArea は無効化した領域を戻します。該当する領域がなければfalseです。
func (m *Manager) EnableArea(ctx context.Context, origin, mins, maxs domain.Vec3) bool {
	ok := m.world.EnableArea(origin, mins, maxs)
	slog.InfoContext(ctx, "navigation area enabled", "origin", origin, "found", ok)
	return ok
}

// Fill はチームのフィラーボットの目標数を設定します。実際の増減はFrameかFillNowで行われます。
func (m *Manager) Fill(team domain.Team, count int) error {
	if team != domain.TeamAliens && team != domain.TeamHumans {
		return fmt.Errorf("%w: %d", ErrInvalidTeam, team)
	}
	m.fill[team] = max(count, 0)
	return nil
}

// FillNow はフィラーボットを目標数まで補充し、超過分を削除します。
func (m *Manager) FillNow(ctx context.Context) {
	for team := domain.TeamAliens; team < domain.NumTeams; team++ {
		fillers := m.fillers(team)
		want := m.fill[team]
		for i := len(fillers) - 1; i >= want; i-- {
			_ = m.Remove(ctx, fillers[i])
		}
		for range want - len(fillers) {
			if err := m.addFiller(ctx, team); err != nil {
				if !errors.Is(err, errAwaitingNames) {
					slog.WarnContext(ctx, "failed to fill bot", "team", team, "err", err)
				}
				break
			}
		}
	}
}

// addFiller はプールの名前でフィラーを追加します。
// 手元に名前がなくてもプールに残っていれば、NameSyncの補充を待つためerrAwaitingNamesを返します。
func (m *Manager) addFiller(ctx context.Context, team domain.Team) error {
	req := AddRequest{Name: NameFromPool, Team: team, Filler: true}
	_, err := m.Add(ctx, req)
	if errors.Is(err, ErrNameUnavailable) {
		if !m.reserve.dry[team] {
			return errAwaitingNames
		}
		req.Name = ""
		_, err = m.Add(ctx, req)
	}
	return err
}

// fillers はチームのフィラーボットのスロットを昇順で返します。
func (m *Manager) fillers(team domain.Team) []int {
	var out []int
	for _, slot := range m.slots() {
		if b := m.bots[slot]; b.Filler && b.mind.Team == team {
			out = append(out, slot)
		}
	}
	return out
}

// heldNames はボットが使っている名前と手元の名前をすべて手放して返します。
func (m *Manager) heldNames() []PooledName {
	for _, b := range m.bots {
		if b.pooled {
			m.reserve.give(b.mind.Team, b.Name)
			b.pooled = false
		}
	}
	return m.reserve.drain()
}

// NameDemand はNameSyncが1回の同期で行う作業です。
type NameDemand struct {
	// Need はチームごとに新しく取得すべき名前の数です。
	Need [domain.NumTeams]int
	// Release はプールへ返す名前です。
	Release []PooledName
}

// nameDemand はフィラーの不足分と予備の数から必要な名前を数え、余った名前を返却に回します。
func (m *Manager) nameDemand() NameDemand {
	var d NameDemand
	for team := domain.TeamAliens; team < domain.NumTeams; team++ {
		want := max(m.fill[team]-len(m.fillers(team)), 0) + spareNames
		d.Need[team] = want - m.reserve.trim(team, want, m.world.NameInUse)
	}
	d.Release = m.reserve.returned
	m.reserve.returned = nil
	return d
}

// Frame は1tick分の処理です。
//
//  1. 思考前に解放予約されたエンティティを解放
//  2. フィラーボットの補充
//  3. 各ボットの思考（スロット順）
//  4. ボットと人間のコマンドをワールドへ反映
//  5. 思考後に解放予約されたエンティティを解放
func (m *Manager) Frame(ctx context.Context, now time.Time) {
	if m.start.IsZero() {
		m.start, m.lastFrame, m.lastFill = now, now, now
		m.FillNow(ctx)
	}
	levelTime := now.Sub(m.start).Milliseconds()
	dt := float32(now.Sub(m.lastFrame).Seconds())
	m.lastFrame = now

	m.free(ctx, domain.FreeBeforeThinking)

	if now.Sub(m.lastFill) >= m.fillInterval {
		m.lastFill = now
		m.FillNow(ctx)
	}

	slots := m.slots()
	for _, slot := range slots {
		m.think(m.bots[slot], levelTime)
	}

	for _, c := range m.world.Clients() {
		cmd := c.Cmd
		if b, ok := m.bots[c.Slot]; ok {
			cmd = b.mind.Cmd.Cmd()
		}
		m.world.ApplyCmd(ctx, c.Slot, cmd, dt)
	}

	m.free(ctx, domain.FreeAfterThinking)
}

// think はボット1体の1tick分の判断です。
func (m *Manager) think(b *Bot, now int64) {
	c := m.world.Client(b.Slot)
	if c == nil {
		return
	}
	b.now = now
	b.mind.Cmd.Reset(int32(now))

	if c.Entity != b.entity {
		b.entity = c.Entity
		if pos, ok := m.world.Position(c.Entity); ok && m.world.Alive(c.Entity) {
			b.mind.respawned(now, pos)
			b.stuck = false
			b.retreatUntil = 0
		}
	}

	self, ok := b.self()
	if !ok {
		// 観戦中はスポーンを要求する
		b.mind.Cmd.PressButton(domain.ButtonAttack)
		b.mind.LastThink = now
		return
	}

	b.perceive(self)
	b.checkStuck(self)
	b.mind.Behavior.Tick(b, &b.mind.Stack)
	b.mind.LastThink = now
}

// IntermissionThink はインターミッション中にすべてのボットを準備完了にします。
func (m *Manager) IntermissionThink(ctx context.Context) {
	for _, slot := range m.slots() {
		b := m.bots[slot]
		b.mind.Cmd.Reset(int32(b.now))
		b.mind.Cmd.PressButton(domain.ButtonReady)
		m.world.ApplyCmd(ctx, slot, b.mind.Cmd.Cmd(), 0)
	}
}

func (m *Manager) free(ctx context.Context, when domain.FreeTime) {
	if freed := m.world.FreeScheduled(when); len(freed) > 0 {
		slog.DebugContext(ctx, "entities freed", "when", when, "entities", freed)
	}
}
