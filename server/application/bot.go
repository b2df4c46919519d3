package application

import (
	"math/rand/v2"

	"github.com/touka-aoi/tanzbot/server/domain"
)

const (
	stuckDistance    = 64
	stuckTimeout     = 2000
	sightingRefresh  = 500
	viewHeight       = 24
	goalReachedDist  = 64
	lowHealthPercent = 30
	retreatDuration  = 3000
)

// Bot はボット1体を表し、ビヘイビアツリーの葉ノードに渡されるコンテキストです。
type Bot struct {
	Slot     int
	Name     string
	Filler   bool
	Behavior string
	pooled   bool

	mind   *Memory
	world  *World
	rng    *rand.Rand
	entity domain.EntityID
	now    int64
	stuck  bool

	// 個性パラメータ
	closeRange   float32
	midRange     float32
	strafeSign   float32
	retreatUntil int64
}

func newBot(slot int, name string, seed uint64) *Bot {
	rng := rand.New(rand.NewPCG(seed, uint64(slot)))
	strafeSign := float32(1.0)
	if rng.Float64() < 0.5 {
		strafeSign = -1.0
	}
	return &Bot{
		Slot:       slot,
		Name:       name,
		rng:        rng,
		closeRange: 150 + rng.Float32()*100, // 150〜250
		midRange:   500 + rng.Float32()*300, // 500〜800
		strafeSign: strafeSign,
	}
}

// Memory はボットの状態を返します。
func (b *Bot) Memory() *Memory { return b.mind }

func (b *Bot) self() (*Entity, bool) {
	e, ok := b.world.Entity(b.entity)
	if !ok || e.Health <= 0 {
		return nil, false
	}
	return e, true
}

// perceive は古い目撃を捨て、見えている敵を記録し、ターゲットを選び直します。
func (b *Bot) perceive(self *Entity) {
	m := b.mind
	m.Enemies.PruneStale(b.now, DefaultEnemyMemory, b.world.Alive)

	nearby := b.world.Nearby(self.ID)
	for _, n := range nearby {
		if !m.Team.Hostile(n.Team) || !b.world.Visible(self.ID, n.Entity) {
			continue
		}
		if last := m.Enemies.LastSeen(n.Entity); last != TimeNever && b.now-last < sightingRefresh {
			continue
		}
		m.Enemies.Record(n.Entity, b.now)
	}

	m.applySelection(SelectTargets(SelectInput{
		Team:        m.Team,
		Origin:      self.Position,
		Now:         b.now,
		EnemyMemory: DefaultEnemyMemory,
		Enemies:     &m.Enemies,
		Nearby:      nearby,
		Resolver:    b.world,
	}))
}

// checkStuck は一定時間ほぼ同じ場所に留まっているかを判定します。
func (b *Bot) checkStuck(self *Entity) {
	m := b.mind
	if FlatDist(self.Position, m.StuckPosition) > stuckDistance {
		m.StuckPosition = self.Position
		m.StuckTime = b.now
		b.stuck = false
		return
	}
	if b.now-m.StuckTime > stuckTimeout {
		b.stuck = true
		m.StuckTime = b.now
	}
}

// aimAt は難易度に応じたぶれと収束速度でposへ照準を向けます。
func (b *Bot) aimAt(self *Entity, pos domain.Vec3) {
	eye := self.Position.Add(domain.Vec3{Z: viewHeight})
	desired := b.mind.Aim.Desired(b.now, eye, pos, b.mind.Skill)
	b.mind.Cmd.AimAt(Smooth(b.mind.Cmd.Aim(), desired, b.mind.Skill))
}

// face は水平方向dirに体を向けます。
func (b *Bot) face(dir domain.Vec3) {
	yaw := domain.VecToAngles(dir).Y
	b.mind.Cmd.AimAt(domain.Vec3{Y: yaw})
}

// moveToward はナビゲーションに従ってposへ前進します。経路がなければfalseです。
func (b *Bot) moveToward(self *Entity, pos domain.Vec3) bool {
	dir, ok := b.world.Navigate(self.ID, pos)
	if !ok {
		return false
	}
	b.face(dir)
	b.mind.Cmd.SetForwardSpeed(maxMoveSpeed)
	return true
}
