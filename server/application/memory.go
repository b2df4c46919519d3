package application

import (
	"github.com/touka-aoi/tanzbot/server/ai"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// Memory はボット1体分の状態です。ボットの追加時に作られ、削除時に破棄されます。
// 他のボットと共有されることはありません。
type Memory struct {
	Enemies       EnemyQueue
	EnemyLastSeen int64

	Team domain.Team
	Goal Target

	Skill Skill

	BestEnemy              Target
	BestEnemyDistance      float32
	ClosestDamagedBuilding EntityAndDistance
	ClosestBuildings       [domain.NumBuildables]EntityAndDistance

	Behavior *ai.Tree[*Bot]
	Stack    ai.Stack

	Aim AimState
	Cmd CommandBuffer

	LastThink     int64
	StuckTime     int64
	StuckPosition domain.Vec3
	SpawnTime     int64
}

func newMemory(team domain.Team, skill Skill, behavior *ai.Tree[*Bot], seed uint64) *Memory {
	return &Memory{
		EnemyLastSeen: TimeNever,
		Team:          team,
		Skill:         skill,
		Behavior:      behavior,
		Aim:           newAimState(seed),
		LastThink:     TimeNever,
		StuckTime:     TimeNever,
		SpawnTime:     TimeNever,
	}
}

// respawned は新しい体を得たときに、前の体に紐づく判断を捨てます。
func (m *Memory) respawned(now int64, pos domain.Vec3) {
	m.Enemies.Clear()
	m.EnemyLastSeen = TimeNever
	m.Goal = NoTarget()
	m.BestEnemy = NoTarget()
	m.ClosestDamagedBuilding = EntityAndDistance{}
	m.ClosestBuildings = [domain.NumBuildables]EntityAndDistance{}
	m.Stack.Reset()
	m.Aim.Reset()
	m.SpawnTime = now
	m.StuckTime = now
	m.StuckPosition = pos
}

// applySelection はターゲット選択の結果を書き込みます。
func (m *Memory) applySelection(sel Selection) {
	m.BestEnemy = sel.BestEnemy
	m.BestEnemyDistance = sel.BestEnemyDistance
	m.EnemyLastSeen = sel.EnemyLastSeen
	m.ClosestDamagedBuilding = sel.ClosestDamagedBuilding
	m.ClosestBuildings = sel.ClosestBuildings
}
