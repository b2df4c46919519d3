package application

import (
	"math"

	"github.com/touka-aoi/tanzbot/server/domain"
)

// DefaultEnemyMemory は目撃から敵として扱い続ける時間（ミリ秒）です。
const DefaultEnemyMemory int64 = 3000

// EntityAndDistance はエンティティとボットからの距離の組です。1tickの判断にだけ使います。
type EntityAndDistance struct {
	Entity   domain.EntityID
	Distance float32
}

// Found は有効なエンティティを保持しているかを返します。
func (e EntityAndDistance) Found() bool { return e.Entity.Valid() }

// Nearby はボット周辺のエンティティと、その距離を事前計算したものです。
type Nearby struct {
	EntityAndDistance
	Team      domain.Team
	Buildable domain.Buildable
	Health    int
	MaxHealth int
}

// SelectInput はターゲット選択の入力です。
type SelectInput struct {
	Team        domain.Team
	Origin      domain.Vec3
	Now         int64
	EnemyMemory int64
	Enemies     *EnemyQueue
	Nearby      []Nearby
	Resolver    domain.EntityResolver
}

// Selection はターゲット選択の結果です。見つからないものはゼロ値（none）です。
type Selection struct {
	BestEnemy              Target
	BestEnemyDistance      float32
	EnemyLastSeen          int64
	ClosestDamagedBuilding EntityAndDistance
	ClosestBuildings       [domain.NumBuildables]EntityAndDistance
}

// SelectTargets は最良の敵・最寄りの損傷した味方建造物・種類ごとの最寄り建造物を選びます。
//
// 最良の敵は、EnemyMemory以内に目撃された生存中の敵のうち最も近いものです。
// 距離が等しい場合はより最近に目撃された方を選びます。
func SelectTargets(in SelectInput) Selection {
	sel := Selection{EnemyLastSeen: TimeNever}

	nearby := make(map[domain.EntityID]float32, len(in.Nearby))
	for _, n := range in.Nearby {
		nearby[n.Entity] = n.Distance
	}

	// エンティティごとの最新の目撃時刻
	latest := make(map[domain.EntityID]int64)
	if in.Enemies != nil {
		in.Enemies.Each(func(s Sighting) bool {
			if prev, ok := latest[s.Entity]; !ok || s.Seen > prev {
				latest[s.Entity] = s.Seen
			}
			return true
		})
		sel.EnemyLastSeen = in.Enemies.MostRecentTimeSeen()
	}

	var (
		best     domain.EntityID
		bestDist = float32(math.MaxFloat32)
		bestSeen = TimeNever
	)
	for ent, seen := range latest {
		if in.Now-seen > in.EnemyMemory || !in.Resolver.Alive(ent) {
			continue
		}
		dist, ok := nearby[ent]
		if !ok {
			pos, ok := in.Resolver.Position(ent)
			if !ok {
				continue
			}
			dist = pos.Dist(in.Origin)
		}
		if dist < bestDist || (dist == bestDist && (seen > bestSeen || (seen == bestSeen && ent < best))) {
			best, bestDist, bestSeen = ent, dist, seen
		}
	}
	if best.Valid() {
		sel.BestEnemy = EntityTarget(best)
		sel.BestEnemyDistance = bestDist
	}

	for _, n := range in.Nearby {
		if n.Buildable == domain.BuildableNone || n.Buildable >= domain.NumBuildables || !in.Resolver.Alive(n.Entity) {
			continue
		}
		if c := sel.ClosestBuildings[n.Buildable]; !c.Found() || n.Distance < c.Distance {
			sel.ClosestBuildings[n.Buildable] = n.EntityAndDistance
		}
		if n.Team != in.Team || n.Health >= n.MaxHealth {
			continue
		}
		if c := sel.ClosestDamagedBuilding; !c.Found() || n.Distance < c.Distance {
			sel.ClosestDamagedBuilding = n.EntityAndDistance
		}
	}
	return sel
}
