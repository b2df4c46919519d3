package application

import (
	"github.com/touka-aoi/tanzbot/server/ai"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// NewRegistry はプロファイルから参照できる葉ノードを登録したRegistryを返します。
func NewRegistry() *ai.Registry[*Bot] {
	return ai.NewRegistry[*Bot]().
		Condition("hasEnemy", hasEnemy).
		Condition("hasGoal", hasGoal).
		Condition("damagedBuildingNearby", damagedBuildingNearby).
		Condition("stuck", isStuck).
		Condition("healthLow", healthLow).
		Action("targetEnemy", targetEnemy).
		Action("targetDamagedBuilding", targetDamagedBuilding).
		Action("fight", fight).
		Action("moveToGoal", moveToGoal).
		Action("repair", repair).
		Action("roam", roam).
		Action("unstick", unstick).
		Action("retreat", retreat)
}

func hasEnemy(b *Bot) bool { return b.mind.BestEnemy.Valid(b.world) }

func hasGoal(b *Bot) bool { return b.mind.Goal.Valid(b.world) }

func damagedBuildingNearby(b *Bot) bool {
	c := b.mind.ClosestDamagedBuilding
	return c.Found() && b.world.Alive(c.Entity)
}

func isStuck(b *Bot) bool { return b.stuck }

func healthLow(b *Bot) bool {
	self, ok := b.self()
	return ok && self.Health*100 < self.MaxHealth*lowHealthPercent
}

func targetEnemy(b *Bot) ai.Status {
	if !b.mind.BestEnemy.Valid(b.world) {
		return ai.Failure
	}
	b.mind.Goal = b.mind.BestEnemy
	return ai.Success
}

func targetDamagedBuilding(b *Bot) ai.Status {
	if !damagedBuildingNearby(b) {
		return ai.Failure
	}
	b.mind.Goal = EntityTarget(b.mind.ClosestDamagedBuilding.Entity)
	return ai.Success
}

// fight は敵に照準を合わせて撃ちます。距離に応じて後退・横移動・接近を切り替えます。
func fight(b *Bot) ai.Status {
	self, ok := b.self()
	if !ok {
		return ai.Failure
	}
	enemy, ok := b.mind.BestEnemy.Entity(b.world)
	if !ok {
		b.mind.Goal = NoTarget()
		return ai.Success
	}
	pos, _ := b.world.Position(enemy)
	b.mind.Goal = EntityTarget(enemy)
	b.aimAt(self, pos)

	dist := self.Position.Dist(pos)
	if dist <= defaultWeaponRange {
		b.mind.Cmd.FireWeapon(WeaponModePrimary, self.Weapon)
	}
	switch {
	case dist < b.closeRange:
		b.mind.Cmd.SetForwardSpeed(-maxMoveSpeed)
	case dist < b.midRange:
		b.mind.Cmd.SetLateralSpeed(int(maxMoveSpeed * b.strafeSign))
	default:
		b.mind.Cmd.SetForwardSpeed(maxMoveSpeed)
	}
	return ai.Running
}

// moveToGoal はゴールに着くまでRunningを返します。
// ゴール以外の敵が現れた場合や詰まった場合は中断してツリーに判断を戻します。
func moveToGoal(b *Bot) ai.Status {
	self, ok := b.self()
	if !ok {
		return ai.Failure
	}
	pos, ok := b.mind.Goal.Position(b.world)
	if !ok {
		b.mind.Goal = NoTarget()
		return ai.Failure
	}
	if enemy, ok := b.mind.BestEnemy.Entity(b.world); ok && !b.mind.Goal.Refers(enemy) {
		return ai.Failure
	}
	if b.stuck {
		return ai.Failure
	}
	if FlatDist(self.Position, pos) < goalReachedDist {
		b.mind.Cmd.StopMoves()
		if b.mind.Goal.Kind() == TargetCoord {
			b.mind.Goal = NoTarget()
		}
		return ai.Success
	}
	if !b.moveToward(self, pos) {
		b.mind.Goal = NoTarget()
		return ai.Failure
	}
	return ai.Running
}

// repair はゴールの建造物が全快するまで修理を続けます。
func repair(b *Bot) ai.Status {
	self, ok := b.self()
	if !ok {
		return ai.Failure
	}
	id, ok := b.mind.Goal.Entity(b.world)
	if !ok {
		b.mind.Goal = NoTarget()
		return ai.Failure
	}
	building, _ := b.world.Entity(id)
	if building.Kind != KindBuildable || building.Team != b.mind.Team {
		return ai.Failure
	}
	if building.Health >= building.MaxHealth {
		b.mind.Goal = NoTarget()
		return ai.Success
	}
	if FlatDist(self.Position, building.Position) > defaultRepairRange*0.8 {
		if !b.moveToward(self, building.Position) {
			return ai.Failure
		}
		return ai.Running
	}
	b.aimAt(self, building.Position)
	b.mind.Cmd.StopMoves()
	b.mind.Cmd.PressButton(domain.ButtonActivate)
	return ai.Running
}

func roam(b *Bot) ai.Status {
	b.mind.Goal = CoordTarget(b.world.RandomPoint(b.rng.Float32(), b.rng.Float32()))
	return ai.Success
}

func unstick(b *Bot) ai.Status {
	b.mind.Cmd.SetVerticalSpeed(maxMoveSpeed)
	b.mind.Cmd.SetLateralSpeed(int(maxMoveSpeed * b.strafeSign))
	b.strafeSign = -b.strafeSign
	b.stuck = false
	b.mind.Goal = NoTarget()
	return ai.Success
}

// retreat は一定時間、敵から離れる方向へ走ります。
func retreat(b *Bot) ai.Status {
	self, ok := b.self()
	if !ok {
		return ai.Failure
	}
	enemy, ok := b.mind.BestEnemy.Entity(b.world)
	if !ok {
		b.retreatUntil = 0
		return ai.Success
	}
	if b.retreatUntil == 0 {
		b.retreatUntil = b.now + retreatDuration
	}
	if b.now >= b.retreatUntil {
		b.retreatUntil = 0
		return ai.Success
	}
	pos, _ := b.world.Position(enemy)
	away := self.Position.Sub(pos)
	away.Z = 0
	if !b.moveToward(self, self.Position.Add(away.Normalize().Scale(navStep*4))) {
		b.retreatUntil = 0
		return ai.Failure
	}
	b.mind.Cmd.PressButton(domain.ButtonSprint)
	return ai.Running
}
