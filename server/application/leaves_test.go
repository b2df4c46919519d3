package application

import (
	"testing"

	"github.com/touka-aoi/tanzbot/server/ai"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// newLeafBot はワールドの中心にスポーン済みのボットを返します。
func newLeafBot(t *testing.T) (*Bot, *World) {
	t.Helper()
	w := newTestWorld(4)
	c, err := w.ClaimSlot("b", true, domain.TeamHumans)
	if err != nil {
		t.Fatalf("ClaimSlot: %v", err)
	}
	id, _ := w.SpawnClient(c.Slot)
	lib, err := LoadBehaviors("")
	if err != nil {
		t.Fatalf("LoadBehaviors: %v", err)
	}
	tree, _ := lib.Get(DefaultBehavior)

	b := newBot(c.Slot, "b", 1)
	b.world = w
	b.entity = id
	b.mind = newMemory(domain.TeamHumans, NewSkill(DefaultSkill), tree, 1)
	pos, _ := w.Position(id)
	b.mind.respawned(0, pos)
	return b, w
}

func TestLeaves_MoveToGoal(t *testing.T) {
	b, w := newLeafBot(t)

	b.mind.Goal = CoordTarget(domain.Vec3{X: 500})
	if got := moveToGoal(b); got != ai.Running {
		t.Fatalf("far goal = %v, want Running", got)
	}
	if cmd := b.mind.Cmd.Cmd(); cmd.ForwardMove != maxMoveSpeed {
		t.Errorf("ForwardMove = %d, want %d", cmd.ForwardMove, maxMoveSpeed)
	}

	b.mind.Goal = CoordTarget(domain.Vec3{X: 30, Z: 100})
	if got := moveToGoal(b); got != ai.Success {
		t.Errorf("near goal = %v, want Success", got)
	}
	if b.mind.Goal.Kind() != TargetNone {
		t.Error("reached coord goal was not cleared")
	}

	w.DisableArea(domain.Vec3{X: 500}, domain.Vec3{X: -10, Y: -10, Z: -10}, domain.Vec3{X: 10, Y: 10, Z: 10})
	b.mind.Goal = CoordTarget(domain.Vec3{X: 500})
	if got := moveToGoal(b); got != ai.Failure {
		t.Errorf("unreachable goal = %v, want Failure", got)
	}
}

func TestLeaves_MoveToGoalYieldsToEnemy(t *testing.T) {
	b, w := newLeafBot(t)
	enemy := w.Spawn(Entity{Kind: KindBuildable, Team: domain.TeamAliens, Position: domain.Vec3{X: -400}})

	b.mind.Goal = CoordTarget(domain.Vec3{X: 500})
	b.mind.BestEnemy = EntityTarget(enemy)
	if got := moveToGoal(b); got != ai.Failure {
		t.Errorf("moveToGoal with an enemy = %v, want Failure", got)
	}

	b.mind.Goal = EntityTarget(enemy)
	if got := moveToGoal(b); got != ai.Running {
		t.Errorf("moveToGoal toward the enemy = %v, want Running", got)
	}
}

func TestLeaves_Repair(t *testing.T) {
	b, w := newLeafBot(t)
	near := w.Spawn(Entity{Kind: KindBuildable, Team: domain.TeamHumans, Buildable: domain.BuildableReactor, Position: domain.Vec3{X: 50}, Health: 40, MaxHealth: 100})

	b.mind.Goal = EntityTarget(near)
	if got := repair(b); got != ai.Running {
		t.Fatalf("repair = %v, want Running", got)
	}
	if !b.mind.Cmd.ButtonPressed(domain.ButtonActivate) {
		t.Error("activate not pressed in range")
	}

	e, _ := w.Entity(near)
	e.Health = e.MaxHealth
	if got := repair(b); got != ai.Success {
		t.Errorf("repair of a full building = %v, want Success", got)
	}
	if b.mind.Goal.Kind() != TargetNone {
		t.Error("goal not cleared after repair")
	}

	far := w.Spawn(Entity{Kind: KindBuildable, Team: domain.TeamHumans, Position: domain.Vec3{X: 600}, Health: 10, MaxHealth: 100})
	b.mind.Cmd.Reset(0)
	b.mind.Goal = EntityTarget(far)
	if got := repair(b); got != ai.Running {
		t.Fatalf("repair far = %v, want Running", got)
	}
	if b.mind.Cmd.ButtonPressed(domain.ButtonActivate) {
		t.Error("activate pressed out of range")
	}
	if b.mind.Cmd.Cmd().ForwardMove != maxMoveSpeed {
		t.Error("bot did not walk toward the building")
	}
}

func TestLeaves_UnstickAndHealthLow(t *testing.T) {
	b, w := newLeafBot(t)

	b.stuck = true
	if !isStuck(b) {
		t.Fatal("isStuck = false")
	}
	if got := unstick(b); got != ai.Success {
		t.Errorf("unstick = %v, want Success", got)
	}
	if b.stuck {
		t.Error("still stuck after unstick")
	}
	if cmd := b.mind.Cmd.Cmd(); cmd.UpMove != maxMoveSpeed || cmd.RightMove == 0 {
		t.Errorf("cmd = %+v, want jump and strafe", cmd)
	}

	if healthLow(b) {
		t.Error("healthLow at full health")
	}
	self, _ := w.Entity(b.entity)
	self.Health = 29
	if !healthLow(b) {
		t.Error("healthLow = false at 29%")
	}
}

func TestLeaves_RetreatRunsForDuration(t *testing.T) {
	b, w := newLeafBot(t)
	enemy := w.Spawn(Entity{Kind: KindBuildable, Team: domain.TeamAliens, Position: domain.Vec3{X: 100}})
	b.mind.BestEnemy = EntityTarget(enemy)

	b.now = 1000
	if got := retreat(b); got != ai.Running {
		t.Fatalf("retreat = %v, want Running", got)
	}
	if !b.mind.Cmd.ButtonPressed(domain.ButtonSprint) {
		t.Error("retreat does not sprint")
	}
	// 敵は+X方向なので-X方向（yaw 180）へ走る
	if yaw := b.mind.Cmd.Aim().Y; yaw < 179 || yaw > 181 {
		t.Errorf("yaw = %v, want 180", yaw)
	}

	b.now = 1000 + retreatDuration - 1
	if got := retreat(b); got != ai.Running {
		t.Errorf("retreat before the deadline = %v, want Running", got)
	}
	b.now = 1000 + retreatDuration
	if got := retreat(b); got != ai.Success {
		t.Errorf("retreat at the deadline = %v, want Success", got)
	}
}

func TestLeaves_Roam(t *testing.T) {
	b, _ := newLeafBot(t)
	if hasGoal(b) {
		t.Fatal("fresh bot has a goal")
	}
	if got := roam(b); got != ai.Success {
		t.Errorf("roam = %v, want Success", got)
	}
	pos, ok := b.mind.Goal.Position(b.world)
	if !ok || pos.X < -1000 || pos.X > 1000 || pos.Y < -1000 || pos.Y > 1000 {
		t.Errorf("roam goal = %+v, %v", pos, ok)
	}
}
