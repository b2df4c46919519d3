package application

import (
	"testing"

	"github.com/touka-aoi/tanzbot/server/domain"
)

func TestAimState_JitterBoundedAndHeld(t *testing.T) {
	skill := NewSkill(3)
	a := newAimState(7)
	eye := domain.Vec3{}
	target := domain.Vec3{X: 100}

	first := a.Desired(0, eye, target, skill)
	if first.Y > skill.AimShake() && first.Y < 360-skill.AimShake() {
		t.Errorf("yaw jitter %v exceeds shake %v", first.Y, skill.AimShake())
	}
	if first.X > skill.AimShake() || first.X < -skill.AimShake() {
		t.Errorf("pitch jitter %v exceeds shake %v", first.X, skill.AimShake())
	}

	// 間隔内は同じぶれが使われる
	if again := a.Desired(a.futureAimInterval-1, eye, target, skill); again != first {
		t.Errorf("aim changed within interval: %+v, want %+v", again, first)
	}
	if a.futureAimInterval != 850 {
		t.Errorf("futureAimInterval = %d, want 850", a.futureAimInterval)
	}
}

func TestAimState_Deterministic(t *testing.T) {
	skill := NewSkill(5)
	a, b := newAimState(42), newAimState(42)
	for now := int64(0); now < 5000; now += 100 {
		if a.Desired(now, domain.Vec3{}, domain.Vec3{Y: 50}, skill) != b.Desired(now, domain.Vec3{}, domain.Vec3{Y: 50}, skill) {
			t.Fatalf("aim diverged at %d", now)
		}
	}
}

func TestSmooth_ConvergesBySkill(t *testing.T) {
	current := domain.Vec3{Y: 350}
	desired := domain.Vec3{Y: 10}

	fast := Smooth(current, desired, NewSkill(9))
	slow := Smooth(current, desired, NewSkill(1))

	// 350から10へは+20度の最短経路で回る
	if fast.Y <= 350 || fast.Y > 370 {
		t.Errorf("fast yaw = %v, want in (350, 370]", fast.Y)
	}
	if slow.Y-350 >= fast.Y-350 {
		t.Errorf("slow skill turned %v, fast turned %v", slow.Y-350, fast.Y-350)
	}
}
