package application

import (
	"math/rand/v2"

	"github.com/touka-aoi/tanzbot/server/domain"
)

const baseFutureAimInterval int64 = 500

// AimState は照準のぶれと収束を保持します。
// ぶれは futureAimInterval ごとに引き直され、その間は同じ値が使われます。
type AimState struct {
	futureAim         domain.Vec3 // pitch/yawのぶれ（度）
	futureAimTime     int64
	futureAimInterval int64
	rng               *rand.Rand
}

func newAimState(seed uint64) AimState {
	return AimState{
		futureAimTime: TimeNever,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Desired はtargetを狙うための角度に、難易度に応じたぶれを加えて返します。
func (a *AimState) Desired(now int64, eye, target domain.Vec3, skill Skill) domain.Vec3 {
	if now >= a.futureAimTime {
		// base * (1 + AimSlowness) を整数で計算する
		a.futureAimInterval = baseFutureAimInterval * int64(20-skill.Level()) / 10
		a.futureAimTime = now + a.futureAimInterval
		shake := skill.AimShake()
		a.futureAim = domain.Vec3{
			X: (a.rng.Float32()*2 - 1) * shake,
			Y: (a.rng.Float32()*2 - 1) * shake,
		}
	}
	angles := domain.VecToAngles(target.Sub(eye))
	return domain.Vec3{X: angles.X + a.futureAim.X, Y: angles.Y + a.futureAim.Y}
}

// Smooth はcurrentからdesiredへ1tick分だけ照準を寄せます。
// AimSlownessが大きいほど1tickで寄る量が減ります。
func Smooth(current, desired domain.Vec3, skill Skill) domain.Vec3 {
	frac := 1 - skill.AimSlowness()*0.9
	dp := domain.NormalizeAngle(desired.X - current.X)
	dy := domain.NormalizeAngle(desired.Y - current.Y)
	return domain.Vec3{
		X: current.X + dp*frac,
		Y: current.Y + dy*frac,
	}
}

func (a *AimState) Reset() {
	a.futureAimTime = TimeNever
	a.futureAim = domain.Vec3{}
}
