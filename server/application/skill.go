package application

const (
	MinSkill     = 1
	MaxSkill     = 9
	DefaultSkill = 5
)

// Skill はボットの難易度です。生成時か挙動変更時に決まり、以後は変わりません。
type Skill struct {
	level       int
	aimSlowness float32
	aimShake    float32
}

// NewSkill はレベルから難易度を作ります。範囲外のレベルは丸められます。
func NewSkill(level int) Skill {
	level = min(max(level, MinSkill), MaxSkill)
	return Skill{
		level:       level,
		aimSlowness: 1 - float32(level)/10,
		aimShake:    float32(10 - level),
	}
}

func (s Skill) Level() int { return s.level }

// AimSlowness は照準の収束の遅さです。0に近いほど素早く狙いが定まります。
func (s Skill) AimSlowness() float32 { return s.aimSlowness }

// AimShake は照準のぶれの最大値（度）です。
func (s Skill) AimShake() float32 { return s.aimShake }
