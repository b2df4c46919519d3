package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownTeam = errors.New("unknown team")

// EntityID はワールド内のエンティティを識別します。
// 同じワールド内で再利用されないため、破棄済みのIDが再び有効になることはありません。
type EntityID uint32

// NoEntity は無効なエンティティです。
const NoEntity EntityID = 0

func (id EntityID) Valid() bool { return id != NoEntity }

// EntityResolver はエンティティの存在確認と位置解決を提供する外部コラボレーターです。
type EntityResolver interface {
	Alive(id EntityID) bool
	Position(id EntityID) (Vec3, bool)
}

// Team はエンティティの所属チームです。
type Team uint8

const (
	TeamNone Team = iota
	TeamAliens
	TeamHumans
	NumTeams
)

func (t Team) String() string {
	switch t {
	case TeamNone:
		return "spectators"
	case TeamAliens:
		return "aliens"
	case TeamHumans:
		return "humans"
	default:
		return "unknown"
	}
}

// ParseTeam は名前からTeamを得ます。
func ParseTeam(s string) (Team, bool) {
	switch s {
	case "spectators", "none", "":
		return TeamNone, true
	case "aliens", "a":
		return TeamAliens, true
	case "humans", "h":
		return TeamHumans, true
	default:
		return TeamNone, false
	}
}

func (t Team) MarshalText() ([]byte, error) {
	if t >= NumTeams {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, t)
	}
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(text []byte) error {
	team, ok := ParseTeam(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, text)
	}
	*t = team
	return nil
}

// Hostile は2つのチームが敵対しているかを返します。
func (t Team) Hostile(o Team) bool {
	return t != TeamNone && o != TeamNone && t != o
}

// Buildable は建造物の種類です。
type Buildable uint8

const (
	BuildableNone Buildable = iota
	BuildableOvermind
	BuildableEggpod
	BuildableAcidTube
	BuildableBooster
	BuildableReactor
	BuildableTelenode
	BuildableMGTurret
	BuildableMedistation
	BuildableArmoury
	NumBuildables
)

var buildableNames = [NumBuildables]string{
	"none", "overmind", "eggpod", "acidtube", "booster",
	"reactor", "telenode", "mgturret", "medistation", "armoury",
}

func (b Buildable) String() string {
	if b >= NumBuildables {
		return "unknown"
	}
	return buildableNames[b]
}
