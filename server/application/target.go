package application

import "github.com/touka-aoi/tanzbot/server/domain"

// TargetKind はTargetがどの値を保持しているかを表します。
type TargetKind uint8

const (
	TargetNone TargetKind = iota
	TargetEntity
	TargetCoord
)

// Target はボットの狙いや目的地です。エンティティを追跡するか、固定座標を指すか、何も指しません。
// エンティティを追跡する場合、参照先が破棄されると以降の読み出しはすべて無効になります。
type Target struct {
	kind   TargetKind
	entity domain.EntityID
	coord  domain.Vec3
}

// NoTarget は何も指さないTargetです。ゼロ値と同じです。
func NoTarget() Target { return Target{} }

// EntityTarget はエンティティを追跡するTargetです。無効なIDならNoTargetになります。
func EntityTarget(id domain.EntityID) Target {
	if !id.Valid() {
		return Target{}
	}
	return Target{kind: TargetEntity, entity: id}
}

// CoordTarget は固定座標のTargetです。
func CoordTarget(v domain.Vec3) Target {
	return Target{kind: TargetCoord, coord: v}
}

func (t Target) Kind() TargetKind { return t.kind }

// Valid はTargetが今も指す先を持つかを返します。
func (t Target) Valid(r domain.EntityResolver) bool {
	switch t.kind {
	case TargetEntity:
		return r.Alive(t.entity)
	case TargetCoord:
		return true
	default:
		return false
	}
}

// Entity は追跡中のエンティティを返します。生存していなければfalseです。
func (t Target) Entity(r domain.EntityResolver) (domain.EntityID, bool) {
	if t.kind != TargetEntity || !r.Alive(t.entity) {
		return domain.NoEntity, false
	}
	return t.entity, true
}

// Position は現在の位置を解決します。エンティティの場合は毎回引き直します。
func (t Target) Position(r domain.EntityResolver) (domain.Vec3, bool) {
	switch t.kind {
	case TargetEntity:
		if !r.Alive(t.entity) {
			return domain.Vec3{}, false
		}
		return r.Position(t.entity)
	case TargetCoord:
		return t.coord, true
	default:
		return domain.Vec3{}, false
	}
}

// Refers は同じエンティティを追跡しているかを返します。
func (t Target) Refers(id domain.EntityID) bool {
	return t.kind == TargetEntity && t.entity == id
}
