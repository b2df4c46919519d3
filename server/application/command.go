package application

import (
	"github.com/touka-aoi/tanzbot/internal/assert"
	"github.com/touka-aoi/tanzbot/server/domain"
)

// WeaponMode は武器の攻撃モードです。
type WeaponMode uint8

const (
	WeaponModeNone WeaponMode = iota
	WeaponModePrimary
	WeaponModeSecondary
	WeaponModeTertiary
)

func (m WeaponMode) String() string {
	switch m {
	case WeaponModePrimary:
		return "primary"
	case WeaponModeSecondary:
		return "secondary"
	case WeaponModeTertiary:
		return "tertiary"
	default:
		return "none"
	}
}

// WeaponModes は武器が対応する攻撃モードの集合です。
type WeaponModes uint8

func ModesOf(modes ...WeaponMode) WeaponModes {
	var m WeaponModes
	for _, mode := range modes {
		m |= 1 << mode
	}
	return m
}

func (m WeaponModes) Has(mode WeaponMode) bool { return m&(1<<mode) != 0 }

const maxMoveSpeed = 127

// CommandBuffer はボットが1tickで出力するUserCmdを組み立てます。
// ボタン操作は冪等で、押下済みのボタンを押しても、押していないボタンを離しても状態は変わりません。
type CommandBuffer struct {
	cmd domain.UserCmd
}

// Reset はボタンと移動量を消し、新しいtickのコマンドを始めます。
// 照準の角度だけは平滑化のために持ち越します。
func (b *CommandBuffer) Reset(serverTime int32) {
	angles, weapon := b.cmd.Angles, b.cmd.Weapon
	b.cmd = domain.UserCmd{ServerTime: serverTime, Angles: angles, Weapon: weapon}
}

func (b *CommandBuffer) PressButton(btn domain.Button) {
	b.cmd.Buttons |= domain.Buttons(btn)
}

func (b *CommandBuffer) ReleaseButton(btn domain.Button) {
	b.cmd.Buttons &^= domain.Buttons(btn)
}

func (b *CommandBuffer) ButtonPressed(btn domain.Button) bool {
	return b.cmd.Buttons.Has(btn)
}

func clampSpeed(v int) int8 {
	return int8(min(max(v, -maxMoveSpeed), maxMoveSpeed))
}

func (b *CommandBuffer) SetForwardSpeed(v int)  { b.cmd.ForwardMove = clampSpeed(v) }
func (b *CommandBuffer) SetLateralSpeed(v int)  { b.cmd.RightMove = clampSpeed(v) }
func (b *CommandBuffer) SetVerticalSpeed(v int) { b.cmd.UpMove = clampSpeed(v) }

func (b *CommandBuffer) ReverseLateralSpeed() {
	b.cmd.RightMove = -b.cmd.RightMove
}

func (b *CommandBuffer) StopMoves() {
	b.cmd.ForwardMove, b.cmd.RightMove, b.cmd.UpMove = 0, 0, 0
}

// FireWeapon は攻撃モードに対応するボタンを押します。
// 不明なモードや、武器が対応していないモードでの発射は契約違反で、何も押さずにfalseを返します。
func (b *CommandBuffer) FireWeapon(mode WeaponMode, supported WeaponModes) bool {
	var btn domain.Button
	switch mode {
	case WeaponModePrimary:
		btn = domain.ButtonAttack
	case WeaponModeSecondary:
		btn = domain.ButtonAttack2
	case WeaponModeTertiary:
		btn = domain.ButtonAttack3
	default:
		assert.That(false, "fire with invalid weapon mode", "mode", uint8(mode))
		return false
	}
	if !assert.That(supported.Has(mode), "weapon does not support fire mode", "mode", mode.String()) {
		return false
	}
	b.PressButton(btn)
	return true
}

// AimAt は (pitch, yaw, roll) の度数で照準を設定します。
func (b *CommandBuffer) AimAt(angles domain.Vec3) {
	b.cmd.Angles[domain.Pitch] = domain.AngleToShort(angles.X)
	b.cmd.Angles[domain.Yaw] = domain.AngleToShort(angles.Y)
	b.cmd.Angles[domain.Roll] = domain.AngleToShort(angles.Z)
}

func (b *CommandBuffer) AimAtPitch(pitch float32) {
	b.cmd.Angles[domain.Pitch] = domain.AngleToShort(pitch)
}

// SelectWeapon は持ち替える武器を指定します。
func (b *CommandBuffer) SelectWeapon(weapon uint8) {
	b.cmd.Weapon = weapon
}

// Aim は現在の照準を度数で返します。
func (b *CommandBuffer) Aim() domain.Vec3 {
	return b.cmd.ViewAngles()
}

// Cmd は組み立てたコマンドのコピーを返します。
func (b *CommandBuffer) Cmd() domain.UserCmd {
	return b.cmd
}
