package domain

import (
	"errors"
	"math"
)

// Button はUserCmdのボタンビットです。
type Button uint16

const (
	ButtonAttack Button = 1 << iota
	ButtonAttack2
	ButtonAttack3
	ButtonWalking
	ButtonSprint
	ButtonGesture
	ButtonActivate
	ButtonReady
)

// Buttons はボタンのビットマスクです。
type Buttons uint16

func (b Buttons) Has(x Button) bool { return b&Buttons(x) != 0 }

// 角度インデックス
const (
	Pitch = 0
	Yaw   = 1
	Roll  = 2
)

// UserCmd は1tick分の入力コマンドです。人間のクライアントもボットも同じ構造を生成します。
//
//	serverTime  i32    (4)
//	angles      3*u16  (6)
//	forwardmove i8     (1)
//	rightmove   i8     (1)
//	upmove      i8     (1)
//	buttons     u16    (2)
//	weapon      u8     (1)
type UserCmd struct {
	ServerTime  int32
	Angles      [3]uint16
	ForwardMove int8
	RightMove   int8
	UpMove      int8
	Buttons     Buttons
	Weapon      uint8
}

const UserCmdSize = 16

var ErrInvalidUserCmdSize = errors.New("invalid usercmd payload size")

// AngleToShort は度数の角度を16bitの角度表現に変換します。
func AngleToShort(angle float32) uint16 {
	return uint16(int(angle*65536/360) & 65535)
}

// ShortToAngle はAngleToShortの逆変換です。
func ShortToAngle(s uint16) float32 {
	return float32(s) * (360.0 / 65536)
}

// ParseUserCmd はバイト列からUserCmdをパースする
func ParseUserCmd(data []byte) (*UserCmd, error) {
	if len(data) < UserCmdSize {
		return nil, ErrInvalidUserCmdSize
	}
	return &UserCmd{
		ServerTime:  int32(byteOrder.Uint32(data[0:4])),
		Angles:      [3]uint16{byteOrder.Uint16(data[4:6]), byteOrder.Uint16(data[6:8]), byteOrder.Uint16(data[8:10])},
		ForwardMove: int8(data[10]),
		RightMove:   int8(data[11]),
		UpMove:      int8(data[12]),
		Buttons:     Buttons(byteOrder.Uint16(data[13:15])),
		Weapon:      data[15],
	}, nil
}

// Encode はUserCmdをバイト列にエンコードする
func (c *UserCmd) Encode() []byte {
	data := make([]byte, UserCmdSize)
	byteOrder.PutUint32(data[0:4], uint32(c.ServerTime))
	byteOrder.PutUint16(data[4:6], c.Angles[Pitch])
	byteOrder.PutUint16(data[6:8], c.Angles[Yaw])
	byteOrder.PutUint16(data[8:10], c.Angles[Roll])
	data[10] = byte(c.ForwardMove)
	data[11] = byte(c.RightMove)
	data[12] = byte(c.UpMove)
	byteOrder.PutUint16(data[13:15], uint16(c.Buttons))
	data[15] = c.Weapon
	return data
}

// ViewAngles はコマンドの角度を度数で返します。
func (c *UserCmd) ViewAngles() Vec3 {
	return Vec3{
		X: NormalizeAngle(ShortToAngle(c.Angles[Pitch])),
		Y: ShortToAngle(c.Angles[Yaw]),
		Z: ShortToAngle(c.Angles[Roll]),
	}
}

// NormalizeAngle は角度を (-180, 180] に正規化します。
func NormalizeAngle(a float32) float32 {
	a = float32(math.Mod(float64(a), 360))
	if a > 180 {
		a -= 360
	}
	if a <= -180 {
		a += 360
	}
	return a
}
