package domain

import "math"

// Vec3 はワールド座標系のベクトルです。Zが上方向です。
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Dist は2点間の距離を返します。
func (v Vec3) Dist(o Vec3) float32 { return v.Sub(o).Len() }

// Normalize は単位ベクトルを返します。長さがほぼ0の場合はゼロベクトルを返します。
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 0.001 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Within は点が原点からmins/maxsで表される箱の中にあるかを返します。
func (v Vec3) Within(origin, mins, maxs Vec3) bool {
	lo := origin.Add(mins)
	hi := origin.Add(maxs)
	return v.X >= lo.X && v.X <= hi.X &&
		v.Y >= lo.Y && v.Y <= hi.Y &&
		v.Z >= lo.Z && v.Z <= hi.Z
}

// VecToAngles は方向ベクトルを (pitch, yaw, roll) の度数に変換します。
// pitchは下向きが正です。
func VecToAngles(dir Vec3) Vec3 {
	if dir.X == 0 && dir.Y == 0 {
		switch {
		case dir.Z > 0:
			return Vec3{X: -90}
		case dir.Z < 0:
			return Vec3{X: 90}
		default:
			return Vec3{}
		}
	}
	yaw := math.Atan2(float64(dir.Y), float64(dir.X)) * 180 / math.Pi
	if yaw < 0 {
		yaw += 360
	}
	forward := math.Sqrt(float64(dir.X*dir.X + dir.Y*dir.Y))
	pitch := -math.Atan2(float64(dir.Z), forward) * 180 / math.Pi
	return Vec3{X: float32(pitch), Y: float32(yaw)}
}

// AngleVectors はyaw(度)から水平面の前方・右方向ベクトルを求めます。
func AngleVectors(yaw float32) (forward, right Vec3) {
	rad := float64(yaw) * math.Pi / 180
	sin, cos := math.Sincos(rad)
	forward = Vec3{X: float32(cos), Y: float32(sin)}
	right = Vec3{X: float32(sin), Y: float32(-cos)}
	return forward, right
}
