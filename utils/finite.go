package utils

import (
	"math"

	"github.com/touka-aoi/tanzbot/server/domain"
)

// FiniteVec はベクトルの全成分が有限値かを返します。
func FiniteVec(v domain.Vec3) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float32) bool {
	f64 := float64(f)
	return !math.IsNaN(f64) && !math.IsInf(f64, 0)
}
