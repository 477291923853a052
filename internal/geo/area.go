package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// mollweideRadius：球面半径（米），与 ESRI:54009 World_Mollweide 的长半轴一致
const mollweideRadius = 6378137.0

// Mollweide：经纬度（度）投影到 Mollweide 等面积平面（米）
// 约束：实现 orb.Projection；两极处 θ=±π/2 直接取值，其余用牛顿迭代求解 2θ+sin2θ=π·sinφ。
func Mollweide(p orb.Point) orb.Point {
	lambda := p[0] * math.Pi / 180
	phi := p[1] * math.Pi / 180
	theta := mollweideTheta(phi)
	x := mollweideRadius * 2 * math.Sqrt2 / math.Pi * lambda * math.Cos(theta)
	y := mollweideRadius * math.Sqrt2 * math.Sin(theta)
	return orb.Point{x, y}
}

func mollweideTheta(phi float64) float64 {
	if math.Abs(phi) >= math.Pi/2-1e-12 {
		return math.Copysign(math.Pi/2, phi)
	}
	target := math.Pi * math.Sin(phi)
	t := phi
	for i := 0; i < 64; i++ {
		den := 2 + 2*math.Cos(2*t)
		if den < 1e-15 {
			break
		}
		d := (2*t + math.Sin(2*t) - target) / den
		t -= d
		if math.Abs(d) < 1e-13 {
			break
		}
	}
	return t
}

// ProjectedArea：等面积投影后的平面面积（平方米）
// 背景：经纬度下直接量面积会严重高估高纬地区（高纬一度经度对应的地面距离远小于赤道）。
// 约束：在几何副本上投影，不修改传入边界。
func ProjectedArea(mp orb.MultiPolygon) float64 {
	if len(mp) == 0 {
		return 0
	}
	projected := project.MultiPolygon(mp.Clone(), Mollweide)
	return math.Abs(planar.Area(projected))
}
