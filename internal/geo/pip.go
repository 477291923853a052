package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Contains：点入多边形判定（Even-Odd，含洞与多面）
// 约束：外环边界上的点视为在内（含顶点）；落在洞边界上的点视为在洞内，即不在国家内。
// 先做包围盒快速过滤，再逐面精确判定；面包围盒在 NewCountry 中预先计算。
func (c *Country) Contains(at Coordinate) bool {
	pt := at.Point()
	if !inBound(pt, c.Bound) {
		return false
	}
	for i, poly := range c.Boundary {
		if len(poly) == 0 || !inBound(pt, c.polygonBound(i)) {
			continue
		}
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	return false
}

// 快速包围盒过滤（闭区间）
func inBound(pt orb.Point, b orb.Bound) bool {
	return pt[0] >= b.Min[0] && pt[0] <= b.Max[0] && pt[1] >= b.Min[1] && pt[1] <= b.Max[1]
}

// 直接构造（未经 NewCountry）的国家没有预计算的面包围盒，按需计算
func (c *Country) polygonBound(i int) orb.Bound {
	if len(c.polyBounds) == len(c.Boundary) {
		return c.polyBounds[i]
	}
	return c.Boundary[i][0].Bound()
}
