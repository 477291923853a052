package sampler

import (
	"strings"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
)

// DefaultLowCoverage：面积巨大但街景覆盖极少的陆块（南极洲）
var DefaultLowCoverage = []string{"ATA"}

// WeightOptions controls how countries are weighted when building a CountrySet.
type WeightOptions struct {
	// UseArea 为 false 时各国等概率
	UseArea bool
	// LowCoverage 中的国家面积被压到活动集合的最小面积；为 nil 时使用 DefaultLowCoverage
	LowCoverage []string
}

// 文档注释：按等面积投影面积计算国家权重
// 背景：面积在 Mollweide 投影下测量，避免经纬度直接量面积高估高纬地区；低覆盖陆块单独压低，防止其主导抽样。
// 约束：在副本上写入 Area/Weight，不修改调用方持有的国家；权重之和为 1。
// 总面积为 0 时返回 false，调用方退回等概率抽样。
func applyAreaWeights(countries []*geo.Country, lowCoverage []string) ([]*geo.Country, bool) {
	if lowCoverage == nil {
		lowCoverage = DefaultLowCoverage
	}
	low := make(map[string]bool, len(lowCoverage))
	for _, code := range lowCoverage {
		low[strings.ToUpper(strings.TrimSpace(code))] = true
	}

	out := make([]*geo.Country, len(countries))
	minArea := -1.0
	for i, c := range countries {
		cp := *c
		cp.Area = geo.ProjectedArea(cp.Boundary)
		cp.Weight = 0
		if minArea < 0 || cp.Area < minArea {
			minArea = cp.Area
		}
		out[i] = &cp
	}
	for _, c := range out {
		if low[c.Code] && c.Area > minArea {
			logger.L().Debug("area_clamped", "country", c.Code, "area", c.Area, "clamped_to", minArea)
			c.Area = minArea
		}
	}

	total := 0.0
	for _, c := range out {
		total += c.Area
	}
	if total <= 0 {
		return out, false
	}
	for _, c := range out {
		c.Weight = c.Area / total
	}
	return out, true
}
