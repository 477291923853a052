package sampler

import (
	"sort"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
)

// 文档注释：活动国家集合与抽样分布
// 背景：每次尝试都重新抽取一个国家（有放回），不做缓存或排除；分布在构建时一次算好。
// 约束：活动集合变化时重新构建，不在原集合上修补权重。
type CountrySet struct {
	countries []*geo.Country
	cum       []float64
	weighted  bool
}

// NewCountrySet builds the sampling distribution over countries.
func NewCountrySet(countries []*geo.Country, opt WeightOptions) (*CountrySet, error) {
	if len(countries) == 0 {
		return nil, ErrEmptyCountrySet
	}
	s := &CountrySet{countries: countries}
	if opt.UseArea {
		weighted, ok := applyAreaWeights(countries, opt.LowCoverage)
		if ok {
			s.countries = weighted
			s.weighted = true
			s.cum = make([]float64, len(weighted))
			acc := 0.0
			for i, c := range weighted {
				acc += c.Weight
				s.cum[i] = acc
			}
		} else {
			logger.L().Warn("area_weights_unavailable", "reason", "zero_total_area", "countries", len(countries))
		}
	}
	logger.L().Debug("country_set_ready", "countries", len(s.countries), "weighted", s.weighted)
	return s, nil
}

func (s *CountrySet) Len() int { return len(s.countries) }

// Weighted reports whether draws follow area weights rather than a uniform distribution.
func (s *CountrySet) Weighted() bool { return s.weighted }

// Countries returns the active countries; weights are populated when Weighted is true.
func (s *CountrySet) Countries() []*geo.Country { return s.countries }

// Sample 抽取一个国家：加权时取首个累积权重大于 u 的位置，否则等概率
func (s *CountrySet) Sample(r Rand) *geo.Country {
	n := len(s.countries)
	u := r.Float64()
	var i int
	if s.weighted {
		i = sort.Search(n, func(k int) bool { return s.cum[k] > u })
	} else {
		i = int(u * float64(n))
	}
	if i >= n {
		i = n - 1
	}
	return s.countries[i]
}
