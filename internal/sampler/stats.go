package sampler

import (
	"sort"
	"time"
)

// 文档注释：一次运行的统计累加器
// 背景：显式传入 Run 的值，而非包级全局；命中数记在这里，国家记录本身在运行期间不被修改。
// 约束：生命周期为一次调用，不提供重置。
type Stats struct {
	Samples  int
	Attempts int
	Elapsed  time.Duration
	Hits     map[string]int

	names map[string]string
}

func NewStats() *Stats {
	return &Stats{Hits: make(map[string]int), names: make(map[string]string)}
}

// Record adds one accepted sample that produced images hits for its country.
func (s *Stats) Record(res *Result, images int) {
	s.Samples++
	s.Attempts += res.Attempts
	s.Elapsed += res.Elapsed
	if res.Country == nil {
		return
	}
	s.Hits[res.Country.Code] += images
	s.names[res.Country.Code] = res.Country.Name
}

// AddElapsed 把采样之外的耗时（如图片保存）计入总耗时
func (s *Stats) AddElapsed(d time.Duration) { s.Elapsed += d }

func (s *Stats) AvgAttempts() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.Attempts) / float64(s.Samples)
}

func (s *Stats) AvgElapsed() time.Duration {
	if s.Samples == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Samples)
}

func (s *Stats) TotalHits() int {
	n := 0
	for _, h := range s.Hits {
		n += h
	}
	return n
}

// Share：单个国家在全部命中中的占比
type Share struct {
	Code    string
	Name    string
	Hits    int
	Percent float64
}

// Shares 按命中数降序、代码升序返回各国占比
func (s *Stats) Shares() []Share {
	total := s.TotalHits()
	out := make([]Share, 0, len(s.Hits))
	for code, h := range s.Hits {
		sh := Share{Code: code, Name: s.names[code], Hits: h}
		if total > 0 {
			sh.Percent = 100 * float64(h) / float64(total)
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Code < out[j].Code
	})
	return out
}
