// 包 sampler：采样核心。按权重抽国家、在包围盒内拒绝采样、查询街景可用性，直到找到可用坐标
package sampler

import (
	"context"
	"fmt"
	"time"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/metrics"
	"streetview-randomizer/internal/oracle"
)

// DefaultMaxOracleFailures：连续多少次可恢复的查询失败后放弃
const DefaultMaxOracleFailures = 5

// Policy：单次搜索的预算
// 约束：MaxAttempts/MaxElapsed 为 0 表示不限；MaxOracleFailures 为 0 取默认值，为负表示不限。
type Policy struct {
	MaxAttempts       int
	MaxElapsed        time.Duration
	MaxOracleFailures int
}

func (p Policy) maxOracleFailures() int {
	if p.MaxOracleFailures == 0 {
		return DefaultMaxOracleFailures
	}
	return p.MaxOracleFailures
}

// Trial：一次尝试的过程记录，只交给观察者，不保留
type Trial struct {
	Attempt   int
	Country   *geo.Country
	Candidate geo.Coordinate
	Contained bool
	Found     bool
	Err       error
	Elapsed   time.Duration
}

// Result：一次成功搜索的结果；Coordinate 可能已被可用性查询吸附到最近的街景点
type Result struct {
	Coordinate geo.Coordinate
	Country    *geo.Country
	Attempts   int
	Elapsed    time.Duration
}

type Option func(*Searcher)

// WithRand sets the random source used for both country and point draws.
func WithRand(r Rand) Option { return func(s *Searcher) { s.rand = r } }

func WithPolicy(p Policy) Option { return func(s *Searcher) { s.policy = p } }

// WithObserver registers a callback invoked after every attempt.
func WithObserver(fn func(Trial)) Option { return func(s *Searcher) { s.observe = fn } }

// 文档注释：重试搜索循环
// 背景：{抽国家 → 抽点 → 包含判定 → 可用性查询} 直到成功；未包含时不查询，下一次尝试重新抽国家。
// 约束：单线程顺序执行；每次尝试无论结果都计数并累计耗时；无退避。
type Searcher struct {
	set     *CountrySet
	oracle  oracle.Oracle
	radius  int
	rand    Rand
	policy  Policy
	observe func(Trial)
	now     func() time.Time
}

func NewSearcher(set *CountrySet, o oracle.Oracle, radiusM int, opts ...Option) (*Searcher, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptyCountrySet
	}
	if o == nil {
		return nil, fmt.Errorf("%w: no availability oracle", ErrConfiguration)
	}
	if err := ValidateRadius(radiusM); err != nil {
		return nil, err
	}
	s := &Searcher{set: set, oracle: o, radius: radiusM, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = NewRand(0)
	}
	return s, nil
}

// Find runs attempts until the oracle confirms a contained candidate.
func (s *Searcher) Find(ctx context.Context) (*Result, error) {
	var (
		attempts int
		elapsed  time.Duration
		failures int
		maxFail  = s.policy.maxOracleFailures()
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.policy.MaxAttempts > 0 && attempts >= s.policy.MaxAttempts ||
			s.policy.MaxElapsed > 0 && elapsed >= s.policy.MaxElapsed {
			return nil, fmt.Errorf("%w: %d attempts in %s", ErrBudgetExhausted, attempts, elapsed)
		}

		t0 := s.now()
		country := s.set.Sample(s.rand)
		tr := Trial{Attempt: attempts + 1, Country: country, Candidate: SamplePoint(s.rand, country.Bound)}
		var snapped geo.Coordinate
		if country.Contains(tr.Candidate) {
			tr.Contained = true
			tr.Found, snapped, tr.Err = s.oracle.Check(ctx, tr.Candidate, s.radius)
		} else {
			metrics.RejectedTotal.Inc()
		}
		tr.Elapsed = s.now().Sub(t0)
		attempts++
		elapsed += tr.Elapsed
		metrics.AttemptsTotal.Inc()
		logger.L().Debug("search_attempt", "attempt", tr.Attempt, "country", country.Code, "candidate", tr.Candidate.String(),
			"contained", tr.Contained, "found", tr.Found, "duration_ms", tr.Elapsed.Milliseconds())
		if s.observe != nil {
			s.observe(tr)
		}

		if tr.Err != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !oracle.Recoverable(tr.Err) {
				return nil, tr.Err
			}
			failures++
			logger.L().Warn("oracle_failure", "country", country.Code, "streak", failures, "err", tr.Err)
			if maxFail > 0 && failures >= maxFail {
				return nil, fmt.Errorf("%d consecutive oracle failures: %w", failures, tr.Err)
			}
			continue
		}
		if tr.Contained {
			failures = 0
		}
		if tr.Found {
			metrics.SamplesTotal.WithLabelValues(country.Code).Inc()
			metrics.SampleDurationMs.Observe(float64(elapsed.Milliseconds()))
			return &Result{Coordinate: snapped, Country: country, Attempts: attempts, Elapsed: elapsed}, nil
		}
	}
}

