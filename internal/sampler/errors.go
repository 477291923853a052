package sampler

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration：采样开始前即可发现的配置错误，均为致命错误
	ErrConfiguration = errors.New("configuration error")

	ErrEmptyCountrySet = fmt.Errorf("%w: empty country set", ErrConfiguration)
	ErrInvalidRadius   = fmt.Errorf("%w: invalid search radius", ErrConfiguration)
	ErrInvalidSamples  = fmt.Errorf("%w: invalid number of samples", ErrConfiguration)

	// ErrBudgetExhausted：达到最大尝试次数或最长耗时仍未找到坐标
	ErrBudgetExhausted = errors.New("search budget exhausted")
)

const (
	MinRadius  = 1
	MaxRadius  = 1_000_000
	MinSamples = 1
	MaxSamples = 28_000
)

// ValidateRadius checks that the search radius lies in [MinRadius, MaxRadius).
func ValidateRadius(radiusM int) error {
	if radiusM < MinRadius || radiusM >= MaxRadius {
		return fmt.Errorf("%w: %d not in [%d, %d)", ErrInvalidRadius, radiusM, MinRadius, MaxRadius)
	}
	return nil
}

// ValidateSamples checks that the number of samples lies in [MinSamples, MaxSamples).
func ValidateSamples(n int) error {
	if n < MinSamples || n >= MaxSamples {
		return fmt.Errorf("%w: %d not in [%d, %d)", ErrInvalidSamples, n, MinSamples, MaxSamples)
	}
	return nil
}
