package sampler

import (
	"math/rand"
	"time"
)

// Rand：采样使用的随机源；*math/rand.Rand 满足此接口
// 约束：返回 [0,1) 内的均匀随机数；测试注入固定种子以复现序列。
type Rand interface {
	Float64() float64
}

// NewRand returns a generator seeded with seed, or with the current time when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
