package sampler

import (
	"context"
	"time"

	"streetview-randomizer/internal/logger"
)

// Finder is satisfied by *Searcher.
type Finder interface {
	Find(ctx context.Context) (*Result, error)
}

// RunOptions controls a batch of independent samplings.
type RunOptions struct {
	Samples int
	// ImagesPerSample 为每个采样计入的命中数；为 0 时按 1 计
	ImagesPerSample int
	// OnResult 在每次成功采样后调用（如保存图片），其耗时计入总耗时
	OnResult func(ctx context.Context, index int, res *Result) error
	// Stats 为空时新建
	Stats *Stats
}

// 文档注释：执行 N 次独立采样并累计统计
// 约束：任一采样或回调出错即停止，返回已累计的统计与该错误；样本数需落在 [MinSamples, MaxSamples)。
func Run(ctx context.Context, f Finder, opt RunOptions) (*Stats, error) {
	st := opt.Stats
	if st == nil {
		st = NewStats()
	}
	if err := ValidateSamples(opt.Samples); err != nil {
		return st, err
	}
	images := opt.ImagesPerSample
	if images <= 0 {
		images = 1
	}
	for i := 0; i < opt.Samples; i++ {
		res, err := f.Find(ctx)
		if err != nil {
			logger.L().Error("sample_error", "index", i, "err", err)
			return st, err
		}
		st.Record(res, images)
		logger.L().Debug("sample_found", "index", i, "country", res.Country.Code, "at", res.Coordinate.String(),
			"attempts", res.Attempts, "duration_ms", res.Elapsed.Milliseconds())
		if opt.OnResult != nil {
			t0 := time.Now()
			err := opt.OnResult(ctx, i, res)
			st.AddElapsed(time.Since(t0))
			if err != nil {
				return st, err
			}
		}
	}
	return st, nil
}
