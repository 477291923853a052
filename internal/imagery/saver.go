// 包 imagery：按相机参数组合下载并落盘街景图片
package imagery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"streetview-randomizer/internal/geo"
	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/metrics"
	"streetview-randomizer/internal/streetview"
)

// Fetcher is satisfied by *streetview.Client.
type Fetcher interface {
	Image(ctx context.Context, at geo.Coordinate, opt streetview.ImageOptions) ([]byte, error)
}

// Saver writes one image per (heading, pitch, fov) combination for each accepted coordinate.
type Saver struct {
	Dir      string
	Size     string
	Headings []int
	Pitches  []int
	FOVs     []int

	fetch Fetcher
}

func NewSaver(f Fetcher, dir, size string, headings, pitches, fovs []int) *Saver {
	return &Saver{Dir: filepath.Clean(dir), Size: size, Headings: headings, Pitches: pitches, FOVs: fovs, fetch: f}
}

// PerSample 每个采样坐标产生的图片数
func (s *Saver) PerSample() int { return len(s.Headings) * len(s.Pitches) * len(s.FOVs) }

// 文档注释：下载并保存一个坐标的全部图片
// 背景：目录按国家代码小写分组；文件名携带坐标与相机参数，同一坐标重复运行会覆盖旧文件。
// 约束：任一图片失败即返回错误与已写入的路径；目录不存在时创建。
func (s *Saver) Save(ctx context.Context, code string, at geo.Coordinate) ([]string, error) {
	dir := filepath.Join(s.Dir, strings.ToLower(code))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	total := s.PerSample()
	paths := make([]string, 0, total)
	for _, h := range s.Headings {
		for _, p := range s.Pitches {
			for _, f := range s.FOVs {
				if err := ctx.Err(); err != nil {
					return paths, err
				}
				img, err := s.fetch.Image(ctx, at, streetview.ImageOptions{Size: s.Size, Heading: h, Pitch: p, FOV: f})
				if err != nil {
					metrics.ImageFailTotal.Inc()
					return paths, fmt.Errorf("fetch image h=%d p=%d f=%d: %w", h, p, f, err)
				}
				path := filepath.Join(dir, FileName(at, h, p, f))
				if err := os.WriteFile(path, img, 0o644); err != nil {
					metrics.ImageFailTotal.Inc()
					return paths, fmt.Errorf("write %s: %w", path, err)
				}
				paths = append(paths, path)
				metrics.ImagesSavedTotal.Inc()
				logger.L().Info("image_saved", "n", len(paths), "of", total, "path", path)
			}
		}
	}
	return paths, nil
}

// FileName returns "{lon}_{lat}_h{heading}_p{pitch}_f{fov}.jpg".
func FileName(at geo.Coordinate, heading, pitch, fov int) string {
	return strconv.FormatFloat(at.Lon, 'f', -1, 64) + "_" + strconv.FormatFloat(at.Lat, 'f', -1, 64) +
		"_h" + strconv.Itoa(heading) + "_p" + strconv.Itoa(pitch) + "_f" + strconv.Itoa(fov) + ".jpg"
}
